package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "statement-expenses",
		Short: "Extract and categorize business expenses from bank statements",
		Long: `Statement Expenses reads bank and credit card statements (PDF or text),
extracts their transactions with issuer-specific matchers or a layout-clustering
fallback, assigns each one an expense category and totals the categories for
Schedule C.

Supported issuers: Citibank, Bank of America, Chase, Capital One,
Navy Federal, Metro Bank, HSBC, Barclays. Anything else goes to the fallback.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (TOML, YAML or JSON)")

	root.AddCommand(
		newExtractCmd(&cfgPath),
		newTotalsCmd(&cfgPath),
		newLearnCmd(&cfgPath),
		newCategoriesCmd(&cfgPath),
		newServeCmd(&cfgPath),
		newVersionCmd(),
	)
	return root
}
