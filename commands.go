package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-expenses/internal/aggregate"
	"github.com/insightdelivered/statement-expenses/internal/api"
	"github.com/insightdelivered/statement-expenses/internal/batch"
	"github.com/insightdelivered/statement-expenses/internal/config"
	"github.com/insightdelivered/statement-expenses/internal/logger"
	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/writer"
)

// run processes paths and prints a per-document summary to stderr.
func run(cmd *cobra.Command, a *app, paths []string) (*batch.Report, error) {
	ctx := logger.WithContext(cmd.Context(), a.log)
	report, err := a.processor.Run(ctx, batch.FileInputs(paths))
	if err != nil {
		return nil, err
	}

	errOut := cmd.ErrOrStderr()
	for _, d := range report.Documents {
		switch d.Status {
		case batch.StatusOK:
			fmt.Fprintf(errOut, "%s: %d transaction(s) via %s\n", d.Source, d.Transactions, d.Matcher)
		case batch.StatusEmpty:
			fmt.Fprintf(errOut, "%s: no transactions found (tried %s)\n", d.Source, strings.Join(d.Attempts, ", "))
		default:
			fmt.Fprintf(errOut, "%s: %s: %s\n", d.Source, d.Status, d.Error)
		}
	}
	return report, nil
}

func okAccounts(report *batch.Report) []models.AccountInfo {
	var accounts []models.AccountInfo
	for _, d := range report.Documents {
		if d.Status == batch.StatusOK {
			accounts = append(accounts, d.Account)
		}
	}
	return accounts
}

// output returns the named file, or stdout for "" and "-".
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	return f, f.Close, nil
}

func newExtractCmd(cfgPath *string) *cobra.Command {
	var (
		outPath   string
		format    string
		header    bool
		issuer    string
		formLines string
	)

	cmd := &cobra.Command{
		Use:   "extract <statement> [statement ...]",
		Short: "Extract and categorize transactions",
		Example: `  statement-expenses extract jan.pdf feb.pdf mar.pdf
  statement-expenses extract --issuer "capital one" --output q1.csv statement.pdf
  statement-expenses extract --format json statement.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q: use csv or json", format)
			}

			a, err := newApp(cmd.Context(), *cfgPath, issuer)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := run(cmd, a, args)
			if err != nil {
				return err
			}

			w, closeOut, err := output(cmd, outPath)
			if err != nil {
				return err
			}
			if format == "json" {
				err = writer.WriteJSON(w, report)
			} else {
				err = (&writer.CSVWriter{IncludeHeader: header}).Write(w, report.Transactions, okAccounts(report))
			}
			if cerr := closeOut(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			if formLines != "" {
				totals := aggregate.TotalsWithDefault(report.Transactions, a.engine.Rules().Default())
				f, err := os.Create(formLines)
				if err != nil {
					return fmt.Errorf("failed to create form lines file %q: %w", formLines, err)
				}
				defer f.Close()
				return writer.WriteFormLines(f, aggregate.FormLines(totals, a.mappings))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format: csv or json")
	cmd.Flags().BoolVar(&header, "header", true, "include account metadata rows in CSV output")
	cmd.Flags().StringVar(&issuer, "issuer", "", "force one issuer matcher instead of auto-detection")
	cmd.Flags().StringVar(&formLines, "form-lines", "", "also write Schedule C line totals to this CSV file")
	return cmd
}

func newTotalsCmd(cfgPath *string) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "totals <statement> [statement ...]",
		Short: "Print per-category totals mapped to Schedule C lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *cfgPath, "")
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := run(cmd, a, args)
			if err != nil {
				return err
			}
			totals := aggregate.TotalsWithDefault(report.Transactions, a.engine.Rules().Default())

			w, closeOut, err := output(cmd, outPath)
			if err != nil {
				return err
			}
			err = writer.WriteFormLines(w, aggregate.FormLines(totals, a.mappings))
			if cerr := closeOut(); err == nil {
				err = cerr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newLearnCmd(cfgPath *string) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "learn <description> <category>",
		Short: "Record a category correction for a merchant description",
		Long: `Learn records that transactions whose normalized description matches
<description> belong to <category>. Learned rules take precedence over the
classifier and keyword rules on every later run.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *cfgPath, "")
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := logger.WithContext(cmd.Context(), a.log)
			if list {
				rules, err := a.store.All(ctx)
				if err != nil {
					return err
				}
				return writer.WriteJSON(cmd.OutOrStdout(), rules)
			}

			if err := a.engine.Learn(ctx, args[0], args[1]); err != nil {
				return err
			}
			cat, _ := a.engine.Rules().Valid(args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "learned: %q -> %s\n", args[0], cat)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print every learned rule as JSON")
	return cmd
}

func newCategoriesCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the configured expense categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			cats, err := cfg.ResolveCategories()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range cats {
				fmt.Fprintf(out, "%s\t%s\n", c.Name, strings.Join(c.Keywords, ", "))
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the built-in categories as an editable categories file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists", path)
				}
			}
			w, closeOut, err := output(cmd, path)
			if err != nil {
				return err
			}
			err = config.WriteCategories(w, config.DefaultCategories())
			if cerr := closeOut(); err == nil {
				err = cerr
			}
			return err
		},
	}
	cmd.AddCommand(initCmd)
	return cmd
}

func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *cfgPath, "")
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			log := logger.NewJSON(os.Stderr, a.cfg.LogLevel)
			srv := api.New(api.Deps{
				Processor:     a.processor,
				Engine:        a.engine,
				FieldMappings: a.mappings,
				Logger:        log,
				Version:       version,
				BodyLimitMB:   a.cfg.Server.BodyLimitMB,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Listen(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("server_shutting_down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "statement-expenses v%s\n", version)
		},
	}
}
