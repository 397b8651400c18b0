package parser

import (
	"context"
	"regexp"

	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// CapitalOneMatcher handles Capital One credit card statements.
//
//	Jun 2 Jun 3 BEST BUY 00010371NEWNANGA $194.95
//	May 22 May 22 CAPITAL ONE MOBILE PYMTAuthDate 22-May - $244.23
//
// A " - $amount" cell is a payment or credit. The year comes from the
// "May 22, 2025 - Jun 20, 2025" period line.
type CapitalOneMatcher struct{}

var (
	capOnePrimary    = []string{"capital one", "capitalone.com"}
	capOneSecondary  = []string{"world mastercard", "platinum card", "trans date post date"}
	capOneOtherBanks = []string{"chase", "jpmorgan", "citibank", "bank of america", "navy federal"}

	capOneSkip = regexp.MustCompile(`(?i)trans date post date|total.*for.*period|interest charge|annual percentage|additional information|mastercard ending|days in billing cycle|page \d+ of \d+`)

	capOneMonthDate = `(` + tokens.MonthPattern() + `\s+\d{1,2})`
	capOneAmount    = `(-\s*)?(\$?[\d,]+\.\d{2})`

	capOneDual        = regexp.MustCompile(`^` + capOneMonthDate + `\s+` + capOneMonthDate + `\s+(.+?)\s+` + capOneAmount + `$`)
	capOneDualNumeric = regexp.MustCompile(`^(\d{1,2}/\d{1,2})\s+(\d{1,2}/\d{1,2})\s+(.+?)\s+` + capOneAmount + `$`)
	capOneSingle      = regexp.MustCompile(`^` + capOneMonthDate + `\s+(.+?)\s+` + capOneAmount + `$`)

	capOneArtifacts = regexp.MustCompile(`(?i)authdate\s+\d{1,2}-[a-z]{3}|#\d+:`)
)

func (p *CapitalOneMatcher) Name() string {
	return "Capital One"
}

func (p *CapitalOneMatcher) CanParse(text string) bool {
	if tokens.ContainsAnyFold(text, capOnePrimary) {
		return true
	}
	if tokens.ContainsAnyFold(text, capOneOtherBanks) || citiWord.MatchString(text) {
		return false
	}
	return tokens.ContainsAnyFold(text, capOneSecondary)
}

func (p *CapitalOneMatcher) AccountInfo(text string) models.AccountInfo {
	return accountInfo(p.Name(), text, tokens.MonthFirst)
}

func (p *CapitalOneMatcher) ExtractTransactions(_ context.Context, text string) []models.Transaction {
	hint := findStatementPeriod(text, tokens.MonthFirst).hint

	var transactions []models.Transaction
	for _, line := range splitLines(text) {
		if line == "" || capOneSkip.MatchString(line) {
			continue
		}

		// Fields: transaction date, description, payment marker, amount.
		var fields [4]string
		switch {
		case capOneDual.MatchString(line):
			m := capOneDual.FindStringSubmatch(line)
			fields = [4]string{m[1], m[3], m[4], m[5]}
		case capOneDualNumeric.MatchString(line):
			m := capOneDualNumeric.FindStringSubmatch(line)
			fields = [4]string{m[1], m[3], m[4], m[5]}
		case capOneSingle.MatchString(line):
			m := capOneSingle.FindStringSubmatch(line)
			fields = [4]string{m[1], m[2], m[3], m[4]}
		default:
			continue
		}

		date, inferred, err := tokens.ParseDate(fields[0], hint)
		if err != nil {
			continue
		}
		amount, err := tokens.ParseAmount(fields[3])
		if err != nil {
			continue
		}

		dir := models.Debit
		if fields[2] != "" {
			amount = amount.Neg()
			dir = models.Credit
		}

		desc := tokens.CollapseSpaces(capOneArtifacts.ReplaceAllString(fields[1], " "))
		transactions = append(transactions, newTransaction(p.Name(), date, inferred, desc, amount, dir))
	}
	return transactions
}
