package parser

import (
	"context"
	"regexp"

	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// NavyFederalMatcher handles Navy Federal Credit Union card and checking
// statements, which use different row layouts:
//
//	08/24/24 08/26/24 24269794238500664550107 GREENS DISCOUNT BEVERA GREENVILLE SC $79.68
//	07-11 Checking Monthly Service Fee 10.00- 314.26
//	06-30 Dividend 0.08 401.05
//
// Card rows are always charges. On checking rows a trailing minus marks
// money out; the last column is the running balance.
type NavyFederalMatcher struct{}

var (
	navyPrimary    = []string{"navy federal", "navyfederal.org"}
	navyWord       = regexp.MustCompile(`(?i)\bnfcu\b`)
	navySecondary  = []string{"stmsscm", "date transaction detail amount($) balance($)"}
	navyOtherBanks = []string{"chase", "jpmorgan", "citibank", "bank of america", "capital one"}

	navyExclusions = []string{
		"date transaction detail amount", "beginning balance", "ending balance",
		"average daily balance", "your account earned", "annual percentage yield",
		"dividend period", "summary of your deposit", "previous deposits", "totals",
		"depositvoucher",
	}

	navyCardPattern     = regexp.MustCompile(`^(\d{2}/\d{2}/\d{2})\s+(\d{2}/\d{2}/\d{2})\s+(\d{10,})\s+(.+?)\s+(\$?[\d,]+\.\d{2})$`)
	navyCheckingPattern = regexp.MustCompile(`^(\d{2}-\d{2})\s+(.+?)\s+([\d,]+\.\d{2}-?)\s+(-?[\d,]+\.\d{2})$`)
)

func (p *NavyFederalMatcher) Name() string {
	return "Navy Federal"
}

func (p *NavyFederalMatcher) CanParse(text string) bool {
	if tokens.ContainsAnyFold(text, navyPrimary) || navyWord.MatchString(text) {
		return true
	}
	if tokens.ContainsAnyFold(text, navyOtherBanks) || citiWord.MatchString(text) {
		return false
	}
	return tokens.ContainsAnyFold(text, navySecondary)
}

func (p *NavyFederalMatcher) AccountInfo(text string) models.AccountInfo {
	return accountInfo(p.Name(), text, tokens.MonthFirst)
}

func (p *NavyFederalMatcher) ExtractTransactions(_ context.Context, text string) []models.Transaction {
	hint := findStatementPeriod(text, tokens.MonthFirst).hint

	var transactions []models.Transaction
	for _, line := range splitLines(text) {
		if line == "" || isExcluded(line, navyExclusions) {
			continue
		}

		if m := navyCardPattern.FindStringSubmatch(line); m != nil {
			date, inferred, ok := citiDate(m[1], m[2], hint)
			if !ok {
				continue
			}
			amount, err := tokens.ParseAmount(m[5])
			if err != nil {
				continue
			}
			transactions = append(transactions, newTransaction(p.Name(), date, inferred, m[4], amount, models.Debit))
			continue
		}

		if m := navyCheckingPattern.FindStringSubmatch(line); m != nil {
			date, inferred, err := tokens.ParseDate(m[1], hint)
			if err != nil {
				continue
			}
			amount, err := tokens.ParseAmount(m[3])
			if err != nil {
				continue
			}
			balance, err := tokens.ParseAmount(m[4])
			if err != nil {
				continue
			}

			dir := models.Credit
			if amount.IsNegative() {
				dir = models.Debit
			}
			txn := newTransaction(p.Name(), date, inferred, m[2], amount, dir)
			txn.Balance = &balance
			transactions = append(transactions, txn)
		}
	}
	return transactions
}
