package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// BankOfAmericaMatcher handles Bank of America checking statements.
//
// Layout: MM/DD/YYYY Description Amount, withdrawals printed negative.
type BankOfAmericaMatcher struct{}

var (
	bofaIndicators = []string{"bank of america", "bankofamerica.com"}
	bofaWord       = regexp.MustCompile(`(?i)\bbofa\b`)

	bofaExclusions = []string{
		"beginning balance", "ending balance", "total deposits", "total withdrawals",
		"total checks", "total service fees", "daily ledger balance", "account summary",
		"deposits and other additions", "withdrawals and other subtractions",
	}

	bofaCheckPattern = regexp.MustCompile(`(?i)^(\d{1,2}/\d{1,2}/\d{2,4})\s+check\s+#?(\d+)\b.*?\s+(` + amountExpr + `)$`)
	bofaTxnPattern   = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4})\s+(.+?)\s+(` + amountExpr + `)$`)
	bofaTrailingRef  = regexp.MustCompile(`\s+#\w+$`)

	bofaPrefixes = []string{
		"DEBIT CARD PURCHASE ", "CHECK CARD PURCHASE ", "CHECKCARD ",
		"ONLINE BANKING TRANSFER ", "ATM WITHDRAWAL ", "RECURRING PAYMENT ",
	}
)

func (p *BankOfAmericaMatcher) Name() string {
	return "Bank of America"
}

func (p *BankOfAmericaMatcher) CanParse(text string) bool {
	return tokens.ContainsAnyFold(text, bofaIndicators) || bofaWord.MatchString(text)
}

func (p *BankOfAmericaMatcher) AccountInfo(text string) models.AccountInfo {
	return accountInfo(p.Name(), text, tokens.MonthFirst)
}

func (p *BankOfAmericaMatcher) ExtractTransactions(_ context.Context, text string) []models.Transaction {
	hint := findStatementPeriod(text, tokens.MonthFirst).hint

	var transactions []models.Transaction
	for _, line := range splitLines(text) {
		if line == "" || isExcluded(line, bofaExclusions) {
			continue
		}

		var dateStr, desc, amt string
		if m := bofaCheckPattern.FindStringSubmatch(line); m != nil {
			dateStr, desc, amt = m[1], "Check #"+m[2], m[3]
		} else if m := bofaTxnPattern.FindStringSubmatch(line); m != nil {
			dateStr, desc, amt = m[1], cleanBofaDescription(m[2]), m[3]
		} else {
			continue
		}

		date, inferred, err := tokens.ParseDate(dateStr, hint)
		if err != nil {
			continue
		}
		amount, err := tokens.ParseAmount(amt)
		if err != nil {
			continue
		}

		// Checking layout: money out is negative.
		dir := models.Credit
		if amount.IsNegative() {
			dir = models.Debit
		}
		transactions = append(transactions, newTransaction(p.Name(), date, inferred, desc, amount, dir))
	}
	return transactions
}

func cleanBofaDescription(desc string) string {
	desc = tokens.CollapseSpaces(desc)
	upper := strings.ToUpper(desc)
	for _, prefix := range bofaPrefixes {
		if strings.HasPrefix(upper, prefix) {
			desc = strings.TrimSpace(desc[len(prefix):])
			break
		}
	}
	return bofaTrailingRef.ReplaceAllString(desc, "")
}
