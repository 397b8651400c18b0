package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// MetroBankMatcher handles Metro Bank statement PDFs.
//
// Metro Bank statements typically have this layout:
//
//	Date | Transaction type | Description | Paid out | Paid in | Balance
//
// Date format: DD/MM/YYYY
// Example line: "15/01/2024 CARD PAYMENT TESCO STORES 25.99 1,234.56"
type MetroBankMatcher struct{}

var metroIndicators = []string{"metro bank", "metrobankonline"}

// Metro Bank transaction line pattern:
// DATE  DESCRIPTION  [PAID_OUT]  [PAID_IN]  BALANCE
var metroTxnPattern = regexp.MustCompile(
	`^(\d{1,2}/\d{1,2}/\d{2,4})\s+(.+?)` +
		`\s+£?([\d,]+\.\d{2})?\s*£?([\d,]+\.\d{2})?\s+£?([\d,]+\.\d{2})\s*$`,
)

// Simpler pattern for lines with fewer columns
var metroTxnSimple = regexp.MustCompile(
	`^(\d{1,2}/\d{1,2}/\d{2,4})\s+(.+?)\s+£?([\d,]+\.\d{2})\s*$`,
)

var metroDateStart = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}\b`)

func (p *MetroBankMatcher) Name() string {
	return "Metro Bank"
}

func (p *MetroBankMatcher) CanParse(text string) bool {
	return tokens.ContainsAnyFold(text, metroIndicators)
}

func (p *MetroBankMatcher) AccountInfo(text string) models.AccountInfo {
	return ukAccountInfo(p.Name(), text)
}

func (p *MetroBankMatcher) ExtractTransactions(_ context.Context, text string) []models.Transaction {
	hint := findStatementPeriod(text, tokens.DayFirst).hint

	var transactions []models.Transaction
	inTransactionSection := false
	var lastBalance decimal.Decimal
	hasBalance := false

	for _, line := range splitLines(text) {
		if line == "" {
			continue
		}

		// Opening balance seeds the progression before summary lines are skipped.
		if bal, ok := extractOpeningBalance(line); ok {
			lastBalance, hasBalance = bal, true
			continue
		}

		if containsTransactionHeader(line) {
			inTransactionSection = true
			continue
		}

		dated := metroDateStart.MatchString(line)
		if !inTransactionSection && !dated {
			continue
		}
		if dated {
			inTransactionSection = true
		}

		if m := metroTxnPattern.FindStringSubmatch(line); m != nil {
			date, inferred, err := tokens.ParseDate(m[1], hint)
			if err != nil {
				continue
			}
			balance, err := tokens.ParseAmount(m[5])
			if err != nil {
				continue
			}

			paidOut, paidIn := strings.TrimSpace(m[3]), strings.TrimSpace(m[4])
			var amount decimal.Decimal
			var dir models.Direction
			switch {
			case paidOut != "" && paidIn != "":
				// All three columns printed: paid out is unambiguous.
				amount, _ = tokens.ParseAmount(paidOut)
				dir = models.Debit
			case paidOut != "":
				// One amount plus balance. The regex always fills the first
				// group, so the column is decided by the balance movement.
				amount, _ = tokens.ParseAmount(paidOut)
				dir = classifyByBalance(amount, balance, lastBalance, hasBalance, m[2])
			default:
				continue
			}

			txn := newTransaction(p.Name(), date, inferred, m[2], amount, dir)
			txn.Balance = &balance
			transactions = append(transactions, txn)
			lastBalance, hasBalance = balance, true
			continue
		}

		if m := metroTxnSimple.FindStringSubmatch(line); m != nil {
			date, inferred, err := tokens.ParseDate(m[1], hint)
			if err != nil {
				continue
			}
			amount, err := tokens.ParseAmount(m[3])
			if err != nil {
				continue
			}
			dir := models.Credit
			if isDebitDescription(m[2]) {
				dir = models.Debit
			}
			transactions = append(transactions, newTransaction(p.Name(), date, inferred, m[2], amount, dir))
			continue
		}

		// Multi-line descriptions: an undated line continues the previous row.
		if len(transactions) > 0 && !dated && !isSummaryLine(line) && !tokens.Money.MatchString(line) {
			last := &transactions[len(transactions)-1]
			last.Description += " " + line
		}
	}

	return transactions
}
