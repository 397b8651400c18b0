package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// HSBCMatcher handles HSBC bank statement PDFs.
//
// HSBC statements typically have this layout:
//
//	Date | Payment type and details | Paid out | Paid in | Balance
//
// Date format: DD Mon YY (e.g., 15 Jan 24) or DD Mon YYYY. The date is
// printed once per day; later rows of the same day leave it blank.
type HSBCMatcher struct{}

var hsbcWord = regexp.MustCompile(`(?i)\bhsbc\b`)

var hsbcDatePrefix = regexp.MustCompile(`^(?:[A-Z]\s+)?(\d{1,2}[\s-]` + tokens.MonthPattern() + `[\s-]\d{2,4})\s+(.*)$`)

// DESCRIPTION AMOUNT [AMOUNT [BALANCE]]
var hsbcRowPattern = regexp.MustCompile(`^(.*?[A-Za-z].*?)\s+((?:£?[\d,]+\.\d{2}\s*){1,3})$`)

var hsbcAmountCell = regexp.MustCompile(`£?([\d,]+\.\d{2})`)

var hsbcExclusions = []string{"balance brought forward", "balance carried forward", "overdraft limit", "arranged overdraft"}

func (p *HSBCMatcher) Name() string {
	return "HSBC"
}

func (p *HSBCMatcher) CanParse(text string) bool {
	return hsbcWord.MatchString(text)
}

func (p *HSBCMatcher) AccountInfo(text string) models.AccountInfo {
	info := ukAccountInfo(p.Name(), text)
	if info.AccountHolder == "" {
		info.AccountHolder = extractNameNearLabel(text, []string{"Name"})
	}
	return info
}

func (p *HSBCMatcher) ExtractTransactions(_ context.Context, text string) []models.Transaction {
	hint := findStatementPeriod(text, tokens.DayFirst).hint

	var transactions []models.Transaction
	inTransactionSection := false
	var currentDate string
	var lastBalance decimal.Decimal
	hasBalance := false

	for _, line := range splitLines(text) {
		if line == "" {
			continue
		}

		if bal, ok := extractOpeningBalance(line); ok {
			lastBalance, hasBalance = bal, true
			continue
		}
		if containsTransactionHeader(line) {
			inTransactionSection = true
			continue
		}

		rest := line
		if m := hsbcDatePrefix.FindStringSubmatch(line); m != nil {
			currentDate = strings.ReplaceAll(m[1], "-", " ")
			rest = m[2]
			inTransactionSection = true
		}
		if !inTransactionSection || currentDate == "" || isSummaryLine(line) || isExcluded(line, hsbcExclusions) {
			continue
		}

		m := hsbcRowPattern.FindStringSubmatch(rest)
		if m == nil {
			// Wrapped payee details continue the previous row.
			if len(transactions) > 0 && rest != "" && !tokens.Money.MatchString(rest) {
				last := &transactions[len(transactions)-1]
				last.Description += " " + rest
			}
			continue
		}

		date, inferred, err := tokens.ParseDate(currentDate, hint)
		if err != nil {
			continue
		}

		var amounts []decimal.Decimal
		for _, cell := range hsbcAmountCell.FindAllStringSubmatch(m[2], -1) {
			amt, err := tokens.ParseAmount(cell[1])
			if err != nil {
				continue
			}
			amounts = append(amounts, amt)
		}

		desc := m[1]
		var txn models.Transaction
		switch len(amounts) {
		case 1:
			txn = newTransaction(p.Name(), date, inferred, desc, amounts[0], keywordDirection(desc))
		case 2:
			amt, bal := amounts[0], amounts[1]
			txn = newTransaction(p.Name(), date, inferred, desc, amt, classifyByBalance(amt, bal, lastBalance, hasBalance, desc))
			txn.Balance = &bal
		case 3:
			// Paid out, paid in and balance all printed.
			bal := amounts[2]
			if amounts[0].IsZero() && amounts[1].IsPositive() {
				txn = newTransaction(p.Name(), date, inferred, desc, amounts[1], models.Credit)
			} else {
				txn = newTransaction(p.Name(), date, inferred, desc, amounts[0], models.Debit)
			}
			txn.Balance = &bal
		default:
			continue
		}

		if txn.Balance != nil {
			lastBalance, hasBalance = *txn.Balance, true
		}
		transactions = append(transactions, txn)
	}

	return transactions
}

// keywordDirection decides direction from the description alone.
func keywordDirection(desc string) models.Direction {
	if isCreditDescription(desc) {
		return models.Credit
	}
	return models.Debit
}
