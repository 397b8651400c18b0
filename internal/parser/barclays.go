package parser

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// BarclaysMatcher handles Barclays bank statement PDFs.
//
// Business statements group rows by day. The "D Mon" date is printed on
// the first row of the day only, and columns are often separated by arrows:
//
//	5 Dec → Direct Debit to Stripe → 58.80 → 9,397.88
//	Card Payment to Tesco Stores → 12.00 → 9,385.88
//
// Older personal statements use DD/MM/YYYY on every row.
type BarclaysMatcher struct{}

var barclaysWord = regexp.MustCompile(`(?i)\bbarclays\b`)

var barclaysDatePrefix = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2}\s+` + tokens.MonthPattern() + `(?:\s+\d{4})?)(?:\s+(.*))?$`)

// DESCRIPTION AMOUNT [BALANCE]
var barclaysRowPattern = regexp.MustCompile(`^(.*?[A-Za-z].*?)\s+£?([\d,]+\.\d{2})(?:\s+£?([\d,]+\.\d{2}))?$`)

var barclaysSkipPhrases = []string{
	"at a glance", "your deposit is eligible", "compensation scheme",
	"your business current account", "issued on", "swiftbic", "iban gb", "anything wrong",
	// foreign currency detail lines carry amounts but are not rows
	"exchange rate", "non-sterling transaction fee", "final gbp amount",
	// footer
	"barclays bank", "registered in", "authorised by", "financial conduct",
	"prudential regulation", "please check", "if you find",
}

func (p *BarclaysMatcher) Name() string {
	return "Barclays"
}

func (p *BarclaysMatcher) CanParse(text string) bool {
	return barclaysWord.MatchString(text)
}

func (p *BarclaysMatcher) AccountInfo(text string) models.AccountInfo {
	info := ukAccountInfo(p.Name(), text)
	if info.AccountHolder == "" {
		info.AccountHolder = extractBarclaysName(text)
	}
	return info
}

func (p *BarclaysMatcher) ExtractTransactions(_ context.Context, text string) []models.Transaction {
	period := findStatementPeriod(text, tokens.DayFirst)

	var transactions []models.Transaction
	inTransactionSection := false
	var groupDate time.Time
	groupInferred := false
	haveGroup := false

	for _, raw := range splitLines(text) {
		line := tokens.CollapseSpaces(strings.ReplaceAll(raw, "→", " "))
		if line == "" {
			continue
		}
		if containsBarclaysHeader(line) {
			inTransactionSection = true
			continue
		}
		if !inTransactionSection {
			continue
		}

		// A day heading applies even when its own row is a balance line.
		rest := line
		if m := barclaysDatePrefix.FindStringSubmatch(line); m != nil {
			date, inferred, err := tokens.ParseDate(m[1], period.hint)
			if err == nil {
				groupDate, groupInferred, haveGroup = date, inferred, true
				rest = m[2]
			}
		}
		if rest == "" || isSummaryLine(line) || tokens.ContainsAnyFold(line, barclaysSkipPhrases) {
			continue
		}

		m := barclaysRowPattern.FindStringSubmatch(rest)
		if m == nil {
			// Wrapped reference text continues the previous row.
			if len(transactions) > 0 && !tokens.Money.MatchString(rest) {
				last := &transactions[len(transactions)-1]
				last.Description += " " + rest
			}
			continue
		}

		amount, err := tokens.ParseAmount(m[2])
		if err != nil {
			continue
		}

		date, inferred := groupDate, groupInferred
		if !haveGroup {
			// Rows above the first day heading belong to the period start.
			date, inferred = undatedRowDate(period), true
		}

		desc := m[1]
		txn := newTransaction(p.Name(), date, inferred, desc, amount, keywordDirection(desc))
		if m[3] != "" {
			if bal, err := tokens.ParseAmount(m[3]); err == nil {
				txn.Balance = &bal
			}
		}
		transactions = append(transactions, txn)
	}

	return transactions
}

func containsBarclaysHeader(line string) bool {
	lower := strings.ToLower(line)
	return (strings.Contains(lower, "date") &&
		(strings.Contains(lower, "money out") || strings.Contains(lower, "money in") ||
			strings.Contains(lower, "description") || strings.Contains(lower, "details"))) ||
		containsTransactionHeader(line)
}

func extractBarclaysName(text string) string {
	// The name often sits on the line after the sort code / account number.
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !tokens.ContainsAnyFold(line, []string{"sort code", "account number", "account no"}) {
			continue
		}
		if i+1 < len(lines) {
			candidate := strings.TrimSpace(lines[i+1])
			if candidate != "" && !strings.ContainsAny(candidate, "0123456789") {
				return candidate
			}
		}
	}
	return ""
}
