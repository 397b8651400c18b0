package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// amountExpr is the amount cell used by the issuer patterns: optional sign,
// dollar sign and parentheses, two decimals.
const amountExpr = `\(?-?\$?[\d,]+\.\d{2}\)?`

// balanceTolerance absorbs rounding in printed running balances.
var balanceTolerance = decimal.RequireFromString("0.015")

var (
	pageFooterPattern  = regexp.MustCompile(`(?i)\bpage\s+\d+\s+of\s+\d+\b`)
	closingDatePattern = regexp.MustCompile(`(?i)(?:closing|statement)\s+date[:\s]+(\d{1,2}/\d{1,2}/\d{2,4})`)

	accountNumberPattern = regexp.MustCompile(`(?i)(?:account\s+(?:number|no\.?|ending\s+in)|card\s+ending\s+in|acct\.?\s*#?)[:\s]*((?:[x*\d]{4}[\s-]*)*\d{4})\b`)
	// UK account numbers are 8 digits, sort codes XX-XX-XX.
	ukAccountNumberPattern = regexp.MustCompile(`\b(\d{8})\b`)
	sortCodePattern        = regexp.MustCompile(`\b(\d{2}-\d{2}-\d{2})\b`)
)

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// normalizeLine cleans up common PDF extraction artifacts.
func normalizeLine(line string) string {
	line = strings.ReplaceAll(line, "\u200B", "")
	line = strings.ReplaceAll(line, "\u00A0", " ")
	line = strings.ReplaceAll(line, "\t", " ")
	return tokens.CollapseSpaces(line)
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, normalizeLine(l))
	}
	return lines
}

func isExcluded(line string, phrases []string) bool {
	return pageFooterPattern.MatchString(line) || tokens.ContainsAnyFold(line, phrases)
}

// statementPeriod is the billing period printed on a statement, and the
// year hint derived from it for dates printed without a year.
type statementPeriod struct {
	start time.Time
	end   time.Time
	hint  tokens.YearHint
}

func (p statementPeriod) known() bool {
	return !p.end.IsZero()
}

func findStatementPeriod(text string, order tokens.Order) statementPeriod {
	if start, end, ok := tokens.FindPeriod(text, order); ok {
		return statementPeriod{start: start, end: end, hint: tokens.HintFromPeriod(end, order)}
	}
	if m := closingDatePattern.FindStringSubmatch(text); m != nil {
		if end, _, err := tokens.ParseDate(m[1], tokens.YearHint{Order: order}); err == nil {
			return statementPeriod{end: end, hint: tokens.HintFromPeriod(end, order)}
		}
	}
	return statementPeriod{hint: tokens.YearHint{Order: order}}
}

// accountInfo collects the metadata every matcher reports.
func accountInfo(issuer, text string, order tokens.Order) models.AccountInfo {
	period := findStatementPeriod(text, order)
	return models.AccountInfo{
		Issuer:        issuer,
		AccountNumber: findAccountNumber(text),
		PeriodStart:   period.start,
		PeriodEnd:     period.end,
	}
}

func findAccountNumber(text string) string {
	if m := accountNumberPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func newTransaction(issuer string, date time.Time, inferred bool, desc string, amount decimal.Decimal, dir models.Direction) models.Transaction {
	return models.Transaction{
		Date:         date,
		DateInferred: inferred,
		Description:  tokens.CollapseSpaces(desc),
		Amount:       amount,
		Direction:    dir,
		Issuer:       issuer,
	}
}

// signDirection maps a card-style sign to a direction: charges are
// positive, payments and refunds negative.
func signDirection(amount decimal.Decimal) models.Direction {
	if amount.IsNegative() {
		return models.Credit
	}
	return models.Debit
}

// classifyByBalance determines whether a transaction is a debit or credit
// by comparing the amount and current balance against the previous balance.
// Falls back to description-based heuristic when balance info is unavailable.
func classifyByBalance(amt, bal, prevBal decimal.Decimal, hasPrev bool, desc string) models.Direction {
	if hasPrev {
		debitDiff := prevBal.Sub(amt).Sub(bal).Abs()
		creditDiff := prevBal.Add(amt).Sub(bal).Abs()
		debitOK := debitDiff.LessThan(balanceTolerance)
		creditOK := creditDiff.LessThan(balanceTolerance)

		switch {
		case debitOK && !creditOK:
			return models.Debit
		case creditOK && !debitOK:
			return models.Credit
		case debitOK && creditOK:
			if debitDiff.LessThanOrEqual(creditDiff) {
				return models.Debit
			}
			return models.Credit
		}
	}

	if isDebitDescription(desc) {
		return models.Debit
	}
	return models.Credit
}

// extractOpeningBalance looks for opening/brought-forward balance lines
// and returns the balance amount.
func extractOpeningBalance(line string) (decimal.Decimal, bool) {
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "opening balance") &&
		!strings.Contains(lower, "balance brought forward") &&
		!strings.Contains(lower, "brought forward") &&
		!strings.Contains(lower, "start balance") {
		return decimal.Zero, false
	}

	amounts := tokens.Money.FindAllString(line, -1)
	if len(amounts) == 0 {
		return decimal.Zero, false
	}
	bal, err := tokens.ParseAmount(amounts[len(amounts)-1])
	if err != nil {
		return decimal.Zero, false
	}
	return bal, true
}

func containsTransactionHeader(line string) bool {
	lower := strings.ToLower(line)
	// "paid" counts as a description column: some PDFs letter-space the
	// "details" header but keep "Paid out" intact.
	return strings.Contains(lower, "date") &&
		(strings.Contains(lower, "description") || strings.Contains(lower, "transaction") ||
			strings.Contains(lower, "details") || strings.Contains(lower, "paid")) &&
		(strings.Contains(lower, "amount") || strings.Contains(lower, "paid") ||
			strings.Contains(lower, "balance") || strings.Contains(lower, "money"))
}

var debitKeywords = []string{
	"card payment", "direct debit", "debit", "payment", "withdrawal",
	"transfer out", "standing order", "dd ", "pos ", "atm ",
	"purchase", "fee", "charge",
}

func isDebitDescription(desc string) bool {
	return tokens.ContainsAnyFold(desc, debitKeywords)
}

var creditKeywords = []string{
	"direct credit", "credit from", "bgc ", "bacs ", "refund",
	"interest paid", "transfer from", "faster payment received", "salary",
}

func isCreditDescription(desc string) bool {
	return tokens.ContainsAnyFold(desc, creditKeywords)
}

var ukSummaryKeywords = []string{
	"opening balance", "closing balance", "total paid in",
	"total paid out", "total payments", "total receipts",
	"statement period", "continued", "balance carried forward",
	"balance brought forward", "start balance", "end balance",
}

func isSummaryLine(line string) bool {
	return isExcluded(line, ukSummaryKeywords)
}

func extractNameNearLabel(text string, labels []string) string {
	for _, line := range strings.Split(text, "\n") {
		for _, label := range labels {
			idx := strings.Index(line, label)
			if idx < 0 {
				continue
			}
			rest := strings.TrimSpace(line[idx+len(label):])
			rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
			if rest != "" {
				// Drop whatever follows a column gap (account details).
				parts := strings.Split(rest, "  ")
				return strings.TrimSpace(parts[0])
			}
		}
	}
	return ""
}

// ukAccountInfo adds the holder, account number and sort code layout used by
// UK banks.
func ukAccountInfo(issuer, text string) models.AccountInfo {
	info := accountInfo(issuer, text, tokens.DayFirst)
	if info.AccountNumber == "" {
		info.AccountNumber = ukAccountNumberPattern.FindString(text)
	}
	if sc := sortCodePattern.FindString(text); sc != "" && info.AccountNumber != "" {
		info.AccountNumber = sc + " " + info.AccountNumber
	}
	info.AccountHolder = extractNameNearLabel(text, []string{"Account holder", "Account name", "Mr ", "Mrs ", "Ms "})
	return info
}
