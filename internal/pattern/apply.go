package pattern

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// DefaultSummaryKeywords are running-total and boilerplate phrases that can
// look like transaction rows.
var DefaultSummaryKeywords = []string{
	"previous balance", "new balance", "beginning balance", "ending balance",
	"opening balance", "closing balance", "minimum payment", "payment due",
	"credit limit", "past due", "fees charged", "interest charged",
	"cash advance", "balance transfer", "customer service", "subtotal",
	"total:", "total for", "total fees", "total interest", "total purchases",
	"total payments", "total credits", "total charges", "total transactions",
}

// SummaryFilter recognises summary and subtotal lines by whole-word keywords.
// A bare "total" is not a default: it is also a merchant name.
type SummaryFilter struct {
	re *regexp.Regexp
}

// NewSummaryFilter compiles the keyword list. An empty list filters nothing.
func NewSummaryFilter(keywords []string) *SummaryFilter {
	var quoted []string
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		quoted = append(quoted, wordBounded(k))
	}
	if len(quoted) == 0 {
		return &SummaryFilter{}
	}
	return &SummaryFilter{re: regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)}
}

// wordBounded anchors a keyword on word boundaries at whichever ends are
// word characters, so "total:" still matches before a space.
func wordBounded(k string) string {
	expr := regexp.QuoteMeta(k)
	if isWordByte(k[0]) {
		expr = `\b` + expr
	}
	if isWordByte(k[len(k)-1]) {
		expr += `\b`
	}
	return expr
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// Matches reports whether the line is a summary line.
func (f *SummaryFilter) Matches(line string) bool {
	return f != nil && f.re != nil && f.re.MatchString(line)
}

// Options control how matches become transactions.
type Options struct {
	Summary *SummaryFilter
	Hint    tokens.YearHint
	Issuer  string
}

// Apply runs the pattern over every line and returns the transactions it
// recovers. Lines with an unparseable date or amount are skipped.
func Apply(p *Pattern, lines []string, opts Options) []models.Transaction {
	var out []models.Transaction
	for _, line := range lines {
		if opts.Summary.Matches(line) {
			continue
		}
		m, ok := p.Match(line)
		if !ok {
			continue
		}
		txn, ok := build(m, opts)
		if !ok {
			continue
		}
		out = append(out, txn)
	}
	return out
}

func build(m Match, opts Options) (models.Transaction, bool) {
	desc := tokens.CollapseSpaces(m.Description)
	if !strings.ContainsFunc(desc, unicode.IsLetter) {
		return models.Transaction{}, false
	}

	amount, err := tokens.ParseAmount(m.Amount)
	if err != nil {
		return models.Transaction{}, false
	}

	date, inferred, err := tokens.ParseDate(m.Date, opts.Hint)
	if err != nil {
		return models.Transaction{}, false
	}
	if m.Date2 != "" {
		if posted, _, err := tokens.ParseDate(m.Date2, opts.Hint); err == nil {
			date = tokens.SaleDate(date, posted)
		}
	}

	txn := models.Transaction{
		Date:         date,
		DateInferred: inferred,
		Description:  desc,
		Amount:       amount,
		Direction:    models.Debit,
		Issuer:       opts.Issuer,
	}
	if amount.IsNegative() {
		txn.Direction = models.Credit
	}
	if m.Balance != "" {
		if bal, err := tokens.ParseAmount(m.Balance); err == nil {
			txn.Balance = &bal
		}
	}
	return txn, true
}
