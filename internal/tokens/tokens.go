// Package tokens recognises and parses the amount-shaped and date-shaped
// tokens that appear on bank statements.
package tokens

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const monthNames = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?`

// MoneyExpr and DateExpr are the raw expressions behind Money and Date, for
// callers that embed them in larger patterns.
const (
	MoneyExpr = `\(?[+\-]?[$£€]?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\b\)?-?`
	DateExpr  = `(?i:\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?|\d{1,2}\s+` + monthNames +
		`(?:\s+\d{4}|\s+\d{2}\b)?|` + monthNames + `\s+\d{1,2}(?:,?\s+\d{4})?)\b)`
)

var (
	// Money matches a currency amount with exactly two decimals:
	// 52.18, $1,234.56, -45.00, (12.00), 10.00-
	Money = regexp.MustCompile(MoneyExpr)

	// Date matches the date shapes we know how to parse: 03/14, 03/14/2024,
	// 06-12, 2024-03-14, 15 Jan 2024, 4 Dec, Jan 31, 2025, Jun 2.
	Date = regexp.MustCompile(DateExpr)

	spaceRun = regexp.MustCompile(`\s+`)
)

// MonthPattern is the case-insensitive month-name alternation used by Date.
func MonthPattern() string {
	return `(?i:` + monthNames + `)`
}

// ParseAmount converts a printed amount to a signed decimal. A leading minus,
// a trailing minus or surrounding parentheses make the value negative.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		negative = true
		raw = raw[1 : len(raw)-1]
	}
	if strings.HasSuffix(raw, "-") {
		negative = true
		raw = strings.TrimSuffix(raw, "-")
	}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "-") || strings.HasPrefix(raw, "−") {
		negative = true
		raw = strings.TrimLeft(raw, "-−")
	}
	raw = strings.TrimPrefix(raw, "+")

	replacer := strings.NewReplacer("$", "", "£", "", "€", "", ",", "", " ", "", " ", "")
	raw = replacer.Replace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("no digits in amount %q", s)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// IsAmountOnly reports whether the whole line is a single amount token.
func IsAmountOnly(line string) bool {
	line = strings.TrimSpace(line)
	loc := Money.FindStringIndex(line)
	return loc != nil && loc[0] == 0 && loc[1] == len(line)
}

// CollapseSpaces trims s and replaces every whitespace run with one space.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// ContainsAnyFold reports whether text contains any needle, ignoring case.
func ContainsAnyFold(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
