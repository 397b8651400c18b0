// Package aggregate sums categorized transactions into per-category totals.
package aggregate

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-expenses/internal/config"
	"github.com/insightdelivered/statement-expenses/internal/models"
)

// TotalLine is the form line for the sum of all expenses.
const TotalLine = "28"

// Totals sums transactions per category. A debit adds its magnitude and a
// credit subtracts it, whatever sign the statement printed. Transactions
// without a category are counted under config.DefaultCategoryName.
func Totals(txns []models.Transaction) map[string]decimal.Decimal {
	return TotalsWithDefault(txns, config.DefaultCategoryName)
}

// TotalsWithDefault is Totals with an explicit label for uncategorized rows.
func TotalsWithDefault(txns []models.Transaction, defaultCategory string) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, t := range txns {
		cat := t.Category
		if strings.TrimSpace(cat) == "" {
			cat = defaultCategory
		}
		totals[cat] = totals[cat].Add(Contribution(t))
	}
	return totals
}

// Contribution is the signed amount t adds to its category total.
func Contribution(t models.Transaction) decimal.Decimal {
	if t.Direction == models.Credit {
		return t.Magnitude().Neg()
	}
	return t.Magnitude()
}

// FormLine is one row handed to the form filler.
type FormLine struct {
	Category    string          `json:"category"`
	Line        string          `json:"line"`
	Field       string          `json:"field,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// FormLines maps totals onto form lines, sorted by category, followed by a
// "Total expenses" row. Categories without a mapping keep an empty Line.
func FormLines(totals map[string]decimal.Decimal, mappings map[string]config.FieldMapping) []FormLine {
	cats := make([]string, 0, len(totals))
	for c := range totals {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	lines := make([]FormLine, 0, len(cats)+1)
	sum := decimal.Zero
	for _, c := range cats {
		amt := totals[c].Round(2)
		sum = sum.Add(amt)

		fl := FormLine{Category: c, Amount: amt}
		if m, ok := mappings[c]; ok {
			fl.Line = m.Line
			fl.Field = m.FieldPattern
			fl.Description = m.Description
		}
		lines = append(lines, fl)
	}

	return append(lines, FormLine{
		Category:    "Total expenses",
		Line:        TotalLine,
		Description: "Schedule C Line " + TotalLine,
		Amount:      sum,
	})
}

// Sum returns the grand total of totals.
func Sum(totals map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range totals {
		sum = sum.Add(v)
	}
	return sum
}
