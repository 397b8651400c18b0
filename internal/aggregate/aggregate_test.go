package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-expenses/internal/config"
	"github.com/insightdelivered/statement-expenses/internal/models"
)

func tx(cat, amount string, dir models.Direction) models.Transaction {
	return models.Transaction{Category: cat, Amount: decimal.RequireFromString(amount), Direction: dir}
}

func TestTotals(t *testing.T) {
	txns := []models.Transaction{
		tx("Travel", "100.00", models.Debit),
		tx("Travel", "-25.50", models.Debit), // issuer printed the debit negative
		tx("Travel", "20.00", models.Credit),
		tx("Travel", "-5.00", models.Credit),
		tx("Rent", "1200", models.Debit),
		tx("", "3.10", models.Debit),
	}

	totals := Totals(txns)
	assert.True(t, decimal.RequireFromString("100.50").Equal(totals["Travel"]), totals["Travel"].String())
	assert.True(t, decimal.NewFromInt(1200).Equal(totals["Rent"]))
	assert.True(t, decimal.RequireFromString("3.10").Equal(totals[config.DefaultCategoryName]))
	assert.Len(t, totals, 3)

	// pure: a second run over the same input is identical
	again := Totals(txns)
	require.Len(t, again, len(totals))
	for k, v := range totals {
		assert.True(t, v.Equal(again[k]), k)
	}
}

func TestTotalsWithDefault(t *testing.T) {
	totals := TotalsWithDefault([]models.Transaction{tx(" ", "9.99", models.Debit)}, "Misc")
	assert.True(t, decimal.RequireFromString("9.99").Equal(totals["Misc"]))
}

func TestFormLines(t *testing.T) {
	totals := map[string]decimal.Decimal{
		"Travel":    decimal.RequireFromString("100.505"),
		"Marketing": decimal.RequireFromString("50"),
		"Unmapped":  decimal.RequireFromString("1"),
	}
	lines := FormLines(totals, config.DefaultFieldMappings())
	require.Len(t, lines, 4)

	assert.Equal(t, "Marketing", lines[0].Category)
	assert.Equal(t, "8", lines[0].Line)
	assert.Equal(t, "f1_10", lines[0].Field)

	assert.Equal(t, "Travel", lines[1].Category)
	assert.Equal(t, "24a", lines[1].Line)
	assert.Equal(t, "100.51", lines[1].Amount.StringFixed(2))

	assert.Equal(t, "Unmapped", lines[2].Category)
	assert.Empty(t, lines[2].Line)

	total := lines[3]
	assert.Equal(t, TotalLine, total.Line)
	assert.Equal(t, "151.51", total.Amount.StringFixed(2))
}

func TestSum(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(Sum(nil)))
	assert.Equal(t, "3.5", Sum(map[string]decimal.Decimal{
		"a": decimal.NewFromInt(1),
		"b": decimal.RequireFromString("2.5"),
	}).String())
}
