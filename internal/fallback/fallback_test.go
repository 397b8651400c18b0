package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-expenses/internal/cluster"
	"github.com/insightdelivered/statement-expenses/internal/models"
)

const unknownIssuerPage = `FIRST COMMUNITY CREDIT UNION
Statement Period 03/01/24 - 03/31/24
Member Services
Date Description Amount
03/01 OFFICE DEPOT #1123 45.10
03/03 UBER TRIP HELP.UBER.COM 18.25
03/07 GITHUB INC SUBSCRIPTION 7.00
03/09 STARBUCKS STORE 0042 6.45
03/12 DELTA AIR LINES 412.80
03/31 TOTAL FEES THIS PERIOD 0.00
Thank you for being a member`

func TestExtract_UnknownLayout(t *testing.T) {
	e := New(cluster.DefaultConfig(), nil)
	doc := models.NewTextDocument("doc-1", "statement.txt", unknownIssuerPage)

	txns, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, txns, 5)

	assert.Equal(t, "OFFICE DEPOT #1123", txns[0].Description)
	assert.Equal(t, "45.1", txns[0].Amount.String())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.False(t, txns[0].DateInferred)
	assert.Equal(t, Name, txns[0].Issuer)

	assert.Equal(t, "DELTA AIR LINES", txns[4].Description)
	for _, txn := range txns {
		assert.Equal(t, models.Debit, txn.Direction)
	}
}

func TestExtract_SingleLine(t *testing.T) {
	e := New(cluster.DefaultConfig(), nil)
	doc := models.NewTextDocument("doc-2", "one.txt", "03/14/2024 WHOLE FOODS MARKET 52.18")

	txns, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "WHOLE FOODS MARKET", txns[0].Description)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), txns[0].Date)
}

func TestExtract_NoTransactions(t *testing.T) {
	e := New(cluster.DefaultConfig(), nil)
	doc := models.NewTextDocument("doc-3", "letter.txt", "Dear customer,\nYour new card is on its way.\nRegards")

	txns, err := e.Extract(context.Background(), doc)
	assert.Empty(t, txns)
	assert.True(t, errors.Is(err, ErrNoTransactionCluster))
}

func TestExtract_Cancelled(t *testing.T) {
	e := New(cluster.DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, models.NewTextDocument("doc-4", "x.txt", unknownIssuerPage))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_DayFirstDates(t *testing.T) {
	text := `HIGH STREET BANK PLC
Statement of account
Date Description Amount
15/03/2024 TESCO STORES 1234 12.00
16/03/2024 BOOTS PHARMACY 8.50
17/03/2024 COSTA COFFEE 3.20
18/03/2024 SHELL FUEL 45.00
Thank you for banking with us`

	e := New(cluster.DefaultConfig(), nil)
	txns, err := e.Extract(context.Background(), models.NewTextDocument("doc-5", "uk.txt", text))
	require.NoError(t, err)
	require.Len(t, txns, 4)

	assert.Equal(t, "TESCO STORES 1234", txns[0].Description)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), txns[3].Date)
	assert.Equal(t, "45", txns[3].Amount.String())
}

// fragmentRow places a date, a description and an amount in three columns
// on one baseline.
func fragmentRow(y float64, date, desc, amount string) []models.Fragment {
	return []models.Fragment{
		{Text: date, X: 40, Y: y, Width: 45, FontSize: 9},
		{Text: desc, X: 120, Y: y, Width: float64(len(desc)) * 4.5, FontSize: 9},
		{Text: amount, X: 520, Y: y, Width: 30, FontSize: 9},
	}
}

func TestExtract_PositionedFragments(t *testing.T) {
	frags := []models.Fragment{
		{Text: "FIRST COMMUNITY CREDIT UNION", X: 40, Y: 760, Width: 160, FontSize: 12},
		{Text: "Member Services", X: 40, Y: 740, Width: 80, FontSize: 9},
		{Text: "Date", X: 40, Y: 710, Width: 20, FontSize: 9},
		{Text: "Description", X: 120, Y: 710, Width: 50, FontSize: 9},
		{Text: "Amount", X: 520, Y: 710, Width: 30, FontSize: 9},
	}
	frags = append(frags, fragmentRow(690, "03/01/2024", "OFFICE DEPOT #1123", "45.10")...)
	frags = append(frags, fragmentRow(675, "03/03/2024", "UBER TRIP", "18.25")...)
	frags = append(frags, fragmentRow(660, "03/07/2024", "GITHUB INC SUBSCRIPTION", "7.00")...)
	frags = append(frags, fragmentRow(645, "03/09/2024", "STARBUCKS STORE 0042", "6.45")...)
	frags = append(frags, fragmentRow(630, "03/12/2024", "DELTA AIR LINES", "412.80")...)

	doc := &models.Document{
		ID:     "doc-6",
		Source: "positioned.pdf",
		Pages:  []models.Page{{Number: 1, Width: 612, Height: 792, Fragments: frags}},
	}

	e := New(cluster.DefaultConfig(), nil)
	txns, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, txns, 5)

	assert.Equal(t, "OFFICE DEPOT #1123", txns[0].Description)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.False(t, txns[0].DateInferred)
	assert.Equal(t, "DELTA AIR LINES", txns[4].Description)
	assert.Equal(t, "412.8", txns[4].Amount.String())
}
