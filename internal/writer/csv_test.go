package writer

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-expenses/internal/aggregate"
	"github.com/insightdelivered/statement-expenses/internal/models"
)

func sampleTransactions() []models.Transaction {
	return []models.Transaction{
		{
			Date:           time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Description:    "CARD PAYMENT TESCO",
			Amount:         decimal.RequireFromString("25.99"),
			Direction:      models.Debit,
			Category:       "Office Supplies",
			CategorySource: models.SourceKeyword,
		},
		{
			Date:           time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
			DateInferred:   true,
			Description:    "ACME, LTD \"SALARY\"",
			Amount:         decimal.RequireFromString("2500"),
			Direction:      models.Credit,
			Category:       "Other Business Expenses",
			CategorySource: models.SourceDefault,
		},
	}
}

func TestCSVWriter_Write(t *testing.T) {
	accounts := []models.AccountInfo{{
		Issuer:        "Metro Bank",
		AccountHolder: "John Smith",
		AccountNumber: "23-05-80 12345678",
		PeriodStart:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	if err := w.Write(&buf, sampleTransactions(), accounts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "# Issuer,Metro Bank") {
		t.Error("expected issuer metadata")
	}
	if !strings.Contains(output, "# Statement Period,2024-01-01 to 2024-01-31") {
		t.Error("expected statement period metadata")
	}
	if !strings.Contains(output, "Date,Description,Amount,Direction,Category,Source,Inferred") {
		t.Error("expected column headers")
	}
	if !strings.Contains(output, "2024-01-15,CARD PAYMENT TESCO,25.99,debit,Office Supplies,keyword,false") {
		t.Error("expected first transaction row")
	}
	if !strings.Contains(output, `"ACME, LTD ""SALARY""",2500.00,credit`) {
		t.Error("expected quoted description on second row")
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	// 4 metadata lines + 1 header + 2 transactions = 7
	if len(lines) != 7 {
		t.Errorf("expected 7 lines, got %d", len(lines))
	}
}

func TestCSVWriter_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: false}
	if err := w.Write(&buf, sampleTransactions(), []models.AccountInfo{{Issuer: "Chase"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "#") {
		t.Error("should not contain metadata when IncludeHeader is false")
	}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 3 {
		t.Errorf("expected 3 lines, got %d", len(lines))
	}
}

func TestCSVWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := &CSVWriter{}
	if err := w.WriteToFile(path, sampleTransactions(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "Date,") {
		t.Errorf("unexpected file content: %q", data)
	}

	if err := w.WriteToFile(filepath.Join(t.TempDir(), "missing", "out.csv"), nil, nil); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestWriteFormLines(t *testing.T) {
	lines := []aggregate.FormLine{
		{Category: "Travel", Line: "24a", Field: "f1_17", Description: "Schedule C Line 24a", Amount: decimal.RequireFromString("100.5")},
		{Category: "Total expenses", Line: "28", Description: "Schedule C Line 28", Amount: decimal.RequireFromString("100.5")},
	}
	var buf bytes.Buffer
	if err := WriteFormLines(&buf, lines); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Category,Line,Field,Description,Amount\n" +
		"Travel,24a,f1_17,Schedule C Line 24a,100.50\n" +
		"Total expenses,28,,Schedule C Line 28,100.50\n"
	if buf.String() != want {
		t.Errorf("got\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleTransactions()[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got[0]["description"] != "CARD PAYMENT TESCO" || got[0]["amount"] != "25.99" {
		t.Errorf("unexpected JSON: %s", buf.String())
	}
}
