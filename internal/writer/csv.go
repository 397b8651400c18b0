package writer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/insightdelivered/statement-expenses/internal/aggregate"
	"github.com/insightdelivered/statement-expenses/internal/models"
)

// DateLayout is how transaction dates are written.
const DateLayout = "2006-01-02"

// CSVWriter writes transactions to CSV format.
type CSVWriter struct {
	// IncludeHeader adds "# key,value" rows describing each account before
	// the column headers.
	IncludeHeader bool
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, txns []models.Transaction, accounts []models.AccountInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, txns, accounts)
}

// Write writes transactions in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, txns []models.Transaction, accounts []models.AccountInfo) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		for _, a := range accounts {
			meta := [][2]string{
				{"# Issuer", a.Issuer},
				{"# Account Holder", a.AccountHolder},
				{"# Account Number", a.AccountNumber},
			}
			if a.HasPeriod() {
				meta = append(meta, [2]string{"# Statement Period", a.PeriodStart.Format(DateLayout) + " to " + a.PeriodEnd.Format(DateLayout)})
			}
			for _, kv := range meta {
				if kv[1] == "" {
					continue
				}
				if err := writer.Write(kv[:]); err != nil {
					return fmt.Errorf("failed to write CSV metadata: %w", err)
				}
			}
		}
	}

	header := []string{"Date", "Description", "Amount", "Direction", "Category", "Source", "Inferred"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range txns {
		row := []string{
			txn.Date.Format(DateLayout),
			txn.Description,
			txn.Amount.StringFixed(2),
			string(txn.Direction),
			txn.Category,
			string(txn.CategorySource),
			strconv.FormatBool(txn.DateInferred),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFormLines writes the per-line totals handed to the form filler.
func WriteFormLines(out io.Writer, lines []aggregate.FormLine) error {
	writer := csv.NewWriter(out)

	if err := writer.Write([]string{"Category", "Line", "Field", "Description", "Amount"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, l := range lines {
		if err := writer.Write([]string{l.Category, l.Line, l.Field, l.Description, l.Amount.StringFixed(2)}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
