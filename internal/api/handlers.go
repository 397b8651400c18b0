package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-expenses/internal/aggregate"
	"github.com/insightdelivered/statement-expenses/internal/batch"
	"github.com/insightdelivered/statement-expenses/internal/categorize"
	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/writer"
)

// ExtractResponse is the JSON response from /api/extract.
type ExtractResponse struct {
	Success      bool                       `json:"success"`
	Documents    []batch.DocumentReport     `json:"documents"`
	Transactions []models.Transaction       `json:"transactions"`
	Totals       map[string]decimal.Decimal `json:"totals"`
	FormLines    []aggregate.FormLine       `json:"formLines"`
	CSV          string                     `json:"csv,omitempty"`
	Count        int                        `json:"count"`
	Version      string                     `json:"version,omitempty"`
}

// CorrectionRequest records a user's category for a description. When the
// corrected transaction is sent along it is returned re-categorized.
type CorrectionRequest struct {
	Description string              `json:"description"`
	Category    string              `json:"category"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// TotalsRequest carries already categorized transactions.
type TotalsRequest struct {
	Transactions []models.Transaction `json:"transactions"`
}

// TotalsResponse is the JSON response from /api/totals.
type TotalsResponse struct {
	Success   bool                       `json:"success"`
	Totals    map[string]decimal.Decimal `json:"totals"`
	FormLines []aggregate.FormLine       `json:"formLines"`
	Total     decimal.Decimal            `json:"total"`
}

var uploadExtensions = map[string]bool{".pdf": true, ".txt": true}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": s.deps.Version,
	})
}

func (s *Server) handleCategories(c *fiber.Ctx) error {
	rules := s.deps.Engine.Rules()
	return c.JSON(fiber.Map{
		"categories": rules.Names(),
		"default":    rules.Default(),
	})
}

func (s *Server) handleExtract(c *fiber.Ctx) error {
	inputs, err := s.extractInputs(c)
	if err != nil {
		return err
	}

	report, err := s.deps.Processor.Run(c.UserContext(), inputs)
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, fmt.Sprintf("extraction interrupted: %v", err))
	}

	txns := report.Transactions
	if txns == nil {
		txns = []models.Transaction{}
	}
	totals := aggregate.TotalsWithDefault(txns, s.deps.Engine.Rules().Default())

	resp := ExtractResponse{
		Success:      true,
		Documents:    report.Documents,
		Transactions: txns,
		Totals:       totals,
		FormLines:    aggregate.FormLines(totals, s.deps.FieldMappings),
		Count:        len(txns),
		Version:      s.deps.Version,
	}

	if c.FormValue("csv") != "false" {
		accounts := make([]models.AccountInfo, 0, len(report.Documents))
		for _, d := range report.Documents {
			if d.Status == batch.StatusOK {
				accounts = append(accounts, d.Account)
			}
		}
		var buf bytes.Buffer
		w := &writer.CSVWriter{IncludeHeader: c.FormValue("header") != "false"}
		if err := w.Write(&buf, txns, accounts); err != nil {
			return fmt.Errorf("CSV generation failed: %w", err)
		}
		resp.CSV = buf.String()
	}

	return c.JSON(resp)
}

// extractInputs collects uploaded "files" and an optional pasted "text"
// field.
func (s *Server) extractInputs(c *fiber.Ctx) ([]batch.Input, error) {
	var inputs []batch.Input

	if form, err := c.MultipartForm(); err == nil {
		for _, fh := range form.File["files"] {
			ext := strings.ToLower(filepath.Ext(fh.Filename))
			if !uploadExtensions[ext] {
				return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unsupported file %q: only .pdf and .txt are accepted", fh.Filename))
			}
			f, err := fh.Open()
			if err != nil {
				return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("failed to open upload %q: %v", fh.Filename, err))
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("failed to read upload %q: %v", fh.Filename, err))
			}
			inputs = append(inputs, batch.BytesInput(fh.Filename, data))
		}
	}

	if text := c.FormValue("text"); strings.TrimSpace(text) != "" {
		inputs = append(inputs, batch.TextInput("pasted text", text))
	}

	if len(inputs) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "no statement uploaded: use form field 'files' or 'text'")
	}
	return inputs, nil
}

func (s *Server) handleCorrection(c *fiber.Ctx) error {
	var req CorrectionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid correction: %v", err))
	}

	txn := models.Transaction{Description: req.Description}
	if req.Transaction != nil {
		txn = *req.Transaction
		if req.Description != "" {
			txn.Description = req.Description
		}
	}

	corrected, err := s.deps.Engine.Override(c.UserContext(), txn, req.Category)
	switch {
	case errors.Is(err, categorize.ErrUnknownCategory), errors.Is(err, categorize.ErrEmptyDescription):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"key":         categorize.NormalizeDescription(corrected.Description),
		"category":    corrected.Category,
		"transaction": corrected,
	})
}

func (s *Server) handleTotals(c *fiber.Ctx) error {
	var req TotalsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid transactions: %v", err))
	}

	totals := aggregate.TotalsWithDefault(req.Transactions, s.deps.Engine.Rules().Default())
	return c.JSON(TotalsResponse{
		Success:   true,
		Totals:    totals,
		FormLines: aggregate.FormLines(totals, s.deps.FieldMappings),
		Total:     aggregate.Sum(totals),
	})
}
