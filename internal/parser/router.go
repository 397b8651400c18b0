package parser

import (
	"context"
	"errors"
	"fmt"

	"github.com/insightdelivered/statement-expenses/internal/logger"
	"github.com/insightdelivered/statement-expenses/internal/models"
)

// FallbackName is reported in Result.Matcher when the records came from the
// layout-clustering fallback.
const FallbackName = "fallback"

// Fallback extracts transactions from documents no matcher understands.
type Fallback interface {
	Extract(ctx context.Context, doc *models.Document) ([]models.Transaction, error)
}

// Result is the outcome of routing one document.
type Result struct {
	Transactions []models.Transaction `json:"transactions"`
	// Matcher names whichever extractor produced Transactions, or "" when Empty.
	Matcher  string             `json:"matcher,omitempty"`
	Account  models.AccountInfo `json:"account"`
	Attempts []string           `json:"attempts"`
	Empty    bool               `json:"empty"`
}

// Router picks an extractor for each document. Matchers are consulted in
// slice order, which is their priority.
type Router struct {
	matchers []Matcher
	fallback Fallback
}

// NewRouter creates a router. A nil fallback disables unsupervised
// extraction.
func NewRouter(matchers []Matcher, fallback Fallback) *Router {
	return &Router{matchers: matchers, fallback: fallback}
}

// Matchers returns the matchers in priority order.
func (r *Router) Matchers() []Matcher {
	return r.matchers
}

// Select returns the first matcher whose fingerprint accepts text. false
// means the document should go to the fallback.
func (r *Router) Select(text string) (Matcher, bool) {
	for _, m := range r.matchers {
		if m.CanParse(text) {
			return m, true
		}
	}
	return nil, false
}

// Route extracts the transactions of doc.
//
// Fingerprint-positive matchers run first, in priority order. When every one
// of them comes back empty the remaining matchers are tried, and after
// those the fallback. A document nothing can read yields an empty result,
// not an error; only context cancellation is returned.
func (r *Router) Route(ctx context.Context, doc *models.Document) (*Result, error) {
	log := logger.FromContext(ctx).With().Str("document", doc.Source).Logger()
	text := doc.Text()
	res := &Result{}

	var positive, negative []Matcher
	for _, m := range r.matchers {
		if m.CanParse(text) {
			positive = append(positive, m)
		} else {
			negative = append(negative, m)
		}
	}

	// With no fingerprint hit the document goes straight to the fallback.
	stages := [][]Matcher{positive}
	if len(positive) > 0 {
		stages = append(stages, negative)
	}

	for _, stage := range stages {
		for _, m := range stage {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res.Attempts = append(res.Attempts, m.Name())
			txns := m.ExtractTransactions(ctx, text)
			log.Debug().Str("matcher", m.Name()).Int("transactions", len(txns)).Msg("matcher_attempted")
			if len(txns) == 0 {
				continue
			}
			res.Matcher = m.Name()
			res.Account = m.AccountInfo(text)
			res.Transactions = stamp(txns, doc.ID)
			return res, nil
		}
	}

	if r.fallback != nil {
		res.Attempts = append(res.Attempts, FallbackName)
		txns, err := r.fallback.Extract(ctx, doc)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("fallback: %w", err)
		case err != nil:
			log.Debug().Err(err).Msg("fallback_no_records")
		case len(txns) > 0:
			res.Matcher = FallbackName
			res.Account = models.AccountInfo{Issuer: FallbackName}
			res.Transactions = stamp(txns, doc.ID)
			return res, nil
		}
	}

	log.Info().Strs("attempts", res.Attempts).Msg("no_transactions_found")
	res.Empty = true
	return res, nil
}

func stamp(txns []models.Transaction, docID string) []models.Transaction {
	for i := range txns {
		txns[i].DocumentID = docID
	}
	return txns
}
