// Package fallback extracts transactions from statements of unknown layout
// by clustering lines on layout features and synthesizing a line pattern
// from the most transaction-like cluster.
package fallback

import (
	"context"
	"errors"
	"strings"

	"github.com/insightdelivered/statement-expenses/internal/cluster"
	"github.com/insightdelivered/statement-expenses/internal/layout"
	"github.com/insightdelivered/statement-expenses/internal/logger"
	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/pattern"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// Name is reported as the issuer of fallback transactions.
const Name = "fallback"

// ErrNoTransactionCluster is returned when no page has a cluster that looks
// like transaction rows.
var ErrNoTransactionCluster = errors.New("no transaction-shaped cluster")

// Extractor runs the unsupervised pipeline.
type Extractor struct {
	cfg     cluster.Config
	summary *pattern.SummaryFilter
}

// New creates an Extractor. A nil keyword list uses the default summary keywords.
func New(cfg cluster.Config, summaryKeywords []string) *Extractor {
	if summaryKeywords == nil {
		summaryKeywords = pattern.DefaultSummaryKeywords
	}
	return &Extractor{cfg: cfg, summary: pattern.NewSummaryFilter(summaryKeywords)}
}

// Extract processes every page independently, since a synthesized pattern
// only holds for the layout it was derived from.
func (e *Extractor) Extract(ctx context.Context, doc *models.Document) ([]models.Transaction, error) {
	log := logger.FromContext(ctx)

	text := documentText(doc)
	order := tokens.DetectOrder(text)
	hint := tokens.YearHint{Order: order}
	if _, end, ok := tokens.FindPeriod(text, order); ok {
		hint = tokens.HintFromPeriod(end, order)
	}

	var out []models.Transaction
	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txns, err := e.extractPage(page, hint)
		if err != nil {
			log.Debug().Int("page", page.Number).Err(err).Msg("fallback_page_skipped")
			continue
		}
		log.Debug().Int("page", page.Number).Int("transactions", len(txns)).Msg("fallback_page_extracted")
		out = append(out, txns...)
	}

	if len(out) == 0 {
		return nil, ErrNoTransactionCluster
	}
	return out, nil
}

func (e *Extractor) extractPage(page models.Page, hint tokens.YearHint) ([]models.Transaction, error) {
	lines := layout.Lines(page)
	if len(lines) == 0 {
		return nil, ErrNoTransactionCluster
	}

	vectors := layout.PageFeatures(lines, layout.PageWidth(page, lines))
	best, ok := cluster.Best(cluster.Run(vectors, e.cfg), e.cfg)
	if !ok {
		return nil, ErrNoTransactionCluster
	}

	members := make([]string, 0, best.Size())
	for _, i := range best.Members {
		members = append(members, lines[i].Text)
	}
	p, err := pattern.Synthesize(members)
	if err != nil {
		return nil, err
	}

	// Apply to the whole page to pick up rows the clusterer left out.
	all := make([]string, len(lines))
	for i, l := range lines {
		all[i] = l.Text
	}
	txns := pattern.Apply(p, all, pattern.Options{Summary: e.summary, Hint: hint, Issuer: Name})
	if len(txns) == 0 {
		return nil, ErrNoTransactionCluster
	}
	return txns, nil
}

// documentText is the document text used for date-order and period
// detection. Pages that only carry positioned fragments contribute their
// rebuilt lines.
func documentText(doc *models.Document) string {
	parts := make([]string, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		if page.Text != "" || len(page.Fragments) == 0 {
			parts = append(parts, page.Text)
			continue
		}
		for _, l := range layout.Lines(page) {
			parts = append(parts, l.Text)
		}
	}
	return strings.Join(parts, "\n")
}
