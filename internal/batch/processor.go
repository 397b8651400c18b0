// Package batch processes statements concurrently, one task per document,
// and merges the results in submission order.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/insightdelivered/statement-expenses/internal/extractor"
	"github.com/insightdelivered/statement-expenses/internal/logger"
	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/parser"
)

var (
	docTracer      = otel.Tracer("statement-expenses/batch")
	docMeter       = otel.Meter("statement-expenses/batch")
	docDuration, _ = docMeter.Float64Histogram("batch.document.duration", metric.WithDescription("Document processing duration in seconds"), metric.WithUnit("s"))
	docTotal, _    = docMeter.Int64Counter("batch.document.total", metric.WithDescription("Documents processed by status"))
)

// Status is the outcome of one document.
type Status string

const (
	StatusOK         Status = "ok"
	StatusEmpty      Status = "empty"
	StatusUnreadable Status = "unreadable"
	StatusFailed     Status = "failed"
)

// Router extracts the transactions of a document.
type Router interface {
	Route(ctx context.Context, doc *models.Document) (*parser.Result, error)
}

// Categorizer assigns categories in place.
type Categorizer interface {
	CategorizeAll(ctx context.Context, txns []models.Transaction)
}

// DocumentReport summarizes one document.
type DocumentReport struct {
	ID           string             `json:"id"`
	Source       string             `json:"source"`
	Status       Status             `json:"status"`
	Matcher      string             `json:"matcher,omitempty"`
	Attempts     []string           `json:"attempts,omitempty"`
	Account      models.AccountInfo `json:"account"`
	Transactions int                `json:"transactions"`
	Error        string             `json:"error,omitempty"`
	Duration     time.Duration      `json:"durationNs"`
}

// Report is the merged result of a batch.
type Report struct {
	Documents    []DocumentReport     `json:"documents"`
	Transactions []models.Transaction `json:"transactions"`
}

// Count returns how many documents ended with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, d := range r.Documents {
		if d.Status == s {
			n++
		}
	}
	return n
}

// Processor runs documents through extraction, routing and categorization
// on a bounded pool of workers.
type Processor struct {
	router      Router
	categorizer Categorizer
	workers     int
}

// New creates a Processor. workers <= 0 means runtime.NumCPU(); a nil
// categorizer leaves transactions uncategorized.
func New(router Router, categorizer Categorizer, workers int) *Processor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Processor{router: router, categorizer: categorizer, workers: workers}
}

type task struct {
	index int
	input Input
}

type outcome struct {
	report DocumentReport
	txns   []models.Transaction
}

// Run processes inputs and returns one report entry per input, in input
// order. A failing document never affects its siblings. The error is
// non-nil only when ctx ended before every document was processed; the
// report then holds the documents that did finish plus failed entries for
// the rest.
func (p *Processor) Run(ctx context.Context, inputs []Input) (*Report, error) {
	log := logger.FromContext(ctx)

	results := make([]outcome, len(inputs))
	tasks := make(chan task)

	workers := min(p.workers, len(inputs))
	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for t := range tasks {
				results[t.index] = p.process(ctx, id, t.input)
			}
		}(w)
	}

	submitted := 0
submit:
	for i, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break submit
		case tasks <- task{index: i, input: in}:
			submitted++
		}
	}
	close(tasks)
	wg.Wait()

	for i := submitted; i < len(inputs); i++ {
		results[i] = outcome{report: DocumentReport{
			Source: inputs[i].Source,
			Status: StatusFailed,
			Error:  ctx.Err().Error(),
		}}
	}

	report := &Report{Documents: make([]DocumentReport, 0, len(inputs))}
	for _, r := range results {
		report.Documents = append(report.Documents, r.report)
		report.Transactions = append(report.Transactions, r.txns...)
	}

	log.Info().
		Int("documents", len(inputs)).
		Int("ok", report.Count(StatusOK)).
		Int("empty", report.Count(StatusEmpty)).
		Int("unreadable", report.Count(StatusUnreadable)).
		Int("failed", report.Count(StatusFailed)).
		Int("transactions", len(report.Transactions)).
		Msg("batch_complete")

	return report, ctx.Err()
}

// process handles one document with its own span, metrics and panic guard.
func (p *Processor) process(ctx context.Context, workerID int, in Input) (out outcome) {
	id := uuid.NewString()
	log := logger.FromContext(ctx).With().Str("document_id", id).Str("source", in.Source).Logger()
	ctx = logger.WithContext(ctx, log)

	ctx, span := docTracer.Start(ctx, "document.process",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("document.id", id),
			attribute.String("document.source", in.Source),
		),
	)
	start := time.Now()
	out.report = DocumentReport{ID: id, Source: in.Source}

	defer func() {
		if r := recover(); r != nil {
			out.txns = nil
			out.report.Transactions = 0
			out.report.Status = StatusFailed
			out.report.Error = fmt.Sprintf("panic: %v", r)
			log.Error().Interface("panic", r).Msg("document_panicked")
		}

		out.report.Duration = time.Since(start)
		status := attribute.String("status", string(out.report.Status))
		if out.report.Status == StatusFailed {
			span.SetStatus(codes.Error, out.report.Error)
		}
		span.SetAttributes(status, attribute.Int("document.transactions", out.report.Transactions))
		span.End()
		docTotal.Add(ctx, 1, metric.WithAttributes(status))
		docDuration.Record(ctx, out.report.Duration.Seconds(), metric.WithAttributes(status))
	}()

	if err := ctx.Err(); err != nil {
		out.report.Status = StatusFailed
		out.report.Error = err.Error()
		return out
	}

	doc, err := in.load(ctx)
	if err != nil {
		span.RecordError(err)
		out.report.Error = err.Error()
		out.report.Status = StatusFailed
		if errors.Is(err, extractor.ErrDocumentUnreadable) {
			out.report.Status = StatusUnreadable
		}
		log.Warn().Err(err).Str("status", string(out.report.Status)).Msg("document_skipped")
		return out
	}
	doc.ID = id

	res, err := p.router.Route(ctx, doc)
	if err != nil {
		span.RecordError(err)
		out.report.Status = StatusFailed
		out.report.Error = err.Error()
		log.Warn().Err(err).Msg("document_failed")
		return out
	}

	out.report.Matcher = res.Matcher
	out.report.Attempts = res.Attempts
	out.report.Account = res.Account
	if res.Empty {
		out.report.Status = StatusEmpty
		return out
	}

	if p.categorizer != nil {
		p.categorizer.CategorizeAll(ctx, res.Transactions)
	}
	out.txns = res.Transactions
	out.report.Transactions = len(res.Transactions)
	out.report.Status = StatusOK
	log.Debug().Str("matcher", res.Matcher).Int("transactions", len(res.Transactions)).Msg("document_processed")
	return out
}
