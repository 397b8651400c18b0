package categorize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-expenses/internal/learned"
	"github.com/insightdelivered/statement-expenses/internal/logger"
	"github.com/insightdelivered/statement-expenses/internal/models"
)

var (
	// ErrUnknownCategory is returned when a correction names a category
	// outside the valid set.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrEmptyDescription is returned when a correction's description
	// normalizes to nothing.
	ErrEmptyDescription = errors.New("description has no letters")
)

// Classifier picks one of categories for a transaction or fails.
type Classifier interface {
	Classify(ctx context.Context, description string, amount decimal.Decimal, categories []string) (string, error)
}

// DefaultClassifierTimeout bounds a single classifier call.
const DefaultClassifierTimeout = 10 * time.Second

// Engine runs learned -> classifier -> keyword -> default for each
// transaction. It is safe for concurrent use when its store is.
type Engine struct {
	rules      *RuleSet
	store      learned.Store
	classifier Classifier
	timeout    time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore enables learned rules.
func WithStore(s learned.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithClassifier enables the external classifier with a per-call timeout.
// A non-positive timeout uses DefaultClassifierTimeout.
func WithClassifier(c Classifier, timeout time.Duration) Option {
	return func(e *Engine) {
		e.classifier = c
		if timeout <= 0 {
			timeout = DefaultClassifierTimeout
		}
		e.timeout = timeout
	}
}

// New creates an Engine over rules.
func New(rules *RuleSet, opts ...Option) *Engine {
	e := &Engine{rules: rules, timeout: DefaultClassifierTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() *RuleSet { return e.rules }

// Categorize returns txn with Category and CategorySource set. It always
// assigns a category from the valid set.
func (e *Engine) Categorize(ctx context.Context, txn models.Transaction) models.Transaction {
	cat, src := e.classify(ctx, txn)
	txn.Category = cat
	txn.CategorySource = src
	return txn
}

// CategorizeAll categorizes txns in place.
func (e *Engine) CategorizeAll(ctx context.Context, txns []models.Transaction) {
	for i := range txns {
		txns[i] = e.Categorize(ctx, txns[i])
	}
}

func (e *Engine) classify(ctx context.Context, txn models.Transaction) (string, models.CategorySource) {
	log := logger.FromContext(ctx)

	if cat, ok := e.lookupLearned(ctx, txn.Description); ok {
		return cat, models.SourceLearned
	}

	if e.classifier != nil && ctx.Err() == nil {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		answer, err := e.classifier.Classify(callCtx, txn.Description, txn.Amount, e.rules.Names())
		cancel()
		if err != nil {
			log.Debug().Err(err).Str("description", txn.Description).Msg("classifier_fallthrough")
		} else if cat, ok := e.rules.Valid(answer); ok {
			return cat, models.SourceAI
		} else {
			log.Debug().Str("answer", answer).Str("description", txn.Description).Msg("classifier_invalid_answer")
		}
	}

	if cat, ok := e.rules.Match(txn.Description); ok {
		return cat, models.SourceKeyword
	}
	return e.rules.Default(), models.SourceDefault
}

func (e *Engine) lookupLearned(ctx context.Context, description string) (string, bool) {
	if e.store == nil {
		return "", false
	}
	key := NormalizeDescription(description)
	if key == "" {
		return "", false
	}

	stored, ok, err := e.store.Lookup(ctx, key)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("key", key).Msg("learned_lookup_failed")
		return "", false
	}
	if !ok {
		return "", false
	}
	// rules may point at categories removed from the configuration
	return e.rules.Valid(stored)
}

// Learn records a user correction so future transactions with the same
// normalized description are categorized as category.
func (e *Engine) Learn(ctx context.Context, description, category string) error {
	if e.store == nil {
		return errors.New("no learned store configured")
	}
	cat, ok := e.rules.Valid(category)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	key := NormalizeDescription(description)
	if key == "" {
		return fmt.Errorf("%w: %q", ErrEmptyDescription, strings.TrimSpace(description))
	}
	if err := e.store.Record(ctx, key, cat); err != nil {
		return fmt.Errorf("record correction: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("key", key).Str("category", cat).Msg("correction_learned")
	return nil
}

// Override applies a user correction to txn and learns it.
func (e *Engine) Override(ctx context.Context, txn models.Transaction, category string) (models.Transaction, error) {
	if err := e.Learn(ctx, txn.Description, category); err != nil {
		return txn, err
	}
	cat, _ := e.rules.Valid(category)
	txn.Category = cat
	txn.CategorySource = models.SourceUser
	return txn, nil
}
