package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-expenses/internal/batch"
	"github.com/insightdelivered/statement-expenses/internal/categorize"
	"github.com/insightdelivered/statement-expenses/internal/classifier"
	"github.com/insightdelivered/statement-expenses/internal/config"
	"github.com/insightdelivered/statement-expenses/internal/fallback"
	"github.com/insightdelivered/statement-expenses/internal/learned"
	"github.com/insightdelivered/statement-expenses/internal/logger"
	"github.com/insightdelivered/statement-expenses/internal/parser"
)

// app holds the components every command shares.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	store     learned.Store
	engine    *categorize.Engine
	mappings  map[string]config.FieldMapping
	processor *batch.Processor
}

// newApp loads configuration and wires the pipeline. Any configuration
// problem is returned before a document is touched. issuer, when set,
// restricts routing to that one matcher.
func newApp(ctx context.Context, cfgPath, issuer string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log := logger.Default().Level(logger.ParseLevel(cfg.LogLevel))
	logger.SetDefault(log)

	cats, err := cfg.ResolveCategories()
	if err != nil {
		return nil, err
	}
	mappings, err := cfg.ResolveFieldMappings()
	if err != nil {
		return nil, err
	}

	matchers := parser.DefaultMatchers()
	var fb parser.Fallback = fallback.New(cfg.Clustering, cfg.SummaryKeywords)
	if issuer != "" {
		m, ok := parser.ByName(matchers, issuer)
		if !ok {
			return nil, fmt.Errorf("%w: unknown issuer %q", config.ErrMalformedConfiguration, issuer)
		}
		matchers, fb = []parser.Matcher{m}, nil
	}

	store, err := learned.Open(cfg.Learned)
	if err != nil {
		return nil, fmt.Errorf("open learned store: %w", err)
	}

	opts := []categorize.Option{categorize.WithStore(store)}
	if cfg.Classifier.Enabled {
		gemini, err := classifier.NewGemini(ctx, cfg.Classifier)
		switch {
		case errors.Is(err, classifier.ErrUnavailable):
			log.Warn().Err(err).Msg("classifier_disabled")
		case err != nil:
			store.Close()
			return nil, err
		default:
			opts = append(opts, categorize.WithClassifier(gemini, cfg.Classifier.Timeout))
		}
	}
	engine := categorize.New(categorize.NewRuleSet(cats, cfg.DefaultCategory), opts...)

	return &app{
		cfg:       cfg,
		log:       log,
		store:     store,
		engine:    engine,
		mappings:  mappings,
		processor: batch.New(parser.NewRouter(matchers, fb), engine, cfg.Workers),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
