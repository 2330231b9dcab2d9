// Package app assembles the ranking pipeline from configuration. Both the
// server and the CLI build through it so they rank identically.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/encode"
	"github.com/sphinxnet/recommender/internal/config"
	"github.com/sphinxnet/recommender/internal/controller"
	"github.com/sphinxnet/recommender/internal/logging"
	"github.com/sphinxnet/recommender/internal/store"
	"github.com/sphinxnet/recommender/policy"
	"github.com/sphinxnet/recommender/predict"
	"github.com/sphinxnet/recommender/rules"
)

// App holds the assembled components.
type App struct {
	Catalog *catalog.Catalog
	Encoder *encode.Encoder
	Scorer  *rules.Scorer
	Ranker  *controller.Ranker
	Metrics *policy.Metrics
}

// Build loads the catalog, resolves the predictive backend and wires the
// ranker. Model problems are logged and degrade to rule-only ranking; only
// catalog and rule configuration errors are returned.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	c, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	scorer, err := rules.NewScorer(cfg.RulesConfig())
	if err != nil {
		return nil, fmt.Errorf("rule scorer: %w", err)
	}
	enc := encode.NewEncoder(encode.DefaultTables())
	metrics := policy.NewMetrics()

	lc := predict.LoaderConfig{
		ArtifactPaths: cfg.Model.ArtifactPaths(),
		Fallback:      cfg.Model.Fallback,
	}
	if cfg.Model.URL != "" {
		sp, err := policy.NewSourcePolicy(cfg.Model.SourceConfig(), metrics)
		if err != nil {
			return nil, fmt.Errorf("model policy: %w", err)
		}
		lc.RemoteURL = cfg.Model.URL
		lc.RemoteRetry = cfg.Model.RetryMax
		lc.RemotePolicy = sp
		lc.RemoteClient = newHTTPClient(cfg.Model.Timeout)
	}
	loader := predict.NewLoader(lc, c, enc.Schema())

	ranker, err := controller.New(c, enc, scorer, loader.Predictor(ctx), cfg.Ranker)
	if err != nil {
		return nil, err
	}
	logging.Info().
		Int("packages", c.Len()).
		Bool("model_loaded", ranker.ModelReady()).
		Str("model_backend", ranker.ModelBackend()).
		Msg("ranker ready")

	return &App{Catalog: c, Encoder: enc, Scorer: scorer, Ranker: ranker, Metrics: metrics}, nil
}

// OpenStore opens the survey database with a breaker guarding writes.
func OpenStore(cfg config.StoreConfig, metrics *policy.Metrics) (*store.SQLite, error) {
	breaker := policy.NewCircuitBreaker("store", policy.CircuitBreakerConfig{
		Window:   time.Minute,
		Cooldown: 30 * time.Second,
	}, metrics)
	db, err := store.OpenSQLite(cfg.Path, breaker)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", cfg.Path, err)
	}
	return db, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxConnsPerHost:     64,
		MaxIdleConns:        128,
		MaxIdleConnsPerHost: 64,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
