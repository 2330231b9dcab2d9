package predict

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/encode"
	"github.com/sphinxnet/recommender/internal/logging"
	"github.com/sphinxnet/recommender/obs"
	"github.com/sphinxnet/recommender/policy"
)

// Fallback modes used when no model can be loaded.
const (
	FallbackNone      = "none"
	FallbackHeuristic = "heuristic"
)

// LoaderConfig lists where to look for a model, in priority order: a remote
// model server, then artifact files (primary before legacy), then the
// fallback.
type LoaderConfig struct {
	RemoteURL     string
	RemoteRetry   int
	RemotePolicy  *policy.SourcePolicy
	RemoteClient  HTTPClient
	ArtifactPaths []string
	Fallback      string
}

// Loader resolves the backend lazily, exactly once, even under concurrent
// first use.
type Loader struct {
	cfg     LoaderConfig
	catalog *catalog.Catalog
	schema  encode.Schema

	once    sync.Once
	backend Backend
	err     error
}

// NewLoader prepares a loader; nothing is read until Load.
func NewLoader(cfg LoaderConfig, c *catalog.Catalog, s encode.Schema) *Loader {
	return &Loader{cfg: cfg, catalog: c, schema: s}
}

// Load returns the resolved backend, or ErrNoBackend.
func (l *Loader) Load(ctx context.Context) (Backend, error) {
	l.once.Do(func() {
		l.backend, l.err = l.resolve(ctx)
		if l.err != nil {
			logging.Warn().Err(l.err).Msg("predictive scorer unavailable; serving rule-based results only")
			return
		}
		obs.SetModelLoaded(l.backend.Name(), true)
		logging.Info().Str("backend", l.backend.Name()).Msg("predictive backend loaded")
	})
	return l.backend, l.err
}

// Predictor returns a predictor over the loaded backend. When loading fails
// the predictor is permanently unavailable.
func (l *Loader) Predictor(ctx context.Context) *Predictor {
	b, _ := l.Load(ctx)
	return NewPredictor(b, l.catalog.Len())
}

func (l *Loader) resolve(context.Context) (Backend, error) {
	if l.cfg.RemoteURL != "" {
		r, err := NewRemote(RemoteConfig{
			URL:      l.cfg.RemoteURL,
			RetryMax: l.cfg.RemoteRetry,
			Client:   l.cfg.RemoteClient,
			Policy:   l.cfg.RemotePolicy,
		})
		if err == nil {
			return r, nil
		}
		logging.Warn().Err(err).Msg("remote model backend rejected")
	}

	for _, path := range l.cfg.ArtifactPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			logging.Debug().Str("path", path).Msg("model artifact not found")
			continue
		}
		lin, err := LoadLinear(path, l.catalog, l.schema)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("model artifact rejected")
			continue
		}
		return lin, nil
	}

	if l.cfg.Fallback == FallbackHeuristic {
		h, err := NewHeuristic(l.catalog, l.schema)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return nil, ErrNoBackend
}
