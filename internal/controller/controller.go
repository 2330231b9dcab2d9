// Package controller runs the hybrid ranking pipeline: encode the survey,
// take the model's strongest picks, fill up with rule-scored packages the
// model did not pick, and merge both into one ordered list.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/encode"
	"github.com/sphinxnet/recommender/fuse"
	"github.com/sphinxnet/recommender/internal/contract"
	"github.com/sphinxnet/recommender/internal/logging"
	"github.com/sphinxnet/recommender/obs"
	"github.com/sphinxnet/recommender/predict"
	"github.com/sphinxnet/recommender/rules"
	"github.com/sphinxnet/recommender/survey"
)

// ErrMissingDependency indicates a nil collaborator passed to New.
var ErrMissingDependency = errors.New("ranker dependency missing")

// Predictor is the ranker's view of the predictive scorer.
type Predictor interface {
	Predict(ctx context.Context, features encode.Vector) predict.Result
	Ready() bool
	BackendName() string
	Ping(ctx context.Context) error
}

// Config tunes the selection thresholds and caching.
type Config struct {
	ModelLimit     int           `koanf:"model_limit" validate:"gte=0"`
	ModelThreshold float64       `koanf:"model_threshold" validate:"gte=0,lte=1"`
	RuleLimit      int           `koanf:"rule_limit" validate:"gte=0"`
	RuleThreshold  float64       `koanf:"rule_threshold" validate:"gte=0,lte=1"`
	Fuse           fuse.Config   `koanf:"-"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
	CacheEntries   int           `koanf:"cache_entries" validate:"gte=0"`
	// Version salts cache keys so a config change never serves stale lists.
	Version string `koanf:"version"`
}

// DefaultConfig returns three model picks above 0.1 confidence and three
// rule picks above 0.2, merged into at most six.
func DefaultConfig() Config {
	return Config{
		ModelLimit:     3,
		ModelThreshold: 0.1,
		RuleLimit:      3,
		RuleThreshold:  0.2,
		Fuse:           fuse.DefaultConfig(),
		CacheTTL:       5 * time.Minute,
	}
}

// Ranker produces recommendation lists. It holds only read-only state and
// the result cache, so one instance serves concurrent requests.
type Ranker struct {
	catalog   *catalog.Catalog
	encoder   *encode.Encoder
	scorer    *rules.Scorer
	predictor Predictor
	cfg       Config
	cache     *Cache
}

// New wires a ranker.
func New(c *catalog.Catalog, enc *encode.Encoder, scorer *rules.Scorer, p Predictor, cfg Config) (*Ranker, error) {
	switch {
	case c == nil:
		return nil, fmt.Errorf("%w: catalog", ErrMissingDependency)
	case enc == nil:
		return nil, fmt.Errorf("%w: encoder", ErrMissingDependency)
	case scorer == nil:
		return nil, fmt.Errorf("%w: rule scorer", ErrMissingDependency)
	}
	if p == nil {
		p = predict.NewPredictor(nil, c.Len())
	}
	if cfg.Fuse.MaxResults <= 0 {
		cfg.Fuse = fuse.DefaultConfig()
	}
	return &Ranker{
		catalog:   c,
		encoder:   enc,
		scorer:    scorer,
		predictor: p,
		cfg:       cfg,
		cache:     NewCache(cfg.CacheTTL, cfg.CacheEntries),
	}, nil
}

// Recommend ranks the catalog for one survey. It never fails; a missing or
// broken model only removes the model-sourced entries.
func (r *Ranker) Recommend(ctx context.Context, resp survey.Response) contract.Result {
	ctx, span := obs.StartSpan(ctx, "ranker.recommend")
	defer span.End()

	resp = resp.Normalize()
	key := BuildCacheKey(resp.Key(), r.cfg, r.predictor.BackendName())
	if cached, ok := r.cache.Get(key); ok {
		obs.RecordCache(true)
		span.SetAttributes(attribute.Bool("cache_hit", true))
		cached.Metadata.CacheHit = true
		return cached
	}
	obs.RecordCache(false)

	features := r.encoder.Encode(resp)
	modelItems, res := r.modelPicks(ctx, features)
	ruleItems := r.rulePicks(ctx, resp, fuse.Exclusions(modelItems))

	merged := fuse.Combine([][]fuse.Item{modelItems, ruleItems}, r.cfg.Fuse)
	result := r.toResult(merged, res)

	span.SetAttributes(
		attribute.Bool("model_used", result.Metadata.ModelUsed),
		attribute.Int("model_count", result.Metadata.ModelCount),
		attribute.Int("rule_count", result.Metadata.RuleCount),
	)
	obs.ObserveRanking(result.Metadata.ModelUsed, result.Metadata.ModelCount, result.Metadata.RuleCount)
	logging.Ctx(ctx).Debug().
		Bool("model_used", result.Metadata.ModelUsed).
		Int("model_count", result.Metadata.ModelCount).
		Int("rule_count", result.Metadata.RuleCount).
		Strs("packages", result.Names()).
		Msg("ranked survey")

	// A transient model failure must not pin a rules-only list.
	if res.OK() || !r.predictor.Ready() {
		r.cache.Set(key, result)
	}
	return result
}

func (r *Ranker) modelPicks(ctx context.Context, features encode.Vector) ([]fuse.Item, predict.Result) {
	ctx, span := obs.StartSpan(ctx, "ranker.predict")
	defer span.End()

	res := r.predictor.Predict(ctx, features)
	if res.OK() && len(res.Confidences) != r.catalog.Len() {
		res = predict.Unavailable(predict.ErrShapeMismatch.Error())
	}
	if !res.OK() {
		span.SetAttributes(attribute.String("unavailable", res.Reason))
		return nil, res
	}
	items := make([]fuse.Item, len(res.Confidences))
	for i, conf := range res.Confidences {
		items[i] = fuse.Item{
			ID:       r.catalog.At(i).Name,
			Index:    i,
			Score:    conf,
			Priority: contract.SourceModel.Priority(),
		}
	}
	return fuse.SelectTop(items, r.cfg.ModelLimit, r.cfg.ModelThreshold), res
}

func (r *Ranker) rulePicks(ctx context.Context, resp survey.Response, exclude map[string]struct{}) []fuse.Item {
	_, span := obs.StartSpan(ctx, "ranker.rules")
	defer span.End()

	items := make([]fuse.Item, 0, r.catalog.Len())
	for i := 0; i < r.catalog.Len(); i++ {
		p := r.catalog.At(i)
		if _, skip := exclude[p.Name]; skip {
			continue
		}
		b := r.scorer.Score(resp, p)
		items = append(items, fuse.Item{
			ID:       p.Name,
			Index:    i,
			Score:    b.Total,
			Priority: contract.SourceRule.Priority(),
			Payload:  b,
		})
	}
	span.SetAttributes(attribute.Int("candidates", len(items)), attribute.Int("excluded", len(exclude)))
	return fuse.SelectTop(items, r.cfg.RuleLimit, r.cfg.RuleThreshold)
}

func (r *Ranker) toResult(items []fuse.Item, res predict.Result) contract.Result {
	out := contract.Result{
		Recommendations: make([]contract.Recommendation, 0, len(items)),
		Metadata: contract.Metadata{
			ModelUsed:         res.OK(),
			ModelBackend:      res.Backend,
			ModelUnavailable:  res.Reason,
			RecommendationSrc: contract.SummaryRulesOnly,
		},
	}
	if res.OK() {
		out.Metadata.RecommendationSrc = contract.SummaryHybrid
	}

	for _, it := range items {
		src := contract.SourceRule
		if it.Priority == contract.SourceModel.Priority() {
			src = contract.SourceModel
		}
		rec := contract.Recommendation{
			Package:            r.catalog.At(it.Index),
			Score:              it.Score,
			MatchPercentage:    it.Percent(),
			Source:             src,
			RecommendationType: src.RecommendationType(),
		}
		switch src {
		case contract.SourceModel:
			conf := it.Score
			rec.Confidence = &conf
			out.Metadata.ModelCount++
		default:
			if b, ok := it.Payload.(rules.Breakdown); ok {
				rec.Factors = &b
			}
			out.Metadata.RuleCount++
		}
		out.Recommendations = append(out.Recommendations, rec)
	}
	out.Metadata.Total = len(out.Recommendations)
	return out
}

// Catalog returns the ranked catalog.
func (r *Ranker) Catalog() *catalog.Catalog {
	return r.catalog
}

// ModelReady reports whether a predictive backend is attached.
func (r *Ranker) ModelReady() bool {
	return r.predictor.Ready()
}

// ModelBackend names the attached backend, or "".
func (r *Ranker) ModelBackend() string {
	return r.predictor.BackendName()
}

// Ping checks the predictive backend with a short deadline.
func (r *Ranker) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return r.predictor.Ping(ctx)
}
