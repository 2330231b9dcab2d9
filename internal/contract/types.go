// Package contract holds the ranked-result types shared by the ranker, the
// HTTP layer, the store and the CLI.
package contract

import (
	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/rules"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// Source tags where a recommendation came from.
type Source string

const (
	SourceModel Source = "model"
	SourceRule  Source = "rule"
)

// RecommendationType returns the legacy wire tag for the source.
func (s Source) RecommendationType() string {
	if s == SourceModel {
		return "ml_model"
	}
	return "survey_based"
}

// Priority orders sources in a merged list; lower comes first.
func (s Source) Priority() int {
	if s == SourceModel {
		return 0
	}
	return 1
}

// Recommendation is one scored package.
type Recommendation struct {
	catalog.Package
	Score              float64 `json:"score"`
	MatchPercentage    int     `json:"match_percentage"`
	Source             Source  `json:"source"`
	RecommendationType string  `json:"recommendation_type"`
	// Confidence is set for model-sourced entries.
	Confidence *float64 `json:"confidence,omitempty"`
	// Factors is set for rule-sourced entries.
	Factors *rules.Breakdown `json:"factors,omitempty"`
}

// Metadata describes how a result was produced.
type Metadata struct {
	ModelUsed         bool   `json:"model_used"`
	ModelBackend      string `json:"model_backend,omitempty"`
	ModelUnavailable  string `json:"model_unavailable_reason,omitempty"`
	ModelCount        int    `json:"model_count"`
	RuleCount         int    `json:"rule_count"`
	Total             int    `json:"total"`
	CacheHit          bool   `json:"cache_hit"`
	RecommendationSrc string `json:"recommendation_source"`
}

// Recommendation source summaries.
const (
	SummaryHybrid    = "hybrid"
	SummaryRulesOnly = "rules_only"
)

// Result is the ranker's output: at most six recommendations with model
// entries first.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	Metadata        Metadata         `json:"metadata"`
}

// Names returns the package names in order.
func (r Result) Names() []string {
	out := make([]string, len(r.Recommendations))
	for i, rec := range r.Recommendations {
		out[i] = rec.Name
	}
	return out
}
