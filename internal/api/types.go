package api

import (
	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/internal/contract"
)

// RecommendResponse is the body of a successful POST /api/recommend.
type RecommendResponse struct {
	Success         bool                      `json:"success"`
	RequestID       string                    `json:"request_id"`
	Recommendations []contract.Recommendation `json:"recommendations"`
	Metadata        contract.Metadata         `json:"metadata"`
}

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status              string `json:"status"`
	ModelLoaded         bool   `json:"model_loaded"`
	ModelBackend        string `json:"model_backend,omitempty"`
	FeatureEncoderReady bool   `json:"feature_encoder_ready"`
	RuleScorerReady     bool   `json:"rule_scorer_ready"`
	HybridEngine        string `json:"hybrid_engine"`
	CatalogSize         int    `json:"catalog_size"`
}

// PackagesResponse is the body of GET /api/packages.
type PackagesResponse []catalog.Package
