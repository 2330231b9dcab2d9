package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/encode"
	"github.com/sphinxnet/recommender/internal/contract"
	"github.com/sphinxnet/recommender/internal/controller"
	"github.com/sphinxnet/recommender/internal/store"
	"github.com/sphinxnet/recommender/rules"
	"github.com/sphinxnet/recommender/survey"
)

type stubRanker struct {
	mu      sync.Mutex
	last    survey.Response
	calls   int
	result  contract.Result
	pingErr error
}

func (s *stubRanker) Recommend(_ context.Context, resp survey.Response) contract.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = resp
	s.calls++
	return s.result
}

func (s *stubRanker) Catalog() *catalog.Catalog  { return catalog.Default() }
func (s *stubRanker) Ping(context.Context) error { return s.pingErr }
func (s *stubRanker) ModelReady() bool           { return s.pingErr == nil }
func (s *stubRanker) ModelBackend() string       { return "stub" }

type memRecorder struct {
	mu   sync.Mutex
	recs []store.Record
}

func (m *memRecorder) Submit(rec store.Record) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return true
}

func oneResult() contract.Result {
	conf := 0.8
	return contract.Result{
		Recommendations: []contract.Recommendation{{
			Package:            catalog.Default().At(15),
			Score:              conf,
			MatchPercentage:    80,
			Source:             contract.SourceModel,
			RecommendationType: contract.SourceModel.RecommendationType(),
			Confidence:         &conf,
		}},
		Metadata: contract.Metadata{
			ModelUsed:         true,
			ModelBackend:      "stub",
			ModelCount:        1,
			Total:             1,
			RecommendationSrc: contract.SummaryHybrid,
		},
	}
}

func newTestRouter(t *testing.T, rk Recommender, opts Options) http.Handler {
	t.Helper()
	h, err := NewRouter(rk, opts)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return h
}

func post(h http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/recommend", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRouterRequiresRecommender(t *testing.T) {
	if _, err := NewRouter(nil, Options{}); err == nil {
		t.Fatalf("expected error for nil recommender")
	}
}

func TestRecommendSuccess(t *testing.T) {
	rk := &stubRanker{result: oneResult()}
	recorder := &memRecorder{}
	h := newTestRouter(t, rk, Options{Recorder: recorder})

	rec := post(h, `{"phone_model":"iPhone 15 Pro Max","usage":["Gaming"]}`, map[string]string{
		contract.RequestIDHeader: "req-123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(contract.RequestIDHeader); got != "req-123" {
		t.Fatalf("request id header = %q", got)
	}

	var body RecommendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.RequestID != "req-123" {
		t.Fatalf("unexpected envelope %+v", body)
	}
	if len(body.Recommendations) != 1 || body.Recommendations[0].RecommendationType != "ml_model" {
		t.Fatalf("unexpected recommendations %+v", body.Recommendations)
	}
	if !body.Metadata.ModelUsed || body.Metadata.Total != 1 {
		t.Fatalf("unexpected metadata %+v", body.Metadata)
	}
	if rk.last.PhoneModel != "iPhone 15 Pro Max" || len(rk.last.Usage) != 1 {
		t.Fatalf("survey not forwarded: %+v", rk.last)
	}

	if len(recorder.recs) != 1 {
		t.Fatalf("expected one stored record, got %d", len(recorder.recs))
	}
	if r := recorder.recs[0]; r.RequestID != "req-123" || !r.ModelUsed {
		t.Fatalf("unexpected stored record %+v", r)
	}
}

func TestRecommendGeneratesRequestID(t *testing.T) {
	h := newTestRouter(t, &stubRanker{result: oneResult()}, Options{})
	rec := post(h, `{}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(contract.RequestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestRecommendEmptyBodyUsesDefaults(t *testing.T) {
	rk := &stubRanker{result: oneResult()}
	h := newTestRouter(t, rk, Options{})
	if rec := post(h, "", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rk.last.Budget != survey.Defaults().Budget {
		t.Fatalf("expected default budget, got %q", rk.last.Budget)
	}
}

func TestRecommendRejectsBadShape(t *testing.T) {
	tests := map[string]string{
		"array":     `[1,2,3]`,
		"string":    `"hello"`,
		"malformed": `{"usage":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rk := &stubRanker{result: oneResult()}
			recorder := &memRecorder{}
			h := newTestRouter(t, rk, Options{Recorder: recorder})

			rec := post(h, body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			var e ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if e.Success || e.Error == "" {
				t.Fatalf("unexpected error body %+v", e)
			}
			if rk.calls != 0 || len(recorder.recs) != 0 {
				t.Fatalf("rejected request reached the ranker")
			}
		})
	}
}

func TestRecommendDefaultsOversizedFields(t *testing.T) {
	rk := &stubRanker{result: oneResult()}
	h := newTestRouter(t, rk, Options{})

	usage := make([]string, 20)
	for i := range usage {
		usage[i] = `"` + survey.UsageGaming + `"`
	}
	body := `{"reason":"` + strings.Repeat("murah ", 100) + `","phone_model":"` + strings.Repeat("x", 200) +
		`","usage":[` + strings.Join(usage, ",") + `]}`

	rec := post(h, body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	d := survey.Defaults()
	if rk.last.Reason != d.Reason || rk.last.PhoneModel != d.PhoneModel {
		t.Fatalf("expected defaults for over-long answers, got reason=%q phone=%q", rk.last.Reason, rk.last.PhoneModel)
	}
	if len(rk.last.Usage) != survey.MaxUsageItems {
		t.Fatalf("usage len = %d, want %d", len(rk.last.Usage), survey.MaxUsageItems)
	}
}

func TestRecommendBodyLimit(t *testing.T) {
	h := newTestRouter(t, &stubRanker{result: oneResult()}, Options{BodyLimit: 32})
	body := `{"reason":"` + strings.Repeat("x", 64) + `"}`
	if rec := post(h, body, nil); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPackagesListsCatalog(t *testing.T) {
	h := newTestRouter(t, &stubRanker{}, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/packages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var pkgs []catalog.Package
	if err := json.Unmarshal(rec.Body.Bytes(), &pkgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pkgs) != catalog.Default().Len() || pkgs[0].Name != catalog.Default().At(0).Name {
		t.Fatalf("unexpected packages %+v", pkgs)
	}
}

func TestHealthReportsModelState(t *testing.T) {
	h := newTestRouter(t, &stubRanker{pingErr: errors.New("down")}, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" || body.ModelLoaded || !body.RuleScorerReady || !body.FeatureEncoderReady {
		t.Fatalf("unexpected health %+v", body)
	}
	if body.CatalogSize != catalog.Default().Len() {
		t.Fatalf("catalog size = %d", body.CatalogSize)
	}
}

func TestLivenessAndReadinessEndpoints(t *testing.T) {
	h := newTestRouter(t, &stubRanker{pingErr: errors.New("down")}, Options{RequireModel: true})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestRouter(t, &stubRanker{result: oneResult()}, Options{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	})
	for i := 0; i < 2; i++ {
		if rec := post(h, `{}`, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := post(h, `{}`, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	var e ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil || e.Success {
		t.Fatalf("unexpected limit body %q", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t, &stubRanker{}, Options{CORSOrigins: []string{"https://shop.example.com"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/recommend", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestRecommendWithRealRanker(t *testing.T) {
	scorer, err := rules.NewScorer(rules.DefaultConfig())
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	rk, err := controller.New(catalog.Default(), encode.NewEncoder(encode.DefaultTables()), scorer, nil, controller.DefaultConfig())
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	h := newTestRouter(t, rk, Options{})

	payload, _ := json.Marshal(map[string]any{
		"phone_model": "Samsung Galaxy S24",
		"usage":       []string{survey.UsageStreaming},
		"budget":      survey.Budget100To250k,
	})
	rec := post(h, string(bytes.TrimSpace(payload)), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body RecommendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Metadata.ModelUsed || body.Metadata.ModelCount != 0 {
		t.Fatalf("no model attached but metadata says %+v", body.Metadata)
	}
	if body.Metadata.RecommendationSrc != contract.SummaryRulesOnly {
		t.Fatalf("recommendation source = %q", body.Metadata.RecommendationSrc)
	}
	if len(body.Recommendations) > 6 {
		t.Fatalf("too many recommendations: %d", len(body.Recommendations))
	}
	for _, r := range body.Recommendations {
		if r.Source != contract.SourceRule || r.Factors == nil {
			t.Fatalf("rule entry missing factors: %+v", r)
		}
	}
}
