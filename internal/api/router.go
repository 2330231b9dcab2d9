package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/internal/contract"
	"github.com/sphinxnet/recommender/internal/health"
	"github.com/sphinxnet/recommender/internal/logging"
	"github.com/sphinxnet/recommender/internal/store"
	"github.com/sphinxnet/recommender/obs"
	"github.com/sphinxnet/recommender/survey"
)

const (
	defaultBodyLimit = 64 << 10
	hybridEngine     = "model_then_rules"
)

// Recommender is the ranking surface the HTTP layer needs.
type Recommender interface {
	Recommend(ctx context.Context, resp survey.Response) contract.Result
	Catalog() *catalog.Catalog
	health.Checker
}

// Recorder receives successful submissions. Submit must not block.
type Recorder interface {
	Submit(rec store.Record) bool
}

// Options configures middleware and optional collaborators.
type Options struct {
	BodyLimit         int64
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequireModel      bool
	Recorder          Recorder
}

// Router wires the HTTP endpoints for the recommender.
type Router struct {
	ranker    Recommender
	recorder  Recorder
	bodyLimit int64
}

// NewRouter constructs the HTTP router.
func NewRouter(rk Recommender, opts Options) (*chi.Mux, error) {
	if rk == nil {
		return nil, fmt.Errorf("recommender is required")
	}
	r := &Router{
		ranker:    rk,
		recorder:  opts.Recorder,
		bodyLimit: opts.BodyLimit,
	}
	if r.bodyLimit <= 0 {
		r.bodyLimit = defaultBodyLimit
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(requestID)
	mux.Use(instrument)
	mux.Use(chimiddleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", contract.RequestIDHeader},
		ExposedHeaders: []string{contract.RequestIDHeader},
		MaxAge:         300,
	}))

	mux.Get("/healthz", r.handleHealthz)
	mux.Get("/readyz", health.Readyz(rk, opts.RequireModel))

	mux.Route("/api", func(api chi.Router) {
		if opts.RateLimitRequests > 0 && opts.RateLimitWindow > 0 {
			api.Use(httprate.Limit(
				opts.RateLimitRequests,
				opts.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(rateLimited),
			))
		}
		api.Post("/recommend", r.handleRecommend)
		api.Get("/packages", r.handlePackages)
		api.Get("/health", r.handleHealth)
	})

	return mux, nil
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) handleRecommend(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	id := logging.RequestIDFromContext(ctx)

	raw, err := io.ReadAll(http.MaxBytesReader(w, req.Body, r.bodyLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, id, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, id, "could not read request body")
		return
	}

	resp, err := survey.Parse(raw)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("survey rejected")
		writeError(w, http.StatusBadRequest, id, err.Error())
		return
	}

	result := r.ranker.Recommend(ctx, resp)

	if r.recorder != nil {
		r.recorder.Submit(store.Record{
			RequestID:       id,
			Survey:          resp,
			Recommendations: result.Recommendations,
			ModelUsed:       result.Metadata.ModelUsed,
			CreatedAt:       time.Now(),
		})
	}

	writeJSON(w, http.StatusOK, RecommendResponse{
		Success:         true,
		RequestID:       id,
		Recommendations: result.Recommendations,
		Metadata:        result.Metadata,
	})
}

func (r *Router) handlePackages(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, PackagesResponse(r.ranker.Catalog().Packages()))
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:              "healthy",
		ModelLoaded:         r.ranker.ModelReady(),
		ModelBackend:        r.ranker.ModelBackend(),
		FeatureEncoderReady: true,
		RuleScorerReady:     true,
		HybridEngine:        hybridEngine,
		CatalogSize:         r.ranker.Catalog().Len(),
	})
}

func rateLimited(w http.ResponseWriter, req *http.Request) {
	writeError(w, http.StatusTooManyRequests, logging.RequestIDFromContext(req.Context()), "rate limit exceeded")
}

// requestID accepts a caller-supplied id or generates one, and echoes it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(contract.RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = logging.GenerateRequestID()
		}
		w.Header().Set(contract.RequestIDHeader, id)
		next.ServeHTTP(w, req.WithContext(logging.ContextWithRequestID(req.Context(), id)))
	})
}

// instrument traces each request and records status and latency per route.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ctx, span := obs.StartSpan(req.Context(), "http.request")
		defer span.End()

		ww := chimiddleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req.WithContext(ctx))

		route := "unmatched"
		if rc := chi.RouteContext(req.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", req.Method),
			attribute.Int("http.status_code", status),
		)
		elapsed := time.Since(start)
		obs.ObserveRequest(route, status, elapsed, obs.TraceID(ctx))
		logging.Ctx(ctx).Debug().
			Str("method", req.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request served")
	})
}

func writeError(w http.ResponseWriter, status int, requestID, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg, RequestID: requestID})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		logging.Error().Err(err).Msg("encode response")
	}
}
