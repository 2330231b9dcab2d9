package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sphinxnet/recommender/internal/api"
	"github.com/sphinxnet/recommender/internal/app"
	"github.com/sphinxnet/recommender/internal/config"
	"github.com/sphinxnet/recommender/internal/logging"
	"github.com/sphinxnet/recommender/internal/store"
	"github.com/sphinxnet/recommender/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Logging)

	if cfg.Tracing.Enabled {
		shutdown, err := obs.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.SampleRatio)
		if err != nil {
			logging.Warn().Err(err).Msg("tracer init failed")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logging.Warn().Err(err).Msg("tracer shutdown error")
				}
			}()
		}
	}

	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("startup failed")
	}

	opts := api.Options{
		BodyLimit:         cfg.Server.BodyLimit,
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
		RequireModel:      cfg.Model.Required,
	}

	var (
		db     *store.SQLite
		writer *store.Async
	)
	if cfg.Store.Enabled {
		db, err = app.OpenStore(cfg.Store, a.Metrics)
		if err != nil {
			logging.Fatal().Err(err).Msg("store open failed")
		}
		writer = store.NewAsync(db, cfg.Store.Buffer, cfg.Store.WriteTimeout)
		opts.Recorder = writer
		logging.Info().Str("path", cfg.Store.Path).Msg("survey store enabled")
	}

	router, err := api.NewRouter(a.Ranker, opts)
	if err != nil {
		logging.Fatal().Err(err).Msg("router setup failed")
	}
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Msg("recommender listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("listen failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("shutdown error")
	}
	if writer != nil {
		if err := writer.Close(ctx); err != nil {
			logging.Warn().Err(err).Msg("store queue not drained")
		}
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("store close error")
		}
	}
	logging.Info().Msg("recommender stopped")
}
