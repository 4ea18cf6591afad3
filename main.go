package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/spencer-p/tidegraph/pkg/cache"
	"github.com/spencer-p/tidegraph/pkg/config"
	"github.com/spencer-p/tidegraph/pkg/data"
	"github.com/spencer-p/tidegraph/pkg/handlers"
	"github.com/spencer-p/tidegraph/pkg/metrics"
)

func main() {
	env, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Bad configuration")
	}
	env.InitLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := data.Open(env.Store())
	if err != nil {
		log.Fatal().Err(err).Str("dsn", config.Redacted(env.Store().DSN)).Msg("Failed to open database")
	}
	defer store.Close()

	graphCache, closeCache := openCache(ctx, env)
	defer closeCache()

	r := mux.NewRouter().StrictSlash(true)
	r.Use(withRequestLogger, metrics.LatencyHandler)
	s := r.PathPrefix(env.Prefix).Subrouter()
	handlers.Register(s, store, graphCache, env.Units())
	handlers.RegisterHealth(s, store)
	s.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Handler:      r,
		Addr:         "0.0.0.0:" + env.Port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	log.Info().Str("addr", srv.Addr).Str("prefix", env.Prefix).Msg("Listening and serving")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// openCache prefers Redis when configured so replicas share invalidations,
// and falls back to an in-process cache.
func openCache(ctx context.Context, env config.Config) (cache.Store, func()) {
	if env.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, env.RedisURL, env.CacheTTL)
		if err == nil {
			return rc, func() { rc.Close() }
		}
		log.Warn().Err(err).Msg("Redis unavailable, using in-process cache")
	}
	tc, err := cache.NewTimed(env.CacheSize, env.CacheTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create cache")
	}
	return tc, func() {}
}

// withRequestLogger gives each request a logger tagged with a request id.
func withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.With().
			Str("request_id", uuid.NewString()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}
