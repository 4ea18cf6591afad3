// Command rebuild regenerates the stored tide curves for every location.
// It runs once, or repeatedly when REBUILD_INTERVAL is set.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/spencer-p/tidegraph/pkg/cache"
	"github.com/spencer-p/tidegraph/pkg/config"
	"github.com/spencer-p/tidegraph/pkg/data"
	"github.com/spencer-p/tidegraph/pkg/pipeline"
	"github.com/spencer-p/tidegraph/pkg/tides"
	"github.com/spencer-p/tidegraph/pkg/timetricks"
)

func main() {
	dateFlag := flag.String("date", "", "target date (YYYY-MM-DD), defaults to today in TIME_ZONE")
	idsFlag := flag.String("locations", "", "comma separated location ids, defaults to all")
	flag.Parse()

	env, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Bad configuration")
	}
	env.InitLogging()

	var target timetricks.Date
	if *dateFlag != "" {
		if target, err = timetricks.ParseDate(*dateFlag); err != nil {
			log.Fatal().Err(err).Msg("Bad -date")
		}
	}
	ids, err := parseIDs(*idsFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad -locations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	store, err := data.Open(env.Store())
	if err != nil {
		log.Fatal().Err(err).Str("dsn", config.Redacted(env.Store().DSN)).Msg("Failed to open database")
	}
	defer store.Close()

	// Without Redis there is no cache shared with the server to invalidate.
	var graphCache cache.Store
	if env.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, env.RedisURL, env.CacheTTL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, skipping cache invalidation")
		} else {
			defer rc.Close()
			graphCache = rc
		}
	}

	runner := pipeline.New(store, store, graphCache, pipeline.Options{
		Curve:        env.CurveOptions(),
		WindowDays:   env.WindowDays,
		Workers:      env.Workers,
		WriteTimeout: env.WriteTimeout,
		CachedUnits:  []tides.Units{tides.Meters, tides.Feet},
	})

	runOnce := func() error {
		locations := ids
		if len(locations) == 0 {
			all, err := store.Locations(ctx)
			if err != nil {
				return err
			}
			for _, l := range all {
				locations = append(locations, l.ID)
			}
		}
		day := target
		if day.IsZero() {
			day = timetricks.DateOf(time.Now().In(env.Location()))
		}
		return pipeline.Err(runner.Run(ctx, locations, day))
	}

	if env.RebuildInterval == 0 {
		if err := runOnce(); err != nil {
			log.Error().Err(err).Msg("Rebuild failed")
			os.Exit(1)
		}
		return
	}

	go serveMetrics(ctx, env.MetricsAddr)
	ticker := time.NewTicker(env.RebuildInterval)
	defer ticker.Stop()
	for {
		if err := runOnce(); err != nil {
			log.Error().Err(err).Msg("Rebuild failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down")
			return
		case <-ticker.C:
		}
	}
}

func parseIDs(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Handler:      mux,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
