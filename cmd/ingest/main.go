// Command ingest refreshes stored tide events from the WorldWeatherOnline
// marine API. Each location is fetched one day at a time, starting the day
// before today so the curve rebuild has a boundary event.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/spencer-p/tidegraph/pkg/config"
	"github.com/spencer-p/tidegraph/pkg/data"
	"github.com/spencer-p/tidegraph/pkg/tides"
	"github.com/spencer-p/tidegraph/pkg/timetricks"
	"github.com/spencer-p/tidegraph/pkg/wwo"
)

func main() {
	dateFlag := flag.String("date", "", "first forecast date (YYYY-MM-DD), defaults to today in TIME_ZONE")
	flag.Parse()

	env, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Bad configuration")
	}
	env.InitLogging()
	if env.APIKey == "" {
		log.Fatal().Msg("API_KEY is required")
	}

	start := timetricks.DateOf(time.Now().In(env.Location()))
	if *dateFlag != "" {
		if start, err = timetricks.ParseDate(*dateFlag); err != nil {
			log.Fatal().Err(err).Msg("Bad -date")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	store, err := data.Open(env.Store())
	if err != nil {
		log.Fatal().Err(err).Str("dsn", config.Redacted(env.Store().DSN)).Msg("Failed to open database")
	}
	defer store.Close()

	locations, err := store.Locations(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list locations")
	}

	client := wwo.NewClient(env.WWOBaseURL, env.APIKey, env.HTTPTimeout)
	var errs []error
	for _, loc := range locations {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		lctx := log.With().Int64("location_id", loc.ID).Logger().WithContext(ctx)
		if err := ingest(lctx, client, store, loc, start.AddDays(-1), env.WindowDays+1); err != nil {
			zerolog.Ctx(lctx).Error().Err(err).Msg("Ingest failed")
			errs = append(errs, fmt.Errorf("location %d: %w", loc.ID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		os.Exit(1)
	}
}

// ingest replaces a location's tide events with days of forecast starting at
// from. Nothing is written if any day fails or no events come back.
func ingest(ctx context.Context, client *wwo.Client, store *data.Store, loc data.Location, from timetricks.Date, days int) error {
	var events []tides.Event
	for i := 0; i < days; i++ {
		day := from.AddDays(i)
		dayEvents, err := client.GetTides(ctx, loc.ID, &wwo.MarineQuery{
			Lat:  loc.Latitude,
			Long: loc.Longitude,
			Date: day,
		})
		if err != nil {
			return fmt.Errorf("fetching %s: %w", day, err)
		}
		// The API may answer with more than the requested day.
		for _, e := range dayEvents {
			if e.Date == day {
				events = append(events, e)
			}
		}
	}
	if len(events) == 0 {
		return errors.New("no tide events returned")
	}
	if err := store.ReplaceTideEvents(ctx, loc.ID, events); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Int("events", len(events)).Msg("Stored tide events")
	return nil
}
