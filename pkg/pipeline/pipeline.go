// Package pipeline rebuilds stored tide curves for many locations at once.
// Each location is rebuilt independently; one location failing never stops
// the others.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/spencer-p/tidegraph/pkg/cache"
	"github.com/spencer-p/tidegraph/pkg/curve"
	"github.com/spencer-p/tidegraph/pkg/metrics"
	"github.com/spencer-p/tidegraph/pkg/tides"
	"github.com/spencer-p/tidegraph/pkg/timetricks"
)

// Source reads tide events.
type Source interface {
	TideEvents(ctx context.Context, locationID int64, from, to timetricks.Date) ([]tides.Event, error)
	BoundaryEvent(ctx context.Context, locationID int64, before timetricks.Date) (*tides.Event, error)
}

// Sink replaces a location's stored curve atomically.
type Sink interface {
	ReplaceGraphSamples(ctx context.Context, locationID int64, samples []tides.Sample) error
}

// Status is the outcome of rebuilding one location.
type Status string

const (
	Rebuilt          Status = "rebuilt"
	NoData           Status = "no_data"
	InsufficientData Status = "insufficient_data"
	Failed           Status = "failed"
	Skipped          Status = "skipped"
)

// Report describes what happened to one location.
type Report struct {
	LocationID int64
	Status     Status
	Samples    int
	Duration   time.Duration
	Err        error
}

// Options tunes a Runner.
type Options struct {
	Curve curve.Options
	// WindowDays is how many days of events, starting at the target date,
	// feed the curve.
	WindowDays int
	// Workers bounds how many locations are rebuilt at once. Keep it at or
	// below the storage connection limit.
	Workers int
	// WriteTimeout bounds a write that started before shutdown.
	WriteTimeout time.Duration
	// Units whose cached graphs are dropped after a rebuild.
	CachedUnits []tides.Units
}

// Runner rebuilds tide curves.
type Runner struct {
	source Source
	sink   Sink
	cache  cache.Store
	opts   Options
}

// New creates a Runner. cache may be nil.
func New(source Source, sink Sink, c cache.Store, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.WindowDays < 1 {
		opts.WindowDays = 1
	}
	if opts.Curve.Interval == 0 {
		opts.Curve.Interval = curve.DefaultInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	return &Runner{
		source: source,
		sink:   sink,
		cache:  c,
		opts:   opts,
	}
}

// Run rebuilds every location for the target date and returns one report per
// location, in input order. Once ctx is done no new locations are started and
// the rest are reported as skipped.
func (r *Runner) Run(ctx context.Context, locations []int64, target timetricks.Date) []Report {
	start := time.Now()
	runID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().
		Str("run_id", runID).
		Str("target", target.String()).
		Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().
		Int("locations", len(locations)).
		Int("workers", r.opts.Workers).
		Msg("Starting tide curve rebuild")

	reports := make([]Report, len(locations))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				reports[i] = r.RebuildLocation(ctx, locations[i], target)
			}
		}()
	}

	for i := range locations {
		if ctx.Err() == nil {
			select {
			case jobs <- i:
				continue
			case <-ctx.Done():
			}
		}
		reports[i] = Report{
			LocationID: locations[i],
			Status:     Skipped,
			Err:        ctx.Err(),
		}
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	metrics.ObserveRun(elapsed)
	summary := Summarize(reports)
	logger.Info().
		Dur("duration", elapsed).
		Interface("statuses", summary).
		Msg("Finished tide curve rebuild")
	return reports
}

// RebuildLocation assembles and stores the curve for one location. Errors are
// carried in the report.
func (r *Runner) RebuildLocation(ctx context.Context, locationID int64, target timetricks.Date) Report {
	start := time.Now()
	logger := zerolog.Ctx(ctx).With().Int64("location_id", locationID).Logger()
	ctx = logger.WithContext(ctx)

	report := Report{LocationID: locationID}
	samples, err := r.rebuild(ctx, locationID, target)
	switch {
	case err == nil:
		report.Status = Rebuilt
		report.Samples = samples
	case errors.Is(err, curve.ErrNoData):
		report.Status = NoData
	case errors.As(err, new(*curve.InsufficientDataError)):
		report.Status = InsufficientData
		report.Err = err
	default:
		report.Status = Failed
		report.Err = err
	}
	report.Duration = time.Since(start)
	metrics.ObserveRebuild(string(report.Status), report.Duration, report.Samples)

	var event *zerolog.Event
	switch report.Status {
	case Failed:
		event = logger.Error().Err(report.Err)
	case InsufficientData:
		event = logger.Warn().Err(report.Err)
	default:
		event = logger.Info()
	}
	event.Str("status", string(report.Status)).
		Int("samples", report.Samples).
		Dur("duration", report.Duration).
		Msg("Rebuilt location")
	return report
}

func (r *Runner) rebuild(ctx context.Context, locationID int64, target timetricks.Date) (int, error) {
	events, err := r.source.TideEvents(ctx, locationID, target, target.AddDays(r.opts.WindowDays))
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, curve.ErrNoData
	}
	boundary, err := r.source.BoundaryEvent(ctx, locationID, target)
	if err != nil {
		return 0, err
	}

	samples, err := curve.Assemble(events, boundary, r.opts.Curve)
	if err != nil {
		return 0, err
	}

	// A write that has started is allowed to finish after cancellation so
	// the transaction commits or rolls back on its own terms.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.WriteTimeout)
	defer cancel()
	if err := r.sink.ReplaceGraphSamples(writeCtx, locationID, samples); err != nil {
		return 0, err
	}

	if r.cache != nil {
		units := make([]string, len(r.opts.CachedUnits))
		for i, u := range r.opts.CachedUnits {
			units[i] = string(u)
		}
		r.cache.Delete(writeCtx, cache.GraphKeys(locationID, units...)...)
	}
	return len(samples), nil
}

// Summarize counts reports by status.
func Summarize(reports []Report) map[Status]int {
	counts := make(map[Status]int)
	for _, rep := range reports {
		counts[rep.Status]++
	}
	return counts
}

// Err joins the errors of failed locations, or returns nil if none failed.
// Missing or insufficient data is not a failure.
func Err(reports []Report) error {
	var errs []error
	for _, rep := range reports {
		if rep.Status == Failed || rep.Status == Skipped {
			errs = append(errs, fmt.Errorf("location %d: %w", rep.LocationID, rep.Err))
		}
	}
	return errors.Join(errs...)
}
