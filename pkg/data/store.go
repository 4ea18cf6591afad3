package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/spencer-p/tidegraph/pkg/tides"
	"github.com/spencer-p/tidegraph/pkg/timetricks"
)

const (
	insertBatchSize = 500

	// Advisory lock namespaces, one per replaced table.
	tideLockSpace  = 1
	graphLockSpace = 2
)

// ErrNotFound is returned when a location does not exist.
var ErrNotFound = errors.New("not found")

// Locations lists every location ordered by id.
func (s *Store) Locations(ctx context.Context) ([]Location, error) {
	var locs []Location
	err := s.retry.do(ctx, "locations", func() error {
		return s.db.WithContext(ctx).Order("id").Find(&locs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	return locs, nil
}

// Location fetches one location.
func (s *Store) Location(ctx context.Context, id int64) (Location, error) {
	var loc Location
	err := s.retry.do(ctx, "location", func() error {
		return s.db.WithContext(ctx).First(&loc, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Location{}, fmt.Errorf("location %d: %w", id, ErrNotFound)
	} else if err != nil {
		return Location{}, fmt.Errorf("fetching location %d: %w", id, err)
	}
	return loc, nil
}

// TideEvents returns the location's events dated in [from, to), sorted by
// date and time. Rows that cannot be parsed are logged and skipped.
func (s *Store) TideEvents(ctx context.Context, locationID int64, from, to timetricks.Date) ([]tides.Event, error) {
	var rows []TideRow
	err := s.retry.do(ctx, "tide events", func() error {
		return s.db.WithContext(ctx).
			Where("location_id = ? AND tide_date >= ? AND tide_date < ?", locationID, from.Time(), to.Time()).
			Order("tide_date, id").
			Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("fetching tide events for location %d: %w", locationID, err)
	}

	events := eventsOf(ctx, rows)
	tides.SortEvents(events)
	return events, nil
}

// BoundaryEvent returns the latest event dated strictly before the given
// date, or nil when the location has none. If no row on the latest earlier
// date parses, the search moves back a day.
func (s *Store) BoundaryEvent(ctx context.Context, locationID int64, before timetricks.Date) (*tides.Event, error) {
	event, err := resolveBoundary(ctx, before, func(before timetricks.Date) ([]TideRow, error) {
		var rows []TideRow
		err := s.retry.do(ctx, "boundary event", func() error {
			latest := s.db.Model(&TideRow{}).
				Select("MAX(tide_date)").
				Where("location_id = ? AND tide_date < ?", locationID, before.Time())
			return s.db.WithContext(ctx).
				Where("location_id = ? AND tide_date = (?)", locationID, latest).
				Find(&rows).Error
		})
		return rows, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching boundary event for location %d: %w", locationID, err)
	}
	return event, nil
}

// resolveBoundary picks the last parsable event from the rows latestDay
// returns, moving the cutoff back to the rows' date while none parse.
// latestDay lists every row on the latest date strictly before its argument.
func resolveBoundary(ctx context.Context, before timetricks.Date, latestDay func(timetricks.Date) ([]TideRow, error)) (*tides.Event, error) {
	for {
		rows, err := latestDay(before)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}

		events := eventsOf(ctx, rows)
		if len(events) > 0 {
			tides.SortEvents(events)
			last := events[len(events)-1]
			return &last, nil
		}
		before = timetricks.DateOf(rows[0].TideDate)
	}
}

// ReplaceTideEvents swaps the location's stored events for events in one
// transaction.
func (s *Store) ReplaceTideEvents(ctx context.Context, locationID int64, events []tides.Event) error {
	err := s.retry.do(ctx, "replace tide events", func() error {
		rows := make([]TideRow, len(events))
		for i, e := range events {
			rows[i] = tideRowOf(e)
			rows[i].LocationID = locationID
		}
		return replaceRows(ctx, s.db, tideLockSpace, locationID, rows)
	})
	if err != nil {
		return fmt.Errorf("replacing tide events for location %d: %w", locationID, err)
	}
	zerolog.Ctx(ctx).Debug().
		Int64("location_id", locationID).
		Int("events", len(events)).
		Msg("Replaced tide events")
	return nil
}

// ReplaceGraphSamples swaps the location's stored curve for samples in one
// transaction. Readers see either the old curve or the new one.
func (s *Store) ReplaceGraphSamples(ctx context.Context, locationID int64, samples []tides.Sample) error {
	err := s.retry.do(ctx, "replace graph samples", func() error {
		rows := make([]GraphRow, len(samples))
		for i, sample := range samples {
			rows[i] = graphRowOf(sample)
			rows[i].LocationID = locationID
		}
		return replaceRows(ctx, s.db, graphLockSpace, locationID, rows)
	})
	if err != nil {
		return fmt.Errorf("replacing graph samples for location %d: %w", locationID, err)
	}
	zerolog.Ctx(ctx).Debug().
		Int64("location_id", locationID).
		Int("samples", len(samples)).
		Msg("Replaced graph samples")
	return nil
}

// replaceRows deletes every row of T for the location and inserts rows,
// under a transaction scoped advisory lock so concurrent replaces of the same
// location queue up instead of interleaving.
func replaceRows[T any](ctx context.Context, db *gorm.DB, lockSpace int32, locationID int64, rows []T) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", lockKey(lockSpace, locationID)).Error; err != nil {
			return fmt.Errorf("locking location: %w", err)
		}
		if err := tx.Where("location_id = ?", locationID).Delete(new(T)).Error; err != nil {
			return fmt.Errorf("deleting rows: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return fmt.Errorf("inserting rows: %w", err)
		}
		return nil
	})
}

// lockKey folds a lock namespace into the high 16 bits of an advisory lock
// key. Location ids below 2^48 get distinct keys.
func lockKey(space int32, locationID int64) int64 {
	return int64(space)<<48 | locationID&(1<<48-1)
}

// GraphSamples returns the stored curve for a location in order.
func (s *Store) GraphSamples(ctx context.Context, locationID int64) ([]tides.Sample, error) {
	var rows []GraphRow
	err := s.retry.do(ctx, "graph samples", func() error {
		return s.db.WithContext(ctx).
			Where("location_id = ?", locationID).
			Order("tide_date, tide_time_numeric").
			Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("fetching graph samples for location %d: %w", locationID, err)
	}

	samples := make([]tides.Sample, 0, len(rows))
	for _, row := range rows {
		sample, err := row.Sample()
		if err != nil {
			return nil, fmt.Errorf("graph row %d: %w", row.ID, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// eventsOf parses rows, dropping the ones that fail with a warning.
func eventsOf(ctx context.Context, rows []TideRow) []tides.Event {
	events := make([]tides.Event, 0, len(rows))
	for _, row := range rows {
		e, err := row.Event()
		if err != nil {
			zerolog.Ctx(ctx).Warn().
				Err(err).
				Uint("row_id", row.ID).
				Int64("location_id", row.LocationID).
				Msg("Skipping unreadable tide event")
			continue
		}
		events = append(events, e)
	}
	return events
}
