package data

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spencer-p/tidegraph/pkg/curve"
	"github.com/spencer-p/tidegraph/pkg/tides"
	"github.com/spencer-p/tidegraph/pkg/timetricks"
)

const testDSNEnvKey = "TIDEGRAPH_TEST_DATABASE_URL"

// openTestStore connects to the database named by TIDEGRAPH_TEST_DATABASE_URL
// and gives the test a fresh location.
func openTestStore(t *testing.T) (*Store, Location) {
	t.Helper()
	dsn := os.Getenv(testDSNEnvKey)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnvKey)
	}

	store, err := Open(Config{
		DSN:          dsn,
		MaxOpenConns: 4,
		AutoMigrate:  true,
		Retry:        RetryPolicy{MaxRetries: 1, Backoff: 10 * time.Millisecond},
	})
	require.NoError(t, err)

	loc := Location{Name: t.Name(), Latitude: 36.9741, Longitude: -122.0308, TimeZone: "America/Los_Angeles"}
	require.NoError(t, store.db.Create(&loc).Error)
	t.Cleanup(func() {
		store.db.Where("location_id = ?", loc.ID).Delete(&TideRow{})
		store.db.Where("location_id = ?", loc.ID).Delete(&GraphRow{})
		store.db.Delete(&loc)
		store.Close()
	})
	return store, loc
}

func TestStoreBoundaryEvent(t *testing.T) {
	store, loc := openTestStore(t)
	ctx := t.Context()
	target := timetricks.Date{Year: 2024, Month: time.November, Day: 8}

	got, err := store.BoundaryEvent(ctx, loc.ID, target)
	require.NoError(t, err)
	assert.Nil(t, got, "empty location has no boundary")

	d := target.AddDays(-1).Time()
	rows := []TideRow{
		{LocationID: loc.ID, TideDate: target.AddDays(-2).Time(), TideTime: "11:00 PM", TideType: "HIGH", TideHeightMt: 1.5},
		{LocationID: loc.ID, TideDate: d, TideTime: "9:00 PM", TideType: "HIGH", TideHeightMt: 1.7},
		{LocationID: loc.ID, TideDate: d, TideTime: "14:30", TideType: "LOW", TideHeightMt: 0.2},
		{LocationID: loc.ID, TideDate: d, TideTime: "not a time", TideType: "LOW", TideHeightMt: 0.1},
		{LocationID: loc.ID, TideDate: target.Time(), TideTime: "02:15", TideType: "LOW", TideHeightMt: 0.3},
	}
	require.NoError(t, store.db.Create(&rows).Error)

	got, err = store.BoundaryEvent(ctx, loc.ID, target)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, target.AddDays(-1), got.Date)
	assert.Equal(t, timetricks.Clock(21, 0), got.Time)
	assert.Equal(t, 1.7, got.Height)

	events, err := store.TideEvents(ctx, loc.ID, target.AddDays(-1), target.AddDays(1))
	require.NoError(t, err)
	require.Len(t, events, 3, "bad row skipped")
	assert.Equal(t, timetricks.Clock(14, 30), events[0].Time)
	assert.Equal(t, timetricks.Clock(21, 0), events[1].Time)
}

func TestStoreReplaceGraphSamples(t *testing.T) {
	store, loc := openTestStore(t)
	ctx := t.Context()
	d := timetricks.Date{Year: 2024, Month: time.November, Day: 8}

	events := []tides.Event{
		{LocationID: loc.ID, Date: d, Time: timetricks.Clock(23, 0), Height: 0.5, Kind: tides.Low},
		{LocationID: loc.ID, Date: d.AddDays(1), Time: timetricks.Clock(1, 0), Height: 1.5, Kind: tides.High},
	}
	require.NoError(t, store.ReplaceTideEvents(ctx, loc.ID, events))

	stored, err := store.TideEvents(ctx, loc.ID, d, d.AddDays(2))
	require.NoError(t, err)
	assert.Equal(t, events, stored)

	samples, err := curve.Assemble(stored, nil, curve.Options{Interval: 60})
	require.NoError(t, err)

	// Twice, to show the second write replaces rather than appends.
	for i := 0; i < 2; i++ {
		require.NoError(t, store.ReplaceGraphSamples(ctx, loc.ID, samples))
	}
	got, err := store.GraphSamples(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestStoreLocation(t *testing.T) {
	store, loc := openTestStore(t)

	got, err := store.Location(t.Context(), loc.ID)
	require.NoError(t, err)
	assert.Equal(t, loc, got)

	_, err = store.Location(t.Context(), -1)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	all, err := store.Locations(t.Context())
	require.NoError(t, err)
	assert.Contains(t, all, loc)
}
