package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spencer-p/tidegraph/pkg/tides"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://tides:secret@db:5432/tidegraph")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.SampleIntervalMinutes)
	assert.Equal(t, 60, cfg.CurveOptions().Interval)
	assert.Equal(t, tides.Feet, cfg.Units())
	assert.Equal(t, 23*time.Hour, cfg.CacheTTL)
	assert.Equal(t, time.Duration(0), cfg.RebuildInterval)
	assert.Equal(t, "postgres://tides:secret@db:5432/tidegraph", cfg.Database.DSN())
	assert.Equal(t, "postgres://tides:xxxxx@db:5432/tidegraph", Redacted(cfg.Database.DSN()))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SAMPLE_INTERVAL_MINUTES", "15")
	t.Setenv("WORKERS", "8")
	t.Setenv("DISPLAY_UNITS", "m")
	t.Setenv("REBUILD_INTERVAL", "1h")
	t.Setenv("DB_MAX_RETRIES", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.SampleIntervalMinutes)
	assert.Equal(t, tides.Meters, cfg.Units())
	assert.Equal(t, time.Hour, cfg.RebuildInterval)

	store := cfg.Store()
	assert.Equal(t, 8, store.MaxOpenConns, "pool sized to workers")
	assert.Equal(t, 5, store.Retry.MaxRetries)
}

func TestLoadRejectsBadValues(t *testing.T) {
	table := []struct {
		key, value string
	}{
		{"SAMPLE_INTERVAL_MINUTES", "0"},
		{"SAMPLE_INTERVAL_MINUTES", "1441"},
		{"WORKERS", "0"},
		{"WINDOW_DAYS", "-1"},
		{"DISPLAY_UNITS", "fathoms"},
		{"TIME_ZONE", "Mars/Olympus_Mons"},
		{"REBUILD_INTERVAL", "-5m"},
	}
	for _, test := range table {
		t.Run(test.key+"="+test.value, func(t *testing.T) {
			t.Setenv(test.key, test.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDSNFromParts(t *testing.T) {
	d := Database{
		Host:     "db",
		Port:     "5433",
		User:     "tides",
		Password: "pw",
		Name:     "tidegraph",
		SSLMode:  "require",
	}
	assert.Equal(t, "host=db user=tides password=pw dbname=tidegraph port=5433 sslmode=require", d.DSN())
	assert.Equal(t, "<keyword dsn>", Redacted(d.DSN()))
}
