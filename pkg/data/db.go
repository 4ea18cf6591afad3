package data

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config describes how to reach and use the database.
type Config struct {
	DSN          string
	MaxOpenConns int
	AutoMigrate  bool
	Retry        RetryPolicy
}

// Store reads tide events and writes tide curves. It is safe for concurrent
// use; each call takes its own connection from the pool.
type Store struct {
	db    *gorm.DB
	retry RetryPolicy
}

// New wraps an open gorm handle.
func New(db *gorm.DB, retry RetryPolicy) *Store {
	return &Store{
		db:    db,
		retry: retry,
	}
}

// Open connects to Postgres, sizes the connection pool and optionally
// migrates the schema.
func Open(cfg Config) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting connection pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&Location{}, &TideRow{}, &GraphRow{}); err != nil {
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
	}
	return New(db, cfg.Retry), nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
