package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/connecthub/pkg/metrics"
)

// Store driver names reported in metrics.
const (
	driverMemory = "memory"
	driverSQLite = "sqlite"
)

const defaultBusyTimeout = 5 * time.Second

// settings are shared by every Store implementation.
type settings struct {
	now         func() time.Time
	newID       func() string
	busyTimeout time.Duration
}

func defaultSettings() settings {
	return settings{
		now:         time.Now,
		newID:       uuid.NewString,
		busyTimeout: defaultBusyTimeout,
	}
}

// Option applies a configuration option to a Store.
type Option func(*settings)

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how new record ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *settings) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

func observe(driver, op string, start time.Time) {
	metrics.RecordStoreLatency(driver, op, float64(time.Since(start).Microseconds())/1000)
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
