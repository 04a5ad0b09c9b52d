package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (pure Go driver)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Delivery records one notification attempt.
type Delivery struct {
	At     time.Time
	ChatID int64
	Kind   string // "status" or the error category that produced it
	Text   string
	OK     bool
	Error  string
	TookMS int64
}
