package notifier

import "time"

type Config struct {
	ChatID int64
	// RatePerSec limits sends; <= 0 means 1.
	RatePerSec int
	// HistorySize bounds the in-memory history; <= 0 means 50.
	HistorySize int
}

type HistoryItem struct {
	At    time.Time
	Kind  string
	Text  string
	Error string
}
