// Package storage provides the optional delivery journal.
//
// The journal is append-only from the bot's point of view: the poll loop
// records every delivery attempt but never reads the journal back to restore
// its cursor or error counters after a restart.
package storage
