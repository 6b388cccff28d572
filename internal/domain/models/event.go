package models

import "time"

// Journal event types broadcast after writes.
const (
	EventTradesImported = "trades.imported"
	EventTradesCleared  = "trades.cleared"
	EventTradeMutated   = "trade.mutated"
	EventStrategyMutated = "strategy.mutated"
)

// JournalEvent tells subscribers the journal changed and cached views are
// stale. Count is the number of affected executions where that is known.
type JournalEvent struct {
	Type    string    `json:"type"`
	Count   int       `json:"count"`
	Version uint64    `json:"version"`
	At      time.Time `json:"at"`
}
