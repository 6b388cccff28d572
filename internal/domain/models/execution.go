package models

import "time"

// Execution sides. Stored upper-case; parsers normalize.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Statuses the matcher accepts. Everything else is ignored during pairing.
const (
	StatusFilled = "FILLED"
)

// Execution is one raw fill from a broker. Immutable once imported; removed
// only by deleteTrade/clearAllTrades.
type Execution struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Timestamp  time.Time `json:"timestamp"`
	OrderType  string    `json:"order_type"`
	Status     string    `json:"status"`
	Fees       float64   `json:"fees"`
	Notes      string    `json:"notes,omitempty"`
	StrategyID *int64    `json:"strategy_id,omitempty"`
}

// Strategy is a user-defined label attached to executions for attribution.
type Strategy struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ImportRowError reports a single rejected CSV line. The batch continues past
// bad rows.
type ImportRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult summarizes one importTradesCsv call.
type ImportResult struct {
	Imported          int              `json:"imported"`
	SkippedDuplicates int              `json:"skipped_duplicates"`
	Errors            []ImportRowError `json:"errors,omitempty"`
}

// ClearResult reports how many executions a journal wipe removed.
type ClearResult struct {
	Deleted int64 `json:"deleted"`
}
