package models

import (
	"fmt"
	"strings"
	"time"
)

// PairingMethod selects which open lot an incoming execution consumes first.
type PairingMethod string

const (
	PairingFIFO PairingMethod = "fifo"
	PairingLIFO PairingMethod = "lifo"
)

// ParsePairingMethod normalizes a request value. Empty defaults to FIFO;
// anything unrecognized is an error, never a silent default.
func ParsePairingMethod(s string) (PairingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PairingFIFO, nil
	case "fifo":
		return PairingFIFO, nil
	case "lifo":
		return PairingLIFO, nil
	default:
		return "", fmt.Errorf("unknown pairing method %q", s)
	}
}

// Trade directions derived at match time.
const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

// PairedTrade is one closed round trip: a matched entry+exit sub-quantity.
// Derived per request, never persisted; pairing method and date range are
// request parameters.
type PairedTrade struct {
	Symbol           string    `json:"symbol"`
	Underlying       string    `json:"underlying"`
	Direction        string    `json:"direction"`
	EntryExecutionID int64     `json:"entry_execution_id"`
	ExitExecutionID  int64     `json:"exit_execution_id"`
	Quantity         float64   `json:"quantity"`
	Multiplier       float64   `json:"multiplier"`
	EntryPrice       float64   `json:"entry_price"`
	ExitPrice        float64   `json:"exit_price"`
	EntryTimestamp   time.Time `json:"entry_timestamp"`
	ExitTimestamp    time.Time `json:"exit_timestamp"`
	EntryFees        float64   `json:"entry_fees"`
	ExitFees         float64   `json:"exit_fees"`
	GrossPnl         float64   `json:"gross_pnl"`
	NetPnl           float64   `json:"net_pnl"`
	StrategyID       *int64    `json:"strategy_id,omitempty"`
}

// HoldingSeconds is the round trip duration.
func (p *PairedTrade) HoldingSeconds() float64 {
	return p.ExitTimestamp.Sub(p.EntryTimestamp).Seconds()
}

// OpenPosition is the netted residual of unmatched lots for one symbol/side
// after pairing: what the journal still holds.
type OpenPosition struct {
	Symbol       string    `json:"symbol"`
	Underlying   string    `json:"underlying"`
	Side         string    `json:"side"`
	Quantity     float64   `json:"quantity"`
	AveragePrice float64   `json:"average_price"`
	CostBasis    float64   `json:"cost_basis"`
	OldestEntry  time.Time `json:"oldest_entry"`
}
