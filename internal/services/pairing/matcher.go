package pairing

import (
	"sort"
	"strings"
	"time"

	"TradeLens/internal/domain/models"
	domsvc "TradeLens/internal/domain/service"
)

// qtyEpsilon is the threshold below which a remaining quantity counts as
// fully consumed. Broker CSVs carry fractional shares with 4 decimals.
const qtyEpsilon = 1e-4

// lot is the matching-time residual of an execution not yet fully consumed
// by opposite-side matches. origQty/totalFees/feesCharged track the original
// execution so fee allocation stays proportional to the original quantity
// with no rounding drift across partial matches.
type lot struct {
	execID      int64
	remaining   float64
	price       float64
	ts          time.Time
	origQty     float64
	totalFees   float64
	feesCharged float64
	strategyID  *int64
}

// book holds the open lots for one symbol: unmatched BUYs on the long side,
// unmatched SELLs on the short side.
type book struct {
	long  []*lot
	short []*lot
}

// Matcher converts execution lists into round-trip pairs under FIFO or LIFO
// lot consumption. Stateless; safe for concurrent use.
type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// Pair matches the full execution set, then filters emitted pairs to those
// whose EXIT timestamp falls inside [from, to]. Executions before the window
// still supply entries; open positions reflect the entire history.
func (m *Matcher) Pair(execs []models.Execution, method models.PairingMethod, from, to *time.Time) domsvc.MatchResult {
	ordered := make([]models.Execution, len(execs))
	copy(ordered, execs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	lifo := method == models.PairingLIFO
	books := make(map[string]*book)
	var pairs []models.PairedTrade

	for i := range ordered {
		e := &ordered[i]
		side := strings.ToUpper(e.Side)
		if side != models.SideBuy && side != models.SideSell {
			continue
		}
		if e.Quantity <= 0 {
			continue
		}

		b := books[e.Symbol]
		if b == nil {
			b = &book{}
			books[e.Symbol] = b
		}

		in := &lot{
			execID:     e.ID,
			remaining:  e.Quantity,
			price:      e.Price,
			ts:         e.Timestamp,
			origQty:    e.Quantity,
			totalFees:  e.Fees,
			strategyID: e.StrategyID,
		}

		if side == models.SideBuy {
			// A BUY closes open shorts first, then any residual opens long.
			pairs = m.consume(pairs, e.Symbol, &b.short, in, models.DirectionShort, lifo)
			if in.remaining > qtyEpsilon {
				b.long = append(b.long, in)
			}
		} else {
			pairs = m.consume(pairs, e.Symbol, &b.long, in, models.DirectionLong, lifo)
			if in.remaining > qtyEpsilon {
				b.short = append(b.short, in)
			}
		}
	}

	return domsvc.MatchResult{
		Pairs:         filterByExit(pairs, from, to),
		OpenPositions: collectOpenPositions(books),
	}
}

// consume matches the incoming execution against the opposing queue until
// either side is exhausted. The open lot is always the pair's entry side.
func (m *Matcher) consume(pairs []models.PairedTrade, symbol string, opposing *[]*lot, in *lot, direction string, lifo bool) []models.PairedTrade {
	mult := ContractMultiplier(symbol)
	underlying := UnderlyingSymbol(symbol)

	for in.remaining > qtyEpsilon && len(*opposing) > 0 {
		idx := 0
		if lifo {
			idx = len(*opposing) - 1
		}
		open := (*opposing)[idx]

		qty := in.remaining
		if open.remaining < qty {
			qty = open.remaining
		}

		entryFees := allocateFees(open, qty)
		exitFees := allocateFees(in, qty)

		// LONG: entry is the BUY lot, pnl = exit - entry.
		// SHORT: entry is the SELL lot, pnl = entry - exit.
		var gross float64
		if direction == models.DirectionLong {
			gross = (in.price - open.price) * qty
		} else {
			gross = (open.price - in.price) * qty
		}
		net := gross - entryFees - exitFees

		pairs = append(pairs, models.PairedTrade{
			Symbol:           symbol,
			Underlying:       underlying,
			Direction:        direction,
			EntryExecutionID: open.execID,
			ExitExecutionID:  in.execID,
			Quantity:         qty,
			Multiplier:       mult,
			EntryPrice:       open.price,
			ExitPrice:        in.price,
			EntryTimestamp:   open.ts,
			ExitTimestamp:    in.ts,
			EntryFees:        entryFees,
			ExitFees:         exitFees,
			GrossPnl:         gross * mult,
			NetPnl:           net * mult,
			StrategyID:       pickStrategy(open.strategyID, in.strategyID),
		})

		in.remaining -= qty
		open.remaining -= qty
		if open.remaining < qtyEpsilon {
			*opposing = append((*opposing)[:idx], (*opposing)[idx+1:]...)
		}
	}

	return pairs
}

// allocateFees charges a proportional share of the original execution's fee
// for the matched sub-quantity. The final consuming match takes the exact
// remainder so charged fees always sum to the original fee.
func allocateFees(l *lot, qty float64) float64 {
	if qty >= l.remaining-qtyEpsilon {
		fee := l.totalFees - l.feesCharged
		if fee < 0 {
			fee = 0
		}
		l.feesCharged = l.totalFees
		return fee
	}
	fee := 0.0
	if l.origQty > 0 {
		fee = l.totalFees * qty / l.origQty
	}
	l.feesCharged += fee
	return fee
}

// pickStrategy attributes a pair to the entry execution's strategy, falling
// back to the exit's.
func pickStrategy(entry, exit *int64) *int64 {
	if entry != nil {
		return entry
	}
	return exit
}

func filterByExit(pairs []models.PairedTrade, from, to *time.Time) []models.PairedTrade {
	if from == nil && to == nil {
		return pairs
	}
	filtered := make([]models.PairedTrade, 0, len(pairs))
	for _, p := range pairs {
		if from != nil && p.ExitTimestamp.Before(*from) {
			continue
		}
		if to != nil && p.ExitTimestamp.After(*to) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// collectOpenPositions aggregates surviving lots per symbol and side into
// netted residual positions for open-position reporting.
func collectOpenPositions(books map[string]*book) []models.OpenPosition {
	var positions []models.OpenPosition

	appendSide := func(symbol, side string, lots []*lot) {
		var qty, costBasis float64
		var oldest time.Time
		for _, l := range lots {
			if l.remaining <= qtyEpsilon {
				continue
			}
			qty += l.remaining
			costBasis += l.remaining * l.price
			if oldest.IsZero() || l.ts.Before(oldest) {
				oldest = l.ts
			}
		}
		if qty <= qtyEpsilon {
			return
		}
		positions = append(positions, models.OpenPosition{
			Symbol:       symbol,
			Underlying:   UnderlyingSymbol(symbol),
			Side:         side,
			Quantity:     qty,
			AveragePrice: costBasis / qty,
			CostBasis:    costBasis,
			OldestEntry:  oldest,
		})
	}

	for symbol, b := range books {
		appendSide(symbol, models.DirectionLong, b.long)
		appendSide(symbol, models.DirectionShort, b.short)
	}

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Symbol == positions[j].Symbol {
			return positions[i].Side < positions[j].Side
		}
		return positions[i].Symbol < positions[j].Symbol
	})

	return positions
}

var _ domsvc.LotMatcher = (*Matcher)(nil)
