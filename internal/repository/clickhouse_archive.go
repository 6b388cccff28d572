package repository

import (
	"context"
	"fmt"
	"strings"

	"TradeLens/internal/domain/models"
	"TradeLens/internal/domain/repository"
	pkgclickhouse "TradeLens/pkg/clickhouse"
)

// ClickHouseArchive exports paired trades to a warehouse table for long-term
// retention. Write-only from the API's point of view: the journal re-derives
// pairs from SQLite on every request, so a lost archive write costs nothing
// but history depth.
type ClickHouseArchive struct {
	client *pkgclickhouse.Client
	table  string
}

// NewClickHouseArchive creates an archive sink writing to table.
func NewClickHouseArchive(client *pkgclickhouse.Client, table string) repository.ArchiveSink {
	return &ClickHouseArchive{client: client, table: table}
}

func (a *ClickHouseArchive) Init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			archived_at DateTime,
			method LowCardinality(String),
			symbol LowCardinality(String),
			underlying LowCardinality(String),
			direction LowCardinality(String),
			entry_execution_id Int64,
			exit_execution_id Int64,
			quantity Float64,
			multiplier Float64,
			entry_price Float64,
			exit_price Float64,
			entry_ts DateTime64(9),
			exit_ts DateTime64(9),
			entry_fees Float64,
			exit_fees Float64,
			gross_pnl Float64,
			net_pnl Float64,
			strategy_id Int64
		) ENGINE = ReplacingMergeTree(archived_at)
		ORDER BY (method, exit_ts, entry_execution_id, exit_execution_id)`, a.table),
	}
	return a.client.InitSchema(ctx, stmts)
}

// ArchivePairs writes one pairing run. Multi-row VALUES chunks keep
// round-trips down; the ReplacingMergeTree key makes re-archiving the same
// run idempotent.
func (a *ClickHouseArchive) ArchivePairs(ctx context.Context, method models.PairingMethod, pairs []models.PairedTrade) error {
	if len(pairs) == 0 {
		return nil
	}

	const chunkSize = 2000
	for start := 0; start < len(pairs); start += chunkSize {
		end := start + chunkSize
		if end > len(pairs) {
			end = len(pairs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*17)
		for i := range pairs[start:end] {
			p := &pairs[start+i]
			var strategyID int64
			if p.StrategyID != nil {
				strategyID = *p.StrategyID
			}
			values = append(values, "(now(), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				string(method),
				p.Symbol,
				p.Underlying,
				p.Direction,
				p.EntryExecutionID,
				p.ExitExecutionID,
				p.Quantity,
				p.Multiplier,
				p.EntryPrice,
				p.ExitPrice,
				p.EntryTimestamp,
				p.ExitTimestamp,
				p.EntryFees,
				p.ExitFees,
				p.GrossPnl,
				p.NetPnl,
				strategyID,
			)
		}

		q := fmt.Sprintf(
			"INSERT INTO %s (archived_at, method, symbol, underlying, direction, entry_execution_id, exit_execution_id, quantity, multiplier, entry_price, exit_price, entry_ts, exit_ts, entry_fees, exit_fees, gross_pnl, net_pnl, strategy_id) VALUES %s",
			a.table, strings.Join(values, ","))
		if _, err := a.client.DB().ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("archive pairs: %w", err)
		}
	}
	return nil
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.client.Health(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return nil // Client lifecycle owned by DI
}
