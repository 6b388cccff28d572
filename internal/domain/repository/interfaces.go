package repository

import (
	"context"
	"errors"
	"time"

	"TradeLens/internal/domain/models"
)

// ErrDuplicate reports a uniqueness violation (e.g. strategy name reuse).
var ErrDuplicate = errors.New("duplicate record")

// BatchResult reports an AddBatch outcome. Duplicates are rows matching an
// existing (symbol, side, quantity, price, timestamp) tuple.
type BatchResult struct {
	Inserted   int
	Duplicates int
}

// ExecutionStore is the journal's persistence port. Writes are serialized;
// reads see a consistent snapshot (a request never observes a partial
// import). Version changes on every successful write so cached analytics
// keyed by it become unreachable.
type ExecutionStore interface {
	Add(ctx context.Context, e *models.Execution) (int64, error)
	AddBatch(ctx context.Context, execs []*models.Execution) (*BatchResult, error)
	GetByID(ctx context.Context, id int64) (*models.Execution, error)
	List(ctx context.Context, from, to *time.Time) ([]models.Execution, error)
	ListFilled(ctx context.Context) ([]models.Execution, error)
	Update(ctx context.Context, e *models.Execution) error
	AssignStrategy(ctx context.Context, id int64, strategyID *int64) error
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) (int64, error)
	Symbols(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	Version() uint64
	Health(ctx context.Context) error
	Close() error
}

// StrategyStore manages user-defined strategy labels.
type StrategyStore interface {
	CreateStrategy(ctx context.Context, s *models.Strategy) (int64, error)
	ListStrategies(ctx context.Context) ([]models.Strategy, error)
	UpdateStrategy(ctx context.Context, s *models.Strategy) error
	DeleteStrategy(ctx context.Context, id int64) error
}

// ArchiveSink receives paired-trade exports for warehouse retention. Never
// read back by the API.
type ArchiveSink interface {
	Init(ctx context.Context) error
	ArchivePairs(ctx context.Context, method models.PairingMethod, pairs []models.PairedTrade) error
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher fans journal-changed events out to interested parties
// (WebSocket clients, an events topic).
type EventPublisher interface {
	Publish(ctx context.Context, ev models.JournalEvent) error
	Close() error
}

// Metrics is the operational metrics port.
type Metrics interface {
	RecordOperation(op string, seconds float64)
	RecordOperationError(op string)
	RecordImport(inserted, duplicates int)
	RecordPairsComputed(method string, count int)
	RecordCacheHit(scope string)
	RecordCacheMiss(scope string)
	SetExecutionsStored(n int)
}
