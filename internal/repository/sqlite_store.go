package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"TradeLens/internal/domain/models"
	"TradeLens/internal/domain/repository"
)

// Timestamps are persisted as RFC3339Nano strings so the duplicate tuple
// (symbol, side, quantity, price, timestamp) compares exactly and survives
// round trips without driver-dependent precision loss.
const timestampLayout = time.RFC3339Nano

// Store is the SQLite journal. One connection, writes serialized behind a
// mutex; SQLite has no row-level concurrency worth fighting for at journal
// scale, and a single writer keeps imports atomic.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
	version atomic.Uint64
}

var (
	_ repository.ExecutionStore = (*Store)(nil)
	_ repository.StrategyStore  = (*Store)(nil)
)

// StoreOption configures Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	busyTimeout time.Duration
}

// WithBusyTimeout sets how long SQLite waits on a locked database before
// failing a statement.
func WithBusyTimeout(d time.Duration) StoreOption {
	return func(c *storeConfig) {
		if d > 0 {
			c.busyTimeout = d
		}
	}
}

// NewStore opens (and creates if missing) the journal database at path.
// Use ":memory:" for tests.
func NewStore(path string, opts ...StoreOption) (*Store, error) {
	cfg := &storeConfig{busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on",
		path, cfg.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	// Seed from the clock so a restart never reissues version numbers that
	// external caches may still hold entries for.
	s.version.Store(uint64(time.Now().UnixNano()))
	return s, nil
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS strategies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			price REAL NOT NULL,
			timestamp TEXT NOT NULL,
			order_type TEXT NOT NULL DEFAULT 'MARKET',
			status TEXT NOT NULL DEFAULT 'FILLED',
			fees REAL NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			strategy_id INTEGER REFERENCES strategies(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_dedupe ON trades(symbol, side, quantity, price, timestamp);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Version identifies the current journal state. It changes on every
// successful write, so any cache key derived from it goes stale with the
// data it described.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

func (s *Store) bump() {
	s.version.Add(1)
}

const executionColumns = "id, symbol, side, quantity, price, timestamp, order_type, status, fees, notes, strategy_id"

func scanExecution(row interface{ Scan(...interface{}) error }) (*models.Execution, error) {
	var (
		e          models.Execution
		ts         string
		strategyID sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.Symbol, &e.Side, &e.Quantity, &e.Price, &ts,
		&e.OrderType, &e.Status, &e.Fees, &e.Notes, &strategyID); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(timestampLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp %q: %w", ts, err)
	}
	e.Timestamp = parsed
	if strategyID.Valid {
		id := strategyID.Int64
		e.StrategyID = &id
	}
	return &e, nil
}

// Add inserts a single execution and returns its id.
func (s *Store) Add(ctx context.Context, e *models.Execution) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (symbol, side, quantity, price, timestamp, order_type, status, fees, notes, strategy_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Symbol, e.Side, e.Quantity, e.Price, e.Timestamp.UTC().Format(timestampLayout),
		e.OrderType, e.Status, e.Fees, e.Notes, nullableID(e.StrategyID))
	if err != nil {
		return 0, fmt.Errorf("insert execution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.bump()
	return id, nil
}

// AddBatch inserts executions inside one transaction, skipping rows whose
// (symbol, side, quantity, price, timestamp) tuple already exists. Either
// the whole batch lands or none of it does.
func (s *Store) AddBatch(ctx context.Context, execs []*models.Execution) (*repository.BatchResult, error) {
	result := &repository.BatchResult{}
	if len(execs) == 0 {
		return result, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	dupStmt, err := tx.PrepareContext(ctx,
		`SELECT COUNT(*) FROM trades WHERE symbol = ? AND side = ? AND quantity = ? AND price = ? AND timestamp = ?`)
	if err != nil {
		return nil, err
	}
	defer dupStmt.Close()

	insStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trades (symbol, side, quantity, price, timestamp, order_type, status, fees, notes, strategy_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer insStmt.Close()

	for _, e := range execs {
		ts := e.Timestamp.UTC().Format(timestampLayout)

		var count int
		if err := dupStmt.QueryRowContext(ctx, e.Symbol, e.Side, e.Quantity, e.Price, ts).Scan(&count); err != nil {
			return nil, fmt.Errorf("dedupe check: %w", err)
		}
		if count > 0 {
			result.Duplicates++
			continue
		}
		if _, err := insStmt.ExecContext(ctx,
			e.Symbol, e.Side, e.Quantity, e.Price, ts,
			e.OrderType, e.Status, e.Fees, e.Notes, nullableID(e.StrategyID)); err != nil {
			return nil, fmt.Errorf("insert row: %w", err)
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	if result.Inserted > 0 {
		s.bump()
	}
	return result, nil
}

// GetByID returns one execution, sql.ErrNoRows wrapped if absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*models.Execution, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM trades WHERE id = ?", executionColumns), id)
	e, err := scanExecution(row)
	if err != nil {
		return nil, fmt.Errorf("execution %d: %w", id, err)
	}
	return e, nil
}

// List returns executions ordered by timestamp ascending, optionally bounded
// by [from, to] inclusive.
func (s *Store) List(ctx context.Context, from, to *time.Time) ([]models.Execution, error) {
	query := fmt.Sprintf("SELECT %s FROM trades", executionColumns)
	var (
		clauses []string
		args    []interface{}
	)
	if from != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, from.UTC().Format(timestampLayout))
	}
	if to != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, to.UTC().Format(timestampLayout))
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY timestamp ASC, id ASC"

	return s.queryExecutions(ctx, query, args...)
}

// ListFilled returns only FILLED executions, the matcher's input set.
func (s *Store) ListFilled(ctx context.Context) ([]models.Execution, error) {
	query := fmt.Sprintf("SELECT %s FROM trades WHERE status = ? ORDER BY timestamp ASC, id ASC", executionColumns)
	return s.queryExecutions(ctx, query, models.StatusFilled)
}

func (s *Store) queryExecutions(ctx context.Context, query string, args ...interface{}) ([]models.Execution, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var execs []models.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *e)
	}
	return execs, rows.Err()
}

// Update rewrites every mutable field of an existing execution.
func (s *Store) Update(ctx context.Context, e *models.Execution) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE trades SET symbol = ?, side = ?, quantity = ?, price = ?, timestamp = ?,
		 order_type = ?, status = ?, fees = ?, notes = ?, strategy_id = ? WHERE id = ?`,
		e.Symbol, e.Side, e.Quantity, e.Price, e.Timestamp.UTC().Format(timestampLayout),
		e.OrderType, e.Status, e.Fees, e.Notes, nullableID(e.StrategyID), e.ID)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	s.bump()
	return nil
}

// AssignStrategy reassigns (or clears, with nil) one execution's strategy.
func (s *Store) AssignStrategy(ctx context.Context, id int64, strategyID *int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE trades SET strategy_id = ? WHERE id = ?`, nullableID(strategyID), id)
	if err != nil {
		return fmt.Errorf("update execution strategy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	s.bump()
	return nil
}

// Delete removes one execution.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete execution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	s.bump()
	return nil
}

// Clear deletes every execution and reports how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM trades`)
	if err != nil {
		return 0, fmt.Errorf("clear executions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	s.bump()
	return n, nil
}

// Symbols returns the distinct symbols present in the journal, sorted.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM trades ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Count returns the number of stored executions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count executions: %w", err)
	}
	return n, nil
}

// CreateStrategy inserts a strategy label and returns its id.
func (s *Store) CreateStrategy(ctx context.Context, st *models.Strategy) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO strategies (name, description, notes, color, created_at) VALUES (?, ?, ?, ?, ?)`,
		st.Name, st.Description, st.Notes, st.Color, st.CreatedAt.UTC().Format(timestampLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("strategy name %q: %w", st.Name, repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert strategy: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.bump()
	return id, nil
}

// ListStrategies returns every strategy ordered by name.
func (s *Store) ListStrategies(ctx context.Context) ([]models.Strategy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, notes, color, created_at FROM strategies ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query strategies: %w", err)
	}
	defer rows.Close()

	var strategies []models.Strategy
	for rows.Next() {
		var (
			st models.Strategy
			ts string
		)
		if err := rows.Scan(&st.ID, &st.Name, &st.Description, &st.Notes, &st.Color, &ts); err != nil {
			return nil, err
		}
		created, err := time.Parse(timestampLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("corrupt created_at %q: %w", ts, err)
		}
		st.CreatedAt = created
		strategies = append(strategies, st)
	}
	return strategies, rows.Err()
}

// UpdateStrategy rewrites a strategy's mutable fields.
func (s *Store) UpdateStrategy(ctx context.Context, st *models.Strategy) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE strategies SET name = ?, description = ?, notes = ?, color = ? WHERE id = ?`,
		st.Name, st.Description, st.Notes, st.Color, st.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("strategy name %q: %w", st.Name, repository.ErrDuplicate)
		}
		return fmt.Errorf("update strategy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	s.bump()
	return nil
}

// DeleteStrategy removes a strategy after detaching it from every execution
// that references it. Both statements share one transaction so a failure
// leaves no half-orphaned rows.
func (s *Store) DeleteStrategy(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin strategy delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE trades SET strategy_id = NULL WHERE strategy_id = ?`, id); err != nil {
		return fmt.Errorf("detach strategy: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit strategy delete: %w", err)
	}
	s.bump()
	return nil
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
