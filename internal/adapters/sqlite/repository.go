package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zonebot/internal/domain"
	"zonebot/internal/ports"

	"github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.TradeJournal interface using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/journal.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL lets the journal CLI read while the bot writes
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		strategy_name TEXT NOT NULL,
		account_type TEXT NOT NULL,
		server TEXT NOT NULL,
		tag INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		trend_timeframe TEXT NOT NULL,
		entry_timeframe TEXT NOT NULL,
		volume REAL NOT NULL,
		deviation INTEGER NOT NULL,
		sl_points INTEGER NOT NULL,
		tp_points INTEGER NOT NULL,
		zone_threshold INTEGER NOT NULL,
		support REAL NULL,
		resistance REAL NULL,
		filter REAL NULL,
		trend REAL NULL,
		zone_distance INTEGER NOT NULL,
		signal TEXT NOT NULL,
		trend_state TEXT NOT NULL,
		side TEXT NOT NULL,
		price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		ticket INTEGER NOT NULL,
		order_id INTEGER NOT NULL,
		note TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_tag_created_at ON entries (tag, created_at);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Record appends entry to the journal.
func (r *Repository) Record(ctx context.Context, e *domain.TradeEntry) error {
	if e == nil {
		return fmt.Errorf("%w: nil journal entry", ports.ErrInvalidRequest)
	}
	const query = `
	INSERT INTO entries (
		id, created_at, strategy_name, account_type, server, tag, symbol,
		trend_timeframe, entry_timeframe, volume, deviation, sl_points, tp_points,
		zone_threshold, support, resistance, filter, trend, zone_distance,
		signal, trend_state, side, price, stop_loss, take_profit, ticket, order_id, note
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.CreatedAt.UTC(), e.StrategyName, e.AccountType, e.Server, e.Tag, e.Symbol,
		e.TrendTimeframe, e.EntryTimeframe, e.Volume, e.Deviation, e.SLPoints, e.TPPoints,
		e.ZoneThreshold, nullable(e.Support), nullable(e.Resistance), nullable(e.Filter), nullable(e.Trend), e.ZoneDistance,
		string(e.Signal), string(e.TrendState), string(e.Side), e.Price, e.StopLoss, e.TakeProfit, e.Ticket, e.OrderID, e.Note,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: entry %s: %w", ports.ErrDuplicateEntry, e.ID, err)
		}
		return fmt.Errorf("%w: insert entry: %w", ports.ErrQueryFailed, err)
	}
	r.logger.Debug(ctx, "Journal entry recorded", map[string]interface{}{"id": e.ID, "tag": e.Tag, "ticket": e.Ticket})
	return nil
}

// FindByTag returns the most recent entries for tag, newest first.
func (r *Repository) FindByTag(ctx context.Context, tag int64, limit int) ([]*domain.TradeEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
	SELECT id, created_at, strategy_name, account_type, server, tag, symbol,
		trend_timeframe, entry_timeframe, volume, deviation, sl_points, tp_points,
		zone_threshold, support, resistance, filter, trend, zone_distance,
		signal, trend_state, side, price, stop_loss, take_profit, ticket, order_id, note
	FROM entries
	WHERE tag = ?
	ORDER BY created_at DESC
	LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, tag, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query entries: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var entries []*domain.TradeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate entries: %w", ports.ErrQueryFailed, err)
	}
	return entries, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*domain.TradeEntry, error) {
	var (
		e                                 domain.TradeEntry
		support, resistance, filter, trnd sql.NullFloat64
		signal, trendState, side          string
	)
	err := s.Scan(
		&e.ID, &e.CreatedAt, &e.StrategyName, &e.AccountType, &e.Server, &e.Tag, &e.Symbol,
		&e.TrendTimeframe, &e.EntryTimeframe, &e.Volume, &e.Deviation, &e.SLPoints, &e.TPPoints,
		&e.ZoneThreshold, &support, &resistance, &filter, &trnd, &e.ZoneDistance,
		&signal, &trendState, &side, &e.Price, &e.StopLoss, &e.TakeProfit, &e.Ticket, &e.OrderID, &e.Note,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: scan entry: %w", ports.ErrQueryFailed, err)
	}
	e.Support = support.Float64
	e.Resistance = resistance.Float64
	e.Filter = filter.Float64
	e.Trend = trnd.Float64
	e.Signal = domain.Signal(signal)
	e.TrendState = domain.Trend(trendState)
	e.Side = domain.OrderSide(side)
	return &e, nil
}

// nullable stores undefined averages as NULL.
func nullable(v float64) sql.NullFloat64 {
	if v != v { // NaN
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
