package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"gbr-coraldb/pkg/logging"
	"gbr-coraldb/pkg/metrics"
)

// Config holds index database configuration
type Config struct {
	// Path is the SQLite file path; ":memory:" opens a transient index.
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// SQLiteDB wraps sqlx.DB with monitoring and metrics
type SQLiteDB struct {
	db      *sqlx.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	config  *Config
}

// NewSQLiteDB opens the local SQLite index file
func NewSQLiteDB(cfg *Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*SQLiteDB, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		cfg.Path,
		cfg.BusyTimeout.Milliseconds(),
	)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping index database: %w", err)
	}

	logger.Info(context.Background(), "[DB_INIT] SQLite index opened", logging.Fields{
		"path":           cfg.Path,
		"busy_timeout":   cfg.BusyTimeout.String(),
		"max_open_conns": cfg.MaxOpenConns,
	})

	return &SQLiteDB{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
		config:  cfg,
	}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	s.logger.Info(context.Background(), "[DB_CLOSE] Closing index database", logging.Fields{
		"path": s.config.Path,
	})
	return s.db.Close()
}

// DB returns the underlying sqlx.DB instance
func (s *SQLiteDB) DB() *sqlx.DB {
	return s.db
}

// QueryContext executes a query with context and metrics
func (s *SQLiteDB) QueryContext(ctx context.Context, queryType, query string, args ...interface{}) (*sqlx.Rows, error) {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		s.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())

		s.logger.Debug(ctx, "[DB_QUERY] Query executed", logging.Fields{
			"query_type":  queryType,
			"duration_ms": duration.Milliseconds(),
			"query":       query,
		})
	}()

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		s.metrics.RecordDBError("query_error")
		s.logger.Error(ctx, "[DB_QUERY_ERROR] Query failed", logging.Fields{
			"query_type": queryType,
			"query":      query,
		}, err)
		return nil, err
	}

	return rows, nil
}

// ExecContext executes a command with context and metrics
func (s *SQLiteDB) ExecContext(ctx context.Context, queryType, query string, args ...interface{}) (sql.Result, error) {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		s.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())

		s.logger.Debug(ctx, "[DB_EXEC] Command executed", logging.Fields{
			"query_type":  queryType,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.metrics.RecordDBError("exec_error")
		s.logger.Error(ctx, "[DB_EXEC_ERROR] Command failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return nil, err
	}

	return result, nil
}

// GetContext executes a query that returns a single row
func (s *SQLiteDB) GetContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		s.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
	}()

	err := s.db.GetContext(ctx, dest, query, args...)
	if err != nil && err != sql.ErrNoRows {
		s.metrics.RecordDBError("get_error")
		s.logger.Error(ctx, "[DB_GET_ERROR] Get query failed", logging.Fields{
			"query_type": queryType,
		}, err)
	}

	return err
}

// SelectContext executes a query that returns multiple rows
func (s *SQLiteDB) SelectContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		s.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
	}()

	err := s.db.SelectContext(ctx, dest, query, args...)
	if err != nil {
		s.metrics.RecordDBError("select_error")
		s.logger.Error(ctx, "[DB_SELECT_ERROR] Select query failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return err
	}

	return nil
}

// BeginTx begins a new transaction
func (s *SQLiteDB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		s.metrics.RecordDBError("transaction_begin_error")
		s.logger.Error(ctx, "[DB_TX_ERROR] Failed to begin transaction", logging.Fields{}, err)
		return nil, err
	}

	return tx, nil
}

// HealthCheck performs a database health check
func (s *SQLiteDB) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("index health check failed: %w", err)
	}

	return nil
}
