package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

const defaultMaxConcurrentTx = 10

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB creates a Postgres connection pool through lib/pq.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	return Open("postgres", connStr, cfg.MaxConcurrentTx)
}

// Open connects with any registered driver: "postgres", "pgx" or "sqlite3".
func Open(driver, dsn string, maxConcurrentTx int64) (*DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if maxConcurrentTx <= 0 {
		maxConcurrentTx = defaultMaxConcurrentTx
	}

	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(maxConcurrentTx),
	}, nil
}

// OpenSQLite opens a file database with foreign keys on, for local runs and tests.
func OpenSQLite(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	return Open("sqlite3", dsn, defaultMaxConcurrentTx)
}

// IsSQLite reports whether the pool talks to SQLite, which has no row locks.
func (db *DB) IsSQLite() bool {
	return strings.HasPrefix(db.DriverName(), "sqlite")
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	// Acquire semaphore
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// lockRow serialises writers on one row. Postgres takes a row lock; SQLite
// gets its database write lock through a no-op update.
func (db *DB) lockRow(ctx context.Context, tx *sqlx.Tx, table string, id int64) error {
	if db.IsSQLite() {
		res, err := tx.ExecContext(ctx, tx.Rebind(fmt.Sprintf("UPDATE %s SET id = id WHERE id = ?", table)), id)
		if err != nil {
			return fmt.Errorf("failed to lock %s %d: %w", table, id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%s %d: %w", table, id, domain.ErrNotFound)
		}
		return nil
	}

	var locked int64
	query := tx.Rebind(fmt.Sprintf("SELECT id FROM %s WHERE id = ? FOR UPDATE", table))
	if err := tx.QueryRowxContext(ctx, query, id).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s %d: %w", table, id, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to lock %s %d: %w", table, id, err)
	}
	return nil
}

// isUniqueViolation recognises duplicate key errors from every supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// sqlDate scans DATE columns whether the driver yields time.Time or text.
type sqlDate struct {
	time.Time
}

func (d *sqlDate) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		d.Time = time.Time{}
		return nil
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into date", value)
	}
}

func (d *sqlDate) parse(s string) error {
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func dateArg(t time.Time) string {
	return t.Format("2006-01-02")
}
