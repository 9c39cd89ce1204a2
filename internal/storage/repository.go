package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wishbudget/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when the addressed row does not exist or does
	// not belong to the caller.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyClaimed is returned when an item already has a claim.
	ErrAlreadyClaimed = errors.New("item already claimed")
	// ErrUnknownReference is returned when a write points at a row that
	// does not exist, such as an unknown recipient profile.
	ErrUnknownReference = errors.New("unknown reference")
)

// SQLiteRepository stores the wishlist tables and budget goals.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection; used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseDateColumn(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		// Timestamps written by other clients still carry a usable day.
		if t := parseTimestamp(s); !t.IsZero() {
			return core.DateOf(t)
		}
		return core.Date{}
	}
	return d
}

func nullMoney(v sql.NullInt64) *core.Money {
	if !v.Valid {
		return nil
	}
	return &core.Money{Cents: v.Int64}
}

func moneyArg(m *core.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents
}

func nullTheme(v sql.NullString) *core.Theme {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	t := core.ParseTheme(v.String)
	return &t
}

func themeArg(t *core.Theme) any {
	if t == nil {
		return nil
	}
	return string(*t)
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
