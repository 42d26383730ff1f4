package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/elebur/VoteAPI/internal/domain"
)

// Dialect names match the database/sql driver names.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var numberedParam = regexp.MustCompile(`\$(\d+)`)

// conn runs postgres-flavoured SQL against either backend.
type conn struct {
	q       querier
	dialect string
	now     func() time.Time
}

func (c conn) rebind(query string) string {
	if c.dialect == DialectSQLite {
		return numberedParam.ReplaceAllString(query, "?$1")
	}
	return query
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.rebind(query), args...)
}

func (c conn) timestamp() time.Time {
	return c.now().UTC()
}

// SQLStore implements domain.Store on database/sql.
type SQLStore struct {
	db     *sql.DB
	logger *slog.Logger
	conn
}

// NewSQLStore wraps db. dialect is DialectPostgres or DialectSQLite.
func NewSQLStore(db *sql.DB, dialect string, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		db:     db,
		logger: logger,
		conn:   conn{q: db, dialect: dialect, now: time.Now},
	}
}

func (s *SQLStore) Users() domain.UserRepository             { return &userRepository{s.conn} }
func (s *SQLStore) Employees() domain.EmployeeRepository     { return &employeeRepository{s.conn} }
func (s *SQLStore) Restaurants() domain.RestaurantRepository { return &restaurantRepository{s.conn} }
func (s *SQLStore) Menus() domain.MenuRepository             { return &menuRepository{s.conn} }
func (s *SQLStore) MenuItems() domain.MenuItemRepository     { return &menuItemRepository{s.conn} }
func (s *SQLStore) Votes() domain.VoteRepository             { return &voteRepository{s.conn} }

// WithinTx runs fn in a transaction, rolling back on error or panic.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(txRepositories{conn{q: tx, dialect: s.dialect, now: s.now}}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("transaction commit failed", slog.String("error", err.Error()))
		return fmt.Errorf("commit transaction: %w", classify(err))
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type txRepositories struct {
	conn
}

func (t txRepositories) Users() domain.UserRepository             { return &userRepository{t.conn} }
func (t txRepositories) Employees() domain.EmployeeRepository     { return &employeeRepository{t.conn} }
func (t txRepositories) Restaurants() domain.RestaurantRepository { return &restaurantRepository{t.conn} }
func (t txRepositories) Menus() domain.MenuRepository             { return &menuRepository{t.conn} }
func (t txRepositories) MenuItems() domain.MenuItemRepository     { return &menuItemRepository{t.conn} }
func (t txRepositories) Votes() domain.VoteRepository             { return &voteRepository{t.conn} }

// classify maps driver constraint violations onto domain sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", domain.ErrDuplicate, pqErr.Message)
		case "23503":
			return fmt.Errorf("%w: %s", domain.ErrReference, pqErr.Message)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		msg := liteErr.Error()
		switch code := liteErr.Code(); {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", domain.ErrDuplicate, msg)
		case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %s", domain.ErrReference, msg)
		case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "UNIQUE"):
			return fmt.Errorf("%w: %s", domain.ErrDuplicate, msg)
		case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "FOREIGN KEY"):
			return fmt.Errorf("%w: %s", domain.ErrReference, msg)
		}
	}
	return err
}

// timeScanner accepts the native time.Time of lib/pq as well as the text
// timestamps sqlite hands back.
type timeScanner struct {
	dst *time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (s timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*s.dst = v
		return nil
	case nil:
		*s.dst = time.Time{}
		return nil
	case []byte:
		return s.parse(string(v))
	case string:
		return s.parse(v)
	}
	return fmt.Errorf("cannot scan %T into time.Time", src)
}

func (s timeScanner) parse(v string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			*s.dst = t
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", v)
}

func scanTime(t *time.Time) timeScanner { return timeScanner{dst: t} }
