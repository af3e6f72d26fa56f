package runner

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bcomnes/ddlgrator"
)

// AppliedMigration is one row of the ledger.
type AppliedMigration struct {
	ID        string
	Hash      string
	RunID     string
	AppliedAt time.Time
}

// Client reads and writes the ledger of applied migrations.
type Client interface {
	HasLedger(ctx context.Context) (bool, error)
	EnsureLedger(ctx context.Context) error
	Applied(ctx context.Context) ([]AppliedMigration, error)
	DropLedger(ctx context.Context) error
	// Record inserts a ledger row inside tx, so the row commits together
	// with the statements of its migration.
	Record(ctx context.Context, tx *sql.Tx, rec AppliedMigration) error
	Locker() Locker
}

// NewClient creates a new Client based on the provided configuration and database connection.
func NewClient(cfg ddlgrator.DatabaseConfig, db *sql.DB) (Client, error) {
	driver, err := cfg.DriverName()
	if err != nil {
		return nil, err
	}
	switch driver {
	case ddlgrator.DriverPostgres:
		return NewPostgresClient(cfg, db), nil
	case ddlgrator.DriverSQLite:
		return NewSqlite3Client(cfg, db), nil
	default:
		return nil, fmt.Errorf("db driver '%s' not supported. Must be one of: sqlite3 or pg", cfg.Driver)
	}
}

// baseClient implements Client on top of the SQL a driver client plugs in
// through the function fields.
type baseClient struct {
	cfg    ddlgrator.DatabaseConfig
	db     *sql.DB
	locker Locker

	quotedLedgerTableFn func() string
	getColumnsSqlFn     func() string
	getCreateSqlFn      func() []string
	getAddRunIDSqlFn    func() string
	placeholderFn       func(n int) string
}

func (c *baseClient) Locker() Locker { return c.locker }

func (c *baseClient) columns(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, c.getColumnsSqlFn())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var columns []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// HasLedger checks for the existence of the ledger table by querying its columns.
func (c *baseClient) HasLedger(ctx context.Context) (bool, error) {
	columns, err := c.columns(ctx)
	if err != nil {
		return false, err
	}
	return len(columns) > 0, nil
}

// Helper function to check for a column name (case insensitive).
func hasColumn(columns []string, name string) bool {
	for _, col := range columns {
		if strings.EqualFold(col, name) {
			return true
		}
	}
	return false
}

// EnsureLedger creates the ledger table, or adds the run_id column to a
// ledger written before runs were tracked.
func (c *baseClient) EnsureLedger(ctx context.Context) error {
	columns, err := c.columns(ctx)
	if err != nil {
		return err
	}
	var queries []string
	if len(columns) == 0 {
		queries = c.getCreateSqlFn()
	} else if !hasColumn(columns, "run_id") {
		queries = append(queries, c.getAddRunIDSqlFn())
	}
	for _, q := range queries {
		if _, err := c.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure ledger %s: %w", c.cfg.LedgerTable, err)
		}
	}
	return nil
}

// Applied returns the ledger rows, oldest first. A missing ledger reads as
// empty.
func (c *baseClient) Applied(ctx context.Context) ([]AppliedMigration, error) {
	ok, err := c.HasLedger(ctx)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, hash, run_id, applied_at FROM %s ORDER BY applied_at, id`,
		c.quotedLedgerTableFn()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var applied []AppliedMigration
	for rows.Next() {
		var rec AppliedMigration
		var runID sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Hash, &runID, &rec.AppliedAt); err != nil {
			return nil, err
		}
		rec.RunID = runID.String
		applied = append(applied, rec)
	}
	return applied, rows.Err()
}

// DropLedger drops the ledger table if it exists.
func (c *baseClient) DropLedger(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", c.quotedLedgerTableFn())); err != nil {
		return fmt.Errorf("drop ledger %s: %w", c.cfg.LedgerTable, err)
	}
	return nil
}

func (c *baseClient) Record(ctx context.Context, tx *sql.Tx, rec AppliedMigration) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, hash, run_id, applied_at) VALUES (%s, %s, %s, %s)`,
		c.quotedLedgerTableFn(),
		c.placeholderFn(1), c.placeholderFn(2), c.placeholderFn(3), c.placeholderFn(4))
	_, err := tx.ExecContext(ctx, query, rec.ID, rec.Hash, rec.RunID, rec.AppliedAt)
	return err
}
