package runner

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/bcomnes/ddlgrator"
)

// Sqlite3Client implements Client for SQLite.
type Sqlite3Client struct {
	baseClient
}

// NewSqlite3Client creates a new Sqlite3Client.
func NewSqlite3Client(cfg ddlgrator.DatabaseConfig, db *sql.DB) *Sqlite3Client {
	c := &Sqlite3Client{
		baseClient: baseClient{
			cfg:    cfg,
			db:     db,
			locker: NewSQLiteLock(db),
		},
	}
	c.quotedLedgerTableFn = c.quotedLedgerTable
	c.getColumnsSqlFn = c.getColumnsSql
	c.getCreateSqlFn = c.getCreateSql
	c.getAddRunIDSqlFn = c.getAddRunIDSql
	c.placeholderFn = func(int) string { return "?" }
	return c
}

func (c *Sqlite3Client) quotedLedgerTable() string {
	return `"` + strings.ReplaceAll(c.cfg.LedgerTable, `"`, `""`) + `"`
}

func (c *Sqlite3Client) getColumnsSql() string {
	return fmt.Sprintf(`SELECT name AS column_name FROM pragma_table_info('%s')`,
		strings.ReplaceAll(c.cfg.LedgerTable, "'", "''"))
}

func (c *Sqlite3Client) getCreateSql() []string {
	return []string{fmt.Sprintf(`CREATE TABLE %s (
            id TEXT PRIMARY KEY,
            hash TEXT NOT NULL,
            run_id TEXT,
            applied_at TIMESTAMP NOT NULL
          )`, c.quotedLedgerTable())}
}

func (c *Sqlite3Client) getAddRunIDSql() string {
	return fmt.Sprintf(`ALTER TABLE %s ADD COLUMN run_id TEXT`, c.quotedLedgerTable())
}
