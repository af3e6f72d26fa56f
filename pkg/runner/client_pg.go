package runner

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/bcomnes/ddlgrator"
)

// PostgresClient implements Client for PostgreSQL.
type PostgresClient struct {
	baseClient
}

// NewPostgresClient creates a new PostgresClient.
func NewPostgresClient(cfg ddlgrator.DatabaseConfig, db *sql.DB) *PostgresClient {
	c := &PostgresClient{
		baseClient: baseClient{
			cfg:    cfg,
			db:     db,
			locker: NewPostgresLock(db),
		},
	}
	c.quotedLedgerTableFn = c.quotedLedgerTable
	c.getColumnsSqlFn = c.getColumnsSql
	c.getCreateSqlFn = c.getCreateSql
	c.getAddRunIDSqlFn = c.getAddRunIDSql
	c.placeholderFn = func(n int) string { return fmt.Sprintf("$%d", n) }
	return c
}

// schemaTable splits the ledger table into schema and table. CurrentSchema,
// then public, is used when LedgerTable is not qualified.
func (c *PostgresClient) schemaTable() (string, string) {
	if schema, table, ok := strings.Cut(c.cfg.LedgerTable, "."); ok {
		return schema, table
	}
	if c.cfg.CurrentSchema != "" {
		return c.cfg.CurrentSchema, c.cfg.LedgerTable
	}
	return "public", c.cfg.LedgerTable
}

// quotedLedgerTable returns the ledger table name with each part quoted.
func (c *PostgresClient) quotedLedgerTable() string {
	schema, table := c.schemaTable()
	return pgQuote(schema) + "." + pgQuote(table)
}

func (c *PostgresClient) getColumnsSql() string {
	schema, table := c.schemaTable()
	return fmt.Sprintf(`SELECT column_name FROM information_schema.columns WHERE table_schema = %s AND table_name = %s`,
		pgLiteral(schema), pgLiteral(table))
}

func (c *PostgresClient) getCreateSql() []string {
	schema, _ := c.schemaTable()
	return []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pgQuote(schema)),
		fmt.Sprintf(`CREATE TABLE %s (
            id TEXT PRIMARY KEY,
            hash TEXT NOT NULL,
            run_id TEXT,
            applied_at TIMESTAMPTZ NOT NULL
          )`, c.quotedLedgerTable()),
	}
}

func (c *PostgresClient) getAddRunIDSql() string {
	return fmt.Sprintf(`ALTER TABLE %s ADD COLUMN run_id TEXT`, c.quotedLedgerTable())
}

func pgQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func pgLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
