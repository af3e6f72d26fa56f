package runner

import (
	"database/sql"
	"fmt"

	// Database drivers registered with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bcomnes/ddlgrator"
	"github.com/bcomnes/ddlgrator/mysql"
	"github.com/bcomnes/ddlgrator/pg"
	"github.com/bcomnes/ddlgrator/sqlite"
)

// DialectFor returns the dialect for a driver name as accepted by
// ddlgrator.DatabaseConfig.
func DialectFor(driver string) (ddlgrator.Dialect, error) {
	name, err := ddlgrator.DatabaseConfig{Driver: driver}.DriverName()
	if err != nil {
		return nil, err
	}
	switch name {
	case ddlgrator.DriverPostgres:
		return pg.New(), nil
	case ddlgrator.DriverMySQL:
		return mysql.New(), nil
	default:
		return sqlite.New(), nil
	}
}

// Open connects to the configured database through the pgx or go-sqlite3
// database/sql drivers.
func Open(cfg ddlgrator.DatabaseConfig) (*sql.DB, error) {
	driver, err := cfg.DriverName()
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.DataSource()
	if err != nil {
		return nil, err
	}
	switch driver {
	case ddlgrator.DriverPostgres:
		return sql.Open("pgx", dsn)
	case ddlgrator.DriverSQLite:
		return sql.Open("sqlite3", dsn)
	default:
		return nil, fmt.Errorf("db driver '%s' not supported. Must be one of: sqlite3 or pg", cfg.Driver)
	}
}
