package runner

import (
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// driverErrorAttrs extracts the engine error code of err for logging.
func driverErrorAttrs(err error) []slog.Attr {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return []slog.Attr{
			slog.String("sqlstate", pgErr.Code),
			slog.String("detail", pgErr.Detail),
		}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return []slog.Attr{
			slog.Int("sqlite_code", int(liteErr.Code)),
			slog.Int("sqlite_extended_code", int(liteErr.ExtendedCode)),
		}
	}
	return nil
}
