package log

import (
	"log/slog"
	"strings"
)

// Err returns an Attr for the given error value.
// If error value is nil, the constant "no-error" value will be used.
func Err(key string, value error) slog.Attr {
	if value == nil {
		return slog.String(key, "no-error")
	}
	return slog.String(key, value.Error())
}

// Migration returns the Attr used to tag records with a migration id.
func Migration(id string) slog.Attr {
	return slog.String("migration", id)
}

// IDs joins ids into a single comma separated Attr.
func IDs(key string, ids []string) slog.Attr {
	return slog.String(key, strings.Join(ids, ","))
}
