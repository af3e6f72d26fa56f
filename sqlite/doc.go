// SPDX-License-Identifier: MIT

// Package sqlite renders ddlgrator migrations as SQLite DDL.
//
// # Types
//
//	int8, int16, int32, int64   INTEGER
//	float32, float64            REAL
//	varchar                     VARCHAR(n) with max_length, TEXT otherwise
//	varbinary                   BLOB
//	boolean                     BOOLEAN
//	date, datetime, timestamp,
//	time                        DATE, DATETIME, TIMESTAMP, TIME
//	choices                     TEXT CHECK (col IN (...))
//
// An auto_increment primary key is rendered as INTEGER PRIMARY KEY
// AUTOINCREMENT.
//
// # Limits
//
// SQLite cannot add a column that is a primary key, is unique, or is NOT NULL
// without a default, and cannot add a column whose default is the current
// time. Such CreateField operations fail with ddlgrator.ErrUnsupported.
//
// RENAME COLUMN needs SQLite 3.25.0 and DROP COLUMN needs 3.35.0. The
// dialect assumes a current engine; use WithVersion to target an older one.
//
//	d := sqlite.New(sqlite.WithVersion(3, 22, 0))
//	scripts, err := ddlgrator.ApplyAll(migrations, d)
package sqlite
