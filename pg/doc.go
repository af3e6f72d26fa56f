// SPDX-License-Identifier: MIT

// Package pg renders ddlgrator migrations as PostgreSQL DDL.
//
// # Types
//
//	int8, int16     SMALLINT (SMALLSERIAL with auto_increment)
//	int32           INTEGER  (SERIAL with auto_increment)
//	int64           BIGINT   (BIGSERIAL with auto_increment)
//	float32         REAL
//	float64         DOUBLE PRECISION
//	varchar         VARCHAR(n) with max_length, VARCHAR otherwise
//	varbinary       BYTEA
//	boolean         BOOLEAN
//	date            DATE
//	datetime        TIMESTAMP
//	timestamp       TIMESTAMPTZ
//	time            TIME
//	choices         VARCHAR CHECK (col IN (...))
//
// Identifiers longer than 63 bytes are rejected rather than silently
// truncated by the server.
package pg
