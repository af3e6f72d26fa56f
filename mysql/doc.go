// SPDX-License-Identifier: MIT

// Package mysql renders ddlgrator migrations as MySQL 8 DDL.
//
// MySQL commits implicitly around DDL, so the START TRANSACTION framing of a
// script does not make a failed migration roll back. The ddlgrator runner
// only executes sqlite and pg; this dialect is for generating SQL.
//
// varchar and varbinary columns need a max_length. Foreign keys are emitted
// as FOREIGN KEY constraints because MySQL ignores REFERENCES inside a column
// definition, and they must name the referenced column.
package mysql
