package ddlgrator

import "strings"

// Dialect renders schema changes for one SQL engine. Builders returned by a
// Dialect are immutable values: every call that adds to a builder returns a
// new builder and leaves the receiver unchanged, so a builder may be reused
// or discarded at any point.
type Dialect interface {
	// Name identifies the dialect, for example "sqlite".
	Name() string
	BeginTransaction() TransactionBuilder
	CreateTable(name string) TableBuilder
	// CreateColumn describes a column of table. Validation is deferred to
	// the builder the column is added to.
	CreateColumn(table, name string, typ DbType, annotations Annotations) ColumnSpec
	AlterTable(table string, op AlterOp) StatementBuilder
	DropTable(name string) StatementBuilder
}

// TransactionBuilder accumulates the statements of one migration.
type TransactionBuilder interface {
	AddStatement(stmt Statement) TransactionBuilder
	// Finish closes the transaction. Statements keep the order in which
	// they were added.
	Finish() (Script, error)
}

// TableBuilder accumulates the columns of a CREATE TABLE statement.
type TableBuilder interface {
	AddColumn(col ColumnSpec) TableBuilder
	Build() (Statement, error)
}

// StatementBuilder renders a single statement.
type StatementBuilder interface {
	Build() (Statement, error)
}

// ColumnSpec is a column definition bound to a table.
type ColumnSpec struct {
	Table       string
	Name        string
	Type        DbType
	Annotations Annotations
}

// AlterOp is one ALTER TABLE action.
type AlterOp interface {
	alterOp()
}

// RenameTo renames the table.
type RenameTo struct {
	Name string
}

// AddColumn appends a column.
type AddColumn struct {
	Column ColumnSpec
}

// DropColumn drops a column.
type DropColumn struct {
	Name string
}

// RenameColumn renames a column.
type RenameColumn struct {
	Old string
	New string
}

func (RenameTo) alterOp()     {}
func (AddColumn) alterOp()    {}
func (DropColumn) alterOp()   {}
func (RenameColumn) alterOp() {}

// StatementKind classifies a rendered statement.
type StatementKind string

const (
	StmtCreateTable StatementKind = "create_table"
	StmtAlterTable  StatementKind = "alter_table"
	StmtDropTable   StatementKind = "drop_table"
)

// Statement is one rendered SQL statement, without a trailing semicolon.
type Statement struct {
	Kind  StatementKind
	Table string
	SQL   string
}

// Script is the transactional SQL of one migration.
type Script struct {
	MigrationID string
	Dialect     string
	Begin       string
	Statements  []Statement
	Commit      string
}

// SQL returns the statements without the transaction framing.
func (s Script) SQL() []string {
	out := make([]string, len(s.Statements))
	for i, stmt := range s.Statements {
		out[i] = stmt.SQL
	}
	return out
}

// String renders the whole script, one semicolon-terminated statement per
// line.
func (s Script) String() string {
	var b strings.Builder
	b.WriteString(s.Begin)
	b.WriteString(";\n")
	for _, stmt := range s.Statements {
		b.WriteString(stmt.SQL)
		b.WriteString(";\n")
	}
	b.WriteString(s.Commit)
	b.WriteString(";\n")
	return b.String()
}
