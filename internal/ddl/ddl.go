// Package ddl implements the builder side of ddlgrator.Dialect once, on top
// of a small Grammar each SQL engine provides.
package ddl

import (
	"fmt"
	"strings"

	"github.com/bcomnes/ddlgrator"
)

// Grammar holds what differs between engines.
type Grammar interface {
	Name() string
	Quote(ident string) string
	// MaxIdentifier is the longest accepted identifier in bytes; zero means
	// no limit.
	MaxIdentifier() int
	Begin() string
	Commit() string
	// ColumnType renders the type of c, including any CHECK the type needs.
	ColumnType(c ddlgrator.ColumnSpec) (string, error)
	// AutoIncrement renders the clause following PRIMARY KEY on an auto
	// increment column, or "" when ColumnType already expresses it.
	AutoIncrement(c ddlgrator.ColumnSpec) string
	// InlineReferences reports whether REFERENCES is honored inside a
	// column definition. Otherwise a FOREIGN KEY constraint is emitted.
	InlineReferences() bool
	// CheckColumn rejects columns the engine cannot represent.
	CheckColumn(c ddlgrator.ColumnSpec) error
	// CheckAlter rejects ALTER TABLE actions the engine cannot perform.
	CheckAlter(op ddlgrator.AlterOp) error
}

// Dialect adapts a Grammar to ddlgrator.Dialect.
type Dialect struct {
	g Grammar
}

var _ ddlgrator.Dialect = Dialect{}

// New returns a Dialect rendering with g.
func New(g Grammar) Dialect {
	return Dialect{g: g}
}

func (d Dialect) Name() string { return d.g.Name() }

func (d Dialect) BeginTransaction() ddlgrator.TransactionBuilder {
	return Transaction{g: d.g}
}

func (d Dialect) CreateTable(name string) ddlgrator.TableBuilder {
	return Table{g: d.g, name: name}
}

func (d Dialect) CreateColumn(table, name string, typ ddlgrator.DbType, annotations ddlgrator.Annotations) ddlgrator.ColumnSpec {
	return ddlgrator.ColumnSpec{Table: table, Name: name, Type: typ, Annotations: annotations.Clone()}
}

func (d Dialect) AlterTable(table string, op ddlgrator.AlterOp) ddlgrator.StatementBuilder {
	return Alter{g: d.g, table: table, op: op}
}

func (d Dialect) DropTable(name string) ddlgrator.StatementBuilder {
	return Drop{g: d.g, name: name}
}

// Transaction is an immutable ddlgrator.TransactionBuilder.
type Transaction struct {
	g     Grammar
	stmts []ddlgrator.Statement
}

func (t Transaction) AddStatement(stmt ddlgrator.Statement) ddlgrator.TransactionBuilder {
	stmts := make([]ddlgrator.Statement, len(t.stmts), len(t.stmts)+1)
	copy(stmts, t.stmts)
	return Transaction{g: t.g, stmts: append(stmts, stmt)}
}

func (t Transaction) Finish() (ddlgrator.Script, error) {
	for i, stmt := range t.stmts {
		if strings.TrimSpace(stmt.SQL) == "" {
			return ddlgrator.Script{}, fmt.Errorf("statement %d is empty", i+1)
		}
	}
	return ddlgrator.Script{
		Dialect:    t.g.Name(),
		Begin:      t.g.Begin(),
		Statements: append([]ddlgrator.Statement(nil), t.stmts...),
		Commit:     t.g.Commit(),
	}, nil
}

// Table is an immutable ddlgrator.TableBuilder.
type Table struct {
	g       Grammar
	name    string
	columns []ddlgrator.ColumnSpec
}

func (t Table) AddColumn(col ddlgrator.ColumnSpec) ddlgrator.TableBuilder {
	cols := make([]ddlgrator.ColumnSpec, len(t.columns), len(t.columns)+1)
	copy(cols, t.columns)
	return Table{g: t.g, name: t.name, columns: append(cols, col)}
}

func (t Table) Build() (ddlgrator.Statement, error) {
	if err := checkIdent(t.g, t.name); err != nil {
		return ddlgrator.Statement{}, err
	}
	if len(t.columns) == 0 {
		return ddlgrator.Statement{}, fmt.Errorf("%w: table %s has no columns", ddlgrator.ErrUnsupported, t.name)
	}
	seen := make(map[string]bool, len(t.columns))
	var pks []string
	for _, c := range t.columns {
		if seen[c.Name] {
			return ddlgrator.Statement{}, fmt.Errorf("%w: %s.%s", ddlgrator.ErrDuplicateColumn, t.name, c.Name)
		}
		seen[c.Name] = true
		if c.Annotations.Has(ddlgrator.PrimaryKey) {
			pks = append(pks, c.Name)
		}
	}
	composite := len(pks) > 1

	var defs, constraints []string
	for _, c := range t.columns {
		def, err := column(t.g, c, !composite)
		if err != nil {
			return ddlgrator.Statement{}, err
		}
		if composite && c.Annotations.Has(ddlgrator.AutoIncrement) {
			return ddlgrator.Statement{}, fmt.Errorf("%w: %s: auto_increment needs a single primary key", ddlgrator.ErrInvalidAnnotation, c.Name)
		}
		defs = append(defs, def.sql)
		if def.reference != "" {
			constraints = append(constraints, fmt.Sprintf("FOREIGN KEY (%s) %s", t.g.Quote(c.Name), def.reference))
		}
	}
	if composite {
		quoted := make([]string, len(pks))
		for i, pk := range pks {
			quoted[i] = t.g.Quote(pk)
		}
		constraints = append([]string{"PRIMARY KEY (" + strings.Join(quoted, ", ") + ")"}, constraints...)
	}
	return ddlgrator.Statement{
		Kind:  ddlgrator.StmtCreateTable,
		Table: t.name,
		SQL:   fmt.Sprintf("CREATE TABLE %s (%s)", t.g.Quote(t.name), strings.Join(append(defs, constraints...), ", ")),
	}, nil
}

// Alter renders one ALTER TABLE action.
type Alter struct {
	g     Grammar
	table string
	op    ddlgrator.AlterOp
}

func (a Alter) Build() (ddlgrator.Statement, error) {
	if err := checkIdent(a.g, a.table); err != nil {
		return ddlgrator.Statement{}, err
	}
	if a.op == nil {
		return ddlgrator.Statement{}, fmt.Errorf("%w: empty ALTER TABLE action", ddlgrator.ErrUnsupported)
	}
	if err := a.g.CheckAlter(a.op); err != nil {
		return ddlgrator.Statement{}, err
	}
	prefix := "ALTER TABLE " + a.g.Quote(a.table)
	var action string
	switch op := a.op.(type) {
	case ddlgrator.RenameTo:
		if err := checkIdent(a.g, op.Name); err != nil {
			return ddlgrator.Statement{}, err
		}
		action = "RENAME TO " + a.g.Quote(op.Name)
	case ddlgrator.AddColumn:
		def, err := column(a.g, op.Column, true)
		if err != nil {
			return ddlgrator.Statement{}, err
		}
		action = "ADD COLUMN " + def.sql
		if def.reference != "" {
			action += fmt.Sprintf(", ADD FOREIGN KEY (%s) %s", a.g.Quote(op.Column.Name), def.reference)
		}
	case ddlgrator.DropColumn:
		if err := checkIdent(a.g, op.Name); err != nil {
			return ddlgrator.Statement{}, err
		}
		action = "DROP COLUMN " + a.g.Quote(op.Name)
	case ddlgrator.RenameColumn:
		if err := checkIdent(a.g, op.Old); err != nil {
			return ddlgrator.Statement{}, err
		}
		if err := checkIdent(a.g, op.New); err != nil {
			return ddlgrator.Statement{}, err
		}
		action = fmt.Sprintf("RENAME COLUMN %s TO %s", a.g.Quote(op.Old), a.g.Quote(op.New))
	default:
		return ddlgrator.Statement{}, fmt.Errorf("%w: ALTER TABLE action %T", ddlgrator.ErrUnsupported, op)
	}
	return ddlgrator.Statement{Kind: ddlgrator.StmtAlterTable, Table: a.table, SQL: prefix + " " + action}, nil
}

// Drop renders DROP TABLE.
type Drop struct {
	g    Grammar
	name string
}

func (d Drop) Build() (ddlgrator.Statement, error) {
	if err := checkIdent(d.g, d.name); err != nil {
		return ddlgrator.Statement{}, err
	}
	return ddlgrator.Statement{Kind: ddlgrator.StmtDropTable, Table: d.name, SQL: "DROP TABLE " + d.g.Quote(d.name)}, nil
}

func checkIdent(g Grammar, ident string) error {
	switch {
	case ident == "":
		return fmt.Errorf("%w: empty name", ddlgrator.ErrInvalidIdentifier)
	case strings.ContainsRune(ident, 0):
		return fmt.Errorf("%w: %q contains NUL", ddlgrator.ErrInvalidIdentifier, ident)
	case g.MaxIdentifier() > 0 && len(ident) > g.MaxIdentifier():
		return fmt.Errorf("%w: %q is longer than %d bytes", ddlgrator.ErrInvalidIdentifier, ident, g.MaxIdentifier())
	}
	return nil
}

// QuoteWith wraps ident in q, doubling any q inside it.
func QuoteWith(q, ident string) string {
	return q + strings.ReplaceAll(ident, q, q+q) + q
}
