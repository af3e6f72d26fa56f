package sqlite

import (
	"fmt"

	"github.com/bcomnes/ddlgrator"
	"github.com/bcomnes/ddlgrator/internal/ddl"
)

// Name is the dialect name.
const Name = "sqlite"

type version [3]int

func (v version) atLeast(major, minor, patch int) bool {
	o := version{major, minor, patch}
	for i := range v {
		if v[i] != o[i] {
			return v[i] > o[i]
		}
	}
	return true
}

func (v version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

type grammar struct {
	version version
}

// Option configures the dialect.
type Option func(*grammar)

// WithVersion sets the SQLite version statements must run on.
func WithVersion(major, minor, patch int) Option {
	return func(g *grammar) { g.version = version{major, minor, patch} }
}

// New returns the SQLite dialect.
func New(opts ...Option) ddlgrator.Dialect {
	g := &grammar{version: version{3, 45, 0}}
	for _, opt := range opts {
		opt(g)
	}
	return ddl.New(g)
}

func (g *grammar) Name() string {
	return Name
}

func (g *grammar) Quote(ident string) string {
	return ddl.QuoteWith(`"`, ident)
}

func (g *grammar) MaxIdentifier() int {
	return 0
}

func (g *grammar) Begin() string {
	return "BEGIN TRANSACTION"
}

func (g *grammar) Commit() string {
	return "COMMIT"
}

func (g *grammar) InlineReferences() bool {
	return true
}

func (g *grammar) CheckColumn(ddlgrator.ColumnSpec) error {
	return nil
}

func (g *grammar) AutoIncrement(ddlgrator.ColumnSpec) string {
	return "AUTOINCREMENT"
}

func (g *grammar) ColumnType(c ddlgrator.ColumnSpec) (string, error) {
	switch c.Type {
	case ddlgrator.TypeInt8, ddlgrator.TypeInt16, ddlgrator.TypeInt32, ddlgrator.TypeInt64:
		return "INTEGER", nil
	case ddlgrator.TypeFloat32, ddlgrator.TypeFloat64:
		return "REAL", nil
	case ddlgrator.TypeVarChar:
		if n, ok := ddl.MaxLength(c); ok {
			return fmt.Sprintf("VARCHAR(%d)", n), nil
		}
		return "TEXT", nil
	case ddlgrator.TypeVarBinary:
		return "BLOB", nil
	case ddlgrator.TypeBoolean:
		return "BOOLEAN", nil
	case ddlgrator.TypeDate:
		return "DATE", nil
	case ddlgrator.TypeDateTime:
		return "DATETIME", nil
	case ddlgrator.TypeTimestamp:
		return "TIMESTAMP", nil
	case ddlgrator.TypeTime:
		return "TIME", nil
	case ddlgrator.TypeChoices:
		return fmt.Sprintf("TEXT CHECK (%s IN (%s))", g.Quote(c.Name), ddl.ChoiceList(c)), nil
	}
	return "", fmt.Errorf("%w %q", ddlgrator.ErrUnknownType, c.Type)
}

func (g *grammar) CheckAlter(op ddlgrator.AlterOp) error {
	switch op := op.(type) {
	case ddlgrator.AddColumn:
		a := op.Column.Annotations
		switch {
		case a.Has(ddlgrator.PrimaryKey):
			return fmt.Errorf("%w: sqlite cannot add primary key column %s", ddlgrator.ErrUnsupported, op.Column.Name)
		case a.Has(ddlgrator.Unique):
			return fmt.Errorf("%w: sqlite cannot add unique column %s", ddlgrator.ErrUnsupported, op.Column.Name)
		case a.Has(ddlgrator.NotNull) && !a.Has(ddlgrator.DefaultValue):
			return fmt.Errorf("%w: sqlite cannot add NOT NULL column %s without a default", ddlgrator.ErrUnsupported, op.Column.Name)
		case a.Has(ddlgrator.AutoCreateTime) || a.Has(ddlgrator.AutoUpdateTime):
			return fmt.Errorf("%w: sqlite cannot add column %s with a non-constant default", ddlgrator.ErrUnsupported, op.Column.Name)
		}
	case ddlgrator.RenameColumn:
		if !g.version.atLeast(3, 25, 0) {
			return fmt.Errorf("%w: RENAME COLUMN needs sqlite 3.25.0, targeting %s", ddlgrator.ErrUnsupported, g.version)
		}
	case ddlgrator.DropColumn:
		if !g.version.atLeast(3, 35, 0) {
			return fmt.Errorf("%w: DROP COLUMN needs sqlite 3.35.0, targeting %s", ddlgrator.ErrUnsupported, g.version)
		}
	}
	return nil
}
