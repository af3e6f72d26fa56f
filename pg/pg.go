package pg

import (
	"fmt"

	"github.com/bcomnes/ddlgrator"
	"github.com/bcomnes/ddlgrator/internal/ddl"
)

// Name is the dialect name.
const Name = "pg"

// maxIdentifier is NAMEDATALEN - 1 of a default build.
const maxIdentifier = 63

type grammar struct{}

// New returns the PostgreSQL dialect.
func New() ddlgrator.Dialect {
	return ddl.New(grammar{})
}

func (grammar) Name() string {
	return Name
}

func (grammar) Quote(ident string) string {
	return ddl.QuoteWith(`"`, ident)
}

func (grammar) MaxIdentifier() int {
	return maxIdentifier
}

func (grammar) Begin() string {
	return "BEGIN"
}

func (grammar) Commit() string {
	return "COMMIT"
}

func (grammar) InlineReferences() bool {
	return true
}

func (grammar) CheckColumn(ddlgrator.ColumnSpec) error {
	return nil
}

func (grammar) CheckAlter(ddlgrator.AlterOp) error {
	return nil
}

// AutoIncrement is empty: serial types carry their own sequence.
func (grammar) AutoIncrement(ddlgrator.ColumnSpec) string {
	return ""
}

func (g grammar) ColumnType(c ddlgrator.ColumnSpec) (string, error) {
	serial := c.Annotations.Has(ddlgrator.AutoIncrement)
	switch c.Type {
	case ddlgrator.TypeInt8, ddlgrator.TypeInt16:
		if serial {
			return "SMALLSERIAL", nil
		}
		return "SMALLINT", nil
	case ddlgrator.TypeInt32:
		if serial {
			return "SERIAL", nil
		}
		return "INTEGER", nil
	case ddlgrator.TypeInt64:
		if serial {
			return "BIGSERIAL", nil
		}
		return "BIGINT", nil
	case ddlgrator.TypeFloat32:
		return "REAL", nil
	case ddlgrator.TypeFloat64:
		return "DOUBLE PRECISION", nil
	case ddlgrator.TypeVarChar:
		if n, ok := ddl.MaxLength(c); ok {
			return fmt.Sprintf("VARCHAR(%d)", n), nil
		}
		return "VARCHAR", nil
	case ddlgrator.TypeVarBinary:
		return "BYTEA", nil
	case ddlgrator.TypeBoolean:
		return "BOOLEAN", nil
	case ddlgrator.TypeDate:
		return "DATE", nil
	case ddlgrator.TypeDateTime:
		return "TIMESTAMP", nil
	case ddlgrator.TypeTimestamp:
		return "TIMESTAMPTZ", nil
	case ddlgrator.TypeTime:
		return "TIME", nil
	case ddlgrator.TypeChoices:
		return fmt.Sprintf("VARCHAR CHECK (%s IN (%s))", g.Quote(c.Name), ddl.ChoiceList(c)), nil
	}
	return "", fmt.Errorf("%w %q", ddlgrator.ErrUnknownType, c.Type)
}
