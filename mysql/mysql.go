package mysql

import (
	"fmt"

	"github.com/bcomnes/ddlgrator"
	"github.com/bcomnes/ddlgrator/internal/ddl"
)

// Name is the dialect name.
const Name = "mysql"

const maxIdentifier = 64

type grammar struct{}

// New returns the MySQL dialect.
func New() ddlgrator.Dialect {
	return ddl.New(grammar{})
}

func (grammar) Name() string {
	return Name
}

func (grammar) Quote(ident string) string {
	return ddl.QuoteWith("`", ident)
}

func (grammar) MaxIdentifier() int {
	return maxIdentifier
}

func (grammar) Begin() string {
	return "START TRANSACTION"
}

func (grammar) Commit() string {
	return "COMMIT"
}

func (grammar) InlineReferences() bool {
	return false
}

func (grammar) CheckAlter(ddlgrator.AlterOp) error {
	return nil
}

func (grammar) AutoIncrement(ddlgrator.ColumnSpec) string {
	return "AUTO_INCREMENT"
}

func (grammar) CheckColumn(c ddlgrator.ColumnSpec) error {
	if c.Type == ddlgrator.TypeVarChar || c.Type == ddlgrator.TypeVarBinary {
		if _, ok := ddl.MaxLength(c); !ok {
			return fmt.Errorf("%w: mysql needs max_length on %s column %s", ddlgrator.ErrUnsupported, c.Type, c.Name)
		}
	}
	if fk, ok := c.Annotations.Get(ddlgrator.ForeignKey); ok && fk.Reference != nil && fk.Reference.Column == "" {
		return fmt.Errorf("%w: mysql foreign key on %s must name the referenced column", ddlgrator.ErrUnsupported, c.Name)
	}
	return nil
}

func (grammar) ColumnType(c ddlgrator.ColumnSpec) (string, error) {
	switch c.Type {
	case ddlgrator.TypeInt8:
		return "TINYINT", nil
	case ddlgrator.TypeInt16:
		return "SMALLINT", nil
	case ddlgrator.TypeInt32:
		return "INT", nil
	case ddlgrator.TypeInt64:
		return "BIGINT", nil
	case ddlgrator.TypeFloat32:
		return "FLOAT", nil
	case ddlgrator.TypeFloat64:
		return "DOUBLE", nil
	case ddlgrator.TypeVarChar, ddlgrator.TypeVarBinary:
		n, _ := ddl.MaxLength(c)
		if c.Type == ddlgrator.TypeVarChar {
			return fmt.Sprintf("VARCHAR(%d)", n), nil
		}
		return fmt.Sprintf("VARBINARY(%d)", n), nil
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
		return fmt.Sprintf("ENUM(%s)", ddl.ChoiceList(c)), nil
	}
	return "", fmt.Errorf("%w %q", ddlgrator.ErrUnknownType, c.Type)
}
