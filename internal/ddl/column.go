package ddl

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bcomnes/ddlgrator"
)

type columnDef struct {
	sql string
	// reference is the REFERENCES clause when the grammar wants it as a
	// separate FOREIGN KEY constraint.
	reference string
}

// column renders the definition of c. Index annotations are accepted and
// produce no SQL; the statement set has no CREATE INDEX.
func column(g Grammar, c ddlgrator.ColumnSpec, inlinePK bool) (columnDef, error) {
	if err := checkIdent(g, c.Name); err != nil {
		return columnDef{}, err
	}
	if !c.Type.Valid() {
		return columnDef{}, fmt.Errorf("%w %q on column %s", ddlgrator.ErrUnknownType, c.Type, c.Name)
	}
	if err := validate(g, c); err != nil {
		return columnDef{}, err
	}
	if err := g.CheckColumn(c); err != nil {
		return columnDef{}, err
	}
	typ, err := g.ColumnType(c)
	if err != nil {
		return columnDef{}, err
	}

	a := c.Annotations
	parts := []string{g.Quote(c.Name), typ}
	pk := a.Has(ddlgrator.PrimaryKey)
	if pk && inlinePK {
		parts = append(parts, "PRIMARY KEY")
		if a.Has(ddlgrator.AutoIncrement) {
			if clause := g.AutoIncrement(c); clause != "" {
				parts = append(parts, clause)
			}
		}
	}
	if a.Has(ddlgrator.NotNull) && !(pk && inlinePK) {
		parts = append(parts, "NOT NULL")
	}
	if a.Has(ddlgrator.Unique) && !pk {
		parts = append(parts, "UNIQUE")
	}
	if dv, ok := a.Get(ddlgrator.DefaultValue); ok {
		lit, err := Literal(dv.Value)
		if err != nil {
			return columnDef{}, fmt.Errorf("%w: %s: %v", ddlgrator.ErrInvalidAnnotation, c.Name, err)
		}
		parts = append(parts, "DEFAULT "+lit)
	} else if a.Has(ddlgrator.AutoCreateTime) || a.Has(ddlgrator.AutoUpdateTime) {
		parts = append(parts, "DEFAULT "+currentTime(c.Type))
	}

	var def columnDef
	if fk, ok := a.Get(ddlgrator.ForeignKey); ok {
		ref := references(g, fk.Reference)
		if g.InlineReferences() {
			parts = append(parts, ref)
		} else {
			def.reference = ref
		}
	}
	def.sql = strings.Join(parts, " ")
	return def, nil
}

func validate(g Grammar, c ddlgrator.ColumnSpec) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: column %s: %s", ddlgrator.ErrInvalidAnnotation, c.Name, fmt.Sprintf(format, args...))
	}
	seen := make(map[ddlgrator.AnnotationType]bool, len(c.Annotations))
	for _, an := range c.Annotations {
		if !an.Type.Valid() {
			return invalid("unknown annotation %q", an.Type)
		}
		if seen[an.Type] {
			return invalid("%s given more than once", an.Type)
		}
		seen[an.Type] = true
	}

	if seen[ddlgrator.AutoIncrement] {
		if !c.Type.IsInteger() {
			return invalid("auto_increment requires an integer type, got %s", c.Type)
		}
		if !seen[ddlgrator.PrimaryKey] {
			return invalid("auto_increment requires primary_key")
		}
		if seen[ddlgrator.DefaultValue] {
			return invalid("auto_increment conflicts with default_value")
		}
	}
	if seen[ddlgrator.DefaultValue] {
		dv, _ := c.Annotations.Get(ddlgrator.DefaultValue)
		if _, err := Literal(dv.Value); err != nil {
			return invalid("default_value: %v", err)
		}
	}
	if seen[ddlgrator.MaxLength] {
		if c.Type != ddlgrator.TypeVarChar && c.Type != ddlgrator.TypeVarBinary {
			return invalid("max_length requires varchar or varbinary, got %s", c.Type)
		}
		if n, ok := MaxLength(c); !ok || n <= 0 {
			return invalid("max_length must be a positive integer")
		}
	}
	if seen[ddlgrator.Choices] != (c.Type == ddlgrator.TypeChoices) {
		return invalid("the choices type and the choices annotation go together")
	}
	if seen[ddlgrator.Choices] {
		an, _ := c.Annotations.Get(ddlgrator.Choices)
		if len(an.Choices) == 0 {
			return invalid("choices must not be empty")
		}
	}
	if seen[ddlgrator.ForeignKey] {
		an, _ := c.Annotations.Get(ddlgrator.ForeignKey)
		ref := an.Reference
		if ref == nil || ref.Table == "" {
			return invalid("foreign_key requires a table")
		}
		if err := checkIdent(g, ref.Table); err != nil {
			return err
		}
		if ref.Column != "" {
			if err := checkIdent(g, ref.Column); err != nil {
				return err
			}
		}
		if !ref.OnDelete.Valid() || !ref.OnUpdate.Valid() {
			return invalid("foreign_key has an unknown referential action")
		}
	}
	if seen[ddlgrator.AutoCreateTime] || seen[ddlgrator.AutoUpdateTime] {
		if !c.Type.IsTemporal() {
			return invalid("automatic time requires a date or time type, got %s", c.Type)
		}
		if seen[ddlgrator.DefaultValue] {
			return invalid("automatic time conflicts with default_value")
		}
	}
	return nil
}

// Literal renders a default value.
func Literal(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return QuoteWith("'", v), nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("non-finite number %v", v)
		}
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case nil:
		return "", fmt.Errorf("missing value")
	}
	return "", fmt.Errorf("unsupported literal %v (%T)", v, v)
}

// MaxLength returns the max_length of c.
func MaxLength(c ddlgrator.ColumnSpec) (int64, bool) {
	an, ok := c.Annotations.Get(ddlgrator.MaxLength)
	if !ok {
		return 0, false
	}
	switch n := an.Value.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// ChoiceList renders the allowed values of a choices column as a comma
// separated list of string literals.
func ChoiceList(c ddlgrator.ColumnSpec) string {
	an, _ := c.Annotations.Get(ddlgrator.Choices)
	lits := make([]string, len(an.Choices))
	for i, choice := range an.Choices {
		lits[i] = QuoteWith("'", choice)
	}
	return strings.Join(lits, ", ")
}

func currentTime(t ddlgrator.DbType) string {
	switch t {
	case ddlgrator.TypeDate:
		return "CURRENT_DATE"
	case ddlgrator.TypeTime:
		return "CURRENT_TIME"
	}
	return "CURRENT_TIMESTAMP"
}

func references(g Grammar, ref *ddlgrator.Reference) string {
	clause := "REFERENCES " + g.Quote(ref.Table)
	if ref.Column != "" {
		clause += " (" + g.Quote(ref.Column) + ")"
	}
	if ref.OnDelete != "" {
		clause += " ON DELETE " + action(ref.OnDelete)
	}
	if ref.OnUpdate != "" {
		clause += " ON UPDATE " + action(ref.OnUpdate)
	}
	return clause
}

func action(a ddlgrator.ReferentialAction) string {
	return strings.ToUpper(strings.ReplaceAll(string(a), "_", " "))
}
