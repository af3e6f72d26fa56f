package ddlgrator

import "fmt"

// DbType is the semantic database type of a Field. Dialects map it to a
// concrete column type.
type DbType string

const (
	TypeVarChar   DbType = "varchar"
	TypeVarBinary DbType = "varbinary"
	TypeInt8      DbType = "int8"
	TypeInt16     DbType = "int16"
	TypeInt32     DbType = "int32"
	TypeInt64     DbType = "int64"
	TypeFloat32   DbType = "float32"
	TypeFloat64   DbType = "float64"
	TypeBoolean   DbType = "boolean"
	TypeDate      DbType = "date"
	TypeDateTime  DbType = "datetime"
	TypeTimestamp DbType = "timestamp"
	TypeTime      DbType = "time"
	TypeChoices   DbType = "choices"
)

// Valid reports whether t is one of the known database types.
func (t DbType) Valid() bool {
	switch t {
	case TypeVarChar, TypeVarBinary,
		TypeInt8, TypeInt16, TypeInt32, TypeInt64,
		TypeFloat32, TypeFloat64,
		TypeBoolean,
		TypeDate, TypeDateTime, TypeTimestamp, TypeTime,
		TypeChoices:
		return true
	}
	return false
}

// IsInteger reports whether t is one of the integer types.
func (t DbType) IsInteger() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return true
	}
	return false
}

// IsTemporal reports whether t holds a date, a time or both.
func (t DbType) IsTemporal() bool {
	switch t {
	case TypeDate, TypeDateTime, TypeTimestamp, TypeTime:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown
// type names.
func (t *DbType) UnmarshalText(text []byte) error {
	v := DbType(text)
	if !v.Valid() {
		return fmt.Errorf("unknown database type %q", text)
	}
	*t = v
	return nil
}

// AnnotationType discriminates the annotations a Field may carry.
type AnnotationType string

const (
	PrimaryKey     AnnotationType = "primary_key"
	AutoIncrement  AnnotationType = "auto_increment"
	NotNull        AnnotationType = "not_null"
	Unique         AnnotationType = "unique"
	Index          AnnotationType = "index"
	DefaultValue   AnnotationType = "default_value"
	MaxLength      AnnotationType = "max_length"
	Choices        AnnotationType = "choices"
	ForeignKey     AnnotationType = "foreign_key"
	AutoCreateTime AnnotationType = "auto_create_time"
	AutoUpdateTime AnnotationType = "auto_update_time"
)

var annotationTypes = map[AnnotationType]struct{}{
	PrimaryKey: {}, AutoIncrement: {}, NotNull: {}, Unique: {}, Index: {},
	DefaultValue: {}, MaxLength: {}, Choices: {}, ForeignKey: {},
	AutoCreateTime: {}, AutoUpdateTime: {},
}

// Valid reports whether t is one of the known annotation types.
func (t AnnotationType) Valid() bool {
	_, ok := annotationTypes[t]
	return ok
}

// ReferentialAction is the ON DELETE / ON UPDATE behavior of a foreign key.
type ReferentialAction string

const (
	NoAction   ReferentialAction = "no_action"
	Restrict   ReferentialAction = "restrict"
	Cascade    ReferentialAction = "cascade"
	SetNull    ReferentialAction = "set_null"
	SetDefault ReferentialAction = "set_default"
)

// Valid reports whether a is a known action. The empty action is valid and
// leaves the engine default in place.
func (a ReferentialAction) Valid() bool {
	switch a {
	case "", NoAction, Restrict, Cascade, SetNull, SetDefault:
		return true
	}
	return false
}

// Reference is the target of a foreign key. An empty Column refers to the
// primary key of Table.
type Reference struct {
	Table    string
	Column   string
	OnDelete ReferentialAction
	OnUpdate ReferentialAction
}

// Annotation is one column annotation. Value carries the literal of a
// default_value (string, int64, float64 or bool) and the length of a
// max_length; Choices and Reference are only set for their own types.
type Annotation struct {
	Type      AnnotationType
	Value     any
	Choices   []string
	Reference *Reference
}

// Annotations is the annotation set of a Field.
type Annotations []Annotation

// Has reports whether an annotation of type t is present.
func (a Annotations) Has(t AnnotationType) bool {
	_, ok := a.Get(t)
	return ok
}

// Get returns the first annotation of type t.
func (a Annotations) Get(t AnnotationType) (Annotation, bool) {
	for _, an := range a {
		if an.Type == t {
			return an, true
		}
	}
	return Annotation{}, false
}

// Clone returns a deep copy of a, so builders never share backing arrays
// with the operation they were created from.
func (a Annotations) Clone() Annotations {
	if a == nil {
		return nil
	}
	out := make(Annotations, len(a))
	for i, an := range a {
		if an.Choices != nil {
			an.Choices = append([]string(nil), an.Choices...)
		}
		if an.Reference != nil {
			ref := *an.Reference
			an.Reference = &ref
		}
		out[i] = an
	}
	return out
}

// Flag returns a value-less annotation such as PrimaryKey or NotNull.
func Flag(t AnnotationType) Annotation {
	return Annotation{Type: t}
}

// Default returns a default_value annotation.
func Default(v any) Annotation {
	return Annotation{Type: DefaultValue, Value: v}
}

// Length returns a max_length annotation.
func Length(n int) Annotation {
	return Annotation{Type: MaxLength, Value: int64(n)}
}

// OneOf returns a choices annotation.
func OneOf(choices ...string) Annotation {
	return Annotation{Type: Choices, Choices: choices}
}

// RefersTo returns a foreign_key annotation without referential actions.
func RefersTo(table, column string) Annotation {
	return Annotation{Type: ForeignKey, Reference: &Reference{Table: table, Column: column}}
}

// Field is a column descriptor. Its Name is unique within its model. A
// Field is treated as immutable once it is embedded in an Operation.
type Field struct {
	Name        string
	Type        DbType
	Annotations Annotations
}
