package ddlgrator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format is a migration document encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf returns the document format implied by the extension of path.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	}
	return "", false
}

// document is the on-disk layout shared by every format: a single top-level
// Migration table with PascalCase keys.
type document struct {
	Migration *rawMigration `toml:"Migration" yaml:"Migration" json:"Migration"`
}

type rawMigration struct {
	Hash       string         `toml:"Hash" yaml:"Hash" json:"Hash"`
	Initial    bool           `toml:"Initial,omitempty" yaml:"Initial,omitempty" json:"Initial,omitempty"`
	Dependency string         `toml:"Dependency,omitempty" yaml:"Dependency,omitempty" json:"Dependency,omitempty"`
	Replaces   []string       `toml:"Replaces,omitempty" yaml:"Replaces,omitempty" json:"Replaces,omitempty"`
	Operations []rawOperation `toml:"Operations" yaml:"Operations" json:"Operations"`
}

type rawOperation struct {
	Type      string     `toml:"Type" yaml:"Type" json:"Type"`
	Name      string     `toml:"Name,omitempty" yaml:"Name,omitempty" json:"Name,omitempty"`
	Old       string     `toml:"Old,omitempty" yaml:"Old,omitempty" json:"Old,omitempty"`
	New       string     `toml:"New,omitempty" yaml:"New,omitempty" json:"New,omitempty"`
	Model     string     `toml:"Model,omitempty" yaml:"Model,omitempty" json:"Model,omitempty"`
	TableName string     `toml:"TableName,omitempty" yaml:"TableName,omitempty" json:"TableName,omitempty"`
	Fields    []rawField `toml:"Fields,omitempty" yaml:"Fields,omitempty" json:"Fields,omitempty"`
	Field     *rawField  `toml:"Field,omitempty" yaml:"Field,omitempty" json:"Field,omitempty"`
}

type rawField struct {
	Name        string          `toml:"Name" yaml:"Name" json:"Name"`
	Type        string          `toml:"Type" yaml:"Type" json:"Type"`
	Annotations []rawAnnotation `toml:"Annotations,omitempty" yaml:"Annotations,omitempty" json:"Annotations,omitempty"`
}

type rawAnnotation struct {
	Type     string `toml:"Type" yaml:"Type" json:"Type"`
	Value    any    `toml:"Value,omitempty" yaml:"Value,omitempty" json:"Value,omitempty"`
	Table    string `toml:"Table,omitempty" yaml:"Table,omitempty" json:"Table,omitempty"`
	Column   string `toml:"Column,omitempty" yaml:"Column,omitempty" json:"Column,omitempty"`
	OnDelete string `toml:"OnDelete,omitempty" yaml:"OnDelete,omitempty" json:"OnDelete,omitempty"`
	OnUpdate string `toml:"OnUpdate,omitempty" yaml:"OnUpdate,omitempty" json:"OnUpdate,omitempty"`
}

// Decode parses one migration document. The id is not part of the document;
// it is supplied by the caller.
func Decode(id string, format Format, data []byte) (Migration, error) {
	var doc document
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return Migration{}, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Migration{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return Migration{}, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Migration{}, err
		}
	default:
		return Migration{}, fmt.Errorf("unknown document format %q", format)
	}
	if doc.Migration == nil {
		return Migration{}, errors.New("missing top-level Migration table")
	}
	return doc.Migration.toMigration(id)
}

func (r *rawMigration) toMigration(id string) (Migration, error) {
	m := Migration{
		ID:         id,
		Hash:       r.Hash,
		Initial:    r.Initial,
		Dependency: r.Dependency,
		Replaces:   append([]string(nil), r.Replaces...),
		Operations: make([]Operation, 0, len(r.Operations)),
	}
	for i, raw := range r.Operations {
		op, err := raw.toOperation()
		if err != nil {
			return Migration{}, fmt.Errorf("operation %d: %w", i+1, err)
		}
		m.Operations = append(m.Operations, op)
	}
	return m, nil
}

func (r rawOperation) toOperation() (Operation, error) {
	switch OperationKind(r.Type) {
	case KindCreateModel:
		if err := required("Name", r.Name); err != nil {
			return nil, err
		}
		fields := make([]Field, 0, len(r.Fields))
		for _, rf := range r.Fields {
			f, err := rf.toField()
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		return CreateModel{Name: r.Name, Fields: fields}, nil
	case KindRenameModel:
		if err := required("Old", r.Old, "New", r.New); err != nil {
			return nil, err
		}
		return RenameModel{Old: r.Old, New: r.New}, nil
	case KindDeleteModel:
		if err := required("Name", r.Name); err != nil {
			return nil, err
		}
		return DeleteModel{Name: r.Name}, nil
	case KindCreateField:
		if err := required("Model", r.Model); err != nil {
			return nil, err
		}
		if r.Field == nil {
			return nil, errors.New("CreateField: missing Field")
		}
		f, err := r.Field.toField()
		if err != nil {
			return nil, err
		}
		return CreateField{Model: r.Model, Field: f}, nil
	case KindRenameField:
		if err := required("TableName", r.TableName, "Old", r.Old, "New", r.New); err != nil {
			return nil, err
		}
		return RenameField{TableName: r.TableName, Old: r.Old, New: r.New}, nil
	case KindDeleteField:
		if err := required("Model", r.Model, "Name", r.Name); err != nil {
			return nil, err
		}
		return DeleteField{Model: r.Model, Name: r.Name}, nil
	case "":
		return nil, errors.New("missing Type")
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownOperation, r.Type)
}

// required takes alternating key/value pairs and reports the first empty one.
func required(kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			return fmt.Errorf("missing %s", kv[i])
		}
	}
	return nil
}

func (r rawField) toField() (Field, error) {
	if r.Name == "" {
		return Field{}, errors.New("field: missing Name")
	}
	var typ DbType
	if err := typ.UnmarshalText([]byte(r.Type)); err != nil {
		return Field{}, fmt.Errorf("field %s: %w", r.Name, err)
	}
	f := Field{Name: r.Name, Type: typ}
	for _, ra := range r.Annotations {
		a, err := ra.toAnnotation()
		if err != nil {
			return Field{}, fmt.Errorf("field %s: %w", r.Name, err)
		}
		f.Annotations = append(f.Annotations, a)
	}
	return f, nil
}

func (r rawAnnotation) toAnnotation() (Annotation, error) {
	t := AnnotationType(r.Type)
	if !t.Valid() {
		return Annotation{}, fmt.Errorf("%w: unknown type %q", ErrInvalidAnnotation, r.Type)
	}
	a := Annotation{Type: t}
	switch t {
	case DefaultValue:
		v, err := scalar(r.Value)
		if err != nil {
			return Annotation{}, fmt.Errorf("%w: default_value: %v", ErrInvalidAnnotation, err)
		}
		a.Value = v
	case MaxLength:
		n, ok := integer(r.Value)
		if !ok || n <= 0 {
			return Annotation{}, fmt.Errorf("%w: max_length must be a positive integer, got %v", ErrInvalidAnnotation, r.Value)
		}
		a.Value = n
	case Choices:
		list, ok := r.Value.([]any)
		if !ok || len(list) == 0 {
			return Annotation{}, fmt.Errorf("%w: choices must be a non-empty list", ErrInvalidAnnotation)
		}
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return Annotation{}, fmt.Errorf("%w: choice %v is not a string", ErrInvalidAnnotation, item)
			}
			a.Choices = append(a.Choices, s)
		}
	case ForeignKey:
		if r.Table == "" {
			return Annotation{}, fmt.Errorf("%w: foreign_key: missing Table", ErrInvalidAnnotation)
		}
		ref := &Reference{
			Table:    r.Table,
			Column:   r.Column,
			OnDelete: ReferentialAction(r.OnDelete),
			OnUpdate: ReferentialAction(r.OnUpdate),
		}
		if !ref.OnDelete.Valid() || !ref.OnUpdate.Valid() {
			return Annotation{}, fmt.Errorf("%w: foreign_key: unknown action", ErrInvalidAnnotation)
		}
		a.Reference = ref
	default:
		if r.Value != nil {
			return Annotation{}, fmt.Errorf("%w: %s takes no value", ErrInvalidAnnotation, t)
		}
	}
	return a, nil
}

// scalar normalizes a decoded literal. Whole floats become int64 so that JSON
// and YAML documents fingerprint the same as TOML ones.
func scalar(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, errors.New("missing Value")
	case string, bool:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite number %v", v)
		}
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v), nil
		}
		return v, nil
	}
	if n, ok := integer(v); ok {
		return n, nil
	}
	return nil, fmt.Errorf("unsupported literal %v (%T)", v, v)
}

func integer(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

func encodeMigration(m Migration) (document, error) {
	ops, err := encodeOperations(m.Operations)
	if err != nil {
		return document{}, err
	}
	return document{Migration: &rawMigration{
		Hash:       m.Hash,
		Initial:    m.Initial,
		Dependency: m.Dependency,
		Replaces:   m.Replaces,
		Operations: ops,
	}}, nil
}

func encodeOperations(ops []Operation) ([]rawOperation, error) {
	out := make([]rawOperation, 0, len(ops))
	for i, op := range ops {
		var r rawOperation
		switch op := op.(type) {
		case CreateModel:
			r = rawOperation{Name: op.Name, Fields: make([]rawField, 0, len(op.Fields))}
			for _, f := range op.Fields {
				r.Fields = append(r.Fields, encodeField(f))
			}
		case RenameModel:
			r = rawOperation{Old: op.Old, New: op.New}
		case DeleteModel:
			r = rawOperation{Name: op.Name}
		case CreateField:
			f := encodeField(op.Field)
			r = rawOperation{Model: op.Model, Field: &f}
		case RenameField:
			r = rawOperation{TableName: op.TableName, Old: op.Old, New: op.New}
		case DeleteField:
			r = rawOperation{Model: op.Model, Name: op.Name}
		default:
			return nil, fmt.Errorf("operation %d: %w: %T", i+1, ErrUnknownOperation, op)
		}
		r.Type = string(op.Kind())
		out = append(out, r)
	}
	return out, nil
}

func encodeField(f Field) rawField {
	r := rawField{Name: f.Name, Type: string(f.Type)}
	for _, a := range f.Annotations {
		ra := rawAnnotation{Type: string(a.Type), Value: a.Value}
		if a.Type == Choices {
			list := make([]any, len(a.Choices))
			for i, c := range a.Choices {
				list[i] = c
			}
			ra.Value = list
		}
		if a.Reference != nil {
			ra.Table = a.Reference.Table
			ra.Column = a.Reference.Column
			ra.OnDelete = string(a.Reference.OnDelete)
			ra.OnUpdate = string(a.Reference.OnUpdate)
		}
		r.Annotations = append(r.Annotations, ra)
	}
	return r
}
