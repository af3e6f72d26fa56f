package ddlgrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileTOML = `
[Migration]
Hash = "abc"
Dependency = "0001_initial"
Replaces = ["0000_a", "0000_b"]

[[Migration.Operations]]
Type = "CreateModel"
Name = "profile"

[[Migration.Operations.Fields]]
Name = "id"
Type = "int32"
Annotations = [{ Type = "primary_key" }]

[[Migration.Operations.Fields]]
Name = "owner"
Type = "int32"
Annotations = [
  { Type = "foreign_key", Table = "user", Column = "id", OnDelete = "set_null" },
  { Type = "default_value", Value = 0 },
]

[[Migration.Operations]]
Type = "CreateField"
Model = "profile"

[Migration.Operations.Field]
Name = "kind"
Type = "choices"
Annotations = [{ Type = "choices", Value = ["a", "b"] }]

[[Migration.Operations]]
Type = "RenameField"
TableName = "profile"
Old = "owner"
New = "owner_id"

[[Migration.Operations]]
Type = "DeleteField"
Model = "profile"
Name = "kind"

[[Migration.Operations]]
Type = "RenameModel"
Old = "profile"
New = "profiles"

[[Migration.Operations]]
Type = "DeleteModel"
Name = "profiles"
`

const profileYAML = `
Migration:
  Hash: abc
  Dependency: "0001_initial"
  Replaces: ["0000_a", "0000_b"]
  Operations:
    - Type: CreateModel
      Name: profile
      Fields:
        - Name: id
          Type: int32
          Annotations:
            - Type: primary_key
        - Name: owner
          Type: int32
          Annotations:
            - {Type: foreign_key, Table: user, Column: id, OnDelete: set_null}
            - {Type: default_value, Value: 0}
    - Type: CreateField
      Model: profile
      Field:
        Name: kind
        Type: choices
        Annotations:
          - {Type: choices, Value: [a, b]}
    - {Type: RenameField, TableName: profile, Old: owner, New: owner_id}
    - {Type: DeleteField, Model: profile, Name: kind}
    - {Type: RenameModel, Old: profile, New: profiles}
    - {Type: DeleteModel, Name: profiles}
`

const profileJSON = `{"Migration": {
  "Hash": "abc",
  "Dependency": "0001_initial",
  "Replaces": ["0000_a", "0000_b"],
  "Operations": [
    {"Type": "CreateModel", "Name": "profile", "Fields": [
      {"Name": "id", "Type": "int32", "Annotations": [{"Type": "primary_key"}]},
      {"Name": "owner", "Type": "int32", "Annotations": [
        {"Type": "foreign_key", "Table": "user", "Column": "id", "OnDelete": "set_null"},
        {"Type": "default_value", "Value": 0}
      ]}
    ]},
    {"Type": "CreateField", "Model": "profile", "Field": {"Name": "kind", "Type": "choices",
      "Annotations": [{"Type": "choices", "Value": ["a", "b"]}]}},
    {"Type": "RenameField", "TableName": "profile", "Old": "owner", "New": "owner_id"},
    {"Type": "DeleteField", "Model": "profile", "Name": "kind"},
    {"Type": "RenameModel", "Old": "profile", "New": "profiles"},
    {"Type": "DeleteModel", "Name": "profiles"}
  ]
}}`

func expectedProfile() Migration {
	return Migration{
		ID:         "0002_profile",
		Hash:       "abc",
		Dependency: "0001_initial",
		Replaces:   []string{"0000_a", "0000_b"},
		Operations: []Operation{
			CreateModel{Name: "profile", Fields: []Field{
				{Name: "id", Type: TypeInt32, Annotations: Annotations{Flag(PrimaryKey)}},
				{Name: "owner", Type: TypeInt32, Annotations: Annotations{
					{Type: ForeignKey, Reference: &Reference{Table: "user", Column: "id", OnDelete: SetNull}},
					Default(int64(0)),
				}},
			}},
			CreateField{Model: "profile", Field: Field{
				Name: "kind", Type: TypeChoices, Annotations: Annotations{OneOf("a", "b")},
			}},
			RenameField{TableName: "profile", Old: "owner", New: "owner_id"},
			DeleteField{Model: "profile", Name: "kind"},
			RenameModel{Old: "profile", New: "profiles"},
			DeleteModel{Name: "profiles"},
		},
	}
}

func TestDecodeFormats(t *testing.T) {
	tests := []struct {
		format Format
		data   string
	}{
		{FormatTOML, profileTOML},
		{FormatYAML, profileYAML},
		{FormatJSON, profileJSON},
	}
	want := expectedProfile()
	wantSum, err := want.Fingerprint()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := Decode("0002_profile", tt.format, []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, want, got)

			sum, err := got.Fingerprint()
			require.NoError(t, err)
			assert.Equal(t, wantSum, sum, "fingerprint must not depend on the document format")
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
		errIs  error
		msg    string
	}{
		{
			name:   "missing migration table",
			format: FormatTOML,
			data:   `Hash = "x"`,
			msg:    "unknown keys",
		},
		{
			name:   "empty yaml",
			format: FormatYAML,
			data:   ``,
			msg:    "missing top-level Migration table",
		},
		{
			name:   "unknown operation",
			format: FormatJSON,
			data:   `{"Migration": {"Hash": "", "Operations": [{"Type": "DropEverything"}]}}`,
			errIs:  ErrUnknownOperation,
		},
		{
			name:   "unknown key",
			format: FormatTOML,
			data:   "[Migration]\nHash = \"\"\nDependecy = \"a\"\n",
			msg:    "Dependecy",
		},
		{
			name:   "unknown yaml key",
			format: FormatYAML,
			data:   "Migration:\n  Hash: x\n  Initail: true\n",
			msg:    "Initail",
		},
		{
			name:   "unknown database type",
			format: FormatJSON,
			data:   `{"Migration": {"Operations": [{"Type": "CreateModel", "Name": "t", "Fields": [{"Name": "a", "Type": "uuid"}]}]}}`,
			msg:    `unknown database type "uuid"`,
		},
		{
			name:   "missing rename target",
			format: FormatJSON,
			data:   `{"Migration": {"Operations": [{"Type": "RenameModel", "Old": "t"}]}}`,
			msg:    "missing New",
		},
		{
			name:   "create field without field",
			format: FormatJSON,
			data:   `{"Migration": {"Operations": [{"Type": "CreateField", "Model": "t"}]}}`,
			msg:    "missing Field",
		},
		{
			name:   "negative max length",
			format: FormatJSON,
			data:   `{"Migration": {"Operations": [{"Type": "CreateModel", "Name": "t", "Fields": [{"Name": "a", "Type": "varchar", "Annotations": [{"Type": "max_length", "Value": -1}]}]}]}}`,
			errIs:  ErrInvalidAnnotation,
		},
		{
			name:   "value on flag annotation",
			format: FormatJSON,
			data:   `{"Migration": {"Operations": [{"Type": "CreateModel", "Name": "t", "Fields": [{"Name": "a", "Type": "int32", "Annotations": [{"Type": "not_null", "Value": true}]}]}]}}`,
			errIs:  ErrInvalidAnnotation,
		},
		{
			name:   "nan default",
			format: FormatTOML,
			data:   "[Migration]\nInitial = true\n\n[[Migration.Operations]]\nType = \"CreateModel\"\nName = \"t\"\n\n[[Migration.Operations.Fields]]\nName = \"x\"\nType = \"float64\"\nAnnotations = [{ Type = \"default_value\", Value = nan }]\n",
			errIs:  ErrInvalidAnnotation,
			msg:    "non-finite number",
		},
		{
			name:   "infinite default",
			format: FormatTOML,
			data:   "[Migration]\nInitial = true\n\n[[Migration.Operations]]\nType = \"CreateModel\"\nName = \"t\"\n\n[[Migration.Operations.Fields]]\nName = \"x\"\nType = \"float64\"\nAnnotations = [{ Type = \"default_value\", Value = -inf }]\n",
			errIs:  ErrInvalidAnnotation,
		},
		{
			name:   "unknown referential action",
			format: FormatJSON,
			data:   `{"Migration": {"Operations": [{"Type": "CreateModel", "Name": "t", "Fields": [{"Name": "a", "Type": "int32", "Annotations": [{"Type": "foreign_key", "Table": "u", "OnDelete": "explode"}]}]}]}}`,
			errIs:  ErrInvalidAnnotation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("x", tt.format, []byte(tt.data))
			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestDecodeNormalizesLiterals(t *testing.T) {
	m, err := Decode("x", FormatJSON, []byte(`{"Migration": {"Initial": true, "Operations": [
		{"Type": "CreateModel", "Name": "t", "Fields": [
			{"Name": "a", "Type": "float64", "Annotations": [{"Type": "default_value", "Value": 1.5}]},
			{"Name": "b", "Type": "int32", "Annotations": [{"Type": "default_value", "Value": 7}]},
			{"Name": "c", "Type": "boolean", "Annotations": [{"Type": "default_value", "Value": false}]}
		]}
	]}}`))
	require.NoError(t, err)
	fields := m.Operations[0].(CreateModel).Fields
	assert.Equal(t, 1.5, fields[0].Annotations[0].Value)
	assert.Equal(t, int64(7), fields[1].Annotations[0].Value)
	assert.Equal(t, false, fields[2].Annotations[0].Value)
}

func TestFingerprintTracksOperations(t *testing.T) {
	a := expectedProfile()
	b := expectedProfile()
	b.Hash = "something else"
	b.ID = "other"

	sumA, err := a.Fingerprint()
	require.NoError(t, err)
	sumB, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB, "only operations are fingerprinted")
	assert.Len(t, sumA, 64)

	b.Operations = b.Operations[:len(b.Operations)-1]
	sumC, err := b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, sumA, sumC)
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.toml": FormatTOML, "b.YAML": FormatYAML, "c.yml": FormatYAML, "d.json": FormatJSON,
	} {
		got, ok := FormatOf(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}
	_, ok := FormatOf("notes.md")
	assert.False(t, ok)
}
