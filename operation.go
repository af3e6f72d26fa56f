package ddlgrator

// OperationKind names an Operation variant. It is also the value of the Type
// discriminator in migration documents.
type OperationKind string

const (
	KindCreateModel OperationKind = "CreateModel"
	KindRenameModel OperationKind = "RenameModel"
	KindDeleteModel OperationKind = "DeleteModel"
	KindCreateField OperationKind = "CreateField"
	KindRenameField OperationKind = "RenameField"
	KindDeleteField OperationKind = "DeleteField"
)

// Operation is one schema change. The set of variants is closed: only the
// types in this package implement it, and the compiler handles each of them.
type Operation interface {
	Kind() OperationKind
	operation()
}

// CreateModel creates a table with the given columns, in order.
type CreateModel struct {
	Name   string
	Fields []Field
}

// RenameModel renames a table.
type RenameModel struct {
	Old string
	New string
}

// DeleteModel drops a table.
type DeleteModel struct {
	Name string
}

// CreateField adds a column to an existing table.
type CreateField struct {
	Model string
	Field Field
}

// RenameField renames a column.
type RenameField struct {
	TableName string
	Old       string
	New       string
}

// DeleteField drops a column.
type DeleteField struct {
	Model string
	Name  string
}

func (CreateModel) Kind() OperationKind { return KindCreateModel }
func (RenameModel) Kind() OperationKind { return KindRenameModel }
func (DeleteModel) Kind() OperationKind { return KindDeleteModel }
func (CreateField) Kind() OperationKind { return KindCreateField }
func (RenameField) Kind() OperationKind { return KindRenameField }
func (DeleteField) Kind() OperationKind { return KindDeleteField }

func (CreateModel) operation() {}
func (RenameModel) operation() {}
func (DeleteModel) operation() {}
func (CreateField) operation() {}
func (RenameField) operation() {}
func (DeleteField) operation() {}

func kindOf(op Operation) OperationKind {
	if op == nil {
		return ""
	}
	return op.Kind()
}
