package ddlgrator

import "fmt"

// Compile translates a migration into a Script for dialect d. Operations are
// rendered in order, one statement each, inside a single transaction. The
// first failing operation aborts the migration: no partial Script is
// returned, and the error is a *CompileError naming the operation.
func Compile(d Dialect, m Migration) (Script, error) {
	tx := d.BeginTransaction()
	for i, op := range m.Operations {
		stmt, err := compileOperation(d, op)
		if err != nil {
			return Script{}, &CompileError{
				MigrationID:    m.ID,
				OperationIndex: i + 1,
				Operation:      kindOf(op),
				Op:             op,
				Err:            err,
			}
		}
		tx = tx.AddStatement(stmt)
	}
	script, err := tx.Finish()
	if err != nil {
		return Script{}, &CompileError{MigrationID: m.ID, Err: err}
	}
	script.MigrationID = m.ID
	return script, nil
}

func compileOperation(d Dialect, op Operation) (Statement, error) {
	switch op := op.(type) {
	case CreateModel:
		tb := d.CreateTable(op.Name)
		for _, f := range op.Fields {
			tb = tb.AddColumn(d.CreateColumn(op.Name, f.Name, f.Type, f.Annotations))
		}
		return tb.Build()
	case RenameModel:
		return d.AlterTable(op.Old, RenameTo{Name: op.New}).Build()
	case DeleteModel:
		return d.DropTable(op.Name).Build()
	case CreateField:
		col := d.CreateColumn(op.Model, op.Field.Name, op.Field.Type, op.Field.Annotations)
		return d.AlterTable(op.Model, AddColumn{Column: col}).Build()
	case RenameField:
		return d.AlterTable(op.TableName, RenameColumn{Old: op.Old, New: op.New}).Build()
	case DeleteField:
		return d.AlterTable(op.Model, DropColumn{Name: op.Name}).Build()
	case nil:
		return Statement{}, fmt.Errorf("%w: nil operation", ErrUnknownOperation)
	}
	return Statement{}, fmt.Errorf("%w: %T", ErrUnknownOperation, op)
}
