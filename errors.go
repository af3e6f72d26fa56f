package ddlgrator

import (
	"errors"
	"fmt"
	"strings"
)

// Graph error kinds. A *GraphError unwraps to exactly one of them.
var (
	ErrDuplicateID        = errors.New("duplicate migration id")
	ErrConflictingReplace = errors.New("conflicting replaces")
	ErrInvalidRoot        = errors.New("inconsistent initial flag")
	ErrDanglingDependency = errors.New("dangling dependency")
	ErrReplacedReferenced = errors.New("dependency on replaced migration")
	ErrMultipleRoots      = errors.New("multiple initial migrations")
	ErrDivergentHead      = errors.New("divergent heads")
	ErrCycle              = errors.New("dependency cycle")
)

// Capability errors returned by dialects. Compile wraps them in a
// *CompileError.
var (
	ErrUnsupported       = errors.New("unsupported by dialect")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrInvalidAnnotation = errors.New("invalid annotation")
	ErrUnknownType       = errors.New("unknown database type")
	ErrUnknownOperation  = errors.New("unknown operation")
)

// GraphError reports a structural problem in a migration set. No ordering is
// produced when one is returned.
type GraphError struct {
	// Kind is one of the Err* graph sentinels.
	Kind error
	// IDs are the migrations at fault, sorted.
	IDs []string
	// Heads is set for ErrMultipleRoots and ErrDivergentHead.
	Heads []string
	// Detail is free text describing the offending edges.
	Detail string
}

func (e *GraphError) Error() string {
	var b strings.Builder
	b.WriteString("migration graph: ")
	b.WriteString(e.Kind.Error())
	if len(e.IDs) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.IDs, ", "))
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	if len(e.Heads) > 0 {
		fmt.Fprintf(&b, "; heads: %s", strings.Join(e.Heads, ", "))
	}
	return b.String()
}

func (e *GraphError) Unwrap() error { return e.Kind }

// Is reports a dependency on a replaced migration as a dangling dependency
// too: the replaced migration no longer exists in the live graph.
func (e *GraphError) Is(target error) bool {
	return e.Kind == ErrReplacedReferenced && target == ErrDanglingDependency
}

// CompileError locates a failure inside a migration. OperationIndex is
// 1-based; zero means the failure happened while finishing the transaction.
type CompileError struct {
	MigrationID    string
	OperationIndex int
	Operation      OperationKind
	// Op is the failing operation, nil for a finish failure.
	Op  Operation
	Err error
}

func (e *CompileError) Error() string {
	if e.OperationIndex == 0 {
		return fmt.Sprintf("migration %s: finish transaction: %v", e.MigrationID, e.Err)
	}
	return fmt.Sprintf("migration %s: operation %d (%s): %v", e.MigrationID, e.OperationIndex, e.Operation, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LoadError reports a migration document that could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load migration %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
