// SPDX-License-Identifier: MIT

// Package ddlgrator compiles declarative schema migrations into SQL for
// several database engines.  A migration is a small document listing
// operations on models and fields; ddlgrator orders a set of them into a
// single chain and renders each one as a transactional script for the
// chosen dialect.
//
// Dialects live in sub-packages *sqlite*, *pg* and *mysql*.  Running
// scripts against a live database and recording what was applied is the
// job of *pkg/runner*; the *ddlgrator* command wraps both.
//
// # Install
//
//	go get github.com/bcomnes/ddlgrator@latest
//
// # Quick start
//
//	import (
//	    "fmt"
//
//	    "github.com/bcomnes/ddlgrator"
//	    "github.com/bcomnes/ddlgrator/sqlite"
//	)
//
//	func main() {
//	    migs, _ := ddlgrator.Load("migrations")
//	    scripts, err := ddlgrator.ApplyAll(migs, sqlite.New())
//	    if err != nil {
//	        panic(err)
//	    }
//	    for _, s := range scripts {
//	        fmt.Print(s)
//	    }
//	}
//
// # Migration files
//
// Each file holds one migration under a top-level Migration table.  TOML,
// YAML and JSON are read alike; the id is the file name without extension:
//
//	# 0002_posts.toml
//	[Migration]
//	Hash = "…"
//	Dependency = "0001_initial"
//
//	[[Migration.Operations]]
//	Type = "CreateModel"
//	Name = "post"
//
//	[[Migration.Operations.Fields]]
//	Name = "id"
//	Type = "int64"
//	Annotations = [{ Type = "primary_key" }, { Type = "auto_increment" }]
//
// Operation types are CreateModel, RenameModel, DeleteModel, CreateField,
// RenameField and DeleteField.  Files whose names start with "_" or "."
// are ignored.
//
// # Ordering
//
// Exactly one migration is Initial; every other one names its Dependency.
// A migration may list ids in Replaces to squash them: the replaced
// migrations drop out of the graph and the squash takes their place.
// Resolve returns a *GraphError for duplicate ids, dangling or replaced
// dependencies, several roots, divergent heads and cycles.
//
// # Compilation
//
// Compile renders one migration; ApplyAll resolves and compiles a whole
// set.  With FailFast (the default) compilation stops at the first
// *CompileError; with CollectAll every failure is reported together.
// Operations a dialect cannot express fail with ErrUnsupported.
//
// # Configuration
//
// LoadConfig reads database.toml (or a YAML file) with two tables:
//
//   - Database   — Driver, DSN or connection fields, LedgerTable
//   - Migrations — Dir, Policy, IgnoreHashes, VerifyFingerprints, Newline
//
// # Versioning
//
// A semantic version string is exposed as:
//
//	var Version = "vX.Y.Z"
//
// Generated documentation; update whenever public API or CLI flags change.
package ddlgrator
