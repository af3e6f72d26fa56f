package sqlite_test

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcomnes/ddlgrator"
	"github.com/bcomnes/ddlgrator/sqlite"
)

func compile(t *testing.T, d ddlgrator.Dialect, ops ...ddlgrator.Operation) ([]string, error) {
	t.Helper()
	script, err := ddlgrator.Compile(d, ddlgrator.Migration{ID: "m", Initial: true, Operations: ops})
	if err != nil {
		return nil, err
	}
	assert.Equal(t, sqlite.Name, script.Dialect)
	assert.Equal(t, "BEGIN TRANSACTION", script.Begin)
	assert.Equal(t, "COMMIT", script.Commit)
	return script.SQL(), nil
}

func TestColumnTypes(t *testing.T) {
	fields := []ddlgrator.Field{
		{Name: "i8", Type: ddlgrator.TypeInt8},
		{Name: "f", Type: ddlgrator.TypeFloat32},
		{Name: "s", Type: ddlgrator.TypeVarChar},
		{Name: "b", Type: ddlgrator.TypeVarBinary},
		{Name: "ok", Type: ddlgrator.TypeBoolean},
		{Name: "ts", Type: ddlgrator.TypeTimestamp, Annotations: ddlgrator.Annotations{ddlgrator.Flag(ddlgrator.AutoUpdateTime)}},
		{Name: "at", Type: ddlgrator.TypeTime},
		{Name: "kind", Type: ddlgrator.TypeChoices, Annotations: ddlgrator.Annotations{ddlgrator.OneOf("a", "b")}},
	}
	sqls, err := compile(t, sqlite.New(), ddlgrator.CreateModel{Name: "all", Fields: fields})
	require.NoError(t, err)
	assert.Equal(t, []string{`CREATE TABLE "all" (` +
		`"i8" INTEGER, "f" REAL, "s" TEXT, "b" BLOB, "ok" BOOLEAN, ` +
		`"ts" TIMESTAMP DEFAULT CURRENT_TIMESTAMP, "at" TIME, ` +
		`"kind" TEXT CHECK ("kind" IN ('a', 'b')))`}, sqls)
}

func TestAlterStatements(t *testing.T) {
	sqls, err := compile(t, sqlite.New(),
		ddlgrator.RenameModel{Old: "a", New: "b"},
		ddlgrator.CreateField{Model: "b", Field: ddlgrator.Field{Name: "n", Type: ddlgrator.TypeInt32,
			Annotations: ddlgrator.Annotations{ddlgrator.Flag(ddlgrator.NotNull), ddlgrator.Default(0)}}},
		ddlgrator.RenameField{TableName: "b", Old: "n", New: "m"},
		ddlgrator.DeleteField{Model: "b", Name: "m"},
		ddlgrator.DeleteModel{Name: "b"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "a" RENAME TO "b"`,
		`ALTER TABLE "b" ADD COLUMN "n" INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE "b" RENAME COLUMN "n" TO "m"`,
		`ALTER TABLE "b" DROP COLUMN "m"`,
		`DROP TABLE "b"`,
	}, sqls)
}

func TestUnsupportedAddColumn(t *testing.T) {
	tests := []struct {
		name        string
		typ         ddlgrator.DbType
		annotations ddlgrator.Annotations
	}{
		{"primary key", ddlgrator.TypeInt32, ddlgrator.Annotations{ddlgrator.Flag(ddlgrator.PrimaryKey)}},
		{"unique", ddlgrator.TypeInt32, ddlgrator.Annotations{ddlgrator.Flag(ddlgrator.Unique)}},
		{"not null without default", ddlgrator.TypeInt32, ddlgrator.Annotations{ddlgrator.Flag(ddlgrator.NotNull)}},
		{"current time default", ddlgrator.TypeDateTime, ddlgrator.Annotations{ddlgrator.Flag(ddlgrator.AutoCreateTime)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, sqlite.New(), ddlgrator.CreateField{Model: "t",
				Field: ddlgrator.Field{Name: "c", Type: tt.typ, Annotations: tt.annotations}})
			assert.ErrorIs(t, err, ddlgrator.ErrUnsupported)
		})
	}
}

func TestVersionGates(t *testing.T) {
	rename := ddlgrator.RenameField{TableName: "t", Old: "a", New: "b"}
	drop := ddlgrator.DeleteField{Model: "t", Name: "a"}

	_, err := compile(t, sqlite.New(sqlite.WithVersion(3, 24, 9)), rename)
	assert.ErrorIs(t, err, ddlgrator.ErrUnsupported)
	assert.ErrorContains(t, err, "3.25.0")
	_, err = compile(t, sqlite.New(sqlite.WithVersion(3, 25, 0)), rename)
	assert.NoError(t, err)

	_, err = compile(t, sqlite.New(sqlite.WithVersion(3, 34, 1)), drop)
	assert.ErrorIs(t, err, ddlgrator.ErrUnsupported)
	_, err = compile(t, sqlite.New(sqlite.WithVersion(3, 35, 0)), drop)
	assert.NoError(t, err)
}

// TestScriptsRunOnSQLite executes the compiled statements of the sample
// migrations against a real database.
func TestScriptsRunOnSQLite(t *testing.T) {
	migs, err := ddlgrator.Load(filepath.Join("..", "testdata", "migrations"))
	require.NoError(t, err)
	scripts, err := ddlgrator.ApplyAll(migs, sqlite.New())
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	for _, s := range scripts {
		_, err := db.Exec(s.String())
		require.NoError(t, err, s.MigrationID)
	}

	_, err = db.Exec(`INSERT INTO "user" ("username") VALUES ('ada')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO "article" ("author", "headline") VALUES (1, 'hello')`)
	require.NoError(t, err)

	var status string
	require.NoError(t, db.QueryRow(`SELECT "status" FROM "article"`).Scan(&status))
	assert.Equal(t, "draft", status)

	_, err = db.Exec(`UPDATE "article" SET "status" = 'archived'`)
	assert.Error(t, err, "choices are enforced by a CHECK constraint")
}

func TestCompileDeterministicProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("compiling the same migration twice yields the same script", prop.ForAll(
		func(n int) bool {
			fields := make([]ddlgrator.Field, n)
			for i := range fields {
				fields[i] = ddlgrator.Field{Name: fmt.Sprintf("c%d", i), Type: ddlgrator.TypeInt64}
			}
			m := ddlgrator.Migration{ID: "m", Initial: true, Operations: []ddlgrator.Operation{
				ddlgrator.CreateModel{Name: "t", Fields: fields},
			}}
			a, err := ddlgrator.Compile(sqlite.New(), m)
			if err != nil {
				return false
			}
			b, err := ddlgrator.Compile(sqlite.New(), m)
			if err != nil || a.String() != b.String() {
				return false
			}
			sqls := a.SQL()
			if len(sqls) != 1 {
				return false
			}
			last := -1
			for i := range fields {
				at := strings.Index(sqls[0], fmt.Sprintf(`"c%d" INTEGER`, i))
				if at <= last {
					return false
				}
				last = at
			}
			return true
		},
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}
