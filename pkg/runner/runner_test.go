package runner

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcomnes/ddlgrator"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	dir    string
	cfg    ddlgrator.Config
	db     *sql.DB
	logs   *bytes.Buffer
	runner *Runner
}

// newFixture opens a fresh SQLite database file and an empty migration
// directory.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	tmp := t.TempDir()
	cfg := ddlgrator.DefaultConfig
	cfg.Database.Name = filepath.Join(tmp, "test.db")
	cfg.Migrations.Dir = filepath.Join(tmp, "migrations")
	require.NoError(t, os.MkdirAll(cfg.Migrations.Dir, 0o755))

	db, err := Open(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{dir: cfg.Migrations.Dir, cfg: cfg, db: db, logs: &bytes.Buffer{}}
	f.reload(t)
	return f
}

// reload rebuilds the runner after f.cfg changed.
func (f *fixture) reload(t *testing.T) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r, err := New(f.cfg, f.db, WithLogger(logger), WithClock(func() time.Time { return fixedTime }))
	require.NoError(t, err)
	f.runner = r
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644))
}

func (f *fixture) remove(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, os.Remove(filepath.Join(f.dir, name)))
}

func (f *fixture) tables(t *testing.T) []string {
	t.Helper()
	rows, err := f.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func ids(migs []ddlgrator.Migration) []string {
	out := make([]string, len(migs))
	for i, m := range migs {
		out[i] = m.ID
	}
	return out
}

const (
	createUser = `{"Migration": {"Initial": true, "Operations": [
  {"Type": "CreateModel", "Name": "user", "Fields": [
    {"Name": "id", "Type": "int64", "Annotations": [{"Type": "primary_key"}, {"Type": "auto_increment"}]},
    {"Name": "name", "Type": "varchar", "Annotations": [{"Type": "not_null"}]}
  ]}
]}}`
	addEmail = `{"Migration": {"Dependency": "0001_user", "Operations": [
  {"Type": "CreateField", "Model": "user", "Field": {"Name": "email", "Type": "varchar"}}
]}}`
	createTeam = `{"Migration": {"Dependency": "0002_email", "Operations": [
  {"Type": "CreateModel", "Name": "team", "Fields": [{"Name": "id", "Type": "int32", "Annotations": [{"Type": "primary_key"}]}]}
]}}`
)

func TestMigrateTestdata(t *testing.T) {
	f := newFixture(t)
	f.cfg.Migrations.Dir = filepath.Join("..", "..", "testdata", "migrations")
	f.reload(t)
	ctx := context.Background()

	applied, err := f.runner.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_initial", "0002_posts", "0003_rename"}, ids(applied))
	assert.Equal(t, []string{"_ddlgrator_migrations", "article", "user"}, f.tables(t))

	rows, err := f.runner.Client().Applied(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Len(t, row.Hash, 64)
		assert.True(t, fixedTime.Equal(row.AppliedAt), row.AppliedAt)
		assert.Equal(t, rows[0].RunID, row.RunID, "one run id per Migrate call")
	}
	assert.NotEmpty(t, rows[0].RunID)

	applied, err = f.runner.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Contains(t, f.logs.String(), "database schema is up to date")
}

func TestStatusStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statuses, err := f.runner.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, statuses)

	f.write(t, "0001_user.json", createUser)
	_, err = f.runner.Migrate(ctx)
	require.NoError(t, err)
	f.write(t, "0002_email.json", addEmail)

	statuses, err = f.runner.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, StateApplied, statuses[0].State)
	require.NotNil(t, statuses[0].Record)
	assert.Equal(t, statuses[0].Hash, statuses[0].Record.Hash)
	assert.Equal(t, StatePending, statuses[1].State)
	assert.Nil(t, statuses[1].Record)

	pending, err := f.runner.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_email"}, ids(pending))

	scripts, err := f.runner.Plan(ctx)
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, []string{`ALTER TABLE "user" ADD COLUMN "email" TEXT`}, scripts[0].SQL())
}

func TestMigrateHashMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "0001_user.json", createUser)
	_, err := f.runner.Migrate(ctx)
	require.NoError(t, err)

	// Same id, different operations.
	f.write(t, "0001_user.json", `{"Migration": {"Initial": true, "Operations": [
  {"Type": "CreateModel", "Name": "user", "Fields": [{"Name": "id", "Type": "int32"}]}
]}}`)
	f.write(t, "0002_email.json", addEmail)

	statuses, err := f.runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateModified, statuses[0].State)

	_, err = f.runner.Migrate(ctx)
	assert.ErrorIs(t, err, ErrHashMismatch)
	assert.ErrorContains(t, err, "0001_user")

	f.cfg.Migrations.IgnoreHashes = true
	f.reload(t)
	applied, err := f.runner.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_email"}, ids(applied))
}

func TestMigrateLedgerGap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "0001_user.json", createUser)
	f.write(t, "0002_email.json", addEmail)
	require.NoError(t, f.runner.Client().EnsureLedger(ctx))

	migs, err := f.runner.Migrations()
	require.NoError(t, err)
	sum, err := migs[1].Fingerprint()
	require.NoError(t, err)

	tx, err := f.db.Begin()
	require.NoError(t, err)
	require.NoError(t, f.runner.Client().Record(ctx, tx, AppliedMigration{ID: "0002_email", Hash: sum, AppliedAt: fixedTime}))
	require.NoError(t, tx.Commit())

	_, err = f.runner.Migrate(ctx)
	assert.ErrorIs(t, err, ErrLedgerGap)
	assert.Equal(t, []string{"_ddlgrator_migrations"}, f.tables(t))
}

func TestMigrateFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "0001_user.json", createUser)
	f.write(t, "0002_email.json", addEmail)
	// The second statement fails: the team table created by the first
	// must not survive.
	f.write(t, "0003_team.json", `{"Migration": {"Dependency": "0002_email", "Operations": [
  {"Type": "CreateModel", "Name": "team", "Fields": [{"Name": "id", "Type": "int32"}]},
  {"Type": "DeleteField", "Model": "user", "Name": "missing"}
]}}`)

	applied, err := f.runner.Migrate(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "apply migration 0003_team: statement 2")
	assert.Equal(t, []string{"0001_user", "0002_email"}, ids(applied))
	assert.Equal(t, []string{"_ddlgrator_migrations", "user"}, f.tables(t))
	assert.Contains(t, f.logs.String(), "sqlite_code=")

	rows, err := f.runner.Client().Applied(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestMigrateCompileFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "0001_user.json", createUser)
	f.write(t, "0002_email.json", `{"Migration": {"Dependency": "0001_user", "Operations": [
  {"Type": "CreateField", "Model": "user", "Field": {"Name": "email", "Type": "varchar", "Annotations": [{"Type": "unique"}]}}
]}}`)

	applied, err := f.runner.Migrate(ctx)
	assert.ErrorIs(t, err, ddlgrator.ErrUnsupported)
	var cerr *ddlgrator.CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "0002_email", cerr.MigrationID)
	assert.Equal(t, []string{"0001_user"}, ids(applied))

	_, err = f.runner.Plan(ctx)
	assert.ErrorIs(t, err, ddlgrator.ErrUnsupported)
}

func TestMigrateAdoptsSquash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "0001_user.json", createUser)
	f.write(t, "0002_email.json", addEmail)
	_, err := f.runner.Migrate(ctx)
	require.NoError(t, err)

	// Squash 0001 and 0002 into one migration and drop the originals.
	f.write(t, "0002_squashed.json", `{"Migration": {"Initial": true, "Replaces": ["0001_user", "0002_email"], "Operations": [
  {"Type": "CreateModel", "Name": "user", "Fields": [
    {"Name": "id", "Type": "int64", "Annotations": [{"Type": "primary_key"}, {"Type": "auto_increment"}]},
    {"Name": "name", "Type": "varchar", "Annotations": [{"Type": "not_null"}]},
    {"Name": "email", "Type": "varchar"}
  ]}
]}}`)
	f.remove(t, "0001_user.json")
	f.remove(t, "0002_email.json")
	f.write(t, "0003_team.json", `{"Migration": {"Dependency": "0002_squashed", "Operations": [
  {"Type": "CreateModel", "Name": "team", "Fields": [{"Name": "id", "Type": "int32", "Annotations": [{"Type": "primary_key"}]}]}
]}}`)

	statuses, err := f.runner.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Squashed)
	assert.Equal(t, StateApplied, statuses[0].State)

	applied, err := f.runner.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0003_team"}, ids(applied))
	assert.Equal(t, []string{"_ddlgrator_migrations", "team", "user"}, f.tables(t))
	assert.Contains(t, f.logs.String(), "squashed migration recorded")

	statuses, err = f.runner.Status(ctx)
	require.NoError(t, err)
	assert.False(t, statuses[0].Squashed, "the squash has its own ledger row now")
	assert.NotNil(t, statuses[0].Record)
}

func TestStatusPartialSquash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "0001_user.json", createUser)
	_, err := f.runner.Migrate(ctx)
	require.NoError(t, err)

	f.write(t, "0002_email.json", addEmail)
	f.write(t, "0003_squashed.json", `{"Migration": {"Initial": true, "Replaces": ["0001_user", "0002_email"], "Operations": []}}`)

	_, err = f.runner.Status(ctx)
	assert.ErrorIs(t, err, ErrPartialSquash)
	_, err = f.runner.Migrate(ctx)
	assert.ErrorIs(t, err, ErrPartialSquash)
}

func TestMigrateGraphError(t *testing.T) {
	f := newFixture(t)
	f.write(t, "0001_user.json", createUser)
	f.write(t, "0002_email.json", addEmail)
	f.write(t, "0003_team.json", createTeam)
	f.write(t, "0003_other.json", createTeam)

	_, err := f.runner.Migrate(context.Background())
	var gerr *ddlgrator.GraphError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, []string{"0003_other", "0003_team"}, gerr.Heads)
	assert.Equal(t, []string{"_ddlgrator_migrations"}, f.tables(t))
}

func TestEnsureLedgerUpgradesOldLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	has, err := f.runner.Client().HasLedger(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = f.db.Exec(`CREATE TABLE "_ddlgrator_migrations" (id TEXT PRIMARY KEY, hash TEXT NOT NULL, applied_at TIMESTAMP NOT NULL)`)
	require.NoError(t, err)
	require.NoError(t, f.runner.Client().EnsureLedger(ctx))
	require.NoError(t, f.runner.Client().EnsureLedger(ctx))

	f.write(t, "0001_user.json", createUser)
	_, err = f.runner.Migrate(ctx)
	require.NoError(t, err)
	rows, err := f.runner.Client().Applied(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0].RunID)
}

func TestNewRejectsMySQL(t *testing.T) {
	cfg := ddlgrator.DefaultConfig
	cfg.Database.Driver = "mysql"
	_, err := New(cfg, nil)
	assert.ErrorContains(t, err, "not supported")

	_, err = Open(cfg.Database)
	assert.Error(t, err)
}

func TestDialectFor(t *testing.T) {
	for driver, want := range map[string]string{"sqlite": "sqlite", "postgresql": "pg", "mysql": "mysql"} {
		d, err := DialectFor(driver)
		require.NoError(t, err)
		assert.Equal(t, want, d.Name())
	}
	_, err := DialectFor("oracle")
	assert.Error(t, err)
}

func TestMigrateTo(t *testing.T) {
	f := newFixture(t)
	f.write(t, "0001_user.json", createUser)
	f.write(t, "0002_email.json", addEmail)
	f.write(t, "0003_team.json", createTeam)
	ctx := context.Background()

	_, err := f.runner.MigrateTo(ctx, "0009_nope")
	assert.ErrorIs(t, err, ErrUnknownTarget)

	applied, err := f.runner.MigrateTo(ctx, "0002_email")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_user", "0002_email"}, ids(applied))
	assert.Equal(t, []string{"_ddlgrator_migrations", "user"}, f.tables(t))

	applied, err = f.runner.MigrateTo(ctx, "0001_user")
	require.NoError(t, err)
	assert.Empty(t, applied, "the target is already applied")

	applied, err = f.runner.MigrateTo(ctx, "max")
	require.NoError(t, err)
	assert.Equal(t, []string{"0003_team"}, ids(applied))
}

func TestDropLedger(t *testing.T) {
	f := newFixture(t)
	f.write(t, "0001_user.json", createUser)
	ctx := context.Background()

	_, err := f.runner.Migrate(ctx)
	require.NoError(t, err)
	require.NoError(t, f.runner.DropLedger(ctx))
	assert.Equal(t, []string{"user"}, f.tables(t))

	ok, err := f.runner.Client().HasLedger(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.runner.DropLedger(ctx), "dropping a missing ledger is a no-op")
}
