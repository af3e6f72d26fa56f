// Package runner applies compiled migrations to a live database and keeps a
// ledger of what ran.
//
// The ledger holds one row per applied migration with the fingerprint of
// its operations. Each migration runs in its own database transaction
// together with its ledger row, so a failed migration leaves neither its
// schema changes nor its row behind on engines with transactional DDL.
package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bcomnes/ddlgrator"
	"github.com/bcomnes/ddlgrator/internal/log"
)

var (
	// ErrHashMismatch reports an applied migration whose operations changed.
	ErrHashMismatch = errors.New("applied migration was modified")
	// ErrLedgerGap reports an applied migration that follows a pending one.
	ErrLedgerGap = errors.New("ledger out of order")
	// ErrPartialSquash reports a squashing migration some, but not all, of
	// whose replaced migrations were applied.
	ErrPartialSquash = errors.New("squashed migrations partially applied")
	// ErrUnknownTarget reports a migrate target that is not in the
	// application order.
	ErrUnknownTarget = errors.New("unknown target migration")
)

// State is the ledger state of one migration.
type State string

const (
	StateApplied  State = "applied"
	StatePending  State = "pending"
	StateModified State = "modified"
)

// MigrationStatus pairs a migration with its ledger state.
type MigrationStatus struct {
	Migration ddlgrator.Migration
	State     State
	// Hash is the current fingerprint of the migration's operations.
	Hash string
	// Record is the ledger row, if the migration has one.
	Record *AppliedMigration
	// Squashed is set when the migration counts as applied because every
	// migration it replaces is in the ledger.
	Squashed bool
}

// Runner is the main orchestrator for running database migrations.
type Runner struct {
	cfg     ddlgrator.Config
	db      *sql.DB
	client  Client
	dialect ddlgrator.Dialect
	logger  *slog.Logger
	log     log.Logger
	now     func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithDialect overrides the dialect picked from the configured driver.
func WithDialect(d ddlgrator.Dialect) Option {
	return func(r *Runner) { r.dialect = d }
}

// WithClock sets the clock used for applied_at.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner for cfg on db.
func New(cfg ddlgrator.Config, db *sql.DB, opts ...Option) (*Runner, error) {
	cfg.ApplyDefaults()
	client, err := NewClient(cfg.Database, db)
	if err != nil {
		return nil, err
	}
	r := &Runner{cfg: cfg, db: db, client: client, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.dialect == nil {
		if r.dialect, err = DialectFor(cfg.Database.Driver); err != nil {
			return nil, err
		}
	}
	r.log = log.From(r.logger)
	return r, nil
}

// Client returns the ledger client.
func (r *Runner) Client() Client { return r.client }

// Migrations loads and orders the migrations of the configured directory.
func (r *Runner) Migrations() ([]ddlgrator.Migration, error) {
	migrations, err := ddlgrator.Load(r.cfg.Migrations.Dir, r.cfg.Migrations.LoadOptions()...)
	if err != nil {
		return nil, err
	}
	return ddlgrator.Resolve(migrations)
}

// Status returns the ledger state of every migration, in application order.
func (r *Runner) Status(ctx context.Context) ([]MigrationStatus, error) {
	ordered, err := r.Migrations()
	if err != nil {
		return nil, err
	}
	rows, err := r.client.Applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	ledger := make(map[string]AppliedMigration, len(rows))
	for _, row := range rows {
		ledger[row.ID] = row
	}

	statuses := make([]MigrationStatus, 0, len(ordered))
	for _, m := range ordered {
		sum, err := m.Fingerprint()
		if err != nil {
			return nil, err
		}
		st := MigrationStatus{Migration: m, State: StatePending, Hash: sum}
		if rec, ok := ledger[m.ID]; ok {
			st.Record = &rec
			st.State = StateApplied
			if rec.Hash != sum {
				st.State = StateModified
			}
		} else if len(m.Replaces) > 0 {
			var missing []string
			for _, id := range m.Replaces {
				if _, ok := ledger[id]; !ok {
					missing = append(missing, id)
				}
			}
			switch {
			case len(missing) == 0:
				st.State = StateApplied
				st.Squashed = true
			case len(missing) < len(m.Replaces):
				return nil, fmt.Errorf("%w: %s replaces %v but %v are not applied", ErrPartialSquash, m.ID, m.Replaces, missing)
			}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// pending returns the migrations that still have to run. They must form a
// suffix of the application order.
func (r *Runner) pending(statuses []MigrationStatus) ([]ddlgrator.Migration, error) {
	var pending []ddlgrator.Migration
	for _, st := range statuses {
		if st.State == StateModified && !r.cfg.Migrations.IgnoreHashes {
			return nil, fmt.Errorf("%w: %s (ledger %s, files %s)", ErrHashMismatch, st.Migration.ID, st.Record.Hash, st.Hash)
		}
		if st.State == StatePending {
			pending = append(pending, st.Migration)
			continue
		}
		if len(pending) > 0 {
			return nil, fmt.Errorf("%w: %s is applied but %s before it is not", ErrLedgerGap, st.Migration.ID, pending[0].ID)
		}
	}
	return pending, nil
}

// Pending returns the migrations Migrate would run.
func (r *Runner) Pending(ctx context.Context) ([]ddlgrator.Migration, error) {
	statuses, err := r.Status(ctx)
	if err != nil {
		return nil, err
	}
	return r.pending(statuses)
}

// Plan compiles the pending migrations without running them, under the
// configured policy.
func (r *Runner) Plan(ctx context.Context) ([]ddlgrator.Script, error) {
	pending, err := r.Pending(ctx)
	if err != nil {
		return nil, err
	}
	engine := ddlgrator.New(r.dialect,
		ddlgrator.WithPolicy(r.cfg.Migrations.Policy),
		ddlgrator.WithLogger(r.logger),
	)
	return engine.CompileAll(pending)
}

// Migrate applies every pending migration in order and returns the ones it
// applied. It stops at the first migration that fails to compile or run;
// the migrations before it stay applied.
//
// A squashing migration whose replaced migrations are all applied is
// recorded in the ledger without running its statements.
func (r *Runner) Migrate(ctx context.Context) ([]ddlgrator.Migration, error) {
	return r.MigrateTo(ctx, "")
}

// MigrateTo is Migrate, stopping after the migration with id target. An
// empty target or "max" applies everything.
func (r *Runner) MigrateTo(ctx context.Context, target string) ([]ddlgrator.Migration, error) {
	target = strings.TrimSpace(target)
	if target == "max" {
		target = ""
	}
	release, err := r.client.Locker().Acquire(ctx, "ddlgrator:"+r.cfg.Database.LedgerTable)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := r.client.EnsureLedger(ctx); err != nil {
		return nil, err
	}
	statuses, err := r.Status(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := r.pending(statuses)
	if err != nil {
		return nil, err
	}
	if target != "" {
		if pending, err = upTo(statuses, pending, target); err != nil {
			return nil, err
		}
	}

	runID := uuid.NewString()
	for _, st := range statuses {
		if !st.Squashed || st.Record != nil {
			continue
		}
		empty := ddlgrator.Script{MigrationID: st.Migration.ID}
		if err := r.run(ctx, empty, r.record(st.Migration.ID, st.Hash, runID)); err != nil {
			return nil, fmt.Errorf("record squashed migration %s: %w", st.Migration.ID, err)
		}
		r.log.Info(ctx, "squashed migration recorded", log.Migration(st.Migration.ID), log.IDs("replaces", st.Migration.Replaces))
	}

	if len(pending) == 0 {
		r.log.Info(ctx, "database schema is up to date")
		return nil, nil
	}
	var applied []ddlgrator.Migration
	for _, m := range pending {
		script, err := ddlgrator.Compile(r.dialect, m)
		if err != nil {
			r.log.Error(ctx, "migration failed to compile", log.Migration(m.ID), log.Err("error", err))
			return applied, err
		}
		sum, err := m.Fingerprint()
		if err != nil {
			return applied, err
		}
		started := time.Now()
		if err := r.run(ctx, script, r.record(m.ID, sum, runID)); err != nil {
			attrs := append([]slog.Attr{log.Migration(m.ID), log.Err("error", err)}, driverErrorAttrs(err)...)
			r.log.Error(ctx, "migration failed", attrs...)
			return applied, fmt.Errorf("apply migration %s: %w", m.ID, err)
		}
		r.log.Info(ctx, "migration applied",
			log.Migration(m.ID),
			slog.Int("statements", len(script.Statements)),
			slog.Duration("elapsed", time.Since(started)),
			slog.String("run_id", runID),
		)
		applied = append(applied, m)
	}
	return applied, nil
}

// upTo cuts pending after target. A target that is already applied leaves
// nothing to run.
func upTo(statuses []MigrationStatus, pending []ddlgrator.Migration, target string) ([]ddlgrator.Migration, error) {
	known := false
	for _, st := range statuses {
		if st.Migration.ID == target {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	for i, m := range pending {
		if m.ID == target {
			return pending[:i+1], nil
		}
	}
	return nil, nil
}

// DropLedger drops the ledger table. The schema it recorded is left alone.
func (r *Runner) DropLedger(ctx context.Context) error {
	release, err := r.client.Locker().Acquire(ctx, "ddlgrator:"+r.cfg.Database.LedgerTable)
	if err != nil {
		return err
	}
	defer release()
	return r.client.DropLedger(ctx)
}

func (r *Runner) record(id, hash, runID string) AppliedMigration {
	return AppliedMigration{ID: id, Hash: hash, RunID: runID, AppliedAt: r.now().UTC()}
}

// run executes the statements of script and its ledger row in one database
// transaction. The script's own BEGIN and COMMIT lines are replaced by the
// database/sql transaction.
func (r *Runner) run(ctx context.Context, script ddlgrator.Script, rec AppliedMigration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i, stmt := range script.Statements {
		if _, err := tx.ExecContext(ctx, stmt.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	if err := r.client.Record(ctx, tx, rec); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record ledger row: %w", err)
	}
	return tx.Commit()
}
