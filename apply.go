package ddlgrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/multierr"

	"github.com/bcomnes/ddlgrator/internal/log"
)

// Policy decides what ApplyAll does when a migration fails to compile.
type Policy int

const (
	// FailFast stops at the first migration that fails to compile.
	FailFast Policy = iota
	// CollectAll compiles every migration and reports all failures together.
	CollectAll
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case CollectAll:
		return "collect-all"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "fail-fast", "":
		*p = FailFast
	case "collect-all":
		*p = CollectAll
	default:
		return fmt.Errorf("policy must be one of: fail-fast, collect-all")
	}
	return nil
}

// Engine compiles migration sets for one dialect.
type Engine struct {
	dialect Dialect
	policy  Policy
	log     log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the failure policy of ApplyAll. The default is FailFast.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the logger. The default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = log.From(l) }
}

// New returns an Engine rendering SQL for d.
func New(d Dialect, opts ...Option) *Engine {
	e := &Engine{dialect: d, policy: FailFast}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dialect returns the dialect the engine renders for.
func (e *Engine) Dialect() Dialect { return e.dialect }

// Policy returns the failure policy of the engine.
func (e *Engine) Policy() Policy { return e.policy }

// Compile compiles a single migration.
func (e *Engine) Compile(m Migration) (Script, error) {
	return Compile(e.dialect, m)
}

// ApplyAll resolves migrations and compiles them in application order. A
// graph error is returned before anything is compiled.
//
// Under FailFast the scripts compiled before the first failure are returned
// with its *CompileError. Under CollectAll every migration is compiled; the
// scripts of the successful ones are returned, in order, together with the
// combined errors of the others.
func (e *Engine) ApplyAll(migrations []Migration) ([]Script, error) {
	ordered, err := Resolve(migrations)
	if err != nil {
		return nil, err
	}
	return e.CompileAll(ordered)
}

// CompileAll compiles already ordered migrations under the engine's policy.
func (e *Engine) CompileAll(ordered []Migration) ([]Script, error) {
	ctx := context.Background()
	scripts := make([]Script, 0, len(ordered))
	var errs error
	for _, m := range ordered {
		script, err := Compile(e.dialect, m)
		if err != nil {
			e.log.Warn(ctx, "migration failed to compile", log.Migration(m.ID), log.Err("error", err))
			if e.policy == FailFast {
				return scripts, err
			}
			errs = multierr.Append(errs, err)
			continue
		}
		e.log.Debug(ctx, "migration compiled",
			log.Migration(m.ID),
			slog.String("dialect", e.dialect.Name()),
			slog.Int("statements", len(script.Statements)),
		)
		scripts = append(scripts, script)
	}
	return scripts, errs
}

// ApplyAll resolves migrations and compiles them for d.
func ApplyAll(migrations []Migration, d Dialect, opts ...Option) ([]Script, error) {
	return New(d, opts...).ApplyAll(migrations)
}
