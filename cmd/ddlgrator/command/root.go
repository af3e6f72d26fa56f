// Package command provides the root and sub-commands of the ddlgrator CLI.
//
//	ddlgrator check                     # validate the migration graph
//	ddlgrator sql [id...] [--dialect pg] [--collect-errors]
//	ddlgrator migrate [--to id]         # apply pending migrations
//	ddlgrator drop-ledger               # drop the applied-migration ledger
//	ddlgrator status                    # list applied and pending migrations
//	ddlgrator new <description> [--mode int|timestamp]
//
// Every command accepts -c/--config (default ./database.toml, or the file
// named by $DDLGRATOR_CONFIG) and -m/--migration-dir.
package command

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bcomnes/ddlgrator"
	"github.com/bcomnes/ddlgrator/internal/log"
)

// options holds the persistent flags shared by the sub-commands.
type options struct {
	cfgPath      string
	migrationDir string
	dsn          string
	logLevel     string
	timeout      time.Duration

	cfg    ddlgrator.Config
	logger *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "ddlgrator",
		Short: "Schema migrations as data, compiled to SQL",
		Long: `ddlgrator reads migration documents (TOML, YAML or JSON) describing
schema operations, checks that they form a single linear history, renders
them as transactional DDL for SQLite, PostgreSQL or MySQL, and applies the
pending ones to a database while keeping a ledger of what ran.`,
		Version:           ddlgrator.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: o.setup,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&o.cfgPath, "config", "c", "", "config file path (default ./database.toml)")
	flags.StringVarP(&o.migrationDir, "migration-dir", "m", "", "directory holding migration files")
	flags.StringVar(&o.dsn, "dsn", "", "database connection string, overrides $DATABASE_URL and the config file")
	flags.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.DurationVar(&o.timeout, "timeout", 10*time.Minute, "timeout for database commands")

	root.AddCommand(
		newCheckCmd(o),
		newSQLCmd(o),
		newMigrateCmd(o),
		newStatusCmd(o),
		newNewCmd(o),
		newDropLedgerCmd(o),
	)
	return root
}

// Execute runs the root command. Errors are printed to stderr and turn into
// exit code 1.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (o *options) setup(cmd *cobra.Command, _ []string) error {
	logger, err := log.New(cmd.ErrOrStderr(), o.logLevel)
	if err != nil {
		return err
	}
	o.logger = logger
	slog.SetDefault(logger)

	cfg, err := o.loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	if o.migrationDir != "" {
		cfg.Migrations.Dir = o.migrationDir
	}
	if o.dsn == "" {
		o.dsn = os.Getenv("DATABASE_URL")
	}
	if o.dsn != "" {
		cfg.Database.DSN = o.dsn
	}
	o.cfg = cfg
	return nil
}

// loadConfig reads the file named by the flag, then $DDLGRATOR_CONFIG, then
// the default file. Only a missing default file falls back to built-in
// defaults.
func (o *options) loadConfig(ctx context.Context) (ddlgrator.Config, error) {
	path := o.cfgPath
	if path == "" {
		path = os.Getenv(ddlgrator.ConfigEnv)
	}
	if path == "" {
		if _, err := os.Stat(ddlgrator.DefaultConfigFile); errors.Is(err, fs.ErrNotExist) {
			log.Debug(ctx, "no config file, using defaults")
			return ddlgrator.DefaultConfig, nil
		}
		path = ddlgrator.DefaultConfigFile
	}
	log.Debug(ctx, "loading config", slog.String("path", path))
	cfg, err := ddlgrator.LoadConfig(path)
	if err != nil {
		return ddlgrator.Config{}, fmt.Errorf("ddlgrator.LoadConfig(%q): %w", path, err)
	}
	return cfg, nil
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, o.timeout)
}

func (o *options) load() ([]ddlgrator.Migration, error) {
	return ddlgrator.Load(o.cfg.Migrations.Dir, o.cfg.Migrations.LoadOptions()...)
}
