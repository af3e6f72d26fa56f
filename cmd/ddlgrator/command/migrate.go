package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bcomnes/ddlgrator/pkg/runner"
)

func newMigrateCmd(o *options) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations to the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := o.context(cmd)
			defer cancel()
			r, closeDB, err := o.runner()
			if err != nil {
				return err
			}
			defer closeDB()

			applied, err := r.MigrateTo(ctx, target)
			out := cmd.OutOrStdout()
			for _, m := range applied {
				fmt.Fprintf(out, "applied %s\n", m.ID)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "database schema is up to date")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "to", "", `stop after this migration id ("max" applies all)`)
	return cmd
}

func newDropLedgerCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "drop-ledger",
		Short: "Drop the table recording applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := o.context(cmd)
			defer cancel()
			r, closeDB, err := o.runner()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := r.DropLedger(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped ledger table %s\n", o.cfg.Database.LedgerTable)
			return nil
		},
	}
}

// runner opens the configured database. The returned function closes it.
func (o *options) runner() (*runner.Runner, func() error, error) {
	db, err := runner.Open(o.cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	r, err := runner.New(o.cfg, db, runner.WithLogger(o.logger))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return r, db.Close, nil
}
