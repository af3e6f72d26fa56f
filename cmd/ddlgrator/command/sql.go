package command

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/bcomnes/ddlgrator"
	"github.com/bcomnes/ddlgrator/internal/log"
	"github.com/bcomnes/ddlgrator/pkg/runner"
)

func newSQLCmd(o *options) *cobra.Command {
	var dialect string
	var collect bool
	cmd := &cobra.Command{
		Use:   "sql [id...]",
		Short: "Print the SQL of the migrations, in application order",
		Long: `Print the transactional SQL of every migration, or of the named ones,
without touching a database. The dialect defaults to the configured driver.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dialect == "" {
				dialect = o.cfg.Database.Driver
			}
			d, err := runner.DialectFor(dialect)
			if err != nil {
				return err
			}
			policy := o.cfg.Migrations.Policy
			if collect {
				policy = ddlgrator.CollectAll
			}
			migrations, err := o.load()
			if err != nil {
				return err
			}
			ordered, err := ddlgrator.Resolve(migrations)
			if err != nil {
				return err
			}
			selected, err := selectMigrations(ordered, args)
			if err != nil {
				return err
			}

			engine := ddlgrator.New(d, ddlgrator.WithPolicy(policy), ddlgrator.WithLogger(o.logger))
			scripts, err := engine.CompileAll(selected)
			out := cmd.OutOrStdout()
			for _, s := range scripts {
				fmt.Fprintf(out, "-- %s\n%s\n", s.MigrationID, s)
			}
			if err != nil {
				errs := multierr.Errors(err)
				if len(errs) == 1 {
					return err
				}
				for _, e := range errs {
					log.Error(cmd.Context(), "compile failed", log.Err("error", e))
				}
				return fmt.Errorf("%d migrations failed to compile", len(errs))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", "", "SQL dialect: sqlite, pg or mysql")
	cmd.Flags().BoolVar(&collect, "collect-errors", false, "compile every migration and report all failures")
	return cmd
}

// selectMigrations keeps the migrations named in ids, in application order.
func selectMigrations(ordered []ddlgrator.Migration, ids []string) ([]ddlgrator.Migration, error) {
	if len(ids) == 0 {
		return ordered, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var selected []ddlgrator.Migration
	for _, m := range ordered {
		if want[m.ID] {
			selected = append(selected, m)
			delete(want, m.ID)
		}
	}
	for _, id := range ids {
		if want[id] {
			return nil, fmt.Errorf("unknown migration %s", id)
		}
	}
	return selected, nil
}
