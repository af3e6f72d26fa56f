package command

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bcomnes/ddlgrator/pkg/runner"
)

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations with their ledger state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := o.context(cmd)
			defer cancel()
			r, closeDB, err := o.runner()
			if err != nil {
				return err
			}
			defer closeDB()

			statuses, err := r.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, st := range statuses {
				fmt.Fprintln(out, statusLine(st))
			}
			return nil
		},
	}
}

func statusLine(st runner.MigrationStatus) string {
	switch {
	case st.State == runner.StateModified:
		return fmt.Sprintf("[!] %s (modified since applied)", st.Migration.ID)
	case st.Squashed && st.Record == nil:
		return fmt.Sprintf("[x] %s (replaced migrations applied)", st.Migration.ID)
	case st.Record != nil:
		return fmt.Sprintf("[x] %s %s", st.Migration.ID, st.Record.AppliedAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("[ ] %s", st.Migration.ID)
}
