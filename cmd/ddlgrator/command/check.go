package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcomnes/ddlgrator"
)

func newCheckCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the migration graph and print the application order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrations, err := o.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ordered, err := ddlgrator.Resolve(migrations)
			if err != nil {
				var gerr *ddlgrator.GraphError
				if errors.As(err, &gerr) && len(gerr.Heads) > 0 {
					fmt.Fprintf(out, "heads: %s\n", strings.Join(gerr.Heads, ", "))
				}
				return err
			}
			if len(ordered) == 0 {
				fmt.Fprintf(out, "no migrations in %s\n", o.cfg.Migrations.Dir)
				return nil
			}
			for i, m := range ordered {
				line := fmt.Sprintf("%4d  %s", i+1, m.ID)
				if len(m.Replaces) > 0 {
					line += " (replaces " + strings.Join(m.Replaces, ", ") + ")"
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "head: %s\n", ordered[len(ordered)-1].ID)
			return nil
		},
	}
}
