package command

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcomnes/ddlgrator"
)

func newNewCmd(o *options) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "new <description>",
		Short: "Scaffold an empty migration depending on the current head",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ddlgrator.Scaffold(o.cfg.Migrations, strings.Join(args, " "), mode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "int", `numbering mode: "int" or "timestamp"`)
	return cmd
}
