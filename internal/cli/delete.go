package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a creation from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := e.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.close()

			if err := ws.ctrl.DeleteCreation(args[0]); err != nil {
				return err
			}
			if !e.flags.jsonMode {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			}
			return nil
		},
	}
}
