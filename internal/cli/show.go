package cli

import (
	"github.com/spf13/cobra"
)

func newShowCmd(e *env) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the HTML of a creation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := e.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.close()

			if err := ws.ctrl.SelectCreation(args[0]); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, []byte(ws.ctrl.Active().HTML))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}
