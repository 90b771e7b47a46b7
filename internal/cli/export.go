package cli

import (
	"github.com/spf13/cobra"
)

func newExportCmd(e *env) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a creation as a JSON document",
		Long: `Export writes the full creation, including the original image, as an
indented JSON document that "bringtolife import" accepts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := e.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.close()

			doc, err := ws.ctrl.ExportCreation(args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, doc)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}
