package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import an exported creation into the history",
		Long: `Import reads a creation previously written by "bringtolife export" and makes
it the active creation. A creation with the same id replaces the stored one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			ws, err := e.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.close()

			created, err := ws.ctrl.ImportCreation(raw)
			if err != nil {
				return err
			}
			if e.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), created.WithoutImage())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s)\n", created.ID, created.Name)
			return nil
		},
	}
}
