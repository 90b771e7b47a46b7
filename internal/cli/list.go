package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// listEntry is one history row. HTML and images are left to show and export.
type listEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	HasImage  bool   `json:"hasImage"`
}

func newListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the history, newest first",
		Long: `List prints every stored creation, newest first. On first use the history
is migrated from the old key-value file, or seeded with built-in examples.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := e.openWorkspace()
			if err != nil {
				return err
			}
			defer ws.close()

			history := ws.ctrl.History()
			entries := make([]listEntry, len(history))
			for i, c := range history {
				entries[i] = listEntry{
					ID:        c.ID,
					Name:      c.Name,
					Timestamp: c.Timestamp.UTC().Format(types.TimestampLayout),
					HasImage:  c.OriginalImage != "",
				}
			}

			if e.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCREATED\tIMAGE")
			for _, en := range entries {
				image := ""
				if en.HasImage {
					image = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", en.ID, en.Name, en.Timestamp, image)
			}
			return tw.Flush()
		},
	}
}
