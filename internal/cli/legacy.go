package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newLegacyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legacy",
		Short: "Work with history kept in the old key-value file",
		Long: `The old key-value file held the history as one JSON array. It is migrated
into the history database the first time the database is found empty.`,
	}
	cmd.AddCommand(newLegacyImportCmd(e))
	cmd.AddCommand(newLegacyStatusCmd(e))
	return cmd
}

func newLegacyImportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Stage a JSON array of creations for migration",
		Long: `Import stores a JSON array of creations, such as a history copied out of the
browser, in the old key-value file. It is migrated on the next command if
the history database is still empty.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			var records []json.RawMessage
			if err := json.Unmarshal(raw, &records); err != nil {
				return usageError{msg: "legacy history must be a JSON array of creations"}
			}

			local, _, err := e.openLocal()
			if err != nil {
				return err
			}
			if err := local.WriteLegacy(records); err != nil {
				return fmt.Errorf("stage legacy history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Staged %d legacy records\n", len(records))
			return nil
		},
	}
}

func newLegacyStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show how many legacy records await migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			local, _, err := e.openLocal()
			if err != nil {
				return err
			}
			records, err := local.ReadLegacy()
			if err != nil {
				return fmt.Errorf("read legacy history: %w", err)
			}
			if e.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"pending": len(records)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d legacy records pending (%d of %d bytes used)\n",
				len(records), local.Usage(), e.settings.LegacyQuotaBytes)
			return nil
		},
	}
}
