package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/bringtolife/internal/credential"
)

func newKeyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the saved Gemini API key",
	}
	cmd.AddCommand(newKeySetCmd(e))
	cmd.AddCommand(newKeyStatusCmd(e))
	cmd.AddCommand(newKeyClearCmd(e))
	return cmd
}

func newKeySetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key|->",
		Short: "Save the API key used by later calls",
		Long:  "Save the API key. Pass - to read it from stdin and keep it out of the shell history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if key == "-" {
				data, err := readInput(cmd.InOrStdin(), "-")
				if err != nil {
					return fmt.Errorf("read key: %w", err)
				}
				key = strings.TrimSpace(string(data))
			}

			_, resolver, err := e.openLocal()
			if err != nil {
				return err
			}
			if err := resolver.Remember(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved key %s\n", credential.Mask(credential.Clean(key)))
			return nil
		},
	}
}

type keyStatus struct {
	Configured bool   `json:"configured"`
	Key        string `json:"key,omitempty"`
}

func newKeyStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an API key is configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, resolver, err := e.openLocal()
			if err != nil {
				return err
			}
			key := resolver.Resolve("")
			status := keyStatus{Configured: key != "", Key: credential.Mask(key)}

			if e.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), status)
			}
			if !status.Configured {
				fmt.Fprintln(cmd.OutOrStdout(), "No API key configured")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key %s\n", status.Key)
			return nil
		},
	}
}

func newKeyClearCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, resolver, err := e.openLocal()
			if err != nil {
				return err
			}
			if err := resolver.Forget(); err != nil {
				return fmt.Errorf("clear key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved key removed")
			return nil
		},
	}
}
