package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/bringtolife/internal/session"
	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

type generateOptions struct {
	mode     string
	file     string
	mimeType string
	key      string
	remember bool
	out      string
	timeout  time.Duration
}

func newGenerateCmd(e *env) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate [prompt...]",
		Short: "Generate a web page from a prompt and an optional file",
		Long: `Generate sends the prompt, and the file when one is given, to Gemini and
stores the resulting HTML page in the history.

Modes:
  app      an interactive single-file web app invented from the input (default)
  davinci  a Renaissance codex notebook page with aged paper, sepia ink and sketches
  fusion   a cyber-renaissance tool, a futuristic relic in dark and gold

Example:
  bringtolife generate "a pomodoro timer"
  bringtolife generate --file sketch.png --mode fusion --out page.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, e, opts, strings.Join(args, " "))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.mode, "mode", "m", string(types.ModeApp), "generation mode: app, davinci or fusion")
	f.StringVarP(&opts.file, "file", "f", "", "image or document to bring to life")
	f.StringVar(&opts.mimeType, "mime-type", "", "MIME type of --file (default: inferred)")
	f.StringVar(&opts.key, "key", "", "Gemini API key for this call")
	f.BoolVar(&opts.remember, "remember", false, "save --key for later calls")
	f.StringVarP(&opts.out, "out", "o", "", "also write the generated HTML to this file")
	f.DurationVar(&opts.timeout, "timeout", 0, "bound the call (default: timeout from config.yaml)")

	return cmd
}

func runGenerate(cmd *cobra.Command, e *env, opts generateOptions, prompt string) error {
	mode, err := types.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	in := session.GenerateInput{Credential: opts.key, Prompt: prompt, Mode: mode}
	if opts.file != "" {
		data, err := readInput(cmd.InOrStdin(), opts.file)
		if err != nil {
			return err
		}
		in.File = session.NewAttachment(filepath.Base(opts.file), opts.mimeType, data)
	}

	ws, err := e.openWorkspace()
	if err != nil {
		return err
	}
	defer ws.close()

	if opts.remember && opts.key != "" {
		if err := ws.resolver.Remember(opts.key); err != nil {
			return err
		}
	}

	timeout := e.settings.Timeout
	if opts.timeout > 0 {
		timeout = opts.timeout
	}
	ctx := cmd.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	created, err := ws.ctrl.StartGeneration(ctx, in)
	if err != nil {
		e.logger.Debug("generation failed", zap.Error(err))
		return err
	}

	if opts.out != "" {
		if err := writeOutput(cmd.OutOrStdout(), opts.out, []byte(created.HTML)); err != nil {
			return err
		}
	}

	if e.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), created)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", created.ID, created.Name)
	return nil
}
