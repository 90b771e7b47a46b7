// Package cli implements the bringtolife command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/bringtolife/internal/paths"
	"github.com/mesh-intelligence/bringtolife/internal/session"
	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// env is the state shared by one command invocation. It is filled in by the
// root PersistentPreRunE.
type env struct {
	flags    rootFlags
	settings settings
	logger   *zap.Logger
}

// NewRootCmd creates the top-level "bringtolife" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	e := &env{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "bringtolife",
		Short: "Turn prompts and files into self-contained web pages",
		Long: "bringtolife sends a prompt, optionally with an image or document, to Gemini\n" +
			"and keeps the generated HTML pages in a local history.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = e.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.flags.configDir, "config-dir", "", "configuration directory (env "+paths.EnvConfigDir+")")
	pf.StringVar(&e.flags.dataDir, "data-dir", "", "data directory (env "+paths.EnvDataDir+")")
	pf.BoolVar(&e.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&e.flags.verbose, "verbose", "v", false, "log debug detail to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newConfigCmd(e))
	root.AddCommand(newGenerateCmd(e))
	root.AddCommand(newImportCmd(e))
	root.AddCommand(newExportCmd(e))
	root.AddCommand(newListCmd(e))
	root.AddCommand(newShowCmd(e))
	root.AddCommand(newDeleteCmd(e))
	root.AddCommand(newKeyCmd(e))
	root.AddCommand(newLegacyCmd(e))
	root.AddCommand(newServeCmd(e))

	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "Error:", describe(err))
	return exitCode(err)
}

// usageError marks command-line mistakes that cobra itself does not catch.
type usageError struct{ msg string }

func (u usageError) Error() string { return u.msg }

// describe renders err for the terminal. Domain errors get the same wording
// the HTTP layer uses; anything else prints as is.
func describe(err error) string {
	var ue usageError
	if errors.As(err, &ue) {
		return ue.msg
	}
	if types.KindOf(err) != types.KindUnknown {
		return session.UserMessage(err)
	}
	return err.Error()
}

// exitCode separates problems the user can fix from failures of the
// network or the local store.
func exitCode(err error) int {
	switch types.KindOf(err) {
	case types.KindNetworkFailure, types.KindStorage, types.KindStorageQuotaExceeded:
		return exitSysError
	default:
		return exitUserError
	}
}

// setup builds the logger and loads the configuration. The version command
// needs neither.
func (e *env) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	logger, err := newLogger(e.flags.verbose)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	e.logger = logger

	configDir, err := paths.ResolveConfigDir(e.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s, err := decodeSettings(v)
	if err != nil {
		return err
	}
	s.ConfigDir = configDir
	s.DataDir, err = paths.ResolveDataDir(e.flags.dataDir, s.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	e.settings = s

	e.logger.Debug("configuration loaded",
		zap.String("config_dir", s.ConfigDir),
		zap.String("data_dir", s.DataDir),
		zap.String("model", s.Model))
	return nil
}

// newLogger writes JSON to stderr. Only warnings and errors are shown unless
// verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}
