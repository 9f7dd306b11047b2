package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/ontograph/internal/app"
	"github.com/specialistvlad/ontograph/internal/config"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// DefaultConfigPath is read when --config is not given. A missing file is
// not an error.
const DefaultConfigPath = "ontograph.hcl"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// globals holds the persistent flags shared by every command.
type globals struct {
	configPaths []string
	logLevel    string
	logFormat   string
	workers     int
	importDepth int

	loader config.Loader
	logW   io.Writer
}

// NewRootCmd builds the command tree. Command output goes to outW and logs
// to logW.
func NewRootCmd(outW, logW io.Writer, loader config.Loader) *cobra.Command {
	g := &globals{loader: loader, logW: logW}

	root := &cobra.Command{
		Use:   "ontograph",
		Short: "Load, query and convert OBO ontologies",
		Long: `ontograph loads OBO ontologies into an in-memory entity graph,
resolves their imports, and answers lineage queries over terms and
relationships.

Settings are read from ontograph.hcl unless --config is given; flags
override the file.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(logW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringSliceVarP(&g.configPaths, "config", "c", []string{DefaultConfigPath}, "HCL config files or directories")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format (text, json)")
	pf.IntVar(&g.workers, "workers", 0, "Frame ingestion workers, 0 means one per CPU")
	pf.IntVar(&g.importDepth, "import-depth", 0, "Import depth, negative is unbounded")

	root.AddCommand(
		statsCmd(g),
		showCmd(g),
		lineageCmd(g, "ancestors", "List the superclasses of an entity", true),
		lineageCmd(g, "descendants", "List the subclasses of an entity", false),
		convertCmd(g),
		checkCmd(g),
		serveCmd(g),
		versionCmd(),
	)
	return root
}

// newApp builds the application from the config files and the flags the
// user actually set.
func (g *globals) newApp(cmd *cobra.Command) (*app.App, error) {
	cfg := app.Config{
		ConfigPaths: g.configPaths,
		LogLevel:    g.logLevel,
		LogFormat:   g.logFormat,
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = &g.workers
	}
	if flags.Changed("import-depth") {
		cfg.ImportDepth = &g.importDepth
	}
	if flags.Changed("listen") {
		cfg.MetricsListen, _ = flags.GetString("listen")
	}

	appConfig, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	a, err := app.New(g.logW, appConfig, g.loader)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return a, nil
}

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func printf(cmd *cobra.Command, format string, args ...any) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	return err
}

// exactArgs reports a wrong argument count as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}
