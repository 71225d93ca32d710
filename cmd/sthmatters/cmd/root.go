// Package cmd provides the CLI commands for sthmatters.
package cmd

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/DayDreammy/Sth-Matters-epub/internal/config"
	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/index"
	"github.com/DayDreammy/Sth-Matters-epub/internal/logging"
	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
	"github.com/DayDreammy/Sth-Matters-epub/internal/pipeline"
	"github.com/DayDreammy/Sth-Matters-epub/pkg/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	root      string
	profile   string
	outputDir string
	debug     bool

	closeLog func()
}

// NewRootCmd creates the root command for the sthmatters CLI.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *globalOptions) {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "sthmatters",
		Short: "Search a Markdown knowledge base and compile the results",
		Long: heredoc.Doc(`
			sthmatters indexes a directory of Markdown and text notes, answers
			substring queries against file names, tags and content, and turns
			the results into reports, reading documents and EPUB books.

			The index lives in memory and is rebuilt on every run. Settings are
			read from ~/.config/sthmatters/config.yaml, then .sthmatters.yaml in
			the knowledge-base root, then STHMATTERS_* environment variables.
		`),
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: g.startLogging,
	}
	cmd.SetVersionTemplate("sthmatters version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&g.root, "root", "r", ".", "Knowledge-base root directory")
	cmd.PersistentFlags().StringVarP(&g.profile, "profile", "p", "", "Search profile to use as the active search paths")
	cmd.PersistentFlags().StringVarP(&g.outputDir, "output-dir", "o", "", "Directory for generated files (default: <root>/output)")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging to ~/.sthmatters/logs/")

	cmd.AddCommand(newIndexCmd(g))
	cmd.AddCommand(newSearchCmd(g))
	cmd.AddCommand(newReportCmd(g))
	cmd.AddCommand(newQuickCmd(g))
	cmd.AddCommand(newRenderCmd(g))
	cmd.AddCommand(newBookCmd(g))
	cmd.AddCommand(newStatsCmd(g))
	cmd.AddCommand(newProfilesCmd(g))
	cmd.AddCommand(newWatchCmd(g))
	cmd.AddCommand(newDoctorCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newVersionCmd())

	return cmd, g
}

// Execute runs the root command and prints a failure to stderr.
func Execute() error {
	cmd, g := newRootCmd()
	defer g.stopLogging()

	err := cmd.Execute()
	if err != nil {
		printError(cmd, err)
	}
	return err
}

func printError(cmd *cobra.Command, err error) {
	var ke *kberrors.KBError
	if stderrors.As(err, &ke) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), kberrors.FormatForCLI(err))
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
}

// startLogging installs the default logger. --debug logs to file and stderr;
// otherwise only warnings reach stderr until a configured log file takes over.
func (g *globalOptions) startLogging(_ *cobra.Command, _ []string) error {
	if !g.debug {
		slog.SetDefault(logging.NewStderrLogger("warn"))
		return nil
	}

	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	g.closeLog = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

func (g *globalOptions) stopLogging() {
	if g.closeLog != nil {
		g.closeLog()
		g.closeLog = nil
	}
}

// fileLogging switches to the log file named in the configuration.
func (g *globalOptions) fileLogging(cfg *config.Config) error {
	if g.debug || g.closeLog != nil || cfg.Logging.File == "" {
		return nil
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.FilePath = cfg.Logging.File
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	g.closeLog = cleanup
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the configuration for --root and applies the persistent
// flag overrides. Configuration problems are printed as warnings.
func (g *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, loadErr, err := g.resolveConfig(cmd)
	if loadErr != nil {
		warn(cmd, loadErr)
	}
	return cfg, err
}

// resolveConfig is loadConfig without printing. loadErr is the non-fatal
// warning from config.Load.
func (g *globalOptions) resolveConfig(cmd *cobra.Command) (cfg *config.Config, loadErr error, err error) {
	root, err := filepath.Abs(g.root)
	if err != nil {
		return nil, nil, kberrors.New(kberrors.ErrCodeInvalidPath, "invalid knowledge-base root", err)
	}

	cfg, loadErr = config.Load(root)

	if g.outputDir != "" {
		dir, err := filepath.Abs(g.outputDir)
		if err != nil {
			return nil, loadErr, kberrors.New(kberrors.ErrCodeInvalidPath, "invalid output directory", err)
		}
		cfg.Output.Dir = dir
	}
	if g.profile != "" {
		if err := cfg.UseProfile(g.profile); err != nil {
			return nil, loadErr, err
		}
	}
	if err := g.fileLogging(cfg); err != nil {
		warn(cmd, err)
	}
	return cfg, loadErr, nil
}

// openPipeline loads the configuration and creates a pipeline. With build
// set, the index is built before returning.
func (g *globalOptions) openPipeline(cmd *cobra.Command, build bool) (*pipeline.Pipeline, error) {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openPipeline(cmd, cfg, build)
}

func openPipeline(cmd *cobra.Command, cfg *config.Config, build bool) (*pipeline.Pipeline, error) {
	if info, err := os.Stat(cfg.Root); err != nil || !info.IsDir() {
		return nil, kberrors.New(kberrors.ErrCodeRootMissing, "knowledge-base root not found", err).
			WithDetail("root", cfg.Root).
			WithSuggestion("pass --root or set STHMATTERS_ROOT")
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return nil, err
	}
	if !build {
		return p, nil
	}

	snap, err := p.Rebuild()
	if err != nil {
		return nil, err
	}
	if pf := index.PartialFailure(snap); pf != nil {
		warn(cmd, pf)
	}
	return p, nil
}

// warn prints a non-fatal problem to stderr and logs it.
func warn(cmd *cobra.Command, err error) {
	msg := err.Error()
	var ke *kberrors.KBError
	if stderrors.As(err, &ke) {
		msg = ke.Message
		if ke.Suggestion != "" {
			msg += " (" + ke.Suggestion + ")"
		}
	}
	output.New(cmd.ErrOrStderr()).Warning(msg)
	slog.Warn("command warning", kberrors.LogAttrs(err)...)
}

// checkFormat validates a --format value.
func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return kberrors.UnsupportedFormatError("output format", format).
		WithSuggestion("use one of: " + strings.Join(allowed, ", "))
}
