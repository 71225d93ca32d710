package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/DayDreammy/Sth-Matters-epub/configs"
	"github.com/DayDreammy/Sth-Matters-epub/internal/config"
	kberrors "github.com/DayDreammy/Sth-Matters-epub/internal/errors"
	"github.com/DayDreammy/Sth-Matters-epub/internal/output"
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage knowledge-base configuration",
		Long: heredoc.Doc(`
			Manage the knowledge-base configuration file.

			Configuration precedence (lowest to highest):
			  1. Hardcoded defaults
			  2. User config (~/.config/sthmatters/config.yaml)
			  3. Knowledge-base config (.sthmatters.yaml in the root)
			  4. Environment variables (STHMATTERS_*)
		`),
		Example: heredoc.Doc(`
			# Create .sthmatters.yaml in the knowledge base
			sthmatters config init --root ~/notes

			# Show effective configuration
			sthmatters config show
		`),
	}

	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigPathCmd(g))

	return cmd
}

func newConfigInitCmd(g *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .sthmatters.yaml in the knowledge-base root",
		Long: heredoc.Doc(`
			Write a commented configuration template to .sthmatters.yaml in the
			knowledge-base root. An existing file is kept unless --force is set.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, g, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}

func runConfigInit(cmd *cobra.Command, g *globalOptions, force bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := filepath.Abs(g.root)
	if err != nil {
		return kberrors.New(kberrors.ErrCodeInvalidPath, "invalid knowledge-base root", err)
	}
	path := filepath.Join(root, config.ProjectConfigNames[0])

	if _, err := os.Stat(path); err == nil && !force {
		out.Warning("Configuration already exists")
		out.KeyValue("Location", path)
		out.Status("", "Use --force to overwrite it with the template")
		return nil
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return kberrors.OutputWriteError(root, err)
	}
	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return kberrors.OutputWriteError(path, err)
	}

	out.Success("Created configuration")
	out.KeyValue("Location", path)
	out.Status("", "Run 'sthmatters config show' to verify")
	return nil
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the configuration after merging defaults, config files, environment and flags.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, g, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml, json")

	return cmd
}

func runConfigShow(cmd *cobra.Command, g *globalOptions, format string) error {
	if err := checkFormat(format, "yaml", "json"); err != nil {
		return err
	}
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return kberrors.InternalError("failed to encode configuration", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newConfigPathCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration file paths",
		Long:  `Print the user and knowledge-base configuration file paths.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := filepath.Abs(g.root)
			if err != nil {
				return kberrors.New(kberrors.ErrCodeInvalidPath, "invalid knowledge-base root", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(root, config.ProjectConfigNames[0]))
			return nil
		},
	}
}
