// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/spkenv/spenv/internal/config"
	"github.com/spkenv/spenv/pkg/types"
)

// newConfigCommand creates the `spenv config` command tree. A broken
// configuration file is only a warning here so that it can be inspected and
// regenerated.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage spenv configuration",
		Long: `Manage spenv configuration.

Configuration is stored in:
  - Linux: $XDG_CONFIG_HOME/spenv/config.cue (default ~/.config/spenv/config.cue)
  - macOS: ~/Library/Application Support/spenv/config.cue
  - Windows: %APPDATA%\spenv\config.cue`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd.Context(), false)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration and SPENV_* environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.configFilePath()
			if err != nil {
				return err
			}
			showConfig(cmd.OutOrStdout(), app.cfg, path, app.env)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.configFilePath()
			if err != nil {
				return err
			}
			created, err := config.CreateDefaultConfig(path)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.configFilePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), config.GenerateCUE(app.cfg))
			return err
		},
	})

	return cfgCmd
}

// configFilePath returns the file given by --config, or the default location.
func (a *App) configFilePath() (types.FilesystemPath, error) {
	if a.cfgPath != "" {
		return a.cfgPath, nil
	}
	return config.DefaultConfigPath("")
}

func showConfig(w io.Writer, cfg *config.Config, path types.FilesystemPath, env config.Environment) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	none := SubtitleStyle.Render("(none)")

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if _, err := os.Stat(string(path)); err == nil {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("repositories"))
	fmt.Fprintf(w, "  defaults: %s\n", valueStyle.Render(strings.Join(cfg.Repositories.Defaults, ", ")))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("layers.tags"))
	if len(cfg.Layers.Tags) == 0 {
		fmt.Fprintf(w, "  %s\n", none)
	}
	tags := maps.Keys(cfg.Layers.Tags)
	slices.Sort(tags)
	for _, tag := range tags {
		fmt.Fprintf(w, "  %s: %s\n", tag, valueStyle.Render(cfg.Layers.Tags[tag]))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("discovery.max_depth"), valueStyle.Render(fmt.Sprint(cfg.Discovery.MaxDepth)))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("lock.strict"), valueStyle.Render(fmt.Sprint(cfg.Lock.Strict)))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("log.level"), valueStyle.Render(cfg.Log.Level.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("ui.color_scheme"), valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("ui.verbose"), valueStyle.Render(fmt.Sprint(cfg.UI.Verbose)))

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Environment"))
	fmt.Fprintln(w)
	envRows := []struct {
		key   string
		value string
	}{
		{config.EnvInclude, env.Include},
		{config.EnvInherit, boolOrEmpty(env.Inherit)},
		{config.EnvNoInherit, boolOrEmpty(env.NoInherit)},
		{config.EnvEnableRepo, strings.Join(env.EnableRepo, ",")},
		{config.EnvDisableRepo, strings.Join(env.DisableRepo, ",")},
		{config.EnvLocalRepoOnly, boolOrEmpty(env.LocalRepoOnly)},
		{config.EnvNoLocalRepo, boolOrEmpty(env.NoLocalRepo)},
	}
	for _, row := range envRows {
		value := none
		if row.value != "" {
			value = valueStyle.Render(row.value)
		}
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(config.EnvPrefix+"_"+strings.ToUpper(row.key)), value)
	}
}

func boolOrEmpty(b bool) string {
	if b {
		return "true"
	}
	return ""
}
