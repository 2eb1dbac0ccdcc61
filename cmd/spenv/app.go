// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spkenv/spenv/internal/config"
	"github.com/spkenv/spenv/internal/layer"
	"github.com/spkenv/spenv/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reaches configuration, environment and layer
	// resolution through it.
	App struct {
		Config      config.Provider
		Environment func() config.Environment
		Digests     func(cfg *config.Config) layer.DigestResolver
		Packages    layer.PackageResolver
		stdout      io.Writer
		stderr      io.Writer

		// Populated once per invocation by the root pre-run hook.
		opts    rootOptions
		cfg     *config.Config
		cfgPath types.FilesystemPath
		env     config.Environment
		verbose bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config      config.Provider
		Environment func() config.Environment
		Digests     func(cfg *config.Config) layer.DigestResolver
		Packages    layer.PackageResolver
		Stdout      io.Writer
		Stderr      io.Writer
	}
)

// NewApp builds an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:      deps.Config,
		Environment: deps.Environment,
		Digests:     deps.Digests,
		Packages:    deps.Packages,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
		cfg:         config.DefaultConfig(),
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Environment == nil {
		app.Environment = config.LoadEnvironment
	}
	if app.Digests == nil {
		app.Digests = func(cfg *config.Config) layer.DigestResolver {
			return layer.NewTagResolver(cfg.Layers.Tags)
		}
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadConfig loads the configuration for this invocation. When no explicit
// file was requested a broken configuration is returned as a warning and
// defaults are used instead.
func (a *App) loadConfig(ctx context.Context, cfgFile string) (warning, err error) {
	opts := config.LoadOptions{ConfigFilePath: types.FilesystemPath(cfgFile)}
	a.cfgPath = opts.ConfigFilePath
	a.env = a.Environment()
	cfg, err := a.Config.Load(ctx, opts)
	if err != nil {
		a.cfg = config.DefaultConfig()
		if cfgFile != "" {
			return nil, err
		}
		return err, nil
	}
	a.cfg = cfg
	return nil, nil
}

// glamourStyle maps the configured color scheme to a glamour style name.
func (a *App) glamourStyle() string {
	if a.cfg != nil && a.cfg.UI.ColorScheme == config.ColorSchemeLight {
		return "light"
	}
	return "dark"
}
