// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spkenv/spenv/internal/issue"
	"github.com/spkenv/spenv/pkg/cueutil"
	"github.com/spkenv/spenv/pkg/platform"
	"github.com/spkenv/spenv/pkg/types"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"
)

const (
	// AppName is the application name.
	AppName = "spenv"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the spenv configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (types.FilesystemPath, error) {
	if configDirOverride != "" {
		return types.FilesystemPath(configDirOverride), nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return types.FilesystemPath(filepath.Join(configDir, AppName)), nil
}

// DefaultConfigPath returns the config.cue path inside dir, or inside the
// platform config directory when dir is empty.
func DefaultConfigPath(dir types.FilesystemPath) (types.FilesystemPath, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", err
	}
	return types.FilesystemPath(filepath.Join(string(cfgDir), ConfigFileName+"."+ConfigFileExt)), nil
}

// newViper returns a viper instance holding every default.
func newViper() *viper.Viper {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("repositories.defaults", defaults.Repositories.Defaults)
	v.SetDefault("discovery.max_depth", defaults.Discovery.MaxDepth)
	v.SetDefault("lock.strict", defaults.Lock.Strict)
	v.SetDefault("log.level", string(defaults.Log.Level))
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	return v
}

// loadWithOptions performs option-driven config loading. The returned path is
// the file that was merged, or empty when only defaults apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, types.FilesystemPath, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := opts.Validate(); err != nil {
		return nil, "", err
	}

	v := newViper()
	resolvedPath := types.FilesystemPath("")

	if opts.ConfigFilePath != "" {
		// An explicit path must exist.
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(string(opts.ConfigFilePath)).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'spenv config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cuePath, err := DefaultConfigPath(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}
		if fileExists(cuePath) {
			resolvedPath = cuePath
		}
	}

	var tags map[string]string
	if resolvedPath != "" {
		var err error
		if tags, err = loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(string(resolvedPath)).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'spenv config dump' to see every supported key").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Layers.Tags = tags
	if cfg.Layers.Tags == nil {
		cfg.Layers.Tags = map[string]string{}
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(string(resolvedPath)).
			WithSuggestion("Run 'spenv config dump' to see the expected keys and defaults").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func configDirWithOverride(configDirPath types.FilesystemPath) (types.FilesystemPath, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Config decodes to map[string]any for viper rather than a struct, so the
// cueutil decode helpers do not fit.
// layers.tags is returned separately: viper lowercases keys and splits them on
// dots, which would mangle tags such as "python/3.11".
func loadCUEIntoViper(v *viper.Viper, path types.FilesystemPath) (map[string]string, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, string(path)); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(string(path)))
	if userValue.Err() != nil {
		return nil, cueutil.FormatError(userValue.Err(), string(path))
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueutil.FormatError(err, string(path))
	}

	var tags map[string]string
	if tagsValue := unified.LookupPath(cue.ParsePath("layers.tags")); tagsValue.Exists() {
		if err := tagsValue.Decode(&tags); err != nil {
			return nil, cueutil.FormatError(err, string(path))
		}
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, cueutil.FormatError(err, string(path))
	}
	if layers, ok := configMap["layers"].(map[string]any); ok {
		delete(layers, "tags")
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	return tags, nil
}

func fileExists(path types.FilesystemPath) bool {
	info, err := os.Stat(string(path))
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config file to path unless one
// already exists. It reports whether a file was written.
func CreateDefaultConfig(path types.FilesystemPath) (bool, error) {
	if _, err := os.Stat(string(path)); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(string(path)), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(string(path), []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}

	return true, nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// spenv configuration file\n\n")

	sb.WriteString("repositories: {\n")
	sb.WriteString("\tdefaults: [")
	for i, name := range cfg.Repositories.Defaults {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", name)
	}
	sb.WriteString("]\n}\n")

	sb.WriteString("\nlayers: {\n")
	if len(cfg.Layers.Tags) == 0 {
		sb.WriteString("\ttags: {}\n")
	} else {
		sb.WriteString("\ttags: {\n")
		keys := maps.Keys(cfg.Layers.Tags)
		slices.Sort(keys)
		for _, tag := range keys {
			fmt.Fprintf(&sb, "\t\t%q: %q\n", tag, cfg.Layers.Tags[tag])
		}
		sb.WriteString("\t}\n")
	}
	sb.WriteString("}\n")

	sb.WriteString("\ndiscovery: {\n")
	fmt.Fprintf(&sb, "\tmax_depth: %d\n", cfg.Discovery.MaxDepth)
	sb.WriteString("}\n")

	sb.WriteString("\nlock: {\n")
	fmt.Fprintf(&sb, "\tstrict: %v\n", cfg.Lock.Strict)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
