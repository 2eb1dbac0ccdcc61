// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from config.cue in the platform config directory
// ($XDG_CONFIG_HOME/spenv on Linux, ~/Library/Application Support/spenv on macOS,
// %APPDATA%\spenv on Windows) or from an explicit --config path. The file is validated
// against the embedded #Config schema (config_schema.cue) and merged over defaults.
//
// The package also owns the SPENV_* process environment. LoadEnvironment reads it
// once; the CLI maps the result into the typed parameters the core packages take.
package config
