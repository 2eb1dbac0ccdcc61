// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for spenv.
//
// The root command loads configuration and installs the logger before any
// subcommand runs:
//
//	spenv init     create a .spenv.yaml from a template
//	spenv show     list resolved files, layers and environment operations
//	spenv script   render environment operations as NN_spenv.sh scripts
//	spenv lock     write or verify .spenv.lock.yaml
//	spenv check    compare the environment with its lock, optionally watching
//	spenv config   inspect and create the configuration file
package cmd
