// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spkenv/spenv/internal/config"
	"github.com/spkenv/spenv/internal/discovery"
	"github.com/spkenv/spenv/internal/repository"
	"github.com/spkenv/spenv/pkg/types"
)

type (
	// discoveryFlags select where resolution starts and what it includes.
	discoveryFlags struct {
		file      string
		inherit   bool
		noInherit bool
		includes  []string
	}

	// repoFlags toggle package repositories for one invocation.
	repoFlags struct {
		enable    []string
		disable   []string
		localOnly bool
		noLocal   bool
	}

	// resolveFlags combines the flags every resolving command accepts.
	resolveFlags struct {
		discoveryFlags
		repoFlags
	}
)

func (f *discoveryFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", ".", "start discovery from this directory or spec file")
	flags.BoolVar(&f.inherit, "inherit", false, "walk parent directories regardless of the spec's inherit field")
	flags.BoolVarP(&f.noInherit, "no-inherit", "n", false, "load only the starting spec, without parents")
	flags.StringArrayVarP(&f.includes, "include", "i", nil, "additional spec file to apply first (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("inherit", "no-inherit")
}

func (f *repoFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.enable, "enable-repo", "r", nil, "enable a package repository (repeatable)")
	flags.StringArrayVar(&f.disable, "disable-repo", nil, "disable a package repository (repeatable)")
	flags.BoolVar(&f.localOnly, "local-repo-only", false, "search only the local repository")
	flags.BoolVar(&f.noLocal, "no-local-repo", false, "do not search the local repository")
}

func (f *resolveFlags) register(cmd *cobra.Command) {
	f.discoveryFlags.register(cmd)
	f.repoFlags.register(cmd)
}

// inheritOverride returns the effective inheritance override. Flags replace
// the environment; nil leaves the decision to the starting spec.
func (f *discoveryFlags) inheritOverride(env config.Environment) *bool {
	switch {
	case f.noInherit:
		v := false
		return &v
	case f.inherit:
		v := true
		return &v
	default:
		return env.InheritOverride()
	}
}

// options maps the flags, environment and configuration into discovery options.
func (f *discoveryFlags) options(env config.Environment, cfg *config.Config) discovery.Options {
	includes := make([]types.FilesystemPath, 0, len(f.includes))
	for _, inc := range f.includes {
		includes = append(includes, types.FilesystemPath(inc))
	}
	opts := discovery.Options{
		Start:       types.FilesystemPath(f.file),
		CLIIncludes: includes,
		EnvIncludes: env.Include,
		Inherit:     f.inheritOverride(env),
		MaxDepth:    cfg.Discovery.MaxDepth,
	}
	if home, err := os.UserHomeDir(); err == nil {
		opts.HomeDir = types.FilesystemPath(home)
	}
	return opts
}

// params maps the flags, environment and configuration into selection inputs.
func (f *repoFlags) params(env config.Environment, cfg *config.Config) repository.Params {
	return repository.Params{
		Defaults: cfg.Repositories.Defaults,
		Env:      env.RepoToggles(),
		Flags: repository.Toggles{
			Enable:    f.enable,
			Disable:   f.disable,
			LocalOnly: f.localOnly,
			NoLocal:   f.noLocal,
		},
	}
}
