// SPDX-License-Identifier: MPL-2.0

package config

import (
	"strings"

	"github.com/spkenv/spenv/internal/repository"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable spenv reads.
const EnvPrefix = "SPENV"

// Environment keys, bound as SPENV_<KEY>.
const (
	EnvInclude       = "include"
	EnvInherit       = "inherit"
	EnvNoInherit     = "no_inherit"
	EnvEnableRepo    = "enable_repo"
	EnvDisableRepo   = "disable_repo"
	EnvLocalRepoOnly = "local_repo_only"
	EnvNoLocalRepo   = "no_local_repo"
)

var envKeys = []string{
	EnvInclude, EnvInherit, EnvNoInherit,
	EnvEnableRepo, EnvDisableRepo, EnvLocalRepoOnly, EnvNoLocalRepo,
}

// Environment is the process environment as spenv understands it.
type Environment struct {
	// Include is the raw SPENV_INCLUDE list, split later with the platform
	// list separator.
	Include       string
	Inherit       bool
	NoInherit     bool
	EnableRepo    []string
	DisableRepo   []string
	LocalRepoOnly bool
	NoLocalRepo   bool
}

// LoadEnvironment reads the SPENV_* variables once.
func LoadEnvironment() Environment {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range envKeys {
		_ = v.BindEnv(key) // only fails without a key argument
	}

	return Environment{
		Include:       v.GetString(EnvInclude),
		Inherit:       truthy(v.GetString(EnvInherit)),
		NoInherit:     truthy(v.GetString(EnvNoInherit)),
		EnableRepo:    splitNames(v.GetString(EnvEnableRepo)),
		DisableRepo:   splitNames(v.GetString(EnvDisableRepo)),
		LocalRepoOnly: truthy(v.GetString(EnvLocalRepoOnly)),
		NoLocalRepo:   truthy(v.GetString(EnvNoLocalRepo)),
	}
}

// InheritOverride maps the inheritance toggles to the discovery override.
// SPENV_NO_INHERIT wins when both are set.
func (e Environment) InheritOverride() *bool {
	switch {
	case e.NoInherit:
		v := false
		return &v
	case e.Inherit:
		v := true
		return &v
	default:
		return nil
	}
}

// RepoToggles returns the environment tier of the repository selection.
func (e Environment) RepoToggles() repository.Toggles {
	return repository.Toggles{
		Enable:    e.EnableRepo,
		Disable:   e.DisableRepo,
		LocalOnly: e.LocalRepoOnly,
		NoLocal:   e.NoLocalRepo,
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// splitNames splits a repository list on commas and whitespace.
func splitNames(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
