// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spkenv/spenv/internal/compose"
	"github.com/spkenv/spenv/internal/discovery"
	"github.com/spkenv/spenv/internal/fingerprint"
	"github.com/spkenv/spenv/internal/layer"
	"github.com/spkenv/spenv/internal/lock"
	"github.com/spkenv/spenv/internal/repository"
	"github.com/spkenv/spenv/pkg/spec"
)

// resolution is everything a command needs about one resolved environment.
type resolution struct {
	Result  *discovery.Result
	Env     *compose.Environment
	Repos   repository.Selection
	Options spec.SolverOptions
}

// resolve discovers, composes and expands the environment selected by f.
func (a *App) resolve(ctx context.Context, f *resolveFlags) (*resolution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := discovery.Resolve(f.options(a.env, a.cfg))
	if err != nil {
		return nil, err
	}
	logDiagnostics(result.Diagnostics)

	env := compose.Compose(result.Documents())
	solverOpts, err := spec.ParseSolverOptions(env.PackageOptions)
	if err != nil {
		return nil, fmt.Errorf("composing package options: %w", err)
	}
	res := &resolution{
		Result:  result,
		Env:     env,
		Repos:   repository.Select(f.params(a.env, a.cfg)),
		Options: solverOpts,
	}
	if err := a.expandPackages(ctx, res); err != nil {
		return nil, err
	}
	slog.Debug("resolved environment",
		"documents", len(result.Entries),
		"layers", len(env.Layers),
		"repositories", res.Repos.Enabled())
	return res, nil
}

// expandPackages asks the package resolver for the layers backing the
// requested packages and appends them after the spec layers.
func (a *App) expandPackages(ctx context.Context, res *resolution) error {
	if len(res.Env.Packages) == 0 {
		return nil
	}
	if a.Packages == nil {
		slog.Warn("no package resolver available; packages are listed but not expanded into layers",
			"packages", res.Env.Packages)
		return nil
	}
	layers, err := a.Packages.ResolvePackages(ctx, layer.PackageRequest{
		Packages:     res.Env.Packages,
		Options:      res.Options,
		RawOptions:   res.Env.PackageOptions,
		Repositories: res.Repos,
	})
	if err != nil {
		return fmt.Errorf("resolving packages: %w", err)
	}
	res.Env.AppendLayers(layers...)
	return nil
}

// computeFingerprint resolves every layer to a digest and hashes the contributing
// spec files. Paths are recorded relative to the lock file directory.
func (a *App) computeFingerprint(ctx context.Context, res *resolution) (*fingerprint.Fingerprint, error) {
	digests, err := layer.ResolveAll(ctx, a.Digests(a.cfg), res.Env.Layers)
	if err != nil {
		return nil, err
	}
	return fingerprint.Compute(res.Result.StartDir, res.Result.Paths(), digests)
}

// lockManager returns the manager for the lock file of res.
func (a *App) lockManager(res *resolution) *lock.Manager {
	gen := lock.Generator{Version: Version}
	if host, err := os.Hostname(); err == nil {
		gen.Hostname = host
	}
	return lock.NewManager(res.Result.LockPath(), lock.WithGenerator(gen))
}

func logDiagnostics(diags []discovery.Diagnostic) {
	for _, d := range diags {
		if d.Severity == discovery.SeverityWarning {
			slog.Warn(d.Message, "code", d.Code, "path", d.Path)
			continue
		}
		slog.Debug(d.Message, "code", d.Code, "path", d.Path)
	}
}
