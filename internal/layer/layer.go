// SPDX-License-Identifier: MPL-2.0

// Package layer defines the collaborators that turn layer references and
// package requests into concrete digests, plus a resolver backed by the
// layers.tags configuration map.
package layer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/spkenv/spenv/internal/fingerprint"
	"github.com/spkenv/spenv/internal/repository"
	"github.com/spkenv/spenv/pkg/spec"
)

var (
	// ErrUnknownLayer is the sentinel error wrapped by UnknownLayerError.
	ErrUnknownLayer = errors.New("unknown layer")

	sha256Digest = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)
	base32Digest = regexp.MustCompile(`^[A-Z2-7]{52}$`)
)

type (
	// DigestResolver maps layer references to concrete digests.
	DigestResolver interface {
		ResolveDigest(ctx context.Context, reference string) (string, error)
	}

	// PackageRequest is what the package resolver receives.
	PackageRequest struct {
		Packages     []string
		Options      spec.SolverOptions
		RawOptions   map[string]any
		Repositories repository.Selection
	}

	// PackageResolver turns package requests into additional layer references,
	// appended after the spec's own layers.
	PackageResolver interface {
		ResolvePackages(ctx context.Context, req PackageRequest) ([]string, error)
	}

	// UnknownLayerError reports a reference that is neither a digest nor a
	// known tag. Similar lists known tags that share a prefix or substring.
	UnknownLayerError struct {
		Reference string
		Similar   []string
	}

	// TagResolver resolves references using a static tag table.
	TagResolver struct {
		tags map[string]string
	}
)

func (e *UnknownLayerError) Error() string {
	if len(e.Similar) == 0 {
		return fmt.Sprintf("unknown layer %q", e.Reference)
	}
	return fmt.Sprintf("unknown layer %q (did you mean %s?)", e.Reference, strings.Join(e.Similar, ", "))
}

// Unwrap returns ErrUnknownLayer for errors.Is() compatibility.
func (e *UnknownLayerError) Unwrap() error { return ErrUnknownLayer }

// IsDigest reports whether ref is already a concrete digest.
func IsDigest(ref string) bool {
	return sha256Digest.MatchString(ref) || base32Digest.MatchString(ref)
}

// NewTagResolver returns a resolver over tags. The map is copied.
func NewTagResolver(tags map[string]string) *TagResolver {
	r := &TagResolver{tags: make(map[string]string, len(tags))}
	for k, v := range tags {
		r.tags[k] = v
	}
	return r
}

// ResolveDigest implements DigestResolver.
func (r *TagResolver) ResolveDigest(ctx context.Context, reference string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if IsDigest(reference) {
		return reference, nil
	}
	if d, ok := r.tags[reference]; ok {
		if !IsDigest(d) {
			return "", fmt.Errorf("tag %q maps to malformed digest %q", reference, d)
		}
		return d, nil
	}
	return "", &UnknownLayerError{Reference: reference, Similar: r.similar(reference)}
}

func (r *TagResolver) similar(ref string) []string {
	base, _, _ := strings.Cut(ref, "/")
	var out []string
	for tag := range r.tags {
		if strings.Contains(tag, ref) || strings.Contains(ref, tag) || (base != "" && strings.HasPrefix(tag, base+"/")) {
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return out
}

// ResolveAll resolves every reference in order.
func ResolveAll(ctx context.Context, r DigestResolver, refs []string) ([]fingerprint.LayerDigest, error) {
	out := make([]fingerprint.LayerDigest, 0, len(refs))
	for _, ref := range refs {
		d, err := r.ResolveDigest(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("resolving layer %s: %w", ref, err)
		}
		out = append(out, fingerprint.LayerDigest{Reference: ref, Digest: d})
	}
	return out, nil
}
