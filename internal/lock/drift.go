// SPDX-License-Identifier: MPL-2.0

package lock

import (
	"fmt"

	"github.com/spkenv/spenv/internal/fingerprint"
	"github.com/spkenv/spenv/pkg/types"
)

const (
	// StatusMatch means the stored fingerprint equals the current one.
	StatusMatch Status = iota
	// StatusDrift means the fingerprints differ.
	StatusDrift
	// StatusMissing means no lock record exists.
	StatusMissing
)

// Change kinds reported for drift.
const (
	SourceChanged      ChangeKind = "source-changed"
	SourceAdded        ChangeKind = "source-added"
	SourceRemoved      ChangeKind = "source-removed"
	SourceMoved        ChangeKind = "source-moved"
	LayerDigestChanged ChangeKind = "layer-digest-changed"
	LayerAdded         ChangeKind = "layer-added"
	LayerRemoved       ChangeKind = "layer-removed"
	LayerMoved         ChangeKind = "layer-moved"
	FingerprintChanged ChangeKind = "fingerprint-changed"
)

type (
	// Status classifies a check.
	Status int

	// ChangeKind names one kind of drift.
	ChangeKind string

	// Change is one detected difference. Subject is the source path or layer
	// reference; Expected and Actual are the stored and current values.
	Change struct {
		Kind     ChangeKind
		Subject  string
		Expected string
		Actual   string
	}

	// DriftResult is the outcome of Check. Drift is an expected result, not an
	// error.
	DriftResult struct {
		Status   Status
		Expected string
		Actual   string
		Changes  []Change
	}
)

func (s Status) String() string {
	switch s {
	case StatusMatch:
		return "match"
	case StatusDrift:
		return "drift"
	case StatusMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// ExitCode maps the status to the process exit code reported by check.
func (s Status) ExitCode() types.ExitCode {
	switch s {
	case StatusMatch:
		return types.ExitMatch
	case StatusDrift:
		return types.ExitDrift
	default:
		return types.ExitLockMissing
	}
}

func (c Change) String() string {
	switch {
	case c.Expected == "":
		return fmt.Sprintf("%s %s (%s)", c.Kind, c.Subject, c.Actual)
	case c.Actual == "":
		return fmt.Sprintf("%s %s (was %s)", c.Kind, c.Subject, c.Expected)
	default:
		return fmt.Sprintf("%s %s: %s -> %s", c.Kind, c.Subject, c.Expected, c.Actual)
	}
}

// Compare classifies the difference between a stored record and a freshly
// computed fingerprint.
func Compare(rec *Record, fp *fingerprint.Fingerprint) *DriftResult {
	res := &DriftResult{Expected: rec.Fingerprint, Actual: fp.Value}
	if rec.Fingerprint == fp.Value {
		res.Status = StatusMatch
		return res
	}
	res.Status = StatusDrift

	stored := make([]keyed, len(rec.Sources))
	for i, s := range rec.Sources {
		stored[i] = keyed{key: s.Path, value: s.SHA256}
	}
	current := make([]keyed, len(fp.Files))
	for i, f := range fp.Files {
		current[i] = keyed{key: f.Path, value: f.SHA256}
	}
	res.Changes = append(res.Changes, diff(stored, current, SourceChanged, SourceAdded, SourceRemoved, SourceMoved)...)

	stored = make([]keyed, len(rec.Layers))
	for i, l := range rec.Layers {
		stored[i] = keyed{key: l.Reference, value: l.Digest}
	}
	current = make([]keyed, len(fp.Layers))
	for i, l := range fp.Layers {
		current[i] = keyed{key: l.Reference, value: l.Digest}
	}
	res.Changes = append(res.Changes, diff(stored, current, LayerDigestChanged, LayerAdded, LayerRemoved, LayerMoved)...)

	if len(res.Changes) == 0 {
		res.Changes = []Change{{Kind: FingerprintChanged, Subject: "fingerprint", Expected: rec.Fingerprint, Actual: fp.Value}}
	}
	return res
}

type keyed struct {
	key   string
	value string
}

// diff compares two ordered key/value lists by key, and by position for
// entries present in both.
func diff(stored, current []keyed, changed, added, removed, moved ChangeKind) []Change {
	storedIdx := make(map[string]int, len(stored))
	for i, s := range stored {
		storedIdx[s.key] = i
	}
	currentKeys := make(map[string]struct{}, len(current))

	var changes []Change
	for i, c := range current {
		currentKeys[c.key] = struct{}{}
		j, ok := storedIdx[c.key]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: added, Subject: c.key, Actual: c.value})
		case stored[j].value != c.value:
			changes = append(changes, Change{Kind: changed, Subject: c.key, Expected: stored[j].value, Actual: c.value})
		case j != i:
			changes = append(changes, Change{Kind: moved, Subject: c.key, Expected: fmt.Sprintf("position %d", j), Actual: fmt.Sprintf("position %d", i)})
		}
	}
	for _, s := range stored {
		if _, ok := currentKeys[s.key]; !ok {
			changes = append(changes, Change{Kind: removed, Subject: s.key, Expected: s.value})
		}
	}
	return changes
}
