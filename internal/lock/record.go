// SPDX-License-Identifier: MPL-2.0

package lock

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spkenv/spenv/internal/fingerprint"
)

// RecordAPIVersion tags lock files written by this release.
const RecordAPIVersion = "spenv/v0/lock"

type (
	// Record is the persisted lock document.
	Record struct {
		API         string        `yaml:"api"`
		Fingerprint string        `yaml:"fingerprint"`
		CreatedAt   time.Time     `yaml:"createdAt"`
		Generator   Generator     `yaml:"generator"`
		Sources     []SourceEntry `yaml:"sources"`
		Layers      []LayerEntry  `yaml:"layers"`
	}

	// Generator describes the process that wrote the record.
	Generator struct {
		Version  string `yaml:"version"`
		Hostname string `yaml:"hostname,omitempty"`
	}

	// SourceEntry is one contributing spec file.
	SourceEntry struct {
		Path   string `yaml:"path"`
		SHA256 string `yaml:"sha256"`
	}

	// LayerEntry is one resolved layer.
	LayerEntry struct {
		Reference string `yaml:"reference"`
		Digest    string `yaml:"digest"`
	}
)

// NewRecord builds a record from a fingerprint.
func NewRecord(fp *fingerprint.Fingerprint, createdAt time.Time, gen Generator) *Record {
	rec := &Record{
		API:         RecordAPIVersion,
		Fingerprint: fp.Value,
		CreatedAt:   createdAt.UTC().Truncate(time.Second),
		Generator:   gen,
		Sources:     make([]SourceEntry, len(fp.Files)),
		Layers:      make([]LayerEntry, len(fp.Layers)),
	}
	for i, f := range fp.Files {
		rec.Sources[i] = SourceEntry{Path: f.Path, SHA256: f.SHA256}
	}
	for i, l := range fp.Layers {
		rec.Layers[i] = LayerEntry{Reference: l.Reference, Digest: l.Digest}
	}
	return rec
}

// Marshal serializes the record as YAML.
func (r *Record) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding lock record: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a lock record and checks its api tag.
func Unmarshal(data []byte) (*Record, error) {
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if rec.API != RecordAPIVersion {
		return nil, fmt.Errorf("%w: unsupported api %q (expected %q)", ErrInvalidRecord, rec.API, RecordAPIVersion)
	}
	return &rec, nil
}
