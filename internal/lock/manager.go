// SPDX-License-Identifier: MPL-2.0

package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spkenv/spenv/internal/fingerprint"
	"github.com/spkenv/spenv/pkg/spec"
	"github.com/spkenv/spenv/pkg/types"
)

const (
	// ModeCreate writes a new record and fails if one exists.
	ModeCreate Mode = iota
	// ModeUpdate replaces an existing record and fails if none exists.
	ModeUpdate
	// ModeForce writes unconditionally.
	ModeForce
)

type (
	// Mode selects the precondition Generate enforces.
	Mode int

	// Clock supplies the record timestamp.
	Clock interface {
		Now() time.Time
	}

	// Manager reads, writes, and checks the lock record at one path.
	Manager struct {
		path      types.FilesystemPath
		clock     Clock
		generator Generator
	}

	// Option configures a Manager.
	Option func(*Manager)

	systemClock struct{}
)

func (systemClock) Now() time.Time { return time.Now() }

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeUpdate:
		return "update"
	case ModeForce:
		return "force"
	default:
		return "unknown"
	}
}

// WithClock overrides the timestamp source.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithGenerator sets the generator metadata stored in new records.
func WithGenerator(g Generator) Option {
	return func(m *Manager) { m.generator = g }
}

// NewManager returns a Manager for the lock file at path.
func NewManager(path types.FilesystemPath, opts ...Option) *Manager {
	m := &Manager{path: path, clock: systemClock{}, generator: Generator{Version: "dev"}}
	if host, err := os.Hostname(); err == nil {
		m.generator.Hostname = host
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the lock file path.
func (m *Manager) Path() types.FilesystemPath { return m.path }

// Exists reports whether the lock file is present.
func (m *Manager) Exists() (bool, error) {
	_, err := os.Stat(string(m.path))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &spec.IOError{Op: "stat", Path: m.path, Cause: err}
	}
}

// Read loads the stored record. A missing file yields ErrLockMissing.
func (m *Manager) Read() (*Record, error) {
	data, err := os.ReadFile(string(m.path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &PreconditionError{Path: m.path, Mode: ModeUpdate, err: ErrLockMissing}
		}
		return nil, &spec.IOError{Op: "read", Path: m.path, Cause: err}
	}
	rec, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.path, err)
	}
	return rec, nil
}

// Generate writes a record for fp, honoring mode's precondition. Nothing from
// a previous record is carried over.
func (m *Manager) Generate(fp *fingerprint.Fingerprint, mode Mode) (*Record, error) {
	exists, err := m.Exists()
	if err != nil {
		return nil, err
	}
	switch mode {
	case ModeCreate:
		if exists {
			return nil, &PreconditionError{Path: m.path, Mode: mode, err: ErrLockAlreadyExists}
		}
	case ModeUpdate:
		if !exists {
			return nil, &PreconditionError{Path: m.path, Mode: mode, err: ErrLockMissing}
		}
	case ModeForce:
	default:
		return nil, &InvalidModeError{Value: mode.String()}
	}

	rec := NewRecord(fp, m.clock.Now(), m.generator)
	if err := m.write(rec, mode == ModeCreate); err != nil {
		return nil, err
	}
	slog.Debug("wrote lock record", "path", m.path, "mode", mode, "fingerprint", rec.Fingerprint)
	return rec, nil
}

// Check compares the stored record against fp.
func (m *Manager) Check(fp *fingerprint.Fingerprint) (*DriftResult, error) {
	rec, err := m.Read()
	if errors.Is(err, ErrLockMissing) {
		return &DriftResult{Status: StatusMissing, Actual: fp.Value}, nil
	}
	if err != nil {
		return nil, err
	}
	return Compare(rec, fp), nil
}

// write stages rec in a uniquely named temporary file beside the lock and
// moves it into place. With exclusive set the final step is a hard link, which
// fails instead of replacing a lock that appeared after the precondition check.
func (m *Manager) write(rec *Record, exclusive bool) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(string(m.path)), ".spenv.lock-*.tmp")
	if err != nil {
		return &spec.IOError{Op: "create", Path: m.path, Cause: err}
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := writeAndSync(tmp, data); err != nil {
		return &spec.IOError{Op: "write", Path: types.FilesystemPath(tmpPath), Cause: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return &spec.IOError{Op: "chmod", Path: types.FilesystemPath(tmpPath), Cause: err}
	}

	if exclusive {
		if err := os.Link(tmpPath, string(m.path)); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return &PreconditionError{Path: m.path, Mode: ModeCreate, err: ErrLockAlreadyExists}
			}
			return &spec.IOError{Op: "link", Path: m.path, Cause: err}
		}
		return nil
	}
	if err := os.Rename(tmpPath, string(m.path)); err != nil {
		return &spec.IOError{Op: "rename", Path: m.path, Cause: err}
	}
	return nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
