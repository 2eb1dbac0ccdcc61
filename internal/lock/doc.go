// SPDX-License-Identifier: MPL-2.0

// Package lock persists fingerprints of resolved environments and reports
// drift between a stored record and freshly computed inputs.
//
// Records are written atomically: the full YAML document goes to a temporary
// sibling file that is then renamed over the target.
package lock
