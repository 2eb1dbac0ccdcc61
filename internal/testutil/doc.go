// SPDX-License-Identifier: MPL-2.0

// Package testutil holds helpers shared by spenv tests: process environment
// overrides (MustSetenv, MustUnsetenv, SetHomeDir, MustChdir), spec fixtures
// (MinimalSpec, WriteSpec, WriteFile) and a manually advanced FakeClock.
package testutil
