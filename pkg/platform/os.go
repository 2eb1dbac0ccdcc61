// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// EnvPathSeparator returns the separator placed between entries of PATH-like
// variables on the given GOOS.
func EnvPathSeparator(goos string) string {
	if goos == Windows {
		return ";"
	}
	return ":"
}

// CurrentEnvPathSeparator returns EnvPathSeparator for the running platform.
func CurrentEnvPathSeparator() string { return EnvPathSeparator(runtime.GOOS) }

// IsWindows reports whether the running platform is Windows.
func IsWindows() bool { return runtime.GOOS == Windows }
