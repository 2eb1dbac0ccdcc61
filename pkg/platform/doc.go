// SPDX-License-Identifier: MPL-2.0

// Package platform centralizes operating-system names and the separators used
// when composing PATH-like environment variables and include lists.
package platform
