// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of markdown
// explanations rendered with glamour for the failures users hit most.
package issue
