// SPDX-License-Identifier: MPL-2.0

// Package discovery resolves the ordered list of spec documents that apply to
// a starting path.
//
// Documents are returned lowest precedence first:
//
//  1. includes passed on the command line
//  2. includes from the SPENV_INCLUDE list (split by the caller's list separator)
//  3. the in-tree chain, parents before the starting document
//  4. the local override next to the starting point
//
// Each document's own includes are loaded just before it. The package never
// reads process environment; callers pass every override explicitly.
package discovery
