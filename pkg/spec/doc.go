// SPDX-License-Identifier: MPL-2.0

// Package spec loads and validates .spenv.yaml documents.
//
// A document is parsed from YAML, checked for a supported api tag, validated
// against an embedded CUE schema, and returned with every relative path
// field anchored at the directory of the file it came from. Documents are
// immutable after Load returns.
package spec
