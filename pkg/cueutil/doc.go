// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates user documents against embedded CUE schemas and
// decodes them into Go structs.
//
// YAML spec files go through the flow below. The CUE config loader compiles
// its own source and reuses FormatError for its messages.
//
//  1. Compile the embedded schema
//  2. Compile or extract the user data and unify it with the schema root
//  3. Validate and decode into the target struct
//
// # Usage
//
//	//go:embed spec_schema.cue
//	var schemaBytes []byte
//
//	value, err := cueutil.ExtractYAML(data, cueutil.WithFilename(".spenv.yaml"))
//	if err != nil {
//	    return err
//	}
//	result, err := cueutil.DecodeValue[Document](
//	    schemaBytes,
//	    value,
//	    "#Spec",
//	    cueutil.WithFilename(".spenv.yaml"),
//	    cueutil.WithConcrete(true),
//	)
package cueutil
