// SPDX-License-Identifier: MPL-2.0

package spec

import (
	"errors"
	"fmt"
)

// Environment operation kinds.
const (
	OpSet      EnvOpKind = "set"
	OpPrepend  EnvOpKind = "prepend"
	OpAppend   EnvOpKind = "append"
	OpComment  EnvOpKind = "comment"
	OpPriority EnvOpKind = "priority"
)

// ErrInvalidEnvOp is returned by EnvOp.Validate.
var ErrInvalidEnvOp = errors.New("invalid environment operation")

type (
	// EnvOpKind discriminates the variants of EnvOp.
	EnvOpKind string

	// EnvOp is one entry of a document's environment list. Kind selects which
	// of the remaining fields are meaningful:
	//
	//	set       Name, Value
	//	prepend   Name, Value, Separator (optional)
	//	append    Name, Value, Separator (optional)
	//	comment   Comment
	//	priority  Priority
	EnvOp struct {
		Kind      EnvOpKind
		Name      string
		Value     string
		Separator string
		Comment   string
		Priority  int
	}

	// rawEnvOp mirrors the YAML shape, where the variant is chosen by which
	// key is present.
	rawEnvOp struct {
		Set       *string `json:"set,omitempty"`
		Prepend   *string `json:"prepend,omitempty"`
		Append    *string `json:"append,omitempty"`
		Value     string  `json:"value,omitempty"`
		Separator string  `json:"separator,omitempty"`
		Comment   *string `json:"comment,omitempty"`
		Priority  *int    `json:"priority,omitempty"`
	}
)

// SetOp returns a set operation.
func SetOp(name, value string) EnvOp { return EnvOp{Kind: OpSet, Name: name, Value: value} }

// PrependOp returns a prepend operation using the platform separator.
func PrependOp(name, value string) EnvOp { return EnvOp{Kind: OpPrepend, Name: name, Value: value} }

// AppendOp returns an append operation using the platform separator.
func AppendOp(name, value string) EnvOp { return EnvOp{Kind: OpAppend, Name: name, Value: value} }

// CommentOp returns a comment operation.
func CommentOp(text string) EnvOp { return EnvOp{Kind: OpComment, Comment: text} }

// PriorityOp returns a priority operation.
func PriorityOp(p int) EnvOp { return EnvOp{Kind: OpPriority, Priority: p} }

// String returns the YAML key of the kind.
func (k EnvOpKind) String() string { return string(k) }

// IsValid reports whether k is one of the known kinds.
func (k EnvOpKind) IsValid() bool {
	switch k {
	case OpSet, OpPrepend, OpAppend, OpComment, OpPriority:
		return true
	}
	return false
}

// Validate checks that the fields required by the op's kind are present.
func (op EnvOp) Validate() error {
	switch op.Kind {
	case OpSet, OpPrepend, OpAppend:
		if op.Name == "" {
			return fmt.Errorf("%w: %s requires a variable name", ErrInvalidEnvOp, op.Kind)
		}
	case OpComment, OpPriority:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEnvOp, op.Kind)
	}
	return nil
}

// Fields returns the op in its YAML shape, for rendering.
func (op EnvOp) Fields() map[string]any {
	switch op.Kind {
	case OpSet:
		return map[string]any{"set": op.Name, "value": op.Value}
	case OpPrepend, OpAppend:
		m := map[string]any{string(op.Kind): op.Name, "value": op.Value}
		if op.Separator != "" {
			m["separator"] = op.Separator
		}
		return m
	case OpComment:
		return map[string]any{"comment": op.Comment}
	case OpPriority:
		return map[string]any{"priority": op.Priority}
	}
	return nil
}

func (r rawEnvOp) toEnvOp() (EnvOp, error) {
	var op EnvOp
	switch {
	case r.Set != nil:
		op = SetOp(*r.Set, r.Value)
	case r.Prepend != nil:
		op = EnvOp{Kind: OpPrepend, Name: *r.Prepend, Value: r.Value, Separator: r.Separator}
	case r.Append != nil:
		op = EnvOp{Kind: OpAppend, Name: *r.Append, Value: r.Value, Separator: r.Separator}
	case r.Comment != nil:
		op = CommentOp(*r.Comment)
	case r.Priority != nil:
		op = PriorityOp(*r.Priority)
	default:
		return EnvOp{}, fmt.Errorf("%w: no operation key", ErrInvalidEnvOp)
	}
	return op, op.Validate()
}
