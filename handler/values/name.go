// Package values holds the value objects of the handler domain: validated
// handler names, versions, and update-kind classification.
package values

import (
	"fmt"
	"strings"
)

// Name is a validated, case-insensitive handler identifier. Two names that
// differ only in case are the same handler; Key gives the canonical form.
type Name struct {
	value string
}

// NewName validates and creates a handler Name. A valid name is non-empty,
// at most 64 characters, and contains only alphanumerics, underscores, and
// hyphens. Path separators and parent references are rejected outright since
// names become file names under the install tree.
func NewName(name string) (Name, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Name{}, fmt.Errorf("handler name cannot be empty")
	}
	if len(name) > 64 {
		return Name{}, fmt.Errorf("handler name too long (max 64 chars)")
	}
	if strings.ContainsAny(name, `/\`) {
		return Name{}, fmt.Errorf("handler name cannot contain path separators")
	}
	if strings.Contains(name, "..") {
		return Name{}, fmt.Errorf("handler name cannot contain parent directory references")
	}
	for _, ch := range name {
		if !isNameChar(ch) {
			return Name{}, fmt.Errorf("invalid handler name %q: only alphanumerics, underscores, and hyphens allowed", name)
		}
	}
	return Name{value: name}, nil
}

func isNameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '_' ||
		r == '-'
}

// MustNewName creates a Name or panics. For tests and compiled-in tables.
func MustNewName(name string) Name {
	n, err := NewName(name)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the name as given.
func (n Name) String() string {
	return n.value
}

// Key returns the canonical lowercase form used for memo sets, state-store
// keys, and registry queries.
func (n Name) Key() string {
	return strings.ToLower(n.value)
}

// IsEmpty reports whether this is the zero value.
func (n Name) IsEmpty() bool {
	return n.value == ""
}

// Equals compares names case-insensitively.
func (n Name) Equals(other Name) bool {
	return n.Key() == other.Key()
}
