package values

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// UpdateKind classifies how a remote version differs from the local one.
type UpdateKind int

const (
	// UpdateFunctional means the functional (major) component changed.
	UpdateFunctional UpdateKind = iota
	// UpdateBugfix means only the bugfix (minor/patch) component changed.
	UpdateBugfix
)

func (k UpdateKind) String() string {
	if k == UpdateBugfix {
		return "bugfix"
	}
	return "functional"
}

// ParseUpdateKind maps the registry wire token to an UpdateKind.
func ParseUpdateKind(s string) (UpdateKind, error) {
	switch s {
	case "functional":
		return UpdateFunctional, nil
	case "bugfix":
		return UpdateBugfix, nil
	default:
		return UpdateFunctional, fmt.Errorf("unknown update kind %q", s)
	}
}

// Version is a handler or protocol version. The major component is the
// functional part; minor and patch together form the bugfix part.
type Version struct {
	v *semver.Version
}

// ParseVersion parses a version string such as "1.5" or "2.0.3".
func ParseVersion(s string) (Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return Version{v: v}, nil
}

// MustParseVersion parses a version or panics. For tests and constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether this is the zero value (no version known).
func (v Version) IsZero() bool {
	return v.v == nil
}

// String returns the version as originally written, or "" for the zero value.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.Original()
}

// Functional returns the functional (major) component.
func (v Version) Functional() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Major()
}

// GreaterThan reports whether v is newer than other. Any version is newer
// than the zero value.
func (v Version) GreaterThan(other Version) bool {
	if v.v == nil {
		return false
	}
	if other.v == nil {
		return true
	}
	return v.v.GreaterThan(other.v)
}

// Equal reports version equality; two zero values are equal.
func (v Version) Equal(other Version) bool {
	if v.v == nil || other.v == nil {
		return v.v == nil && other.v == nil
	}
	return v.v.Equal(other.v)
}

// KindFrom classifies the update from local to v: bugfix when the functional
// component is unchanged, functional otherwise. An unknown local version
// makes any update functional.
func (v Version) KindFrom(local Version) UpdateKind {
	if local.v == nil || v.v == nil {
		return UpdateFunctional
	}
	if v.v.Major() == local.v.Major() {
		return UpdateBugfix
	}
	return UpdateFunctional
}
