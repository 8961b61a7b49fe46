// Package entities holds the aggregate types of the handler domain: the
// installed-handler descriptor, handler kinds, and the typed failures the
// lifecycle manager surfaces.
package entities

import "fmt"

// Kind is a handler's capability class.
type Kind int

const (
	KindAcquisition Kind = iota
	KindFilter
	KindOutput
)

// SearchOrder is the fixed order in which kind directories are searched when
// loading a handler by name. First match wins.
var SearchOrder = []Kind{KindAcquisition, KindFilter, KindOutput}

// DirName returns the subdirectory holding handlers of this kind under each
// search root.
func (k Kind) DirName() string {
	switch k {
	case KindAcquisition:
		return "Acquisition"
	case KindFilter:
		return "Filter"
	case KindOutput:
		return "Output"
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case KindAcquisition:
		return "acquisition"
	case KindFilter:
		return "filter"
	case KindOutput:
		return "output"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a manifest or wire token to a Kind, accepting both the
// lowercase token and the directory spelling.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "acquisition", "Acquisition":
		return KindAcquisition, nil
	case "filter", "Filter":
		return KindFilter, nil
	case "output", "Output":
		return KindOutput, nil
	default:
		return 0, fmt.Errorf("unknown handler kind %q", s)
	}
}
