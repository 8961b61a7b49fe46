// Package datakind defines the closed set of data kinds flowing between
// handler pipeline stages, and the compatibility table consulted at pipeline
// boundaries. The set is deliberately a tagged union, not an open hierarchy:
// a stage either produces one of these kinds or it does not load.
package datakind

import "fmt"

// Kind identifies one member of the closed data-kind union.
type Kind uint8

const (
	Invalid Kind = iota
	Text         // plain text
	HTML         // an HTML fragment
	Link         // text plus a target URL
	Image        // an image URL with alt text
	Table        // rows of cells
	Thread       // a nested discussion tree
	Array        // a homogeneous sequence of another kind
)

var kindNames = map[Kind]string{
	Invalid: "invalid",
	Text:    "text",
	HTML:    "html",
	Link:    "link",
	Image:   "image",
	Table:   "table",
	Thread:  "thread",
	Array:   "array",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a kind name to its Kind. Unknown names yield Invalid.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name && k != Invalid {
			return k, nil
		}
	}
	return Invalid, fmt.Errorf("unknown data kind %q", name)
}

// flowTable lists the non-identity conversions a pipeline boundary accepts.
// Everything renders to HTML; a Link degrades to its text.
var flowTable = map[Kind][]Kind{
	Text:   {HTML},
	Link:   {Text, HTML},
	Image:  {HTML},
	Table:  {HTML},
	Thread: {HTML},
}

// CanFlow reports whether a value of kind from may be supplied where kind to
// is expected. Array compatibility is element-wise; use Value.FlowsTo for
// values carrying an element kind.
func CanFlow(from, to Kind) bool {
	if from == to {
		return from != Invalid
	}
	for _, ok := range flowTable[from] {
		if ok == to {
			return true
		}
	}
	return false
}
