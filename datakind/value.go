package datakind

// LinkPayload is the payload of a Link value.
type LinkPayload struct {
	Text string
	URL  string
}

// ImagePayload is the payload of an Image value.
type ImagePayload struct {
	URL string
	Alt string
}

// Value is one tagged-union member. Exactly the fields for its Kind are set;
// Items carries Array and Thread children and Table rows (each row an Array
// of cells).
type Value struct {
	Text  string
	Link  *LinkPayload
	Image *ImagePayload
	Items []*Value
	Kind  Kind
	Elem  Kind // element kind, Array only
}

// NewText builds a plain-text value.
func NewText(s string) *Value {
	return &Value{Kind: Text, Text: s}
}

// NewHTML builds an HTML fragment value.
func NewHTML(s string) *Value {
	return &Value{Kind: HTML, Text: s}
}

// NewLink builds a link value.
func NewLink(text, url string) *Value {
	return &Value{Kind: Link, Link: &LinkPayload{Text: text, URL: url}}
}

// NewImage builds an image value.
func NewImage(url, alt string) *Value {
	return &Value{Kind: Image, Image: &ImagePayload{URL: url, Alt: alt}}
}

// NewArray builds a homogeneous sequence of elem-kind values.
func NewArray(elem Kind, items []*Value) *Value {
	return &Value{Kind: Array, Elem: elem, Items: items}
}

// NewThread builds a discussion-tree node over children.
func NewThread(items []*Value) *Value {
	return &Value{Kind: Thread, Items: items}
}

// FlowsTo reports whether this value may be supplied where kind to (with
// element kind toElem for arrays) is expected.
func (v *Value) FlowsTo(to, toElem Kind) bool {
	if v == nil {
		return false
	}
	if v.Kind == Array && to == Array {
		return v.Elem == toElem || CanFlow(v.Elem, toElem)
	}
	return CanFlow(v.Kind, to)
}
