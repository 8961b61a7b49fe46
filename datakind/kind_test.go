package datakind

import "testing"

func TestParseKind(t *testing.T) {
	for _, name := range []string{"text", "html", "link", "image", "table", "thread", "array"} {
		k, err := ParseKind(name)
		if err != nil {
			t.Fatalf("ParseKind(%q) failed: %v", name, err)
		}
		if k.String() != name {
			t.Errorf("round trip: %q -> %v", name, k)
		}
	}

	if _, err := ParseKind("blob"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := ParseKind("invalid"); err == nil {
		t.Error("the invalid sentinel must not parse")
	}
}

func TestCanFlow(t *testing.T) {
	tests := []struct {
		from, to Kind
		want     bool
	}{
		{Text, Text, true},
		{Text, HTML, true},
		{HTML, Text, false},
		{Link, Text, true},
		{Link, HTML, true},
		{Image, HTML, true},
		{Image, Text, false},
		{Table, HTML, true},
		{Thread, HTML, true},
		{Array, Array, true},
		{Invalid, Invalid, false},
		{Invalid, Text, false},
	}
	for _, tc := range tests {
		if got := CanFlow(tc.from, tc.to); got != tc.want {
			t.Errorf("CanFlow(%v, %v) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestValueFlowsTo(t *testing.T) {
	links := NewArray(Link, []*Value{NewLink("a", "http://a"), NewLink("b", "http://b")})

	if !links.FlowsTo(Array, Link) {
		t.Error("array of links must flow to array of links")
	}
	if !links.FlowsTo(Array, Text) {
		t.Error("array of links must flow to array of text")
	}
	if links.FlowsTo(Array, Image) {
		t.Error("array of links must not flow to array of images")
	}
	if !NewText("x").FlowsTo(HTML, Invalid) {
		t.Error("text must flow to html")
	}
	if (*Value)(nil).FlowsTo(Text, Invalid) {
		t.Error("nil value flows nowhere")
	}
}
