package values

import "testing"

func TestNewName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "slashdot", false},
		{"mixed case", "FreshMeat", false},
		{"hyphen and underscore", "top-stories_v2", false},
		{"trims whitespace", "  cnn  ", false},
		{"empty", "", true},
		{"only whitespace", "   ", true},
		{"path separator", "a/b", true},
		{"backslash", `a\b`, true},
		{"parent reference", "..evil", true},
		{"dot", "a.b", true},
		{"too long", string(make([]byte, 70)), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewName(tc.input)
			if (err != nil) != tc.wantErr {
				t.Errorf("NewName(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
		})
	}
}

func TestNameCaseInsensitive(t *testing.T) {
	a := MustNewName("SlashDot")
	b := MustNewName("slashdot")

	if !a.Equals(b) {
		t.Error("names differing only in case must be equal")
	}
	if a.Key() != "slashdot" {
		t.Errorf("Key() = %q, want lowercase form", a.Key())
	}
	if a.String() != "SlashDot" {
		t.Errorf("String() = %q, want original form preserved", a.String())
	}
}

func TestNameIsEmpty(t *testing.T) {
	var zero Name
	if !zero.IsEmpty() {
		t.Error("zero value must be empty")
	}
	if MustNewName("x").IsEmpty() {
		t.Error("valid name must not be empty")
	}
}
