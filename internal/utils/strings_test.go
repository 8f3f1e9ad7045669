package utils

import "testing"

func TestJoinHumanReadableProse(t *testing.T) {
	tests := []struct {
		name string
		list []string
		want string
	}{
		{"empty", nil, ""},
		{"one", []string{"x1"}, "x1"},
		{"two", []string{"p_lo", "p_hi"}, "p_lo and p_hi"},
		{"three", []string{"v_a", "v_b", "v_c"}, "v_a, v_b, and v_c"},
		{"four", []string{"a", "b", "c", "d"}, "a, b, c, and d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinHumanReadableProse(tt.list); got != tt.want {
				t.Errorf("JoinHumanReadableProse(%v) = %q, want %q", tt.list, got, tt.want)
			}
		})
	}
}

func TestJoinHumanReadable(t *testing.T) {
	if got := JoinHumanReadable([]string{"a", "b", "c"}, ", ", ""); got != "a, b, c" {
		t.Errorf("got %q, want %q", got, "a, b, c")
	}
	if got := JoinHumanReadable([]string{"a", "b", "c"}, ", ", " or "); got != "a, b or c" {
		t.Errorf("got %q, want %q", got, "a, b or c")
	}
	if got := JoinHumanReadable([]string{"a"}, ", ", " or "); got != "a" {
		t.Errorf("got %q, want %q", got, "a")
	}
}

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"vloc_x_12", true},
		{"_tmp", true},
		{"expr_7_component_1", true},
		{"", false},
		{"1abc", false},
		{"a-b", false},
		{"a b", false},
		{"ünicode", false},
	}
	for _, tt := range tests {
		if got := IsIdentifier(tt.in); got != tt.want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if !IsIdentifierPart("1") {
		t.Errorf("IsIdentifierPart(\"1\") = false, want true")
	}
}

func TestPathHelpers(t *testing.T) {
	if got := ResolveIncludePath("layouts", "common.yaml"); got != "layouts/common.yaml" {
		t.Errorf("ResolveIncludePath = %s, want layouts/common.yaml", got)
	}
	if got := ResolveIncludePath(".", "common.yaml"); got != "common.yaml" {
		t.Errorf("ResolveIncludePath = %s, want common.yaml", got)
	}
	if got := ResolveIncludePath("layouts", "/abs/common.yaml"); got != "/abs/common.yaml" {
		t.Errorf("ResolveIncludePath = %s, want /abs/common.yaml", got)
	}
	if got := ExtractDocumentName("dir/slots.yaml"); got != "slots" {
		t.Errorf("ExtractDocumentName = %s, want slots", got)
	}
	if got := ExtractDocumentName("dir/slots.yml"); got != "slots" {
		t.Errorf("ExtractDocumentName = %s, want slots", got)
	}
}
