package group

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a/b/c", "a/b/c"},
		{"a/./b", "a/b"},
		{"a/../b", "b"},
		{"../a", "a"},
		{"../../a/b", "a/b"},
		{"a/b/..", "a"},
		{"./x", "x"},
		{"x/./y/../a", "x/a"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct{ base, rel, want string }{
		{"b", "b/.././a", "a"},
		{"tmpl/a", "/script/a", "script/a"},
		{"tmpl/a", "../script/b", "script/b"},
		{"x/tmpl", "../y", "y"},
		{"x/tmpl", "./z", "x/z"},
		{"a", "/b", "b"},
		{"deep/path/file", "sib", "deep/path/sib"},
		{"deep/path/file", "../../up", "up"},
		{"a", "../../../b", "b"},
	}
	for _, tt := range tests {
		if got := Resolve(tt.base, tt.rel); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.rel, got, tt.want)
		}
	}
}
