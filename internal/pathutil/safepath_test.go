package pathutil

import (
	"io/fs"
	"strings"
	"testing"
)

func TestHasDotSegments(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/normal/path", false},
		{"/path/./here", true},
		{"/path/../up", true},
		{".", true},
		{"..", true},
		{"/...", false},     // three dots is not a dot segment
		{"/.hidden", false}, // dotfile, not a dot segment
		{"/path/to/.", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := HasDotSegments(tt.path); got != tt.want {
				t.Errorf("HasDotSegments(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestValidAssetName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"style.css", true},
		{"img/logo.png", true},
		{".well-known/security.txt", true},
		{"", false},
		{"/style.css", false},
		{"../etc/passwd", false},
		{"a/./b.css", false},
		{"a//b.css", false},
		{"dir/", false},
		{`a\b.css`, false},
		{"nul\x00byte.css", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidAssetName(tt.name); got != tt.want {
				t.Errorf("ValidAssetName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func FuzzValidAssetName(f *testing.F) {
	for _, seed := range []string{"style.css", "../x", "a/./b", "a//b", ".", "...", `a\b`} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, name string) {
		if !ValidAssetName(name) {
			return
		}
		// anything accepted must be openable as-is and never climb out
		if !fs.ValidPath(name) || HasDotSegments(name) || strings.HasPrefix(name, "/") {
			t.Errorf("ValidAssetName accepted %q", name)
		}
	})
}
