// Package pathutil validates request-derived paths before they reach an fs.FS.
package pathutil

import (
	"io/fs"
	"path"
	"strings"
)

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// ValidAssetName reports whether name can be opened from an asset fs.FS as
// is: relative, already clean, no dot segments, no backslashes or NULs.
func ValidAssetName(name string) bool {
	if name == "" || strings.ContainsAny(name, "\x00\\") {
		return false
	}
	if HasDotSegments(name) || path.Clean(name) != name {
		return false
	}
	return fs.ValidPath(name)
}
