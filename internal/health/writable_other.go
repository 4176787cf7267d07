//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || solaris)

package health

import "os"

// dirWritable probes by creating and removing a temp file.
func dirWritable(dir string) bool {
	if dir == "" {
		return false
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
