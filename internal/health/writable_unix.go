//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly || solaris

package health

import (
	"os"

	"golang.org/x/sys/unix"
)

// dirWritable asks the kernel via faccessat(2) with AT_EACCESS whether the
// effective user may write to dir. A regular file at that path does not count.
func dirWritable(dir string) bool {
	if dir == "" {
		return false
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return false
	}
	return unix.Faccessat(unix.AT_FDCWD, dir, unix.W_OK, unix.AT_EACCESS) == nil
}
