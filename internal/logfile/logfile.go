// Package logfile appends whole lines to plain-text log files shared with
// other processes. Each Append opens the file with O_APPEND, takes an
// exclusive advisory lock for the duration of the write, and closes it, so
// external rotation (logrotate copytruncate or move) needs no signal.
package logfile

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	"github.com/keithlinneman/devopsplatform-web/internal/xerrors"
)

const (
	fileMode = 0o644
	dirMode  = 0o755
)

// Appender writes lines to a single file. Safe for concurrent use within
// the process; the OS lock covers other processes.
type Appender struct {
	path string
	mu   sync.Mutex
}

// New returns an appender for name inside dir. The directory is created
// lazily on the first append.
func New(dir, name string) *Appender {
	return &Appender{path: filepath.Join(dir, name)}
}

func (a *Appender) Path() string { return a.path }

// Append writes line followed by a newline if it lacks one.
func (a *Appender) Append(line []byte) error {
	if !bytes.HasSuffix(line, []byte("\n")) {
		buf := make([]byte, 0, len(line)+1)
		buf = append(buf, line...)
		line = append(buf, '\n')
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), dirMode); err != nil {
		return xerrors.Wrapf(err, "create log dir for %s", a.path)
	}
	f, err := os.OpenFile(a.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, fileMode)
	if err != nil {
		return xerrors.Wrapf(err, "open %s", a.path)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return xerrors.Wrapf(err, "lock %s", a.path)
	}
	defer func() { _ = unlockFile(f) }()

	if _, err := f.Write(line); err != nil {
		return xerrors.Wrapf(err, "append to %s", a.path)
	}
	return nil
}

// AppendString is Append for string lines.
func (a *Appender) AppendString(line string) error {
	return a.Append([]byte(line))
}
