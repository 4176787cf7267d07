package log

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating on-disk copy of the app log.
type FileOptions struct {
	Dir        string
	Name       string // default: app.log
	MaxSizeMB  int    // default: 50
	MaxBackups int    // default: 5
	MaxAgeDays int    // default: 14
	Compress   bool
}

func (o *FileOptions) path() string {
	name := o.Name
	if name == "" {
		name = "app.log"
	}
	return filepath.Join(o.Dir, name)
}

// newFileWriter returns a lumberjack logger rooted in o.Dir. The directory is
// created if missing so a fresh container can start with an empty volume.
func newFileWriter(o *FileOptions) (io.WriteCloser, error) {
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, err
	}
	lj := &lumberjack.Logger{
		Filename:   o.path(),
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
		Compress:   o.Compress,
	}
	if lj.MaxSize <= 0 {
		lj.MaxSize = 50
	}
	if lj.MaxBackups <= 0 {
		lj.MaxBackups = 5
	}
	if lj.MaxAge <= 0 {
		lj.MaxAge = 14
	}
	return lj, nil
}
