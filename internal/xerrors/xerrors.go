// Package xerrors attaches call-site information to errors so the logger can
// render where a failure was created or wrapped.
//
// New/Newf/WithStack/EnsureTrace capture a full stack; Wrap/Wrapf record only
// the single caller PC. Both forms unwrap normally for errors.Is/As.
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

const maxDepth = 64

type withStack struct {
	err error
	pcs []uintptr
}

func (w *withStack) Error() string       { return w.err.Error() }
func (w *withStack) Unwrap() error       { return w.err }
func (w *withStack) StackPCs() []uintptr { return w.pcs }
func (w *withStack) IsXerrorsWrapper()   {}

type wrap struct {
	err error
	msg string
	pc  uintptr
}

func (w *wrap) Error() string     { return w.msg + ": " + w.err.Error() }
func (w *wrap) Unwrap() error     { return w.err }
func (w *wrap) PC() uintptr       { return w.pc }
func (w *wrap) IsXerrorsWrapper() {}

// skip counts frames above the exported entry point.
func stacked(err error, skip int) error {
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, pcs)
	return &withStack{err: err, pcs: pcs[:n]}
}

func caller(skip int) uintptr {
	var pcs [1]uintptr
	if runtime.Callers(skip+2, pcs[:]) == 0 {
		return 0
	}
	return pcs[0]
}

func New(msg string) error { return stacked(errors.New(msg), 1) }

func Newf(format string, args ...any) error { return stacked(fmt.Errorf(format, args...), 1) }

func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return stacked(err, 1)
}

// EnsureTrace adds a stack only when nothing in the chain carries one yet.
func EnsureTrace(err error) error {
	if err == nil {
		return nil
	}
	var hs interface{ StackPCs() []uintptr }
	if errors.As(err, &hs) && len(hs.StackPCs()) > 0 {
		return err
	}
	return stacked(err, 1)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrap{err: err, msg: msg, pc: caller(1)}
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrap{err: err, msg: fmt.Sprintf(format, args...), pc: caller(1)}
}
