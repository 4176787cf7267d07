package xerrors

import (
	"errors"
	"io/fs"
	"runtime"
	"strings"
	"testing"
)

func stackContains(pcs []uintptr, substr string) bool {
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if strings.Contains(fr.Function, substr) {
			return true
		}
		if !more {
			return false
		}
	}
}

func TestNew_MessageAndStack(t *testing.T) {
	err := New("something broke")
	if err.Error() != "something broke" {
		t.Fatalf("Error() = %q", err.Error())
	}

	var hs interface{ StackPCs() []uintptr }
	if !errors.As(err, &hs) {
		t.Fatal("New error should carry StackPCs")
	}
	if !stackContains(hs.StackPCs(), "TestNew_MessageAndStack") {
		t.Fatal("stack should start at the caller")
	}
}

func TestNewf_Formats(t *testing.T) {
	err := Newf("port %d in use", 8080)
	if err.Error() != "port 8080 in use" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestWrap_PreservesChain(t *testing.T) {
	err := Wrap(fs.ErrPermission, "open contact log")
	if err.Error() != "open contact log: permission denied" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatal("errors.Is should see the wrapped sentinel")
	}

	var hp interface{ PC() uintptr }
	if !errors.As(err, &hp) || hp.PC() == 0 {
		t.Fatal("Wrap should record the caller PC")
	}
}

func TestWrapf_Nil(t *testing.T) {
	if Wrapf(nil, "x %d", 1) != nil {
		t.Fatal("Wrapf(nil) should be nil")
	}
	if Wrap(nil, "x") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	if WithStack(nil) != nil {
		t.Fatal("WithStack(nil) should be nil")
	}
	if EnsureTrace(nil) != nil {
		t.Fatal("EnsureTrace(nil) should be nil")
	}
}

func TestEnsureTrace_DoesNotDoubleWrap(t *testing.T) {
	orig := New("boom")
	if got := EnsureTrace(orig); got != orig {
		t.Fatal("EnsureTrace should return an already-stacked error unchanged")
	}

	plain := errors.New("plain")
	got := EnsureTrace(plain)
	if got == plain {
		t.Fatal("EnsureTrace should add a stack to a plain error")
	}
	if !errors.Is(got, plain) {
		t.Fatal("stacked error should unwrap to the original")
	}
}
