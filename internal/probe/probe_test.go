package probe

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestFixed(t *testing.T) {
	ctx := context.Background()
	if err := Fixed(true, "ignored").Check(ctx); err != nil {
		t.Fatalf("Fixed(true) = %v", err)
	}
	if err := Fixed(false, "db offline").Check(ctx); err == nil || err.Error() != "db offline" {
		t.Fatalf("Fixed(false, reason) = %v", err)
	}
	if err := Fixed(false, "").Check(ctx); err == nil || err.Error() != "unhealthy" {
		t.Fatalf("Fixed(false, \"\") = %v", err)
	}
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	if err := All().Check(ctx); err != nil {
		t.Fatalf("All() = %v", err)
	}
	if err := All(nil, Fixed(true, ""), nil).Check(ctx); err != nil {
		t.Fatalf("nil probes should be skipped, got %v", err)
	}
	err := All(Fixed(true, ""), Fixed(false, "second"), Fixed(false, "third")).Check(ctx)
	if err == nil || err.Error() != "second" {
		t.Fatalf("All should return the first failure, got %v", err)
	}
}

func TestAll_ShortCircuits(t *testing.T) {
	called := false
	p := All(Fixed(false, "stop"), Func(func(context.Context) error {
		called = true
		return nil
	}))
	_ = p.Check(context.Background())
	if called {
		t.Fatal("All should stop at the first failure")
	}
}

func TestShutdownGate(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()
	ctx := context.Background()

	if err := p.Check(ctx); err != nil {
		t.Fatalf("new gate should be open, got %v", err)
	}
	g.Set("")
	if err := p.Check(ctx); err == nil || err.Error() != "draining" {
		t.Fatalf("closed gate = %v, want draining", err)
	}
	g.Set("shutting down")
	if err := p.Check(ctx); err == nil || err.Error() != "shutting down" {
		t.Fatalf("closed gate = %v", err)
	}
	g.Clear()
	if err := p.Check(ctx); err != nil {
		t.Fatalf("cleared gate = %v", err)
	}
}

func TestShutdownGate_Concurrent(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); g.Set("draining") }()
		go func() { defer wg.Done(); g.Clear() }()
		go func() { defer wg.Done(); _ = p.Check(context.Background()) }()
	}
	wg.Wait()
}

func TestAll_WithGate(t *testing.T) {
	var g ShutdownGate
	ready := true
	p := All(g.Probe(), Func(func(context.Context) error {
		if !ready {
			return errors.New("cache: disabled")
		}
		return nil
	}))
	ctx := context.Background()

	if err := p.Check(ctx); err != nil {
		t.Fatalf("open gate + ready = %v", err)
	}
	ready = false
	if err := p.Check(ctx); err == nil || err.Error() != "cache: disabled" {
		t.Fatalf("open gate + not ready = %v", err)
	}
	g.Set("draining")
	if err := p.Check(ctx); err == nil || err.Error() != "draining" {
		t.Fatalf("gate should fail first, got %v", err)
	}
}
