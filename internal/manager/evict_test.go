package manager

import (
	"context"
	"sync/atomic"
	"testing"

	"subtitld/internal/engine"
	"subtitld/internal/gpu"
)

func TestPressureEvictionBeforeLoad(t *testing.T) {
	var loads atomic.Int32
	mon := &fakeMonitor{available: true, fallback: memAt(50)}
	m := newTestManager(t, Config{
		Factory:          newTestFactory(&loads, nil, nil, nil),
		Monitor:          mon,
		MaxModels:        5,
		VRAMLimitPercent: 80,
	})
	ctx := context.Background()

	// Two residents loaded while pressure is low.
	m.Acquire(ctx, "fake", "a", engine.LoadConfig{})
	m.Acquire(ctx, "fake", "b", engine.LoadConfig{})

	// Next miss sees 90% twice, then 70% after two evictions.
	mon.mu.Lock()
	mon.queue = []gpu.MemInfo{memAt(90), memAt(90), memAt(70)}
	mon.fallback = memAt(70)
	mon.mu.Unlock()

	if _, err := m.Acquire(ctx, "fake", "c", engine.LoadConfig{}); err != nil {
		t.Fatalf("acquire under pressure: %v", err)
	}
	s := m.Stats()
	if s.Evictions != 2 {
		t.Fatalf("expected 2 pressure evictions, got %d", s.Evictions)
	}
	if s.Count != 1 || s.Keys[0] != "fake/c" {
		t.Fatalf("expected only the new entry resident: %+v", s)
	}
	if mon.flushCount() != 2 {
		t.Fatalf("expected flush per eviction, got %d", mon.flushCount())
	}
}

func TestPressureEvictsDownToEmpty(t *testing.T) {
	var loads atomic.Int32
	mon := &fakeMonitor{available: true, fallback: memAt(50)}
	m := newTestManager(t, Config{
		Factory:          newTestFactory(&loads, nil, nil, nil),
		Monitor:          mon,
		MaxModels:        5,
		VRAMLimitPercent: 80,
	})
	ctx := context.Background()
	m.Acquire(ctx, "fake", "a", engine.LoadConfig{})
	m.Acquire(ctx, "fake", "b", engine.LoadConfig{})

	// Pressure never subsides: evict everything, then load anyway.
	mon.mu.Lock()
	mon.queue = nil
	mon.fallback = memAt(95)
	mon.mu.Unlock()

	if _, err := m.Acquire(ctx, "fake", "c", engine.LoadConfig{}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	s := m.Stats()
	if s.Evictions != 2 {
		t.Fatalf("expected both residents evicted, got %d evictions", s.Evictions)
	}
	if s.Count != 1 {
		t.Fatalf("load must proceed after emptying the cache: %+v", s)
	}
}

func TestUnavailableMonitorSkipsPressure(t *testing.T) {
	var loads atomic.Int32
	mon := &fakeMonitor{available: false, fallback: memAt(99)}
	m := newTestManager(t, Config{
		Factory:   newTestFactory(&loads, nil, nil, nil),
		Monitor:   mon,
		MaxModels: 2,
	})
	ctx := context.Background()
	for _, size := range []string{"a", "b", "c"} {
		if _, err := m.Acquire(ctx, "fake", size, engine.LoadConfig{}); err != nil {
			t.Fatalf("acquire %s: %v", size, err)
		}
	}
	s := m.Stats()
	// Only the count-based overflow eviction may fire.
	if s.Evictions != 1 || s.Count != 2 {
		t.Fatalf("expected count-based eviction only: %+v", s)
	}
	if mon.flushCount() != 0 {
		t.Fatalf("no flush without monitoring, got %d", mon.flushCount())
	}
}

func TestMonitorErrorIsInconclusive(t *testing.T) {
	var loads atomic.Int32
	mon := &fakeMonitor{available: true, usageErr: gpu.ErrUnavailable}
	m := newTestManager(t, Config{
		Factory: newTestFactory(&loads, nil, nil, nil),
		Monitor: mon,
	})
	if _, err := m.Acquire(context.Background(), "fake", "a", engine.LoadConfig{}); err != nil {
		t.Fatalf("load must proceed when the pressure check errors: %v", err)
	}
	if s := m.Stats(); s.Count != 1 || s.Evictions != 0 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}
