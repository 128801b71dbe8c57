package manager

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"subtitld/internal/engine"
	"subtitld/internal/gpu"
	"subtitld/pkg/types"
)

// fakeMonitor serves queued usage readings, repeating the default once the
// queue drains.
type fakeMonitor struct {
	mu        sync.Mutex
	available bool
	queue     []gpu.MemInfo
	fallback  gpu.MemInfo
	usageErr  error
	flushes   int
}

func memAt(percent float64) gpu.MemInfo {
	total := 10000.0
	used := total * percent / 100
	return gpu.MemInfo{TotalMB: total, UsedMB: used, FreeMB: total - used, UsagePercent: percent}
}

func (f *fakeMonitor) Available() bool { return f.available }

func (f *fakeMonitor) Usage() (gpu.MemInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usageErr != nil {
		return gpu.MemInfo{}, f.usageErr
	}
	if len(f.queue) > 0 {
		next := f.queue[0]
		f.queue = f.queue[1:]
		return next, nil
	}
	return f.fallback, nil
}

func (f *fakeMonitor) Flush() {
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
}

func (f *fakeMonitor) DeviceName() string { return "fake-gpu" }

func (f *fakeMonitor) flushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

// blockingEngine lets tests hold a load in flight.
type blockingEngine struct {
	loads   *atomic.Int32
	started chan struct{} // receives one token per Load entry
	release chan struct{} // Load returns once this closes (nil = immediate)
	loadErr error
}

func (e *blockingEngine) Load(ctx context.Context, modelSize string, _ engine.LoadConfig) error {
	e.loads.Add(1)
	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.release != nil {
		select {
		case <-e.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return e.loadErr
}

func (e *blockingEngine) Transcribe(context.Context, string, engine.TranscribeConfig) (types.TranscriptionResult, error) {
	return types.TranscriptionResult{Text: "fake"}, nil
}

func (e *blockingEngine) Info() types.EngineInfo { return types.EngineInfo{Name: "fake"} }

// newTestFactory registers a "fake" engine whose instances share counters.
func newTestFactory(loads *atomic.Int32, loadErr error, started, release chan struct{}) *engine.Factory {
	f := engine.NewFactory(engine.FactoryConfig{Log: zerolog.Nop()})
	f.Register("fake", engine.Builder{
		New: func() (engine.Engine, error) {
			return &blockingEngine{loads: loads, started: started, release: release, loadErr: loadErr}, nil
		},
		Available: func() bool { return true },
	})
	return f
}
