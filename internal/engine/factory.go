package engine

import (
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"subtitld/pkg/types"
)

// Builder knows how to construct one engine kind and whether its runtime
// dependencies are present.
type Builder struct {
	New       func() (Engine, error)
	Available func() bool
}

// Factory creates unloaded engine instances by name.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
	log      zerolog.Logger
}

// FactoryConfig selects which adapters to register.
type FactoryConfig struct {
	// WhisperBin is the whisper.cpp CLI binary (name or path).
	WhisperBin string
	// ServerURL is the base URL of a running whisper server; empty
	// leaves the whisper-server engine unregistered.
	ServerURL string
	// Models is the on-disk model registry used by local engines.
	Models []types.Model
	// Threads default for local inference.
	Threads int
	Log     zerolog.Logger
}

// NewFactory registers the built-in adapters.
func NewFactory(cfg FactoryConfig) *Factory {
	f := &Factory{builders: make(map[string]Builder), log: cfg.Log}
	cpp := &whisperCppConfig{bin: cfg.WhisperBin, models: cfg.Models, threads: cfg.Threads, log: cfg.Log}
	f.Register(EngineWhisperCpp, Builder{
		New:       func() (Engine, error) { return newWhisperCpp(cpp), nil },
		Available: cpp.available,
	})
	if cfg.ServerURL != "" {
		url := cfg.ServerURL
		f.Register(EngineWhisperServer, Builder{
			New:       func() (Engine, error) { return newWhisperServer(url, cfg.Log), nil },
			Available: func() bool { return true },
		})
	}
	return f
}

// Register adds or replaces a builder. Names are matched case-insensitively.
func (f *Factory) Register(name string, b Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[strings.ToLower(name)] = b
}

// Create returns a new unloaded engine instance.
func (f *Factory) Create(name string) (Engine, error) {
	key := strings.ToLower(name)
	f.mu.RLock()
	b, ok := f.builders[key]
	f.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownEngine(name, f.Names())
	}
	if b.Available != nil && !b.Available() {
		return nil, ErrUnavailable(name, "required dependencies are not installed")
	}
	f.log.Debug().Str("engine", key).Msg("creating engine")
	return b.New()
}

// Names lists all registered engine names, sorted.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.builders))
	for name := range f.builders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AvailableNames lists engines whose dependencies are currently present.
func (f *Factory) AvailableNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.builders))
	for name, b := range f.builders {
		if b.Available == nil || b.Available() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
