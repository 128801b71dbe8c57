package manager

import (
	"container/list"

	"github.com/rs/zerolog"

	"subtitld/internal/engine"
	"subtitld/internal/gpu"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxModels        = 3
	defaultVRAMLimitPercent = 80.0
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Factory produces unloaded engine instances.
	Factory *engine.Factory
	// Monitor feeds the pressure-eviction policy. Nil disables monitoring.
	Monitor gpu.Monitor
	// MaxModels bounds the number of resident loaded engines.
	MaxModels int
	// VRAMLimitPercent triggers pressure eviction at or above this
	// device utilization. Ignored when monitoring is unavailable.
	VRAMLimitPercent float64
	Log              zerolog.Logger
}

// New constructs a Manager, applying package defaults for unset fields.
func New(cfg Config) *Manager {
	m := &Manager{
		factory:      cfg.Factory,
		monitor:      cfg.Monitor,
		maxModels:    cfg.MaxModels,
		vramLimitPct: cfg.VRAMLimitPercent,
		log:          cfg.Log,
		entries:      make(map[cacheKey]*entry),
		lru:          list.New(),
	}
	if m.monitor == nil {
		m.monitor = gpu.Disabled{}
	}
	if m.maxModels <= 0 {
		m.maxModels = defaultMaxModels
	}
	if m.vramLimitPct <= 0 {
		m.vramLimitPct = defaultVRAMLimitPercent
	}
	m.log.Info().
		Int("max_models", m.maxModels).
		Float64("vram_limit_percent", m.vramLimitPct).
		Bool("gpu_monitoring", m.monitor.Available()).
		Msg("model cache initialized")
	return m
}
