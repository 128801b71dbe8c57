package manager

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"subtitld/internal/engine"
	"subtitld/internal/gpu"
)

// cacheKey identifies one loaded engine instance.
type cacheKey struct {
	Engine    string
	ModelSize string
}

func (k cacheKey) String() string { return k.Engine + "/" + k.ModelSize }

// entry is one cache slot. While a load is in flight the entry sits in the
// map with a nil elem; it joins the LRU list only once ready. readyCh is
// closed when the load finishes, err is set when it failed.
type entry struct {
	key       cacheKey
	eng       engine.Engine
	loadedAt  time.Time
	vramMB    float64
	vramKnown bool
	elem      *list.Element
	readyCh   chan struct{}
	err       error
}

// Manager is the resource-aware model cache. All state is guarded by mu;
// engine loads happen outside the lock so unrelated keys do not serialize.
type Manager struct {
	factory      *engine.Factory
	monitor      gpu.Monitor
	maxModels    int
	vramLimitPct float64
	log          zerolog.Logger

	mu      sync.Mutex
	entries map[cacheKey]*entry
	lru     *list.List // front = most recently used; ready entries only

	hits      uint64
	misses    uint64
	loads     uint64
	evictions uint64
}

// Stats is a read-only cache snapshot.
type Stats struct {
	Count       int
	Keys        []string // least to most recently used
	TotalVRAMMB float64
	Hits        uint64
	Misses      uint64
	Loads       uint64
	Evictions   uint64
}

// Stats returns a snapshot without mutating recency or counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		Count:     m.lru.Len(),
		Keys:      make([]string, 0, m.lru.Len()),
		Hits:      m.hits,
		Misses:    m.misses,
		Loads:     m.loads,
		Evictions: m.evictions,
	}
	for el := m.lru.Back(); el != nil; el = el.Prev() {
		e := el.Value.(*entry)
		s.Keys = append(s.Keys, e.key.String())
		if e.vramKnown {
			s.TotalVRAMMB += e.vramMB
		}
	}
	return s
}

// Clear evicts every entry unconditionally, then flushes the device cache
// when monitoring is active. In-flight loads detect the clear on completion
// and hand their engine to waiting callers without re-inserting it.
func (m *Manager) Clear() {
	m.mu.Lock()
	removed := len(m.entries)
	m.entries = make(map[cacheKey]*entry)
	m.lru = list.New()
	m.mu.Unlock()
	if m.monitor.Available() {
		m.monitor.Flush()
	}
	m.log.Info().Int("models_cleared", removed).Msg("model cache cleared")
}

func normalizeKey(engineName, modelSize string) cacheKey {
	return cacheKey{
		Engine:    strings.ToLower(strings.TrimSpace(engineName)),
		ModelSize: strings.TrimSpace(modelSize),
	}
}
