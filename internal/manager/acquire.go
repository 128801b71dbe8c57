package manager

import (
	"context"
	"time"

	"subtitld/internal/engine"
)

// Acquire returns a loaded engine for (engineName, modelSize), loading it
// at most once per key. A hit refreshes recency and makes no load call. A
// miss runs the pressure sweep, loads outside the lock, and inserts the
// entry as most recently used, evicting one LRU entry on count overflow.
// A failed load leaves the cache exactly as it was.
func (m *Manager) Acquire(ctx context.Context, engineName, modelSize string, cfg engine.LoadConfig) (engine.Engine, error) {
	key := normalizeKey(engineName, modelSize)

	m.mu.Lock()
	if e, ok := m.entries[key]; ok {
		if e.elem != nil {
			m.lru.MoveToFront(e.elem)
			m.hits++
			eng := e.eng
			m.mu.Unlock()
			m.log.Info().Stringer("key", key).Msg("model cache hit")
			return eng, nil
		}
		// Another caller is loading this key; coalesce into its load.
		ch := e.readyCh
		m.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		m.mu.Lock()
		if e.err != nil {
			m.mu.Unlock()
			return nil, e.err
		}
		if e.elem != nil {
			m.lru.MoveToFront(e.elem)
		}
		m.hits++
		eng := e.eng
		m.mu.Unlock()
		m.log.Info().Stringer("key", key).Msg("model cache hit (coalesced)")
		return eng, nil
	}

	// Miss: publish a loading placeholder so concurrent misses on this key
	// wait for us, then load without holding the lock.
	e := &entry{key: key, readyCh: make(chan struct{})}
	m.entries[key] = e
	m.misses++
	m.mu.Unlock()
	m.log.Info().Stringer("key", key).Msg("model cache miss")

	m.evictUnderPressure()

	eng, vramMB, vramKnown, err := m.load(ctx, key, cfg)

	m.mu.Lock()
	if err != nil {
		if m.entries[key] == e {
			delete(m.entries, key)
		}
		e.err = err
		close(e.readyCh)
		m.mu.Unlock()
		return nil, err
	}
	e.eng = eng
	e.loadedAt = time.Now()
	e.vramMB, e.vramKnown = vramMB, vramKnown
	if m.entries[key] == e {
		e.elem = m.lru.PushFront(e)
		if m.lru.Len() > m.maxModels {
			m.evictLRULocked()
		}
	}
	// else: the cache was cleared mid-load; hand the engine out uncached.
	m.loads++
	close(e.readyCh)
	count := m.lru.Len()
	m.mu.Unlock()

	ev := m.log.Info().Stringer("key", key).Int("cache_size", count)
	if vramKnown {
		ev = ev.Float64("vram_used_mb", vramMB)
	}
	ev.Msg("model loaded and cached")
	return eng, nil
}

// load creates and loads a fresh engine instance, measuring the VRAM delta
// when monitoring is active.
func (m *Manager) load(ctx context.Context, key cacheKey, cfg engine.LoadConfig) (engine.Engine, float64, bool, error) {
	eng, err := m.factory.Create(key.Engine)
	if err != nil {
		return nil, 0, false, err
	}

	var before float64
	measured := false
	if m.monitor.Available() {
		if u, uerr := m.monitor.Usage(); uerr == nil {
			before = u.UsedMB
			measured = true
		}
	}

	start := time.Now()
	if err := eng.Load(ctx, key.ModelSize, cfg); err != nil {
		return nil, 0, false, loadError{key: key, err: err}
	}
	m.log.Debug().Stringer("key", key).Dur("load_time", time.Since(start)).Msg("engine load finished")

	if measured {
		if u, uerr := m.monitor.Usage(); uerr == nil {
			return eng, u.UsedMB - before, true, nil
		}
	}
	return eng, 0, false, nil
}
