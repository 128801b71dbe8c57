package manager

// evictUnderPressure queries the monitor and evicts LRU entries until
// utilization drops below the limit or the cache is empty. Runs only on
// the miss path, before a load. A monitor error means the pressure check
// is inconclusive and the load proceeds optimistically. Unavailable
// monitoring skips the sweep entirely.
func (m *Manager) evictUnderPressure() {
	if !m.monitor.Available() {
		return
	}
	usage, err := m.monitor.Usage()
	if err != nil {
		m.log.Debug().Err(err).Msg("pressure check inconclusive, proceeding")
		return
	}
	if usage.UsagePercent < m.vramLimitPct {
		return
	}
	m.log.Warn().
		Float64("vram_usage_percent", usage.UsagePercent).
		Float64("vram_limit_percent", m.vramLimitPct).
		Msg("vram usage exceeds limit, evicting")

	for usage.UsagePercent >= m.vramLimitPct {
		m.mu.Lock()
		evicted := m.evictLRULocked()
		m.mu.Unlock()
		if !evicted {
			return
		}
		m.monitor.Flush()
		usage, err = m.monitor.Usage()
		if err != nil {
			return
		}
		m.log.Info().Float64("vram_usage_percent", usage.UsagePercent).Msg("vram usage after eviction")
	}
}

// evictLRULocked removes the least recently used ready entry. Loading
// placeholders are never evicted. The engine itself needs no teardown
// call; dropping the last reference releases it. Caller holds mu.
func (m *Manager) evictLRULocked() bool {
	back := m.lru.Back()
	if back == nil {
		return false
	}
	e := back.Value.(*entry)
	m.lru.Remove(back)
	delete(m.entries, e.key)
	e.elem = nil
	m.evictions++
	ev := m.log.Info().Stringer("key", e.key)
	if e.vramKnown {
		ev = ev.Float64("vram_mb", e.vramMB)
	}
	ev.Msg("evicted model from cache")
	return true
}
