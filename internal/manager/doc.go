// Package manager owns the bounded cache of loaded ASR engine instances.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, Stats/Clear.
//   - config.go: Config and package defaults.
//   - acquire.go: Acquire hit/miss path, load coalescing, VRAM measurement.
//   - evict.go: LRU overflow eviction and VRAM-pressure sweeps.
//   - errors.go: load failure wrapping and predicate helpers.
//
// The cache is keyed by (engine name, model size): two engines loaded with
// different model sizes are distinct entries. Entries become visible only
// after their load completes; concurrent misses on the same key coalesce
// into one load, while misses on different keys load in parallel. Eviction
// runs under two policies: a resident-entry count limit, and a device
// memory utilization limit fed by the gpu.Monitor. When monitoring is
// unavailable only the count limit applies.
package manager
