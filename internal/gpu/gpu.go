// Package gpu probes device memory state for eviction decisions. The
// readings are advisory telemetry: callers must treat a failed probe as
// "monitoring unavailable" and degrade to count-based policies.
package gpu

// MemInfo is a point-in-time snapshot of device memory, in megabytes.
type MemInfo struct {
	TotalMB      float64
	UsedMB       float64
	FreeMB       float64
	UsagePercent float64
}

// Monitor reports current device memory state.
type Monitor interface {
	// Available reports whether a monitored device is present. When false,
	// Usage returns an error and Flush is a no-op.
	Available() bool
	// Usage returns the current memory snapshot.
	Usage() (MemInfo, error)
	// Flush hints the driver to release unreferenced device memory.
	// Best effort; errors are swallowed.
	Flush()
	// DeviceName returns the device name, or "" when unknown.
	DeviceName() string
}

// Disabled is a Monitor for hosts without a device. Usage always errors.
type Disabled struct{}

func (Disabled) Available() bool         { return false }
func (Disabled) Usage() (MemInfo, error) { return MemInfo{}, ErrUnavailable }
func (Disabled) Flush()                  {}
func (Disabled) DeviceName() string      { return "" }
