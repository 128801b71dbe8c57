package gpu

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnavailable indicates no monitored device is present.
var ErrUnavailable = errors.New("gpu: device unavailable")

const (
	defaultBin       = "nvidia-smi"
	probeTimeout     = 3 * time.Second
	queryFields      = "name,memory.total,memory.used"
	memoryQueryFlags = "--format=csv,noheader,nounits"
)

// NvidiaMonitor reads device memory via nvidia-smi. Availability is probed
// once on first use; a host that loses its device mid-run surfaces that as
// Usage errors, which callers treat as an inconclusive pressure check.
type NvidiaMonitor struct {
	Bin    string
	Device int
	Log    zerolog.Logger

	probeOnce sync.Once
	available bool
	name      string
}

// NewNvidiaMonitor constructs a monitor for the given device index.
func NewNvidiaMonitor(device int, log zerolog.Logger) *NvidiaMonitor {
	return &NvidiaMonitor{Bin: defaultBin, Device: device, Log: log}
}

func (m *NvidiaMonitor) bin() string {
	if m.Bin == "" {
		return defaultBin
	}
	return m.Bin
}

// Available reports whether nvidia-smi answered at least once.
func (m *NvidiaMonitor) Available() bool {
	m.probeOnce.Do(func() {
		info, name, err := m.query()
		if err != nil {
			m.Log.Debug().Err(err).Msg("gpu probe failed, monitoring disabled")
			return
		}
		m.available = true
		m.name = name
		m.Log.Info().
			Str("device", name).
			Float64("total_mb", info.TotalMB).
			Msg("gpu monitoring active")
	})
	return m.available
}

// DeviceName returns the probed device name.
func (m *NvidiaMonitor) DeviceName() string {
	m.Available()
	return m.name
}

// Usage returns the current memory snapshot for the monitored device.
func (m *NvidiaMonitor) Usage() (MemInfo, error) {
	if !m.Available() {
		return MemInfo{}, ErrUnavailable
	}
	info, _, err := m.query()
	return info, err
}

// Flush asks the driver to reclaim unreferenced memory. nvidia-smi has no
// direct call for this, so the hint is limited to logging the request; the
// driver frees pages once the owning process exits.
func (m *NvidiaMonitor) Flush() {
	if !m.Available() {
		return
	}
	m.Log.Debug().Msg("gpu cache flush requested")
}

func (m *NvidiaMonitor) query() (MemInfo, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, m.bin(),
		"--query-gpu="+queryFields,
		memoryQueryFlags,
		fmt.Sprintf("--id=%d", m.Device),
	)
	out, err := cmd.Output()
	if err != nil {
		return MemInfo{}, "", fmt.Errorf("query device %d: %w", m.Device, err)
	}
	return parseMemQuery(string(out))
}

// parseMemQuery parses one CSV line of "name, memory.total, memory.used"
// with nounits (values in MiB).
func parseMemQuery(out string) (MemInfo, string, error) {
	line := strings.TrimSpace(out)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	if line == "" {
		return MemInfo{}, "", errors.New("empty nvidia-smi output")
	}
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return MemInfo{}, "", fmt.Errorf("unexpected nvidia-smi output: %q", line)
	}
	name := strings.TrimSpace(parts[0])
	total, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return MemInfo{}, "", fmt.Errorf("parse memory.total: %w", err)
	}
	used, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return MemInfo{}, "", fmt.Errorf("parse memory.used: %w", err)
	}
	info := MemInfo{TotalMB: total, UsedMB: used, FreeMB: total - used}
	if total > 0 {
		info.UsagePercent = used / total * 100
	}
	return info, name, nil
}
