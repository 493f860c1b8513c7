package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// HostStats is a sample of the machine the dashboard runs on
type HostStats struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	CollectedAt   time.Time `json:"collected_at"`
}

// HostSampler periodically samples host CPU and memory usage
type HostSampler struct {
	logger   *zap.Logger
	interval time.Duration
	mu       sync.RWMutex
	stats    HostStats

	cpuPercent    func(time.Duration, bool) ([]float64, error)
	virtualMemory func() (*mem.VirtualMemoryStat, error)
}

// NewHostSampler creates a sampler that refreshes every interval
func NewHostSampler(interval time.Duration, logger *zap.Logger) *HostSampler {
	return &HostSampler{
		logger:        logger.Named("host-sampler"),
		interval:      interval,
		cpuPercent:    cpu.Percent,
		virtualMemory: mem.VirtualMemory,
	}
}

// Start samples once and then keeps sampling until ctx is done
func (h *HostSampler) Start(ctx context.Context) error {
	if h.interval <= 0 {
		return fmt.Errorf("invalid sample interval: %s", h.interval)
	}

	h.Sample()
	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.Sample()
			}
		}
	}()
	return nil
}

// Sample collects fresh statistics. Fields that cannot be read keep their previous value.
func (h *HostSampler) Sample() HostStats {
	// Zero interval compares against the previous call instead of blocking
	cpuPercent, cpuErr := h.cpuPercent(0, false)
	memInfo, memErr := h.virtualMemory()

	h.mu.Lock()
	defer h.mu.Unlock()

	if cpuErr != nil {
		h.logger.Error("Failed to get CPU usage", zap.Error(cpuErr))
	} else if len(cpuPercent) > 0 {
		h.stats.CPUPercent = cpuPercent[0]
	}

	if memErr != nil {
		h.logger.Error("Failed to get memory usage", zap.Error(memErr))
	} else {
		h.stats.MemoryPercent = memInfo.UsedPercent
	}

	h.stats.CollectedAt = time.Now()
	return h.stats
}

// Latest returns the most recent sample
func (h *HostSampler) Latest() HostStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}
