package metrics

import (
	"context"
	"fmt"
	"time"

	"pathserver/routing"

	log "github.com/sirupsen/logrus"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

type HostStats struct {
	MemoryTotal       uint64
	MemoryUsed        uint64
	MemoryUsedPercent float64
	Load1             float64
	Load5             float64
	Load15            float64
}

func CollectHostStats() (HostStats, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return HostStats{}, fmt.Errorf("failed to get memory info: %w", err)
	}
	stats := HostStats{
		MemoryTotal:       vm.Total,
		MemoryUsed:        vm.Used,
		MemoryUsedPercent: vm.UsedPercent,
	}

	avg, err := load.Avg()
	if err != nil {
		// load average is unavailable on some platforms
		log.Debugf("failed to get load info: %v", err)
		return stats, nil
	}
	stats.Load1 = avg.Load1
	stats.Load5 = avg.Load5
	stats.Load15 = avg.Load15
	return stats, nil
}

// RunReporter periodically logs host and cache statistics and updates the
// host gauges until ctx is cancelled.
func RunReporter(ctx context.Context, interval time.Duration, m *Metrics, cache *routing.PathCache) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report(m, cache, CollectHostStats)
		}
	}
}

func report(m *Metrics, cache *routing.PathCache, collect func() (HostStats, error)) {
	host, err := collect()
	if err != nil {
		log.Warnf("collect host stats failed, err: %v", err)
	} else {
		m.setHostStats(host)
	}

	if cache == nil {
		return
	}
	stats := cache.Stats()
	if err != nil {
		log.Infof("stats: cache size %d/%d, hits %d, misses %d, evictions %d",
			stats.Size, stats.Capacity, stats.Hits, stats.Misses, stats.Evictions)
		return
	}
	log.Infof("stats: cache size %d/%d, hits %d, misses %d, evictions %d, mem used %.1f%%, load1 %.2f",
		stats.Size, stats.Capacity, stats.Hits, stats.Misses, stats.Evictions,
		host.MemoryUsedPercent, host.Load1)
}
