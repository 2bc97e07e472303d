package monitor

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostCollector reads CPU, memory, disk and load figures from the host
// OS. Read-only; no mutation of host state.
type HostCollector struct {
	diskPath string
}

// NewHostCollector creates a host collector. diskPath is the mount point
// measured for disk usage; empty means "/".
func NewHostCollector(diskPath string) *HostCollector {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostCollector{diskPath: diskPath}
}

// Name returns the collector's source tag.
func (c *HostCollector) Name() string {
	return SourceHost
}

// Collect gathers host metrics. Individual probes that fail are skipped;
// the collector fails only when nothing could be read at all.
func (c *HostCollector) Collect(ctx context.Context) (Sample, error) {
	sample := Sample{Source: SourceHost, TakenAt: time.Now().UTC()}
	var lastErr error

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		sample.Metrics = append(sample.Metrics, Metric{Entity: "host", Name: "cpu_percent", Value: percents[0]})
	} else if err != nil {
		lastErr = err
	}
	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		sample.Metrics = append(sample.Metrics, Metric{Entity: "host", Name: "cpu_cores", Value: float64(cores)})
	} else {
		lastErr = err
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sample.Metrics = append(sample.Metrics,
			Metric{Entity: "host", Name: "memory_used_bytes", Value: float64(vm.Used)},
			Metric{Entity: "host", Name: "memory_available_bytes", Value: float64(vm.Available)},
			Metric{Entity: "host", Name: "memory_total_bytes", Value: float64(vm.Total)},
			Metric{Entity: "host", Name: "memory_percent", Value: vm.UsedPercent},
		)
	} else {
		lastErr = err
	}

	if du, err := disk.UsageWithContext(ctx, c.diskPath); err == nil {
		sample.Metrics = append(sample.Metrics, Metric{Entity: "host", Name: "disk_percent", Value: du.UsedPercent})
	} else {
		lastErr = err
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		sample.Metrics = append(sample.Metrics,
			Metric{Entity: "host", Name: "load1", Value: avg.Load1},
			Metric{Entity: "host", Name: "load5", Value: avg.Load5},
			Metric{Entity: "host", Name: "load15", Value: avg.Load15},
		)
	}
	// load averages are not available on all platforms; skip silently

	if len(sample.Metrics) == 0 && lastErr != nil {
		return sample, &CollectorError{Source: SourceHost, Err: lastErr}
	}
	return sample, nil
}
