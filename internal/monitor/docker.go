package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// ContainerCollector reads per-container resource usage from the Docker
// runtime for containers whose name matches a pattern. Absence of a
// runtime, or no matching containers, is an empty result, not an error.
type ContainerCollector struct {
	pattern string

	mu  sync.Mutex
	cli *client.Client
}

// NewContainerCollector creates a collector matching containers whose
// name contains pattern (default "qdrant"). The Docker client is created
// lazily on first use so a missing runtime costs nothing at startup.
func NewContainerCollector(pattern string) *ContainerCollector {
	if pattern == "" {
		pattern = "qdrant"
	}
	return &ContainerCollector{pattern: pattern}
}

// Name returns the collector's source tag.
func (c *ContainerCollector) Name() string {
	return SourceContainer
}

func (c *ContainerCollector) dockerClient() (*client.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cli != nil {
		return c.cli, nil
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	c.cli = cli
	return cli, nil
}

// Collect lists matching containers and reads their stats. Runtime
// unavailability degrades to an empty sample with a note.
func (c *ContainerCollector) Collect(ctx context.Context) (Sample, error) {
	sample := Sample{Source: SourceContainer, TakenAt: time.Now().UTC()}

	cli, err := c.dockerClient()
	if err != nil {
		sample.Note = fmt.Sprintf("container runtime unavailable: %v", err)
		return sample, nil
	}

	filterArgs := filters.NewArgs()
	filterArgs.Add("name", c.pattern)
	containers, err := cli.ContainerList(ctx, container.ListOptions{Filters: filterArgs})
	if err != nil {
		sample.Note = fmt.Sprintf("container runtime unavailable: %v", err)
		return sample, nil
	}

	for _, summary := range containers {
		name := containerName(summary)
		stats, err := c.containerStats(ctx, cli, summary.ID)
		if err != nil {
			if sample.Note != "" {
				sample.Note += "; "
			}
			sample.Note += fmt.Sprintf("stats for %s: %v", name, err)
			continue
		}

		memPercent := 0.0
		if stats.MemoryStats.Limit > 0 {
			memPercent = float64(stats.MemoryStats.Usage) / float64(stats.MemoryStats.Limit) * 100
		}

		var rx, tx uint64
		for _, net := range stats.Networks {
			rx += net.RxBytes
			tx += net.TxBytes
		}

		var blkRead, blkWrite uint64
		for _, entry := range stats.BlkioStats.IoServiceBytesRecursive {
			switch strings.ToLower(entry.Op) {
			case "read":
				blkRead += entry.Value
			case "write":
				blkWrite += entry.Value
			}
		}

		sample.Metrics = append(sample.Metrics,
			Metric{Entity: name, Name: "cpu_percent", Value: cpuPercent(stats)},
			Metric{Entity: name, Name: "memory_usage_bytes", Value: float64(stats.MemoryStats.Usage)},
			Metric{Entity: name, Name: "memory_limit_bytes", Value: float64(stats.MemoryStats.Limit)},
			Metric{Entity: name, Name: "memory_percent", Value: memPercent},
			Metric{Entity: name, Name: "network_rx_bytes", Value: float64(rx)},
			Metric{Entity: name, Name: "network_tx_bytes", Value: float64(tx)},
			Metric{Entity: name, Name: "block_read_bytes", Value: float64(blkRead)},
			Metric{Entity: name, Name: "block_write_bytes", Value: float64(blkWrite)},
			Metric{Entity: name, Name: "pids", Value: float64(stats.PidsStats.Current)},
			Metric{Entity: name, Name: "state", Label: summary.State},
		)
	}

	return sample, nil
}

func (c *ContainerCollector) containerStats(ctx context.Context, cli *client.Client, id string) (container.StatsResponse, error) {
	var stats container.StatsResponse

	reader, err := cli.ContainerStats(ctx, id, false)
	if err != nil {
		return stats, fmt.Errorf("failed to get container stats: %w", err)
	}
	defer reader.Body.Close()

	if err := json.NewDecoder(reader.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("failed to decode container stats: %w", err)
	}
	return stats, nil
}

// cpuPercent computes CPU utilization from the two usage readings Docker
// embeds in one stats response.
func cpuPercent(stats container.StatsResponse) float64 {
	cpuDelta := float64(stats.CPUStats.CPUUsage.TotalUsage) - float64(stats.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(stats.CPUStats.SystemUsage) - float64(stats.PreCPUStats.SystemUsage)
	if cpuDelta <= 0 || systemDelta <= 0 {
		return 0
	}

	onlineCPUs := float64(stats.CPUStats.OnlineCPUs)
	if onlineCPUs == 0 {
		onlineCPUs = float64(len(stats.CPUStats.CPUUsage.PercpuUsage))
	}
	if onlineCPUs == 0 {
		onlineCPUs = 1
	}
	return cpuDelta / systemDelta * onlineCPUs * 100
}

// Logs returns the last lines of a container's log by name. Used by the
// diagnostics tool surface only.
func (c *ContainerCollector) Logs(ctx context.Context, name string, lines int) (string, error) {
	cli, err := c.dockerClient()
	if err != nil {
		return "", &CollectorError{Source: SourceContainer, Err: err}
	}

	filterArgs := filters.NewArgs()
	filterArgs.Add("name", name)
	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true, Filters: filterArgs})
	if err != nil {
		return "", &CollectorError{Source: SourceContainer, Err: err}
	}
	if len(containers) == 0 {
		return "", fmt.Errorf("no container matching %q", name)
	}

	if lines <= 0 {
		lines = 50
	}
	logs, err := cli.ContainerLogs(ctx, containers[0].ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(lines),
	})
	if err != nil {
		return "", &CollectorError{Source: SourceContainer, Err: err}
	}
	defer logs.Close()

	data, err := io.ReadAll(logs)
	if err != nil {
		return "", fmt.Errorf("failed to read container logs: %w", err)
	}
	return string(data), nil
}

// containerName extracts the primary name, without the leading slash.
func containerName(summary container.Summary) string {
	if len(summary.Names) == 0 {
		return summary.ID
	}
	return strings.TrimPrefix(summary.Names[0], "/")
}
