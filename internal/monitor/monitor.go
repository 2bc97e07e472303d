package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultCollectTimeout = 5 * time.Second

// Collector produces one sample from a single source.
type Collector interface {
	Name() string
	Collect(ctx context.Context) (Sample, error)
}

// Report is the aggregated view over all sources at one point in time.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Samples     []Sample  `json:"samples"`
	Findings    []Finding `json:"findings"`
}

// Monitor fans collection out over its collectors and runs the analyzer
// over whatever came back. A failing collector degrades to an empty
// sample with a note; it never fails the report.
type Monitor struct {
	collectors []Collector
	analyzer   *Analyzer
	timeout    time.Duration
	logger     *slog.Logger
}

// NewMonitor creates a monitor over the given collectors. timeout bounds
// each collector independently; zero means the default of 5s.
func NewMonitor(collectors []Collector, analyzer *Analyzer, timeout time.Duration, logger *slog.Logger) *Monitor {
	if timeout <= 0 {
		timeout = defaultCollectTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		collectors: collectors,
		analyzer:   analyzer,
		timeout:    timeout,
		logger:     logger,
	}
}

// Report collects from every source concurrently and analyzes the
// result. Sample order follows collector registration order.
func (m *Monitor) Report(ctx context.Context) Report {
	samples := make([]Sample, len(m.collectors))

	var wg sync.WaitGroup
	for i, collector := range m.collectors {
		wg.Add(1)
		go func(i int, collector Collector) {
			defer wg.Done()

			cctx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()

			sample, err := collector.Collect(cctx)
			if err != nil {
				m.logger.Warn("collector failed",
					"collector", collector.Name(),
					"error", err)
				sample = Sample{
					Source:  collector.Name(),
					TakenAt: time.Now().UTC(),
					Note:    err.Error(),
				}
			}
			samples[i] = sample
		}(i, collector)
	}
	wg.Wait()

	return Report{
		GeneratedAt: time.Now().UTC(),
		Samples:     samples,
		Findings:    m.analyzer.Analyze(samples),
	}
}
