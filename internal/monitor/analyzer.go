package monitor

import (
	"fmt"
	"sort"
	"strings"
)

// AnalyzerConfig holds the thresholds the analyzer applies to a set of
// samples. Zero values are replaced by defaults at construction.
type AnalyzerConfig struct {
	HostMemoryWarnPct      float64
	ContainerMemoryWarnPct float64
	DiskCriticalPct        float64
	FootprintMultiplier    float64
	BaselineBytesPerPoint  float64
	IndexedRatioWarn       float64
}

// DefaultAnalyzerConfig returns the stock thresholds.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		HostMemoryWarnPct:      80,
		ContainerMemoryWarnPct: 90,
		DiskCriticalPct:        90,
		FootprintMultiplier:    3,
		BaselineBytesPerPoint:  4096,
		IndexedRatioWarn:       0.9,
	}
}

// Analyzer turns raw samples into findings. It never fails; a metric a
// rule needs that is absent from the samples simply skips that rule.
type Analyzer struct {
	cfg AnalyzerConfig
}

// NewAnalyzer creates an analyzer, filling unset thresholds with the
// defaults.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	def := DefaultAnalyzerConfig()
	if cfg.HostMemoryWarnPct <= 0 {
		cfg.HostMemoryWarnPct = def.HostMemoryWarnPct
	}
	if cfg.ContainerMemoryWarnPct <= 0 {
		cfg.ContainerMemoryWarnPct = def.ContainerMemoryWarnPct
	}
	if cfg.DiskCriticalPct <= 0 {
		cfg.DiskCriticalPct = def.DiskCriticalPct
	}
	if cfg.FootprintMultiplier <= 0 {
		cfg.FootprintMultiplier = def.FootprintMultiplier
	}
	if cfg.BaselineBytesPerPoint <= 0 {
		cfg.BaselineBytesPerPoint = def.BaselineBytesPerPoint
	}
	if cfg.IndexedRatioWarn <= 0 {
		cfg.IndexedRatioWarn = def.IndexedRatioWarn
	}
	return &Analyzer{cfg: cfg}
}

// Analyze applies every rule to the samples and returns findings ordered
// by severity, critical first.
func (a *Analyzer) Analyze(samples []Sample) []Finding {
	var findings []Finding

	for _, sample := range samples {
		switch sample.Source {
		case SourceHost:
			findings = append(findings, a.analyzeHost(sample)...)
		case SourceContainer:
			findings = append(findings, a.analyzeContainers(sample)...)
		case SourceDatabase:
			findings = append(findings, a.analyzeDatabase(sample)...)
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.rank() < findings[j].Severity.rank()
	})
	return findings
}

func (a *Analyzer) analyzeHost(sample Sample) []Finding {
	var findings []Finding

	if m, ok := sample.metric("host", "memory_percent"); ok && m.Value >= a.cfg.HostMemoryWarnPct {
		findings = append(findings, Finding{
			Severity:          SeverityWarning,
			Subject:           "host",
			Message:           fmt.Sprintf("host memory usage at %.1f%%", m.Value),
			RecommendedAction: "reduce memory pressure or add capacity before the vector database starts swapping",
		})
	}
	if m, ok := sample.metric("host", "disk_percent"); ok && m.Value >= a.cfg.DiskCriticalPct {
		findings = append(findings, Finding{
			Severity:          SeverityCritical,
			Subject:           "host",
			Message:           fmt.Sprintf("disk usage at %.1f%%", m.Value),
			RecommendedAction: "free disk space now; the vector database cannot persist segments on a full disk",
		})
	}
	return findings
}

func (a *Analyzer) analyzeContainers(sample Sample) []Finding {
	var findings []Finding

	for _, entity := range sample.entities() {
		m, ok := sample.metric(entity, "memory_percent")
		if !ok || m.Value < a.cfg.ContainerMemoryWarnPct {
			continue
		}
		findings = append(findings, Finding{
			Severity:          SeverityWarning,
			Subject:           "container/" + entity,
			Message:           fmt.Sprintf("container memory at %.1f%% of its limit", m.Value),
			RecommendedAction: "raise the container memory limit or shrink the working set before the kernel OOM-kills it",
		})
	}
	return findings
}

func (a *Analyzer) analyzeDatabase(sample Sample) []Finding {
	var findings []Finding

	for _, entity := range sample.entities() {
		if status, ok := sample.metric(entity, "status"); ok {
			if status.Label != "" && !strings.EqualFold(status.Label, "green") {
				findings = append(findings, Finding{
					Severity:          SeverityWarning,
					Subject:           "collection/" + entity,
					Message:           fmt.Sprintf("collection status is %s", status.Label),
					RecommendedAction: "check the database logs; the collection is not fully ready",
				})
			}
		}
		if opt, ok := sample.metric(entity, "optimizer_ok"); ok && opt.Value == 0 {
			msg := "collection optimizer reports an error"
			if detail, ok := sample.metric(entity, "optimizer_error"); ok && detail.Label != "" {
				msg = fmt.Sprintf("collection optimizer reports an error: %s", detail.Label)
			}
			findings = append(findings, Finding{
				Severity:          SeverityWarning,
				Subject:           "collection/" + entity,
				Message:           msg,
				RecommendedAction: "inspect the optimizer status in the database; indexing may be stalled",
			})
		}

		points, ok := sample.metric(entity, "points_count")
		if !ok || points.Value == 0 {
			continue
		}
		if indexed, ok := sample.metric(entity, "indexed_vectors_count"); ok {
			ratio := indexed.Value / points.Value
			if ratio < a.cfg.IndexedRatioWarn {
				findings = append(findings, Finding{
					Severity:          SeverityWarning,
					Subject:           "collection/" + entity,
					Message:           fmt.Sprintf("only %.0f%% of vectors are indexed", ratio*100),
					RecommendedAction: "wait for indexing to catch up or check optimizer throughput; searches fall back to slow full scans",
				})
			}
		}
		mem, ok := sample.metric(entity, "estimated_memory_bytes")
		if !ok {
			continue
		}
		perPoint := mem.Value / points.Value
		if perPoint > a.cfg.FootprintMultiplier*a.cfg.BaselineBytesPerPoint {
			findings = append(findings, Finding{
				Severity:          SeverityInfo,
				Subject:           "collection/" + entity,
				Message:           fmt.Sprintf("collection footprint is %.0f bytes per point, well above the %.0f byte baseline", perPoint, a.cfg.BaselineBytesPerPoint),
				RecommendedAction: "consider a smaller embedding model or scalar quantization for this collection",
			})
		}
	}
	return findings
}
