package monitor

import (
	"strings"
	"testing"
	"time"
)

// hostSample mirrors the shape HostCollector produces: every metric
// carries the entity "host".
func hostSample(memPercent, diskPercent float64) Sample {
	return Sample{
		Source:  SourceHost,
		TakenAt: time.Now().UTC(),
		Metrics: []Metric{
			{Entity: "host", Name: "cpu_percent", Value: 12},
			{Entity: "host", Name: "memory_percent", Value: memPercent},
			{Entity: "host", Name: "disk_percent", Value: diskPercent},
			{Entity: "host", Name: "load1", Value: 0.4},
		},
	}
}

func TestAnalyzer_HostMemoryWarning(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	findings := a.Analyze([]Sample{hostSample(85, 40)})
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Severity != SeverityWarning {
		t.Errorf("expected warning, got %s", findings[0].Severity)
	}
	if findings[0].Subject != "host" {
		t.Errorf("expected subject host, got %s", findings[0].Subject)
	}
	if !strings.Contains(findings[0].Message, "memory") {
		t.Errorf("expected message to reference memory, got %q", findings[0].Message)
	}
}

func TestAnalyzer_HostMemoryBelowThreshold(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	findings := a.Analyze([]Sample{hostSample(50, 40)})
	if len(findings) != 0 {
		t.Errorf("expected no findings at 50%% memory, got %d: %+v", len(findings), findings)
	}
}

func TestAnalyzer_DiskCritical(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	findings := a.Analyze([]Sample{hostSample(50, 95)})
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Severity != SeverityCritical {
		t.Errorf("expected critical, got %s", findings[0].Severity)
	}
}

func TestAnalyzer_OptimizerStatus(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	red := Sample{
		Source: SourceDatabase,
		Metrics: []Metric{
			{Entity: "docs", Name: "status", Label: "Red"},
			{Entity: "docs", Name: "optimizer_ok", Value: 0},
			{Entity: "docs", Name: "optimizer_error", Label: "indexing stalled"},
		},
	}
	findings := a.Analyze([]Sample{red})
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings for red status and failed optimizer, got %d", len(findings))
	}
	for _, f := range findings {
		if f.Severity != SeverityWarning {
			t.Errorf("expected warning, got %s", f.Severity)
		}
		if f.Subject != "collection/docs" {
			t.Errorf("expected subject collection/docs, got %s", f.Subject)
		}
	}

	green := Sample{
		Source: SourceDatabase,
		Metrics: []Metric{
			{Entity: "docs", Name: "status", Label: "Green"},
			{Entity: "docs", Name: "optimizer_ok", Value: 1},
		},
	}
	if findings := a.Analyze([]Sample{green}); len(findings) != 0 {
		t.Errorf("expected no findings for green collection, got %+v", findings)
	}
}

func TestAnalyzer_ContainerMemory(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	sample := Sample{
		Source: SourceContainer,
		Metrics: []Metric{
			{Entity: "qdrant", Name: "memory_percent", Value: 95},
			{Entity: "qdrant-backup", Name: "memory_percent", Value: 20},
		},
	}
	findings := a.Analyze([]Sample{sample})
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Subject != "container/qdrant" {
		t.Errorf("expected subject container/qdrant, got %s", findings[0].Subject)
	}
}

func TestAnalyzer_CollectionFootprint(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	// 100 points at ~40 KiB each, far above the 4 KiB baseline.
	heavy := Sample{
		Source: SourceDatabase,
		Metrics: []Metric{
			{Entity: "big", Name: "status", Label: "Green"},
			{Entity: "big", Name: "optimizer_ok", Value: 1},
			{Entity: "big", Name: "points_count", Value: 100},
			{Entity: "big", Name: "estimated_memory_bytes", Value: 100 * 40960},
		},
	}
	findings := a.Analyze([]Sample{heavy})
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Severity != SeverityInfo {
		t.Errorf("expected info, got %s", findings[0].Severity)
	}

	// An empty collection never triggers the footprint rule.
	empty := Sample{
		Source: SourceDatabase,
		Metrics: []Metric{
			{Entity: "empty", Name: "status", Label: "Green"},
			{Entity: "empty", Name: "optimizer_ok", Value: 1},
			{Entity: "empty", Name: "points_count", Value: 0},
			{Entity: "empty", Name: "estimated_memory_bytes", Value: 1 << 20},
		},
	}
	if findings := a.Analyze([]Sample{empty}); len(findings) != 0 {
		t.Errorf("expected no findings for empty collection, got %+v", findings)
	}
}

func TestAnalyzer_IndexingLag(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	lagging := Sample{
		Source: SourceDatabase,
		Metrics: []Metric{
			{Entity: "docs", Name: "status", Label: "Green"},
			{Entity: "docs", Name: "optimizer_ok", Value: 1},
			{Entity: "docs", Name: "points_count", Value: 1000},
			{Entity: "docs", Name: "indexed_vectors_count", Value: 500},
		},
	}
	findings := a.Analyze([]Sample{lagging})
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding for 50%% indexed, got %d: %+v", len(findings), findings)
	}
	if findings[0].Severity != SeverityWarning {
		t.Errorf("expected warning, got %s", findings[0].Severity)
	}
	if findings[0].Subject != "collection/docs" {
		t.Errorf("expected subject collection/docs, got %s", findings[0].Subject)
	}
	if !strings.Contains(findings[0].Message, "indexed") {
		t.Errorf("expected message to reference indexing, got %q", findings[0].Message)
	}

	indexed := Sample{
		Source: SourceDatabase,
		Metrics: []Metric{
			{Entity: "docs", Name: "status", Label: "Green"},
			{Entity: "docs", Name: "optimizer_ok", Value: 1},
			{Entity: "docs", Name: "points_count", Value: 1000},
			{Entity: "docs", Name: "indexed_vectors_count", Value: 950},
		},
	}
	if findings := a.Analyze([]Sample{indexed}); len(findings) != 0 {
		t.Errorf("expected no findings at 95%% indexed, got %+v", findings)
	}
}

func TestAnalyzer_SeverityOrdering(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	samples := []Sample{
		{
			Source: SourceDatabase,
			Metrics: []Metric{
				{Entity: "big", Name: "points_count", Value: 10},
				{Entity: "big", Name: "estimated_memory_bytes", Value: 10 * 1 << 20},
			},
		},
		hostSample(85, 95),
		{
			Source: SourceContainer,
			Metrics: []Metric{
				{Entity: "qdrant", Name: "memory_percent", Value: 95},
			},
		},
	}
	findings := a.Analyze(samples)
	if len(findings) < 4 {
		t.Fatalf("expected at least 4 findings, got %d", len(findings))
	}
	for i := 1; i < len(findings); i++ {
		if findings[i-1].Severity.rank() > findings[i].Severity.rank() {
			t.Errorf("findings out of severity order at %d: %s before %s",
				i, findings[i-1].Severity, findings[i].Severity)
		}
	}
	if findings[0].Severity != SeverityCritical {
		t.Errorf("expected critical first, got %s", findings[0].Severity)
	}
	if findings[len(findings)-1].Severity != SeverityInfo {
		t.Errorf("expected info last, got %s", findings[len(findings)-1].Severity)
	}
}

func TestAnalyzer_MissingMetricsSkipRules(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	samples := []Sample{
		{Source: SourceHost},
		{Source: SourceContainer, Note: "container runtime unavailable"},
		{Source: SourceDatabase},
	}
	if findings := a.Analyze(samples); len(findings) != 0 {
		t.Errorf("expected no findings from empty samples, got %+v", findings)
	}
}
