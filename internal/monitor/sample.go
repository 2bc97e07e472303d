// Package monitor collects health and performance signals from the
// vector database, the host OS, and the container runtime, and distills
// them into one diagnostic report.
package monitor

import (
	"fmt"
	"time"
)

// Metric sources. Each collector produces samples under exactly one.
const (
	SourceDatabase  = "database"
	SourceHost      = "host"
	SourceContainer = "container"
)

// Metric is one named measurement about one entity (a collection, a
// container, or the host). Enumerated values carry a Label instead of
// a numeric Value.
type Metric struct {
	Entity string  `json:"entity"`
	Name   string  `json:"name"`
	Value  float64 `json:"value,omitempty"`
	Label  string  `json:"label,omitempty"`
}

// Sample is one collector's timestamped output. Immutable once produced.
// A degraded collector yields an empty metric list and an explanatory note.
type Sample struct {
	Source  string    `json:"source"`
	TakenAt time.Time `json:"taken_at"`
	Metrics []Metric  `json:"metrics"`
	Note    string    `json:"note,omitempty"`
}

// metric returns the first metric matching entity and name, if present.
func (s Sample) metric(entity, name string) (Metric, bool) {
	for _, m := range s.Metrics {
		if m.Entity == entity && m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// entities returns the distinct entity names in metric order.
func (s Sample) entities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range s.Metrics {
		if !seen[m.Entity] {
			seen[m.Entity] = true
			out = append(out, m.Entity)
		}
	}
	return out
}

// Severity classifies a finding.
type Severity string

// Severity levels, most severe first.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// rank orders severities for report sorting.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Finding is one diagnostic conclusion derived from collected metrics.
// Never mutated after creation; the report assembler only aggregates.
type Finding struct {
	Severity          Severity `json:"severity"`
	Subject           string   `json:"subject"`
	Message           string   `json:"message"`
	RecommendedAction string   `json:"recommended_action"`
}

// CollectorError reports a collector that could not reach its source.
// Degrades that collector's contribution to a report; never aborts the
// whole report.
type CollectorError struct {
	Source string
	Err    error
}

func (e *CollectorError) Error() string {
	return fmt.Sprintf("%s collector unavailable: %v", e.Source, e.Err)
}

func (e *CollectorError) Unwrap() error {
	return e.Err
}
