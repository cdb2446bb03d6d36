package domain

import (
	"fmt"
	"time"
)

// Metric selects what Aggregate sums per activity.
type Metric string

const (
	MetricCount    Metric = "count"
	MetricDuration Metric = "duration"
)

// ParseMetric maps a query value onto a Metric. Empty defaults to duration.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricDuration:
		return MetricDuration, nil
	case MetricCount:
		return MetricCount, nil
	}
	return "", fmt.Errorf("%w: metric must be %q or %q", ErrValidation, MetricCount, MetricDuration)
}

// Aggregate computes one total per distinct activity. Duration totals are in
// minutes; entries without an end are measured up to now.
func Aggregate(entries []LogEntry, metric Metric, now time.Time) map[string]float64 {
	out := make(map[string]float64)
	for _, e := range entries {
		switch metric {
		case MetricCount:
			out[e.Activity]++
		default:
			out[e.Activity] += e.Duration(now).Minutes()
		}
	}
	return out
}

// Percentages divides each total by the sum of all totals. It returns nil when
// the sum is zero.
func Percentages(totals map[string]float64) map[string]float64 {
	var sum float64
	for _, v := range totals {
		sum += v
	}
	if sum == 0 {
		return nil
	}
	out := make(map[string]float64, len(totals))
	for k, v := range totals {
		out[k] = v / sum * 100
	}
	return out
}

// SummaryRow is one activity line of a chart summary.
type SummaryRow struct {
	Activity string   `json:"activity"`
	Value    float64  `json:"value"`
	Percent  *float64 `json:"percent,omitempty"`
}

// Summarize aggregates entries and orders rows by the first appearance of
// each activity in entries.
func Summarize(entries []LogEntry, metric Metric, now time.Time) []SummaryRow {
	totals := Aggregate(entries, metric, now)
	pct := Percentages(totals)

	rows := make([]SummaryRow, 0, len(totals))
	seen := make(map[string]bool, len(totals))
	for _, e := range entries {
		if seen[e.Activity] {
			continue
		}
		seen[e.Activity] = true
		row := SummaryRow{Activity: e.Activity, Value: totals[e.Activity]}
		if p, ok := pct[e.Activity]; ok {
			row.Percent = &p
		}
		rows = append(rows, row)
	}
	return rows
}
