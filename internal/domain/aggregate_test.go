package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2025, 8, 1, h, m, 0, 0, time.UTC)
}

func entry(activity string, start, end time.Time) LogEntry {
	return LogEntry{Activity: activity, Start: start, End: &end}
}

func sampleDay() []LogEntry {
	return []LogEntry{
		entry("A", at(10, 0), at(10, 30)),
		entry("A", at(11, 0), at(11, 15)),
		entry("B", at(9, 0), at(9, 10)),
	}
}

func TestAggregateDuration(t *testing.T) {
	got := Aggregate(sampleDay(), MetricDuration, at(12, 0))
	assert.Equal(t, map[string]float64{"A": 45, "B": 10}, got)
}

func TestAggregateCount(t *testing.T) {
	got := Aggregate(sampleDay(), MetricCount, at(12, 0))
	assert.Equal(t, map[string]float64{"A": 2, "B": 1}, got)
}

func TestAggregateIsRepeatable(t *testing.T) {
	entries := sampleDay()
	assert.Equal(t, Aggregate(entries, MetricDuration, at(12, 0)), Aggregate(entries, MetricDuration, at(12, 0)))
}

func TestAggregateRunningEntryUsesNow(t *testing.T) {
	entries := []LogEntry{{Activity: "Coding", Start: at(10, 0)}}
	got := Aggregate(entries, MetricDuration, at(10, 20))
	assert.InDelta(t, 20.0, got["Coding"], 0.0001)
}

func TestPercentages(t *testing.T) {
	pct := Percentages(map[string]float64{"A": 45, "B": 15})
	require.NotNil(t, pct)
	assert.InDelta(t, 75.0, pct["A"], 0.0001)
	assert.InDelta(t, 25.0, pct["B"], 0.0001)
}

func TestPercentagesZeroSum(t *testing.T) {
	assert.Nil(t, Percentages(map[string]float64{}))
	assert.Nil(t, Percentages(map[string]float64{"A": 0}))
}

func TestSummarizeKeepsFirstSeenOrder(t *testing.T) {
	rows := Summarize(sampleDay(), MetricCount, at(12, 0))
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Activity)
	assert.Equal(t, 2.0, rows[0].Value)
	require.NotNil(t, rows[0].Percent)
	assert.InDelta(t, 66.6666, *rows[0].Percent, 0.001)
	assert.Equal(t, "B", rows[1].Activity)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricDuration, m)

	m, err = ParseMetric("count")
	require.NoError(t, err)
	assert.Equal(t, MetricCount, m)

	_, err = ParseMetric("avg")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewLogEntryValidation(t *testing.T) {
	cases := []struct {
		name       string
		activity   string
		start, end time.Time
	}{
		{"empty activity", "", at(9, 0), at(10, 0)},
		{"blank activity", "   ", at(9, 0), at(10, 0)},
		{"missing start", "A", time.Time{}, at(10, 0)},
		{"missing end", "A", at(9, 0), time.Time{}},
		{"end before start", "A", at(10, 0), at(9, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLogEntry(tc.activity, tc.start, tc.end)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestOnDayUsesLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	e := LogEntry{Activity: "A", Start: time.Date(2025, 8, 1, 23, 30, 0, 0, time.UTC)}
	assert.True(t, e.OnDay("2025-08-01", time.UTC))
	assert.True(t, e.OnDay("2025-08-02", berlin))
}

func TestStoreErrorMatchesSentinel(t *testing.T) {
	err := error(&StoreError{Op: "insert log", Err: assert.AnError})
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestParseTimestamp(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	got, err := ParseTimestamp("start", "2025-08-01T10:00:00Z", berlin)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)))

	got, err = ParseTimestamp("start", "2025-08-01T10:00", berlin)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 8, 1, 8, 0, 0, 0, time.UTC)))

	_, err = ParseTimestamp("end", "", berlin)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ParseTimestamp("end", "yesterday", berlin)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTruncateToMicros(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	start := time.Date(2025, 8, 1, 9, 0, 0, 123456789, berlin)
	end := start.Add(time.Hour)

	got := TruncateToMicros(LogEntry{Activity: "A", Start: start, End: &end})
	assert.Equal(t, time.UTC, got.Start.Location())
	assert.Equal(t, 123456000, got.Start.Nanosecond())
	require.NotNil(t, got.End)
	assert.Equal(t, 123456000, got.End.Nanosecond())
	assert.Equal(t, 123456789, end.Nanosecond())

	running := TruncateToMicros(LogEntry{Activity: "A", Start: start})
	assert.Nil(t, running.End)
}
