// Package export renders log entries as the downloadable CSV artifact.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"activity-tracker/internal/domain"
)

// Header is the first row of every export.
var Header = []string{"Activity", "Start Time", "End Time", "Duration (min)"}

// Open marks the end and duration of an entry that is still running.
const Open = "-"

// Row is one parsed line of an export.
type Row struct {
	Activity string
	Start    time.Time
	End      *time.Time
	Minutes  *float64
}

// FormatMinutes renders a duration in minutes with one decimal.
func FormatMinutes(d time.Duration) string {
	return strconv.FormatFloat(d.Minutes(), 'f', 1, 64)
}

// WriteCSV writes entries in the given order with timestamps in loc.
func WriteCSV(w io.Writer, entries []domain.LogEntry, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, e := range entries {
		end, minutes := Open, Open
		if e.End != nil {
			end = e.End.In(loc).Format(time.RFC3339)
			minutes = FormatMinutes(e.End.Sub(e.Start))
		}
		if err := cw.Write([]string{e.Activity, e.Start.In(loc).Format(time.RFC3339), end, minutes}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses an export produced by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty export")
		}
		return nil, err
	}
	if strings.Join(head, ",") != strings.Join(Header, ",") {
		return nil, fmt.Errorf("unexpected header %q", head)
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		row := Row{Activity: rec[0]}
		if row.Start, err = time.Parse(time.RFC3339, rec[1]); err != nil {
			return nil, fmt.Errorf("line %d: start: %w", line, err)
		}
		if rec[2] != Open {
			end, err := time.Parse(time.RFC3339, rec[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: end: %w", line, err)
			}
			row.End = &end
		}
		if rec[3] != Open {
			m, err := strconv.ParseFloat(rec[3], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: duration: %w", line, err)
			}
			row.Minutes = &m
		}
		rows = append(rows, row)
	}
}

// Filename is the suggested download name for a day's export.
func Filename(day string) string {
	if day == "" {
		return "activity_logs.csv"
	}
	return "activity_logs_" + day + ".csv"
}
