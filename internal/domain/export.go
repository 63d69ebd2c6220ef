package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ExportFormat selects the month export encoding.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

// ParseExportFormat parses "csv" or "json".
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case ExportCSV, ExportJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", ErrInvalidArgument, s)
	}
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	if f == ExportJSON {
		return "application/json"
	}
	return "text/csv"
}

// MonthExport is the JSON document produced for a month.
type MonthExport struct {
	Month       string               `json:"month"`
	DaysInMonth int                  `json:"daysInMonth"`
	Stats       ExportStats          `json:"stats"`
	Days        map[string]DayExport `json:"days"`
	ExportedAt  time.Time            `json:"exportedAt"`
}

// ExportStats carries counts and percentages per status.
type ExportStats struct {
	Free        int                `json:"free"`
	Occupied    int                `json:"occupied"`
	Maintenance int                `json:"maintenance"`
	Cleaning    int                `json:"cleaning"`
	Percentages map[string]float64 `json:"percentages"`
}

// DayExport is one day entry of a JSON export.
type DayExport struct {
	Status DayStatus `json:"status"`
	Notes  string    `json:"notes"`
}

// ExportMonth encodes records of a month as CSV or JSON.
// label names the month in JSON output, exportedAt is stamped verbatim.
func ExportMonth(records []*DayRecord, daysInMonth int, format ExportFormat, label string, exportedAt time.Time) ([]byte, error) {
	switch format {
	case ExportCSV:
		return exportCSV(records, daysInMonth), nil
	case ExportJSON:
		return exportJSON(records, daysInMonth, label, exportedAt)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", ErrInvalidArgument, format)
	}
}

func byDay(records []*DayRecord, daysInMonth int) map[int]*DayRecord {
	out := make(map[int]*DayRecord, len(records))
	for _, rec := range records {
		if rec != nil && rec.Day >= 1 && rec.Day <= daysInMonth {
			out[rec.Day] = rec
		}
	}
	return out
}

func exportCSV(records []*DayRecord, daysInMonth int) []byte {
	days := byDay(records, daysInMonth)

	var buf bytes.Buffer
	buf.WriteString("Day,Status,Notes\n")
	for day := 1; day <= daysInMonth; day++ {
		status, notes := DayFree, ""
		if rec, ok := days[day]; ok {
			status, notes = rec.Status, rec.Notes
		}
		fmt.Fprintf(&buf, "%d,%s,%s\n", day, strings.ToUpper(status.String()), quoteCSV(notes))
	}
	return buf.Bytes()
}

// quoteCSV always quotes, doubling embedded quotes.
func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func exportJSON(records []*DayRecord, daysInMonth int, label string, exportedAt time.Time) ([]byte, error) {
	days := byDay(records, daysInMonth)
	stats := ComputeMonthStatistics(records, daysInMonth)

	doc := MonthExport{
		Month:       label,
		DaysInMonth: daysInMonth,
		Stats: ExportStats{
			Free:        stats.Free,
			Occupied:    stats.Occupied,
			Maintenance: stats.Maintenance,
			Cleaning:    stats.Cleaning,
			Percentages: make(map[string]float64, len(DayStatuses)),
		},
		Days:       make(map[string]DayExport, len(days)),
		ExportedAt: exportedAt.UTC(),
	}
	for _, st := range DayStatuses {
		doc.Stats.Percentages[st.String()] = stats.Percent(st)
	}
	for day, rec := range days {
		doc.Days[strconv.Itoa(day)] = DayExport{Status: rec.Status, Notes: rec.Notes}
	}

	return json.MarshalIndent(doc, "", "  ")
}

// DecodeMonthJSON parses a JSON export back into day records.
func DecodeMonthJSON(data []byte, apartmentID string, year, month int) (*MonthExport, []*DayRecord, error) {
	var doc MonthExport
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	records := make([]*DayRecord, 0, len(doc.Days))
	for key, d := range doc.Days {
		day, err := strconv.Atoi(key)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: day key %q", ErrInvalidArgument, key)
		}
		records = append(records, &DayRecord{
			ApartmentID: apartmentID,
			Year:        year,
			Month:       month,
			Day:         day,
			Status:      d.Status,
			Notes:       d.Notes,
		})
	}
	return &doc, records, nil
}
