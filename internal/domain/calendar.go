package domain

import (
	"fmt"
	"strings"
	"time"
)

// DayStatus is the occupancy state of one calendar date. The zero value is DayFree.
type DayStatus uint8

const (
	DayFree DayStatus = iota
	DayOccupied
	DayMaintenance
	DayCleaning
)

// DayStatuses lists every status in display order.
var DayStatuses = []DayStatus{DayFree, DayOccupied, DayMaintenance, DayCleaning}

func (s DayStatus) String() string {
	switch s {
	case DayFree:
		return "free"
	case DayOccupied:
		return "occupied"
	case DayMaintenance:
		return "maintenance"
	case DayCleaning:
		return "cleaning"
	default:
		return fmt.Sprintf("DayStatus(%d)", uint8(s))
	}
}

// IsValid reports whether s is one of the declared statuses.
func (s DayStatus) IsValid() bool {
	return s <= DayCleaning
}

// ParseDayStatus parses a status name, case-insensitively.
func ParseDayStatus(s string) (DayStatus, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, st := range DayStatuses {
		if st.String() == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, s)
}

// MarshalText implements encoding.TextMarshaler.
func (s DayStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %d", ErrInvalidArgument, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DayStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseDayStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// DayRecord is the stored status of one date of one apartment.
// Month is zero-based (0 = January).
type DayRecord struct {
	ApartmentID string
	Year        int
	Month       int
	Day         int
	Status      DayStatus
	Notes       string
	UpdatedAt   time.Time
}

// Key identifies the record within its apartment.
func (r *DayRecord) Key() DayKey {
	return DayKey{Year: r.Year, Month: r.Month, Day: r.Day}
}

// Date returns the record's date at midnight UTC.
func (r *DayRecord) Date() time.Time {
	return time.Date(r.Year, time.Month(r.Month+1), r.Day, 0, 0, 0, 0, time.UTC)
}

// DayKey is the (year, zero-based month, day) triple records are stored under.
type DayKey struct {
	Year  int
	Month int
	Day   int
}

func (k DayKey) String() string {
	return fmt.Sprintf("%d-%d-%d", k.Year, k.Month, k.Day)
}

// DayKeyFromDate converts a calendar date to its key.
func DayKeyFromDate(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{Year: y, Month: int(m) - 1, Day: d}
}

// DaysInMonth returns the number of days of a zero-based month, leap years included.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekday returns the weekday of the first of the month, Sunday = 0.
func FirstWeekday(year, month int) int {
	return int(time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// ValidateMonth checks month is within [0, 11].
func ValidateMonth(month int) error {
	if month < 0 || month > 11 {
		return fmt.Errorf("%w: month %d out of range 0-11", ErrInvalidDate, month)
	}
	return nil
}

// ValidateDay checks day exists in the given month.
func ValidateDay(year, month, day int) error {
	if err := ValidateMonth(month); err != nil {
		return err
	}
	if n := DaysInMonth(year, month); day < 1 || day > n {
		return fmt.Errorf("%w: day %d out of range 1-%d", ErrInvalidDate, day, n)
	}
	return nil
}

// ValidateDayRange checks 1 <= start <= end <= daysInMonth.
func ValidateDayRange(year, month, start, end int) error {
	if err := ValidateMonth(month); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}
	n := DaysInMonth(year, month)
	if start < 1 || end > n || start > end {
		return fmt.Errorf("%w: %d-%d not within 1-%d", ErrInvalidRange, start, end, n)
	}
	return nil
}

// MonthLabel returns a human label such as "January 2026".
func MonthLabel(year, month int) string {
	return fmt.Sprintf("%s %d", time.Month(month+1), year)
}

// Cell is one slot of a month grid. Day is zero for padding cells.
type Cell struct {
	Day    int
	Record *DayRecord
}

// Empty reports whether the cell is padding outside the month.
func (c Cell) Empty() bool {
	return c.Day == 0
}

// MonthGrid lays a month out in rows of seven cells starting on Sunday.
type MonthGrid struct {
	Year  int
	Month int
	Cells []Cell
}

// Weeks splits the grid into rows of seven.
func (g *MonthGrid) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, len(g.Cells)/7)
	for i := 0; i < len(g.Cells); i += 7 {
		weeks = append(weeks, g.Cells[i:i+7])
	}
	return weeks
}

// BuildMonthGrid produces the grid for a month. Days without a record get a
// default free record; records outside the month are ignored.
func BuildMonthGrid(apartmentID string, year, month int, records []*DayRecord) (*MonthGrid, error) {
	if err := ValidateMonth(month); err != nil {
		return nil, err
	}

	view := NewMonthView(apartmentID, year, month)
	view.Merge(records)

	lead := FirstWeekday(year, month)
	n := DaysInMonth(year, month)
	total := lead + n
	if rem := total % 7; rem != 0 {
		total += 7 - rem
	}

	cells := make([]Cell, total)
	for day := 1; day <= n; day++ {
		cells[lead+day-1] = Cell{Day: day, Record: view.Day(day)}
	}

	return &MonthGrid{Year: year, Month: month, Cells: cells}, nil
}

// MonthView is a local, mergeable copy of one month's day records.
type MonthView struct {
	ApartmentID string
	Year        int
	Month       int
	days        map[int]*DayRecord
}

// NewMonthView creates an empty view; every day reads as free until merged.
func NewMonthView(apartmentID string, year, month int) *MonthView {
	return &MonthView{
		ApartmentID: apartmentID,
		Year:        year,
		Month:       month,
		days:        make(map[int]*DayRecord),
	}
}

// Merge overlays records onto the view. Days absent from records are kept;
// records for other apartments or months are skipped.
func (v *MonthView) Merge(records []*DayRecord) {
	n := DaysInMonth(v.Year, v.Month)
	for _, rec := range records {
		if rec == nil || rec.Year != v.Year || rec.Month != v.Month {
			continue
		}
		if v.ApartmentID != "" && rec.ApartmentID != "" && rec.ApartmentID != v.ApartmentID {
			continue
		}
		if rec.Day < 1 || rec.Day > n {
			continue
		}
		cp := *rec
		v.days[rec.Day] = &cp
	}
}

// Day returns the record for day, or a default free record.
func (v *MonthView) Day(day int) *DayRecord {
	if rec, ok := v.days[day]; ok {
		return rec
	}
	return &DayRecord{ApartmentID: v.ApartmentID, Year: v.Year, Month: v.Month, Day: day, Status: DayFree}
}

// Records returns the explicitly set records in day order.
func (v *MonthView) Records() []*DayRecord {
	out := make([]*DayRecord, 0, len(v.days))
	for day := 1; day <= DaysInMonth(v.Year, v.Month); day++ {
		if rec, ok := v.days[day]; ok {
			out = append(out, rec)
		}
	}
	return out
}
