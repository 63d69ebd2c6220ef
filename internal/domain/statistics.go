package domain

import (
	"math"
)

// MonthStatistics counts days per status over a month.
type MonthStatistics struct {
	DaysInMonth int `json:"daysInMonth"`
	Free        int `json:"free"`
	Occupied    int `json:"occupied"`
	Maintenance int `json:"maintenance"`
	Cleaning    int `json:"cleaning"`
}

// ComputeMonthStatistics counts records by status. Days in [1, daysInMonth]
// without a record count as free, so the four counts always sum to daysInMonth.
// Duplicate records for a day resolve to the last one; out-of-range days are ignored.
func ComputeMonthStatistics(records []*DayRecord, daysInMonth int) MonthStatistics {
	byDay := make(map[int]DayStatus, len(records))
	for _, rec := range records {
		if rec == nil || rec.Day < 1 || rec.Day > daysInMonth {
			continue
		}
		byDay[rec.Day] = rec.Status
	}

	stats := MonthStatistics{DaysInMonth: max(daysInMonth, 0)}
	for _, status := range byDay {
		switch status {
		case DayFree:
			stats.Free++
		case DayOccupied:
			stats.Occupied++
		case DayMaintenance:
			stats.Maintenance++
		case DayCleaning:
			stats.Cleaning++
		default:
			stats.Free++
		}
	}
	stats.Free += stats.DaysInMonth - len(byDay)

	return stats
}

// Count returns the number of days with status.
func (s MonthStatistics) Count(status DayStatus) int {
	switch status {
	case DayOccupied:
		return s.Occupied
	case DayMaintenance:
		return s.Maintenance
	case DayCleaning:
		return s.Cleaning
	default:
		return s.Free
	}
}

// Percent returns the share of days with status, in percent to one decimal.
func (s MonthStatistics) Percent(status DayStatus) float64 {
	if s.DaysInMonth == 0 {
		return 0
	}
	return math.Round(float64(s.Count(status))/float64(s.DaysInMonth)*1000) / 10
}

// OccupancyRate is the percentage of occupied days, to one decimal.
func (s MonthStatistics) OccupancyRate() float64 {
	return s.Percent(DayOccupied)
}

// Total returns the sum of all counts.
func (s MonthStatistics) Total() int {
	return s.Free + s.Occupied + s.Maintenance + s.Cleaning
}
