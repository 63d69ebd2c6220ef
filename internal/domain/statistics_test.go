package domain

import "testing"

func TestComputeMonthStatistics(t *testing.T) {
	records := []*DayRecord{
		{Day: 1, Status: DayOccupied},
		{Day: 2, Status: DayOccupied},
		{Day: 3, Status: DayCleaning},
		{Day: 4, Status: DayMaintenance},
		{Day: 5, Status: DayFree},
	}

	stats := ComputeMonthStatistics(records, 30)

	want := MonthStatistics{DaysInMonth: 30, Free: 26, Occupied: 2, Maintenance: 1, Cleaning: 1}
	if stats != want {
		t.Fatalf("got %+v, want %+v", stats, want)
	}
	if stats.Total() != 30 {
		t.Fatalf("expected counts to sum to 30, got %d", stats.Total())
	}
	if got := stats.OccupancyRate(); got != 6.7 {
		t.Fatalf("expected occupancy 6.7%%, got %v", got)
	}
}

func TestComputeMonthStatistics_Duplicates(t *testing.T) {
	records := []*DayRecord{
		{Day: 10, Status: DayOccupied},
		{Day: 10, Status: DayCleaning},
		{Day: 40, Status: DayOccupied},
		{Day: 0, Status: DayOccupied},
		nil,
	}

	stats := ComputeMonthStatistics(records, 31)

	if stats.Occupied != 0 || stats.Cleaning != 1 {
		t.Fatalf("expected last duplicate to win and out-of-range days ignored, got %+v", stats)
	}
	if stats.Total() != 31 {
		t.Fatalf("expected counts to sum to 31, got %d", stats.Total())
	}
}

func TestComputeMonthStatistics_Empty(t *testing.T) {
	stats := ComputeMonthStatistics(nil, 28)
	if stats.Free != 28 || stats.Total() != 28 {
		t.Fatalf("expected every day free, got %+v", stats)
	}
	if stats.Percent(DayFree) != 100 {
		t.Fatalf("expected 100%% free, got %v", stats.Percent(DayFree))
	}

	zero := ComputeMonthStatistics(nil, 0)
	if zero.Percent(DayOccupied) != 0 {
		t.Fatalf("expected zero percent for empty month")
	}
}
