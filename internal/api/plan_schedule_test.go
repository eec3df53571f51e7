package api_test

import (
	"testing"
	"time"

	"empire/internal/api"
)

func TestNextMonday(t *testing.T) {
	cases := []struct {
		now  string
		want string
	}{
		{"2026-08-25", "2026-08-31"}, // Tuesday
		{"2026-08-30", "2026-08-31"}, // Sunday
		{"2026-08-31", "2026-09-07"}, // Monday skips to the following week
		{"2026-09-05", "2026-09-07"}, // Saturday
	}
	for _, tc := range cases {
		now, _ := time.Parse("2006-01-02", tc.now)
		got := api.NextMonday(now)
		if got.Format("2006-01-02") != tc.want {
			t.Errorf("NextMonday(%s) = %s, want %s", tc.now, got.Format("2006-01-02"), tc.want)
		}
		if got.Weekday() != time.Monday {
			t.Errorf("NextMonday(%s) fell on %s", tc.now, got.Weekday())
		}
	}
}

func TestBuildCyclesAreContiguous(t *testing.T) {
	start, _ := time.Parse("2006-01-02", "2026-08-31")
	windows := api.BuildCycles(start)

	if len(windows) != 6 {
		t.Fatalf("Expected 6 cycles, got %d", len(windows))
	}
	if windows[0].StartDate != "2026-08-31" {
		t.Fatalf("Expected first cycle to start on the start date, got %s", windows[0].StartDate)
	}

	for i, w := range windows {
		cs, _ := time.Parse("2006-01-02", w.StartDate)
		ce, _ := time.Parse("2006-01-02", w.EndDate)

		if days := int(ce.Sub(cs).Hours()/24) + 1; days != 14 {
			t.Errorf("Cycle %d spans %d days, want 14", i+1, days)
		}
		if w.Order != i+1 {
			t.Errorf("Cycle %d has order %d", i+1, w.Order)
		}
		if i > 0 {
			prevEnd, _ := time.Parse("2006-01-02", windows[i-1].EndDate)
			if !cs.Equal(prevEnd.AddDate(0, 0, 1)) {
				t.Errorf("Cycle %d starts %s, expected the day after %s", i+1, w.StartDate, windows[i-1].EndDate)
			}
		}
	}

	// Six 14-day cycles cover exactly 84 days.
	last, _ := time.Parse("2006-01-02", windows[5].EndDate)
	if int(last.Sub(start).Hours()/24) != 83 {
		t.Errorf("Expected last cycle to end 83 days after start, got %s", windows[5].EndDate)
	}
}

func TestPlanEndDate(t *testing.T) {
	start, _ := time.Parse("2006-01-02", "2026-08-31")
	if got := api.PlanEndDate(start); got != "2026-11-30" {
		t.Errorf("PlanEndDate = %s, want 2026-11-30", got)
	}
}
