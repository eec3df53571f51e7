package api

import (
	"fmt"
	"time"
)

const (
	cycleCount  = 6
	cycleLength = 14
	planMonths  = 3
)

// NextMonday returns the Monday of the week after now, date-truncated.
// Plans always start on a Monday so cycles align with calendar weeks; even
// when today is Monday the plan starts next week.
func NextMonday(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}

type cycleWindow struct {
	Title     string
	StartDate string
	EndDate   string
	Order     int
}

// BuildCycles lays out six contiguous two-week cycles from the start date.
// Cycle n covers days [start+14(n-1), start+14n-1], so each cycle ends the
// day before the next begins.
func BuildCycles(start time.Time) []cycleWindow {
	windows := make([]cycleWindow, 0, cycleCount)
	for i := 1; i <= cycleCount; i++ {
		cs := start.AddDate(0, 0, cycleLength*(i-1))
		ce := start.AddDate(0, 0, cycleLength*i-1)
		windows = append(windows, cycleWindow{
			Title:     fmt.Sprintf("Cycle %d", i),
			StartDate: cs.Format("2006-01-02"),
			EndDate:   ce.Format("2006-01-02"),
			Order:     i,
		})
	}
	return windows
}

// PlanEndDate is three calendar months after the start.
func PlanEndDate(start time.Time) string {
	return start.AddDate(0, planMonths, 0).Format("2006-01-02")
}
