package calendar

import (
	"fmt"
	"strings"
	"time"

	"roomcal/internal/models"
)

// DayCell is one cell of the 6x7 month grid.
type DayCell struct {
	Date    string              `json:"date"`
	Day     int                 `json:"day"`
	InMonth bool                `json:"in_month"`
	IsToday bool                `json:"is_today"`
	Count   int                 `json:"count"`
	Preview []models.Occurrence `json:"preview,omitempty"`
}

// ParseWeekStart accepts "sunday" or "monday". Anything else is an error.
func ParseWeekStart(raw string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon":
		return time.Monday, nil
	default:
		return time.Sunday, fmt.Errorf("unsupported week start %q", raw)
	}
}

// WeekdayHeaders returns short weekday names starting at weekStart.
func WeekdayHeaders(weekStart time.Weekday) []string {
	out := make([]string, 7)
	for i := range out {
		wd := (weekStart + time.Weekday(i)) % 7
		out[i] = wd.String()[:3]
	}
	return out
}

// MonthGrid lays out a month as 42 cells. Cells outside the month carry only
// their date; in-month cells carry the booking count and the first few
// occurrences of the day.
func MonthGrid(year int, month time.Month, weekStart time.Weekday, byDate map[string][]models.Occurrence, today time.Time) []DayCell {
	first, _ := MonthRange(year, month)
	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7
	start := first.AddDate(0, 0, -offset)
	todayKey := models.DateKey(models.CivilDate(today))

	cells := make([]DayCell, 0, models.CalendarCells)
	for i := 0; i < models.CalendarCells; i++ {
		d := start.AddDate(0, 0, i)
		key := models.DateKey(d)
		cell := DayCell{
			Date:    key,
			Day:     d.Day(),
			InMonth: d.Month() == month,
		}
		if cell.InMonth {
			cell.IsToday = key == todayKey
			day := byDate[key]
			cell.Count = len(day)
			if len(day) > models.DayPreviewLimit {
				day = day[:models.DayPreviewLimit]
			}
			if len(day) > 0 {
				cell.Preview = append([]models.Occurrence(nil), day...)
			}
		}
		cells = append(cells, cell)
	}
	return cells
}

// MonthRange returns the first and last calendar date of a month in UTC.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// DaysIn returns the number of days in a month.
func DaysIn(year int, month time.Month) int {
	_, last := MonthRange(year, month)
	return last.Day()
}

// DayHeading renders "Tuesday, 2024-03-05".
func DayHeading(day time.Time) string {
	return day.Weekday().String() + ", " + models.DateKey(day)
}
