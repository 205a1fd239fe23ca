package calendar

import (
	"time"

	"roomcal/internal/models"
)

// ViewMode selects between the month grid and a single day.
type ViewMode string

const (
	ViewMonth ViewMode = "month"
	ViewDay   ViewMode = "day"
)

// ViewState is the navigation position of a calendar client. Every method
// returns a new value.
type ViewState struct {
	Year     int        `json:"year"`
	Month    time.Month `json:"month"`
	Selected time.Time  `json:"selected,omitempty"`
	Mode     ViewMode   `json:"mode"`
}

// NewViewState opens the month view on the month containing now.
func NewViewState(now time.Time) ViewState {
	d := models.CivilDate(now)
	return ViewState{Year: d.Year(), Month: d.Month(), Mode: ViewMonth}
}

// Range returns the inclusive date range of the displayed month.
func (v ViewState) Range() (time.Time, time.Time) {
	return MonthRange(v.Year, v.Month)
}

func (v ViewState) shiftMonth(delta int) ViewState {
	first := time.Date(v.Year, v.Month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	v.Year, v.Month = first.Year(), first.Month()
	return v
}

// PrevMonth moves to the previous month.
func (v ViewState) PrevMonth() ViewState { return v.shiftMonth(-1) }

// NextMonth moves to the next month.
func (v ViewState) NextMonth() ViewState { return v.shiftMonth(1) }

// Today moves to the month containing now, keeping the mode.
func (v ViewState) Today(now time.Time) ViewState {
	d := models.CivilDate(now)
	v.Year, v.Month = d.Year(), d.Month()
	return v
}

// SelectDay opens the day view on a day of the displayed month.
func (v ViewState) SelectDay(day int) ViewState {
	v.Selected = time.Date(v.Year, v.Month, day, 0, 0, 0, 0, time.UTC)
	v.Year, v.Month = v.Selected.Year(), v.Selected.Month()
	v.Mode = ViewDay
	return v
}

func (v ViewState) shiftDay(delta int) ViewState {
	if v.Selected.IsZero() {
		return v
	}
	v.Selected = v.Selected.AddDate(0, 0, delta)
	v.Year, v.Month = v.Selected.Year(), v.Selected.Month()
	return v
}

// PrevDay moves the selected day back by one. The displayed month follows.
func (v ViewState) PrevDay() ViewState { return v.shiftDay(-1) }

// NextDay moves the selected day forward by one.
func (v ViewState) NextDay() ViewState { return v.shiftDay(1) }

// Back returns to the month view, keeping the selection.
func (v ViewState) Back() ViewState {
	v.Mode = ViewMonth
	return v
}

// YearChoices lists the years offered by the year selector around year.
func YearChoices(year int) []int {
	out := make([]int, 10)
	for i := range out {
		out[i] = year - 5 + i
	}
	return out
}
