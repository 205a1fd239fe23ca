package calendar

import (
	"time"

	"roomcal/internal/models"
)

// MonthView is everything a client needs to draw one month.
type MonthView struct {
	Year            int                            `json:"year"`
	Month           int                            `json:"month"`
	MonthName       string                         `json:"month_name"`
	RangeStart      string                         `json:"range_start"`
	RangeEnd        string                         `json:"range_end"`
	WeekdayHeaders  []string                       `json:"weekday_headers"`
	Cells           []DayCell                      `json:"cells"`
	ByDate          map[string][]models.Occurrence `json:"by_date"`
	Total           int                            `json:"total"`
	TruncatedSeries []string                       `json:"truncated_series,omitempty"`
	Legend          []LegendEntry                  `json:"legend"`
}

// LegendEntry pairs a department with its colour.
type LegendEntry struct {
	Department models.Department `json:"department"`
	Color      string            `json:"color"`
}

// DayView is the vertical schedule of one day.
type DayView struct {
	Date    string `json:"date"`
	Heading string `json:"heading"`
	Count   int    `json:"count"`
	Slots   []Slot `json:"slots"`
}

// BuildMonthView assembles a MonthView from an expansion result.
func BuildMonthView(year int, month time.Month, weekStart time.Weekday, res ExpandResult, today time.Time) *MonthView {
	first, last := MonthRange(year, month)
	byDate := GroupByDate(res.Occurrences)

	legend := make([]LegendEntry, 0, len(models.KnownDepartments))
	for _, d := range models.KnownDepartments {
		legend = append(legend, LegendEntry{Department: d, Color: d.Color()})
	}

	return &MonthView{
		Year:            year,
		Month:           int(month),
		MonthName:       month.String(),
		RangeStart:      models.DateKey(first),
		RangeEnd:        models.DateKey(last),
		WeekdayHeaders:  WeekdayHeaders(weekStart),
		Cells:           MonthGrid(year, month, weekStart, byDate, today),
		ByDate:          byDate,
		Total:           len(res.Occurrences),
		TruncatedSeries: res.TruncatedSeries,
		Legend:          legend,
	}
}

// BuildDayView filters occurrences down to day and resolves its slots.
func BuildDayView(day time.Time, occurrences []models.Occurrence) *DayView {
	day = models.CivilDate(day)
	key := models.DateKey(day)
	onDay := OnDate(occurrences, key)
	return &DayView{
		Date:    key,
		Heading: DayHeading(day),
		Count:   len(onDay),
		Slots:   SlotsForDay(onDay),
	}
}
