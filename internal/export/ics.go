package export

import (
	"fmt"
	"strings"
	"time"

	"roomcal/internal/models"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//roomcal//Room bookings//EN"

// MonthICS renders the occurrences of a month as a VCALENDAR. Wall-clock
// booking times are read in loc (UTC when nil). Occurrences without a
// readable start time become all-day events.
func MonthICS(year int, month time.Month, occs []models.Occurrence, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	stamp := time.Now().UTC()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(fmt.Sprintf("Room bookings %s %d", month.String(), year))
	cal.SetXWRTimezone(loc.String())

	for _, o := range sortedOccurrences(occs) {
		event := cal.AddEvent(EventUID(o))
		event.SetDtStampTime(stamp)
		event.SetSummary(o.Title)
		if location := eventLocation(o); location != "" {
			event.SetLocation(location)
		}
		if desc := eventDescription(o); desc != "" {
			event.SetDescription(desc)
		}
		if o.Department != "" {
			event.SetProperty(ical.ComponentPropertyCategories, string(o.Department))
		}
		if o.Status == models.StatusConfirmed {
			event.SetStatus(ical.ObjectStatusConfirmed)
		}

		day := models.CivilDate(o.Date)
		start, ok := startMinutes(o)
		if !ok {
			event.SetAllDayStartAt(day)
			event.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}
		startAt := wallClock(day, start, loc)
		endAt := startAt.Add(time.Hour)
		if end, ok := clockMinutes(o.EndTime); ok && end > start {
			endAt = wallClock(day, end, loc)
		}
		event.SetStartAt(startAt)
		event.SetEndAt(endAt)
	}

	return cal.Serialize()
}

// EventUID is stable per booking and date.
func EventUID(o models.Occurrence) string {
	return fmt.Sprintf("%s-%s", o.ID, o.DateKey())
}

func wallClock(day time.Time, minutes int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc)
}

func eventLocation(o models.Occurrence) string {
	parts := make([]string, 0, 2)
	if o.RoomName != "" {
		parts = append(parts, o.RoomName)
	}
	if o.BuildingName != "" {
		parts = append(parts, o.BuildingName)
	}
	return strings.Join(parts, ", ")
}

func eventDescription(o models.Occurrence) string {
	var lines []string
	if name := o.BookerName(); name != "" {
		lines = append(lines, "Booked by: "+name)
	}
	if o.Recurring.Recurring() {
		lines = append(lines, "Repeats: "+o.Recurring.String())
	}
	return strings.Join(lines, "\n")
}
