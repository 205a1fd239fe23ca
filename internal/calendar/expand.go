package calendar

import (
	"time"

	"roomcal/internal/models"

	"github.com/teambition/rrule-go"
)

// ExpandConfig controls how bookings are turned into occurrences.
type ExpandConfig struct {
	// RangeStart / RangeEnd are inclusive calendar dates.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerSeries caps a single series. Zero means
	// models.DefaultMaxOccurrencesPerSeries.
	MaxOccurrencesPerSeries int
}

// ExpandResult holds the occurrences and the IDs of series that hit the cap.
type ExpandResult struct {
	Occurrences     []models.Occurrence
	TruncatedSeries []string
}

// OccurrencesInRange expands bookings into the occurrences visible between
// rangeStart and rangeEnd, both inclusive. Output order is not significant.
func OccurrencesInRange(bookings []models.BookingRecord, rangeStart, rangeEnd time.Time) []models.Occurrence {
	return Expand(bookings, ExpandConfig{RangeStart: rangeStart, RangeEnd: rangeEnd}).Occurrences
}

// Expand is OccurrencesInRange with an explicit safety cap and truncation report.
//
// Pending and declined bookings never produce occurrences. A booking whose
// cadence is none or unknown yields itself. A series yields every cadence step
// from its anchor date that falls inside the intersection of the series span
// and the range; an open-ended series is clamped to the range end.
func Expand(bookings []models.BookingRecord, cfg ExpandConfig) ExpandResult {
	result := ExpandResult{Occurrences: make([]models.Occurrence, 0, len(bookings))}

	rangeStart := models.CivilDate(cfg.RangeStart)
	rangeEnd := models.CivilDate(cfg.RangeEnd)
	if cfg.MaxOccurrencesPerSeries <= 0 {
		cfg.MaxOccurrencesPerSeries = models.DefaultMaxOccurrencesPerSeries
	}
	if rangeEnd.Before(rangeStart) {
		return result
	}

	for _, b := range bookings {
		if !b.Status.Visible() {
			continue
		}

		if !b.Recurring.Recurring() {
			result.Occurrences = append(result.Occurrences, models.Occurrence{BookingRecord: b})
			continue
		}

		dates, hitCap := seriesDates(b, rangeStart, rangeEnd, cfg.MaxOccurrencesPerSeries)
		if hitCap {
			result.TruncatedSeries = append(result.TruncatedSeries, b.ID)
		}
		for _, d := range dates {
			occ := models.Occurrence{BookingRecord: b, IsRecurring: true}
			occ.Date = d
			result.Occurrences = append(result.Occurrences, occ)
		}
	}

	return result
}

// seriesDates returns the cadence steps of b inside [rangeStart, rangeEnd].
func seriesDates(b models.BookingRecord, rangeStart, rangeEnd time.Time, limit int) ([]time.Time, bool) {
	anchor := models.CivilDate(b.Date)
	end := rangeEnd
	if b.RecurrenceEndDate != nil {
		end = models.CivilDate(*b.RecurrenceEndDate)
	}

	if anchor.After(rangeEnd) || end.Before(rangeStart) {
		return nil, false
	}

	from := anchor
	if rangeStart.After(from) {
		from = rangeStart
	}
	until := end
	if rangeEnd.Before(until) {
		until = rangeEnd
	}
	if until.Before(from) {
		return nil, false
	}

	rule, err := newSeriesRule(b.Recurring, anchor, seriesStart(b.Recurring, anchor, from), until)
	if err != nil {
		return nil, false
	}

	dates := rule.Between(from, until, true)
	if len(dates) > limit {
		return normalize(dates[:limit]), true
	}
	return normalize(dates), false
}

// seriesStart returns the first cadence step on or after from, keeping the
// anchor's phase. Monthly series start at the first of from's month and rely
// on BYMONTHDAY for the day.
func seriesStart(c models.Cadence, anchor, from time.Time) time.Time {
	if !from.After(anchor) {
		return anchor
	}
	switch c {
	case models.CadenceDaily:
		return from
	case models.CadenceWeekly:
		days := (from.Unix() - anchor.Unix()) / 86400
		weeks := (days + 6) / 7
		return anchor.AddDate(0, 0, int(weeks*7))
	case models.CadenceMonthly:
		first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
		if first.After(anchor) {
			return first
		}
	}
	return anchor
}

// newSeriesRule builds the recurrence rule for a series anchored at anchor,
// iterated from dtstart.
//
// Monthly series advance by calendar month. An anchor day that a month lacks
// is clamped to that month's last day: BYMONTHDAY lists 28..anchor and
// BYSETPOS=-1 picks the latest one that exists.
func newSeriesRule(c models.Cadence, anchor, dtstart, until time.Time) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Dtstart: dtstart,
		Until:   until,
	}

	switch c {
	case models.CadenceDaily:
		opt.Freq = rrule.DAILY
	case models.CadenceWeekly:
		opt.Freq = rrule.WEEKLY
	case models.CadenceMonthly:
		opt.Freq = rrule.MONTHLY
		day := anchor.Day()
		if day <= 28 {
			opt.Bymonthday = []int{day}
		} else {
			for d := 28; d <= day; d++ {
				opt.Bymonthday = append(opt.Bymonthday, d)
			}
			opt.Bysetpos = []int{-1}
		}
	default:
		opt.Freq = rrule.DAILY
		opt.Count = 1
	}

	return rrule.NewRRule(opt)
}

func normalize(dates []time.Time) []time.Time {
	out := make([]time.Time, len(dates))
	for i, d := range dates {
		out[i] = models.CivilDate(d.UTC())
	}
	return out
}
