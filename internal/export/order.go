package export

import (
	"sort"

	"roomcal/internal/calendar"
	"roomcal/internal/models"
)

// clockMinutes reads any accepted time shape as minutes since midnight.
func clockMinutes(raw string) (int, bool) {
	return calendar.MinutesSinceMidnight(calendar.FormatTime(raw))
}

func startMinutes(o models.Occurrence) (int, bool) {
	return clockMinutes(o.StartTime)
}

// sortedOccurrences returns a copy ordered by date, then start time, then id.
// Unparseable start times sort after parseable ones on the same date.
func sortedOccurrences(occs []models.Occurrence) []models.Occurrence {
	out := make([]models.Occurrence, len(occs))
	copy(out, occs)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DateKey(), out[j].DateKey()
		if di != dj {
			return di < dj
		}
		mi, okI := startMinutes(out[i])
		mj, okJ := startMinutes(out[j])
		if okI != okJ {
			return okI
		}
		if okI && mi != mj {
			return mi < mj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
