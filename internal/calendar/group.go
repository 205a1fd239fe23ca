package calendar

import (
	"sort"

	"roomcal/internal/models"
)

// GroupByDate buckets occurrences by ISO date. Input order is preserved inside
// each bucket.
func GroupByDate(occurrences []models.Occurrence) map[string][]models.Occurrence {
	grouped := make(map[string][]models.Occurrence)
	for _, occ := range occurrences {
		key := occ.DateKey()
		grouped[key] = append(grouped[key], occ)
	}
	return grouped
}

// SortedDates returns the keys of a grouping in ascending order.
func SortedDates(grouped map[string][]models.Occurrence) []string {
	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OnDate returns the occurrences whose date equals day, in input order.
func OnDate(occurrences []models.Occurrence, day string) []models.Occurrence {
	out := make([]models.Occurrence, 0)
	for _, occ := range occurrences {
		if occ.DateKey() == day {
			out = append(out, occ)
		}
	}
	return out
}
