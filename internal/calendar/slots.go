package calendar

import (
	"sort"

	"roomcal/internal/models"
)

// Slot is one distinct start/end pair of a day together with its bookings.
type Slot struct {
	Start       string              `json:"start"`
	End         string              `json:"end"`
	Label       string              `json:"label"`
	Occurrences []models.Occurrence `json:"occurrences"`
}

// SlotLabel joins formatted start and end times.
func SlotLabel(start, end string) string {
	return start + " - " + end
}

// SlotsForDay groups a day's occurrences by formatted start/end and orders
// the slots by start time. Slots with an unparseable start keep their
// first-seen order after all parseable ones.
func SlotsForDay(occurrences []models.Occurrence) []Slot {
	slots := make([]Slot, 0)
	index := make(map[string]int)

	for _, occ := range occurrences {
		start := FormatTime(occ.StartTime)
		end := FormatTime(occ.EndTime)
		label := SlotLabel(start, end)

		i, ok := index[label]
		if !ok {
			i = len(slots)
			index[label] = i
			slots = append(slots, Slot{Start: start, End: end, Label: label})
		}
		slots[i].Occurrences = append(slots[i].Occurrences, occ)
	}

	sort.SliceStable(slots, func(i, j int) bool {
		mi, okI := MinutesSinceMidnight(slots[i].Start)
		mj, okJ := MinutesSinceMidnight(slots[j].Start)
		switch {
		case okI && okJ:
			return mi < mj
		case okI:
			return true
		default:
			return false
		}
	})

	return slots
}

// Labels returns the slot labels in order.
func Labels(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Label
	}
	return out
}
