package calendar

import (
	"testing"

	"roomcal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"00:15", "12:15 AM"},
		{"09:30", "9:30 AM"},
		{"9:30", "9:30 AM"},
		{"12:00", "12:00 PM"},
		{"13:05:09", "1:05 PM"},
		{"14:00:00", "2:00 PM"},
		{"23:59", "11:59 PM"},
		{"24:00", "24:00"},
		{"10:75", "10:75"},
		{"2024-03-05T14:00:00Z", "2:00 PM"},
		{"2024-03-05T14:00:00.000Z", "2:00 PM"},
		{"2024-03-05T00:30:00Z", "12:30 AM"},
		{"2024-03-05T23:45:00+02:00", "9:45 PM"},
		{"2024-03-05T14:00:00+0000", "2:00 PM"},
		{"2024-03-05T14:00:00.250-0300", "5:00 PM"},
		{"2024-03-05T14:00:00", "2:00 PM"},
		{"2024-03-05T14:00", "2:00 PM"},
		{"2024-03-05Tbroken", "2024-03-05Tbroken"},
		{"9:05 am", "9:05 AM"},
		{"09:05 PM", "9:05 PM"},
		{"13:00 PM", "13:00 PM"},
		{"noon", "noon"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTime(tt.in), "FormatTime(%q)", tt.in)
	}
}

func TestMinutesSinceMidnight(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"12:00 AM", 0, true},
		{"12:30 AM", 30, true},
		{"1:00 AM", 60, true},
		{"11:59 AM", 719, true},
		{"12:00 PM", 720, true},
		{"1:15 PM", 795, true},
		{"11:59 pm", 1439, true},
		{"14:00", 0, false},
		{"0:30 AM", 0, false},
	}
	for _, tt := range tests {
		got, ok := MinutesSinceMidnight(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func occAt(id, start, end string) models.Occurrence {
	return models.Occurrence{BookingRecord: models.BookingRecord{ID: id, StartTime: start, EndTime: end}}
}

func TestSlotsForDay_SameInstantDifferentShapes(t *testing.T) {
	slots := SlotsForDay([]models.Occurrence{
		occAt("a", "14:00:00", "15:00:00"),
		occAt("b", "2024-03-05T14:00:00Z", "2024-03-05T15:00:00Z"),
	})
	require.Len(t, slots, 1)
	assert.Equal(t, "2:00 PM - 3:00 PM", slots[0].Label)
	assert.Len(t, slots[0].Occurrences, 2)
}

func TestSlotsForDay_ChronologicalNotLexical(t *testing.T) {
	slots := SlotsForDay([]models.Occurrence{
		occAt("a", "10:00", "10:30"),
		occAt("b", "09:00", "09:30"),
	})
	assert.Equal(t, []string{"9:00 AM - 9:30 AM", "10:00 AM - 10:30 AM"}, Labels(slots))
}

func TestSlotsForDay_Ordering(t *testing.T) {
	slots := SlotsForDay([]models.Occurrence{
		occAt("late", "13:00", "14:00"),
		occAt("odd", "whenever", "later"),
		occAt("noon", "12:00", "12:45"),
		occAt("midnight", "00:00", "00:30"),
		occAt("tie-first", "08:00", "09:00"),
		occAt("tie-second", "08:00", "08:30"),
		occAt("dup", "13:00:00", "14:00:00"),
	})

	assert.Equal(t, []string{
		"12:00 AM - 12:30 AM",
		"8:00 AM - 9:00 AM",
		"8:00 AM - 8:30 AM",
		"12:00 PM - 12:45 PM",
		"1:00 PM - 2:00 PM",
		"whenever - later",
	}, Labels(slots))

	last := slots[4]
	require.Len(t, last.Occurrences, 2)
	assert.Equal(t, "late", last.Occurrences[0].ID)
	assert.Equal(t, "dup", last.Occurrences[1].ID)
}

func TestSlotsForDay_Empty(t *testing.T) {
	assert.Empty(t, SlotsForDay(nil))
}
