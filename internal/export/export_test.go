package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"roomcal/internal/models"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func occ(id string, d int, start, end string, dept models.Department) models.Occurrence {
	return models.Occurrence{BookingRecord: models.BookingRecord{
		ID:           id,
		Title:        "Meeting " + id,
		Department:   dept,
		Status:       models.StatusConfirmed,
		Date:         time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC),
		StartTime:    start,
		EndTime:      end,
		RoomName:     "Blue",
		BuildingName: "HQ",
		FirstName:    "Ann",
		LastName:     "Lee",
	}}
}

func sample() []models.Occurrence {
	weekly := occ("w", 4, "09:00", "09:30", models.DepartmentASITE)
	weekly.Recurring = models.CadenceWeekly
	weekly.IsRecurring = true
	return []models.Occurrence{
		occ("late", 5, "2024-03-05T14:00:00Z", "2024-03-05T15:00:00Z", models.DepartmentSEELL),
		occ("noon", 5, "12:00 PM", "1:00 PM", "Mystery"),
		occ("tbd", 5, "soon", "later", ""),
		occ("early", 5, "8:00", "9:00", models.DepartmentWSGSB),
		weekly,
	}
}

func TestSortedOccurrences(t *testing.T) {
	var ids []string
	for _, o := range sortedOccurrences(sample()) {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"w", "early", "noon", "late", "tbd"}, ids)
}

func TestWriteMonthXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMonthXLSX(&buf, 2024, time.March, sample()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, "March 2024: 01.03.2024 - 31.03.2024", rows[0][0])
	assert.Equal(t, xlsxHeaders, rows[1])

	first := rows[2]
	assert.Equal(t, "2024-03-04", first[0])
	assert.Equal(t, "9:00 AM - 9:30 AM", first[1])
	assert.Equal(t, "Meeting w", first[2])
	assert.Equal(t, string(models.DepartmentASITE), first[5])
	assert.Equal(t, "Weekly", first[7])
	assert.Equal(t, "Ann Lee", first[8])

	assert.Equal(t, "2:00 PM - 3:00 PM", rows[5][1])
	assert.Equal(t, "soon - later", rows[6][1])

	styleID, err := f.GetCellStyle(sheetName, "F3")
	require.NoError(t, err)
	assert.NotZero(t, styleID)
}

func TestSaveMonthXLSX(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	path, err := SaveMonthXLSX(dir, 2024, time.March, sample())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bookings_2024-03.xlsx"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestMonthICS(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	out := MonthICS(2024, time.March, sample(), msk)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 5)

	byUID := make(map[string]*ical.VEvent)
	for _, e := range events {
		byUID[e.Id()] = e
	}
	require.Contains(t, byUID, "w-2024-03-04")
	require.Contains(t, byUID, "tbd-2024-03-05")

	weekly := byUID["w-2024-03-04"]
	assert.Equal(t, "20240304T060000Z", weekly.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240304T063000Z", weekly.GetProperty(ical.ComponentPropertyDtEnd).Value)
	assert.Contains(t, weekly.GetProperty(ical.ComponentPropertyLocation).Value, "Blue")
	assert.Equal(t, "Meeting w", weekly.GetProperty(ical.ComponentPropertySummary).Value)

	allDay := byUID["tbd-2024-03-05"]
	assert.Equal(t, "20240305", allDay.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240306", allDay.GetProperty(ical.ComponentPropertyDtEnd).Value)
}

func TestMonthICS_EmptyMonth(t *testing.T) {
	out := MonthICS(2024, time.February, nil, nil)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}
