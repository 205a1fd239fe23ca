package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the moderation state of a booking as reported upstream.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
	StatusUnknown   Status = "unknown"
)

// ParseStatus maps an upstream status string onto a Status. Unrecognised
// values become StatusUnknown.
func ParseStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending
	case StatusConfirmed:
		return StatusConfirmed
	case StatusDeclined:
		return StatusDeclined
	default:
		return StatusUnknown
	}
}

// Visible reports whether bookings in this status appear on the calendar.
func (s Status) Visible() bool {
	return s != StatusPending && s != StatusDeclined
}

// Cadence is the recurrence rule of a booking series.
type Cadence int

const (
	CadenceNone Cadence = iota
	CadenceDaily
	CadenceWeekly
	CadenceMonthly
	CadenceUnknown
)

var cadenceNames = map[Cadence]string{
	CadenceNone:    "No",
	CadenceDaily:   "Daily",
	CadenceWeekly:  "Weekly",
	CadenceMonthly: "Monthly",
	CadenceUnknown: "Unknown",
}

// ParseCadence maps the upstream "recurring" field. Empty, "No" and "None"
// mean a single booking; anything unrecognised is CadenceUnknown.
func ParseCadence(raw string) Cadence {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "no", "none", "false":
		return CadenceNone
	case "daily":
		return CadenceDaily
	case "weekly":
		return CadenceWeekly
	case "monthly":
		return CadenceMonthly
	default:
		return CadenceUnknown
	}
}

func (c Cadence) String() string {
	if name, ok := cadenceNames[c]; ok {
		return name
	}
	return cadenceNames[CadenceUnknown]
}

// Recurring reports whether the cadence produces more than one occurrence.
// CadenceUnknown is treated as a single booking.
func (c Cadence) Recurring() bool {
	return c == CadenceDaily || c == CadenceWeekly || c == CadenceMonthly
}

func (c Cadence) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Cadence) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*c = CadenceUnknown
		return nil
	}
	*c = ParseCadence(raw)
	return nil
}

// Department is the organisational unit that owns a booking.
type Department string

const (
	DepartmentASITE      Department = "ASITE"
	DepartmentWSGSB      Department = "WSGSB"
	DepartmentSZGSDM     Department = "SZGSDM"
	DepartmentSEELL      Department = "SEELL"
	DepartmentOtherUnits Department = "Other Units"
	DepartmentExternal   Department = "External"
)

// KnownDepartments in legend order.
var KnownDepartments = []Department{
	DepartmentASITE,
	DepartmentWSGSB,
	DepartmentSZGSDM,
	DepartmentSEELL,
	DepartmentOtherUnits,
	DepartmentExternal,
}

var departmentColors = map[Department]string{
	DepartmentASITE:      "#E9D5FF",
	DepartmentWSGSB:      "#BBF7D0",
	DepartmentSZGSDM:     "#FEF08A",
	DepartmentSEELL:      "#BFDBFE",
	DepartmentOtherUnits: "#FED7AA",
	DepartmentExternal:   "#FBCFE8",
}

// NeutralColor is used for departments outside the known set.
const NeutralColor = "#E5E7EB"

// Known reports whether d is one of KnownDepartments.
func (d Department) Known() bool {
	_, ok := departmentColors[d]
	return ok
}

// Color returns the legend colour of the department as a hex string.
func (d Department) Color() string {
	if c, ok := departmentColors[d]; ok {
		return c
	}
	return NeutralColor
}

// BookingRecord is one booking as delivered by the booking API, after wire
// decoding. Date is a civil date at UTC midnight; for a series it is the anchor.
type BookingRecord struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Department        Department `json:"department"`
	Status            Status     `json:"status"`
	Date              time.Time  `json:"date"`
	StartTime         string     `json:"start_time"`
	EndTime           string     `json:"end_time"`
	Recurring         Cadence    `json:"recurring"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date,omitempty"`
	RoomID            string     `json:"room_id"`
	RoomName          string     `json:"room_name"`
	BuildingName      string     `json:"building_name"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
}

// BookerName is the display name of the person who made the booking.
func (b BookingRecord) BookerName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

// Occurrence is a BookingRecord placed on one concrete calendar date.
type Occurrence struct {
	BookingRecord
	IsRecurring bool `json:"is_recurring"`
}

// DateKey returns the occurrence date as YYYY-MM-DD.
func (o Occurrence) DateKey() string {
	return DateKey(o.Date)
}

// DateKey formats t as an ISO calendar date.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// CivilDate truncates t to midnight UTC of its own calendar date.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts a bare ISO date or an RFC 3339 timestamp and returns the
// calendar date at UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if t2, err2 := time.Parse("2006-01-02T15:04:05", raw); err2 == nil {
			return CivilDate(t2), nil
		}
		return time.Time{}, err
	}
	return CivilDate(t.UTC()), nil
}
