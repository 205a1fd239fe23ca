package bookingapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"roomcal/internal/models"
)

// flexString accepts JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

type bookingDTO struct {
	BookingID         flexString      `json:"bookingId"`
	ID                flexString      `json:"id"`
	Title             string          `json:"title"`
	Department        string          `json:"department"`
	Status            string          `json:"status"`
	Date              string          `json:"date"`
	StartTime         string          `json:"startTime"`
	EndTime           string          `json:"endTime"`
	Recurring         any             `json:"recurring"`
	RecurrenceEndDate *string         `json:"recurrenceEndDate"`
	RoomID            flexString      `json:"roomId"`
	RoomName          string          `json:"roomName"`
	Building          json.RawMessage `json:"building"`
	BuildingName      string          `json:"buildingName"`
	FirstName         string          `json:"firstName"`
	LastName          string          `json:"lastName"`
}

func (b bookingDTO) id() string {
	if b.BookingID != "" {
		return string(b.BookingID)
	}
	return string(b.ID)
}

// toRecord converts the wire shape. An unreadable anchor date is an error;
// an unreadable recurrence end date means the series is open-ended.
func (b bookingDTO) toRecord() (models.BookingRecord, error) {
	date, err := models.ParseDate(b.Date)
	if err != nil {
		return models.BookingRecord{}, fmt.Errorf("booking %s: date %q: %w", b.id(), b.Date, err)
	}

	rec := models.BookingRecord{
		ID:           b.id(),
		Title:        b.Title,
		Department:   models.Department(strings.TrimSpace(b.Department)),
		Status:       models.ParseStatus(b.Status),
		Date:         date,
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		Recurring:    parseRecurring(b.Recurring),
		RoomID:       string(b.RoomID),
		RoomName:     b.RoomName,
		BuildingName: b.BuildingName,
		FirstName:    b.FirstName,
		LastName:     b.LastName,
	}
	if rec.BuildingName == "" {
		rec.BuildingName = buildingFromRaw(b.Building)
	}
	if b.RecurrenceEndDate != nil && strings.TrimSpace(*b.RecurrenceEndDate) != "" {
		if end, err := models.ParseDate(*b.RecurrenceEndDate); err == nil {
			rec.RecurrenceEndDate = &end
		}
	}
	return rec, nil
}

// parseRecurring handles the string form and the occasional boolean.
func parseRecurring(v any) models.Cadence {
	switch r := v.(type) {
	case nil:
		return models.CadenceNone
	case string:
		return models.ParseCadence(r)
	case bool:
		if !r {
			return models.CadenceNone
		}
		return models.CadenceUnknown
	default:
		return models.CadenceUnknown
	}
}

type buildingRef struct {
	BuildingName string `json:"buildingName"`
}

type subRoomDTO struct {
	RoomName string `json:"roomName"`
}

type roomDTO struct {
	RoomID       flexString      `json:"roomId"`
	RoomName     string          `json:"roomName"`
	BuildingID   flexString      `json:"buildingId"`
	Building     json.RawMessage `json:"building"`
	BuildingRef  *buildingRef    `json:"Building"`
	BuildingName string          `json:"buildingName"`
	SubRooms     []subRoomDTO    `json:"subRooms"`
}

// buildingFromRaw reads a building given either as a name or as an object.
func buildingFromRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var ref buildingRef
	if err := json.Unmarshal(raw, &ref); err == nil {
		return ref.BuildingName
	}
	return ""
}

// buildingLabel resolves the building name from whichever field is present.
func (r roomDTO) buildingLabel() string {
	if name := buildingFromRaw(r.Building); name != "" {
		return name
	}
	if r.BuildingRef != nil && r.BuildingRef.BuildingName != "" {
		return r.BuildingRef.BuildingName
	}
	return r.BuildingName
}

func (r roomDTO) toRoom() models.Room {
	room := models.Room{
		ID:           string(r.RoomID),
		Name:         r.RoomName,
		BuildingID:   string(r.BuildingID),
		BuildingName: r.buildingLabel(),
	}
	for _, sub := range r.SubRooms {
		room.SubRooms = append(room.SubRooms, models.SubRoom{Name: sub.RoomName})
	}
	return room
}

// decodeList accepts either a bare JSON array or an object holding the array
// under key.
func decodeList(body []byte, key string, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty body")
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}

	var wrap map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrap); err != nil {
		return err
	}
	raw, ok := wrap[key]
	if !ok || string(raw) == "null" {
		return json.Unmarshal([]byte("[]"), out)
	}
	return json.Unmarshal(raw, out)
}

func decodeBookingList(body []byte) ([]bookingDTO, error) {
	var dtos []bookingDTO
	if err := decodeList(body, "bookings", &dtos); err != nil {
		return nil, err
	}
	return dtos, nil
}

func decodeUser(body []byte) (*models.UserProfile, error) {
	var wrap struct {
		User *userDTO `json:"user"`
	}
	if err := json.Unmarshal(body, &wrap); err == nil && wrap.User != nil {
		return wrap.User.toProfile(), nil
	}
	var dto userDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return dto.toProfile(), nil
}

type userDTO struct {
	ID           flexString `json:"id"`
	UserID       flexString `json:"userId"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Birthdate    string     `json:"birthdate"`
	Department   string     `json:"department"`
	Email        string     `json:"email"`
	ProfileImage string     `json:"profileImage"`
	Role         string     `json:"role"`
}

func (u userDTO) toProfile() *models.UserProfile {
	id := string(u.ID)
	if id == "" {
		id = string(u.UserID)
	}
	p := &models.UserProfile{
		ID:           id,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Birthdate:    u.Birthdate,
		Department:   u.Department,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		Role:         u.Role,
	}
	// birthdate arrives as a timestamp; the profile form edits a date.
	if d, err := models.ParseDate(p.Birthdate); err == nil {
		p.Birthdate = models.DateKey(d)
	}
	return p
}
