package service

import (
	"fmt"

	"roomcal/internal/models"
)

// RoomLookup resolves display names for the room ids carried by bookings.
type RoomLookup struct {
	names     map[string]string
	buildings map[string]string
}

func subRoomKey(roomName string, idx int) string {
	return fmt.Sprintf("%s-sub-%d", roomName, idx)
}

// NewRoomLookup indexes rooms by id, buildings by room id and building id,
// and sub-rooms by "<roomName>-sub-<idx>".
func NewRoomLookup(rooms []models.Room) *RoomLookup {
	l := &RoomLookup{
		names:     make(map[string]string, len(rooms)),
		buildings: make(map[string]string, len(rooms)),
	}
	for _, room := range rooms {
		if room.ID != "" {
			l.names[room.ID] = room.Name
			if room.BuildingName != "" {
				l.buildings[room.ID] = room.BuildingName
			}
		}
		if room.BuildingID != "" && room.BuildingName != "" {
			if _, taken := l.buildings[room.BuildingID]; !taken {
				l.buildings[room.BuildingID] = room.BuildingName
			}
		}
		for idx, sub := range room.SubRooms {
			key := subRoomKey(room.Name, idx)
			l.names[key] = sub.Name
			if room.BuildingName != "" {
				l.buildings[key] = room.BuildingName
			}
		}
	}
	return l
}

// RoomName returns the lookup name, then the record's own name, then the id.
func (l *RoomLookup) RoomName(b models.BookingRecord) string {
	if l != nil {
		if name := l.names[b.RoomID]; name != "" {
			return name
		}
	}
	if b.RoomName != "" {
		return b.RoomName
	}
	return b.RoomID
}

// BuildingName returns the lookup building, then the record's own building.
func (l *RoomLookup) BuildingName(b models.BookingRecord) string {
	if l != nil {
		if name := l.buildings[b.RoomID]; name != "" {
			return name
		}
	}
	return b.BuildingName
}

// Apply fills RoomName and BuildingName on every booking in place.
func (l *RoomLookup) Apply(bookings []models.BookingRecord) {
	for i := range bookings {
		bookings[i].RoomName = l.RoomName(bookings[i])
		bookings[i].BuildingName = l.BuildingName(bookings[i])
	}
}
