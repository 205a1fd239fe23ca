package models

// Room is a bookable room with optional sub-rooms.
type Room struct {
	ID           string    `json:"roomId"`
	Name         string    `json:"roomName"`
	BuildingID   string    `json:"buildingId"`
	BuildingName string    `json:"buildingName"`
	SubRooms     []SubRoom `json:"subRooms,omitempty"`
}

// SubRoom is a partition of a Room.
type SubRoom struct {
	Name string `json:"roomName"`
}
