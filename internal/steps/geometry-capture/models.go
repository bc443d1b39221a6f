package geometrycapture

import "deal-wizard/internal/models"

// EventType is the kind of change reported by the drawing collaborator.
type EventType string

const (
	EventCreate EventType = "create"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

func (e EventType) Valid() bool {
	return e == EventCreate || e == EventUpdate || e == EventDelete
}

// DrawingEvent is one event emitted by the drawing collaborator.
type DrawingEvent struct {
	Type     EventType        `json:"type"`
	Geometry *models.Geometry `json:"geometry,omitempty"`
}

// Mode is the drawing tool mode requested from the map.
type Mode string

const (
	ModeDraw   Mode = "draw"
	ModeSelect Mode = "select"
)

// geocodeResponse is the geocoder wire shape.
type geocodeResponse struct {
	FormattedAddress string   `json:"formattedAddress"`
	Lng              *float64 `json:"lng"`
	Lat              *float64 `json:"lat"`
}
