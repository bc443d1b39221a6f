package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	GeometryPoint        = "Point"
	GeometryPolygon      = "Polygon"
	GeometryMultiPolygon = "MultiPolygon"
)

// Coordinates is a WGS84 longitude/latitude pair.
type Coordinates struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the pair lies within WGS84 bounds.
func (c Coordinates) Valid() bool {
	return c.Lng >= -180 && c.Lng <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Geometry is a GeoJSON geometry object. Coordinates are kept raw so that
// polygons from the drawing collaborator round-trip untouched.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// PointGeometry builds {type: Point, coordinates: [lng, lat]}.
func PointGeometry(c Coordinates) *Geometry {
	raw, _ := json.Marshal([]float64{c.Lng, c.Lat})
	return &Geometry{Type: GeometryPoint, Coordinates: raw}
}

func (g *Geometry) IsPoint() bool {
	return g != nil && g.Type == GeometryPoint
}

func (g *Geometry) IsPolygon() bool {
	return g != nil && (g.Type == GeometryPolygon || g.Type == GeometryMultiPolygon)
}

// Validate checks the geometry type and that coordinates hold a JSON array.
func (g *Geometry) Validate() error {
	if g == nil {
		return fmt.Errorf("geometry is nil")
	}
	switch g.Type {
	case GeometryPoint, GeometryPolygon, GeometryMultiPolygon:
	default:
		return fmt.Errorf("unsupported geometry type %q", g.Type)
	}
	trimmed := bytes.TrimSpace(g.Coordinates)
	if len(trimmed) == 0 || trimmed[0] != '[' || !json.Valid(trimmed) {
		return fmt.Errorf("geometry coordinates must be a JSON array")
	}
	if g.Type == GeometryPoint {
		var pair []float64
		if err := json.Unmarshal(trimmed, &pair); err != nil || len(pair) != 2 {
			return fmt.Errorf("point coordinates must be [lng, lat]")
		}
	}
	return nil
}

// Equal compares type and compacted coordinates.
func (g *Geometry) Equal(other *Geometry) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.Type != other.Type {
		return false
	}
	var a, b bytes.Buffer
	if json.Compact(&a, g.Coordinates) != nil || json.Compact(&b, other.Coordinates) != nil {
		return bytes.Equal(g.Coordinates, other.Coordinates)
	}
	return bytes.Equal(a.Bytes(), b.Bytes())
}

func (g *Geometry) Clone() *Geometry {
	if g == nil {
		return nil
	}
	return &Geometry{Type: g.Type, Coordinates: cloneRaw(g.Coordinates)}
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
