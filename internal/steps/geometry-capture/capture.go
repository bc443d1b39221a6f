// Package geometrycapture produces the canonical deal boundary from geocoded
// addresses and drawing events.
package geometrycapture

import (
	"fmt"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/draft"
	"deal-wizard/internal/models"
	"deal-wizard/internal/wizard"
)

type Capture struct {
	drawing DrawingSession
	logger  logger.Logger
}

func NewCapture(drawing DrawingSession, log logger.Logger) *Capture {
	return &Capture{
		drawing: drawing,
		logger:  logger.ForComponent(log, "geometry-capture"),
	}
}

func (c *Capture) Mode() Mode {
	return c.drawing.Mode()
}

// Sync arms the drawing tool only while BOUNDARY is active on the design
// branch. Every other state keeps it in select mode.
func (c *Capture) Sync(step wizard.Step, branch wizard.Branch) {
	if step == wizard.StepBoundary && branch.IsDesign() {
		c.drawing.Arm()
		return
	}
	c.drawing.Disarm()
}

// ApplyAddress stores the resolved address. Existing properties get a point
// boundary straight away.
func (c *Capture) ApplyAddress(store *draft.Store, result models.GeocodeResult) {
	coords := models.Coordinates{Lng: result.Lng, Lat: result.Lat}
	store.SetAddress(result.FormattedAddress, coords)

	if store.DevelopmentType() == models.DevelopmentExisting {
		store.SetBoundary(models.PointGeometry(coords))
	}
	c.logger.Debug("Address applied", map[string]interface{}{
		"lng": coords.Lng,
		"lat": coords.Lat,
	})
}

// SyncExisting restores the point boundary of an existing property when
// backward navigation cleared it but the address is still resolved.
func (c *Capture) SyncExisting(store *draft.Store) bool {
	if store.DevelopmentType() != models.DevelopmentExisting || store.Boundary() != nil {
		return false
	}
	coords := store.Coordinates()
	if coords == nil {
		return false
	}
	store.SetBoundary(models.PointGeometry(*coords))
	c.logger.Debug("Point boundary restored", nil)
	return true
}

// HandleEvent applies a drawing event to the boundary.
func (c *Capture) HandleEvent(store *draft.Store, evt DrawingEvent) error {
	if c.drawing.Mode() != ModeDraw {
		return apperrors.NewDrawingDisarmedError(string(evt.Type))
	}

	switch evt.Type {
	case EventCreate, EventUpdate:
		if !evt.Geometry.IsPolygon() {
			return apperrors.NewStepGateFailedError(string(wizard.StepBoundary), []apperrors.FieldIssue{{
				Field:   string(draft.FieldBoundary),
				Message: "drawn boundary must be a polygon",
				Code:    "INVALID_GEOMETRY",
			}})
		}
		if err := evt.Geometry.Validate(); err != nil {
			return apperrors.NewStepGateFailedError(string(wizard.StepBoundary), []apperrors.FieldIssue{{
				Field:   string(draft.FieldBoundary),
				Message: err.Error(),
				Code:    "INVALID_GEOMETRY",
			}})
		}
		store.SetBoundary(evt.Geometry)
	case EventDelete:
		store.SetBoundary(nil)
	default:
		return apperrors.NewStepGateFailedError(string(wizard.StepBoundary), []apperrors.FieldIssue{{
			Field:   "type",
			Message: fmt.Sprintf("unknown drawing event %q", evt.Type),
			Code:    "INVALID_VALUE",
		}})
	}

	c.logger.Debug("Drawing event applied", map[string]interface{}{"type": string(evt.Type)})
	return nil
}

// EnsureBoundary falls back to a point at the address coordinates when no
// polygon was drawn. It reports whether a boundary is present afterwards.
func (c *Capture) EnsureBoundary(store *draft.Store) bool {
	if store.Boundary() != nil {
		return true
	}
	coords := store.Coordinates()
	if coords == nil {
		return false
	}
	store.SetBoundary(models.PointGeometry(*coords))
	c.logger.Debug("Boundary synthesized from coordinates", nil)
	return true
}
