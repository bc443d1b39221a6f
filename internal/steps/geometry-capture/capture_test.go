package geometrycapture

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/draft"
	"deal-wizard/internal/models"
	"deal-wizard/internal/wizard"
)

var polygon = &models.Geometry{
	Type:        models.GeometryPolygon,
	Coordinates: json.RawMessage(`[[[-84.39,33.74],[-84.38,33.74],[-84.38,33.75],[-84.39,33.74]]]`),
}

func newCapture(t *testing.T) (*Capture, *ModeTracker) {
	t.Helper()
	tracker := NewModeTracker()
	return NewCapture(tracker, logger.NewTestLogger(t)), tracker
}

// ==========================
// Arming
// ==========================

func TestSync_ArmsOnlyOnDesignBranchBoundary(t *testing.T) {
	tests := []struct {
		step   wizard.Step
		branch wizard.Branch
		want   Mode
	}{
		{wizard.StepBoundary, wizard.BranchPipelineNew, ModeDraw},
		{wizard.StepBoundary, wizard.BranchPipelineExisting, ModeSelect},
		{wizard.StepTradeArea, wizard.BranchPipelineNew, ModeSelect},
		{wizard.StepDesign3D, wizard.BranchPipelineNew, ModeSelect},
	}
	for _, tt := range tests {
		t.Run(string(tt.step)+"/"+string(tt.branch), func(t *testing.T) {
			c, tracker := newCapture(t)
			c.Sync(wizard.StepBoundary, wizard.BranchPipelineNew)
			c.Sync(tt.step, tt.branch)
			assert.Equal(t, tt.want, tracker.Mode())
		})
	}
}

func TestModeTracker_OnChange(t *testing.T) {
	tracker := NewModeTracker()
	var changes []Mode
	tracker.OnChange = func(m Mode) { changes = append(changes, m) }

	tracker.Arm()
	tracker.Arm()
	tracker.Disarm()

	assert.Equal(t, []Mode{ModeDraw, ModeSelect}, changes)
}

// ==========================
// Address and drawing events
// ==========================

func TestApplyAddress_ExistingGetsPointBoundary(t *testing.T) {
	c, _ := newCapture(t)
	store := draft.NewStore()
	store.SetDevelopmentType(models.DevelopmentExisting)

	c.ApplyAddress(store, models.GeocodeResult{FormattedAddress: "1 Peachtree St", Lng: -84.388, Lat: 33.749})

	snap := store.Snapshot()
	assert.Equal(t, "1 Peachtree St", snap.Address)
	require.NotNil(t, snap.Boundary)
	assert.True(t, snap.Boundary.Equal(models.PointGeometry(models.Coordinates{Lng: -84.388, Lat: 33.749})))
}

func TestApplyAddress_NewLeavesBoundaryUnset(t *testing.T) {
	c, _ := newCapture(t)
	store := draft.NewStore()
	store.SetDevelopmentType(models.DevelopmentNew)

	c.ApplyAddress(store, models.GeocodeResult{FormattedAddress: "x", Lng: 1, Lat: 2})

	assert.Nil(t, store.Snapshot().Boundary)
	assert.NotNil(t, store.Snapshot().Coordinates)
}

func TestHandleEvent(t *testing.T) {
	c, tracker := newCapture(t)
	store := draft.NewStore()

	err := c.HandleEvent(store, DrawingEvent{Type: EventCreate, Geometry: polygon})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDrawingDisarmed))
	assert.Nil(t, store.Snapshot().Boundary)

	tracker.Arm()
	require.NoError(t, c.HandleEvent(store, DrawingEvent{Type: EventCreate, Geometry: polygon}))
	assert.True(t, store.Snapshot().Boundary.Equal(polygon))

	err = c.HandleEvent(store, DrawingEvent{Type: EventUpdate, Geometry: models.PointGeometry(models.Coordinates{})})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeStepGateFailed))
	assert.True(t, store.Snapshot().Boundary.Equal(polygon))

	require.NoError(t, c.HandleEvent(store, DrawingEvent{Type: EventDelete}))
	assert.Nil(t, store.Snapshot().Boundary)

	err = c.HandleEvent(store, DrawingEvent{Type: "erase"})
	assert.Error(t, err)
}

func TestEnsureBoundary(t *testing.T) {
	c, _ := newCapture(t)

	t.Run("no coordinates", func(t *testing.T) {
		store := draft.NewStore()
		assert.False(t, c.EnsureBoundary(store))
	})

	t.Run("falls back to point", func(t *testing.T) {
		store := draft.NewStore()
		store.SetAddress("a", models.Coordinates{Lng: -84.388, Lat: 33.749})
		assert.True(t, c.EnsureBoundary(store))
		assert.JSONEq(t, `[-84.388,33.749]`, string(store.Snapshot().Boundary.Coordinates))
	})

	t.Run("keeps drawn polygon", func(t *testing.T) {
		store := draft.NewStore()
		store.SetAddress("a", models.Coordinates{Lng: 1, Lat: 2})
		store.SetBoundary(polygon)
		assert.True(t, c.EnsureBoundary(store))
		assert.True(t, store.Snapshot().Boundary.IsPolygon())
	})
}

func TestSyncExisting(t *testing.T) {
	c, _ := newCapture(t)
	point := models.PointGeometry(models.Coordinates{Lng: -84.388, Lat: 33.749})

	tests := []struct {
		name     string
		devType  models.DevelopmentType
		coords   bool
		boundary *models.Geometry
		restored bool
	}{
		{"existing with cleared boundary", models.DevelopmentExisting, true, nil, true},
		{"existing without address", models.DevelopmentExisting, false, nil, false},
		{"existing keeps boundary", models.DevelopmentExisting, true, point, false},
		{"new development left alone", models.DevelopmentNew, true, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := draft.NewStore()
			store.SetDevelopmentType(tt.devType)
			if tt.coords {
				store.SetAddress("1 Peachtree St", models.Coordinates{Lng: -84.388, Lat: 33.749})
			}
			store.SetBoundary(tt.boundary)

			assert.Equal(t, tt.restored, c.SyncExisting(store))
			if tt.restored {
				require.NotNil(t, store.Boundary())
				assert.True(t, store.Boundary().Equal(point))
			}
		})
	}
}

// ==========================
// Geocoder
// ==========================

func TestHTTPGeocoder_ResolveAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode", r.URL.Path)
		switch r.URL.Query().Get("q") {
		case "1 Peachtree St":
			_, _ = w.Write([]byte(`{"formattedAddress":"1 Peachtree St NE, Atlanta, GA","lng":-84.388,"lat":33.749}`))
		case "nowhere":
			_, _ = w.Write([]byte(`{"formattedAddress":""}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	g := NewHTTPGeocoder(&Config{GeocoderURL: server.URL, GeocoderTimeout: time.Second})
	ctx := context.Background()

	res, err := g.ResolveAddress(ctx, "1 Peachtree St")
	require.NoError(t, err)
	assert.Equal(t, -84.388, res.Lng)
	assert.Equal(t, 33.749, res.Lat)

	_, err = g.ResolveAddress(ctx, "nowhere")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeGeocodingFailed))

	_, err = g.ResolveAddress(ctx, "boom")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeGeocodingFailed))

	_, err = g.ResolveAddress(ctx, "  ")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeGeocodingFailed))
}
