package geometrycapture

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "deal-wizard/internal/common/errors"
	commonhttp "deal-wizard/internal/common/http"
	"deal-wizard/internal/common/metrics"
	"deal-wizard/internal/models"
)

// Geocoder resolves free-text addresses.
type Geocoder interface {
	ResolveAddress(ctx context.Context, text string) (*models.GeocodeResult, error)
}

// HTTPGeocoder calls the geocoding collaborator over REST.
type HTTPGeocoder struct {
	client *commonhttp.Client
}

func NewHTTPGeocoder(config *Config) *HTTPGeocoder {
	return &HTTPGeocoder{
		client: commonhttp.NewServiceClient(config.GeocoderURL, config.GeocoderAPIKey, config.GeocoderTimeout),
	}
}

func (g *HTTPGeocoder) ResolveAddress(ctx context.Context, text string) (*models.GeocodeResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewGeocodingFailedError(fmt.Errorf("address text is empty"))
	}

	start := time.Now()
	var resp geocodeResponse
	err := g.client.GetJSON(ctx, "/geocode?q="+url.QueryEscape(text), &resp)
	metrics.ObserveCollaborator("geocoder", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, apperrors.NewGeocodingFailedError(err)
	}
	if resp.Lng == nil || resp.Lat == nil {
		return nil, apperrors.NewGeocodingFailedError(fmt.Errorf("no coordinates for %q", text))
	}

	result := &models.GeocodeResult{
		FormattedAddress: resp.FormattedAddress,
		Lng:              *resp.Lng,
		Lat:              *resp.Lat,
	}
	if result.FormattedAddress == "" {
		result.FormattedAddress = text
	}
	if !(models.Coordinates{Lng: result.Lng, Lat: result.Lat}).Valid() {
		return nil, apperrors.NewGeocodingFailedError(fmt.Errorf("coordinates out of range"))
	}
	return result, nil
}
