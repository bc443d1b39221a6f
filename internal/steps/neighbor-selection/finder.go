package neighborselection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/metrics"
	"deal-wizard/internal/models"
)

// Finder looks up assemblage candidates around a point.
type Finder interface {
	FindNeighbors(ctx context.Context, center models.Coordinates) ([]models.Neighbor, error)
}

// ESFinder queries the parcels index with a fixed radius and result cap.
type ESFinder struct {
	client *elasticsearch.Client
	config *Config
}

func NewESFinder(client *elasticsearch.Client, config *Config) *ESFinder {
	return &ESFinder{client: client, config: config}
}

func buildQuery(center models.Coordinates, radiusMeters float64) map[string]interface{} {
	point := map[string]interface{}{"lat": center.Lat, "lon": center.Lng}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{
						"geo_distance": map[string]interface{}{
							"distance": fmt.Sprintf("%gm", radiusMeters),
							"location": point,
						},
					},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{
				"_geo_distance": map[string]interface{}{
					"location": point,
					"order":    "asc",
					"unit":     "m",
				},
			},
		},
	}
}

func (f *ESFinder) FindNeighbors(ctx context.Context, center models.Coordinates) ([]models.Neighbor, error) {
	start := time.Now()
	neighbors, err := f.search(ctx, center)
	metrics.ObserveCollaborator("neighbor-lookup", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, apperrors.NewNeighborLookupFailedError(err)
	}
	return neighbors, nil
}

func (f *ESFinder) search(ctx context.Context, center models.Coordinates) ([]models.Neighbor, error) {
	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(buildQuery(center, f.config.RadiusMeters))
	if err != nil {
		return nil, err
	}
	size := f.config.Limit
	req := esapi.SearchRequest{
		Index: []string{f.config.Index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	res, err := req.Do(ctx, f.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	neighbors := make([]models.Neighbor, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		n := models.Neighbor{
			ID:       hit.Source.ParcelID,
			Address:  hit.Source.Address,
			LotSize:  hit.Source.LotSize,
			Benefits: hit.Source.Benefits,
		}
		if n.ID == "" {
			n.ID = hit.ID
		}
		if loc := hit.Source.Location; loc != nil {
			n.Location = &models.Coordinates{Lng: loc.Lon, Lat: loc.Lat}
		}
		if len(hit.Sort) > 0 {
			if d, ok := hit.Sort[0].(float64); ok {
				n.DistanceMeters = d
			}
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, nil
}
