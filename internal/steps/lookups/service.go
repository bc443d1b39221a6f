// Package lookups serves the property-type catalogue and the submarket
// point-in-polygon lookup, cached in Redis.
package lookups

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/common/metrics"
	"deal-wizard/internal/models"
)

const propertyTypesCacheKey = "wizard:property-types"

type Service struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

// NewService builds the lookup service. redis may be nil, in which case
// every call goes to Postgres.
func NewService(config *Config, db *sql.DB, redis *redis.Client, log logger.Logger) *Service {
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = DefaultConfig().QueryTimeout
	}
	return &Service{
		config: config,
		db:     db,
		redis:  redis,
		logger: logger.ForComponent(log, "lookups"),
	}
}

func submarketCacheKey(c models.Coordinates) string {
	return fmt.Sprintf("wizard:submarket:%.5f:%.5f", c.Lat, c.Lng)
}

func (s *Service) PropertyTypes(ctx context.Context) ([]models.PropertyType, error) {
	var cached []models.PropertyType
	if s.readCache(ctx, propertyTypesCacheKey, &cached) {
		return cached, nil
	}

	start := time.Now()
	types, err := s.queryPropertyTypes(ctx)
	metrics.ObserveCollaborator("property-types", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, apperrors.NewPropertyTypeLookupFailedError(err)
	}

	s.writeCache(ctx, propertyTypesCacheKey, types)
	return types, nil
}

func (s *Service) queryPropertyTypes(ctx context.Context) ([]models.PropertyType, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	query := `SELECT id, type_key, display_name, category, COALESCE(description, '') FROM property_types ORDER BY display_name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query property types: %w", err)
	}
	defer rows.Close()

	types := make([]models.PropertyType, 0)
	for rows.Next() {
		var pt models.PropertyType
		if err := rows.Scan(&pt.ID, &pt.TypeKey, &pt.DisplayName, &pt.Category, &pt.Description); err != nil {
			return nil, fmt.Errorf("scan property type: %w", err)
		}
		types = append(types, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate property types: %w", err)
	}
	return types, nil
}

// Submarket returns the submarket containing the point, or nil when the point
// falls outside every known submarket.
func (s *Service) Submarket(ctx context.Context, c models.Coordinates) (*models.Submarket, error) {
	key := submarketCacheKey(c)
	var cached models.Submarket
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	sm, err := s.querySubmarket(ctx, c)
	metrics.ObserveCollaborator("submarkets", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, apperrors.NewSubmarketLookupFailedError(err)
	}
	if sm == nil {
		return nil, nil
	}

	s.writeCache(ctx, key, sm)
	return sm, nil
}

func (s *Service) querySubmarket(ctx context.Context, c models.Coordinates) (*models.Submarket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	var sm models.Submarket
	query := `SELECT id, COALESCE(msa_id, '') FROM submarkets WHERE ST_Contains(boundary, ST_SetSRID(ST_MakePoint($1, $2), 4326)) LIMIT 1`
	err := s.db.QueryRowContext(ctx, query, c.Lng, c.Lat).Scan(&sm.ID, &sm.MSAID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query submarket: %w", err)
	}
	return &sm, nil
}

func (s *Service) readCache(ctx context.Context, key string, out interface{}) bool {
	if s.redis == nil {
		return false
	}
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		s.logger.Warn("Discarding unreadable cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return true
}

func (s *Service) writeCache(ctx context.Context, key string, v interface{}) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.config.CacheTTL).Err(); err != nil {
		s.logger.Warn("Cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
