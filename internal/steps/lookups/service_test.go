package lookups

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/models"
)

const propertyTypesQuery = `SELECT id, type_key, display_name, category, COALESCE\(description, ''\) FROM property_types ORDER BY display_name`
const submarketQuery = `SELECT id, COALESCE\(msa_id, ''\) FROM submarkets WHERE ST_Contains`

var atlanta = models.Coordinates{Lng: -84.388, Lat: 33.749}

func testConfig() *Config {
	return &Config{CacheTTL: 15 * time.Minute, QueryTimeout: time.Second}
}

// ==========================
// Property types
// ==========================

func TestPropertyTypes_CacheMissQueriesAndCaches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	redisClient, redisMock := redismock.NewClientMock()

	redisMock.ExpectGet(propertyTypesCacheKey).RedisNil()
	rows := sqlmock.NewRows([]string{"id", "type_key", "display_name", "category", "description"}).
		AddRow("pt-1", "multifamily", "Multifamily", "residential", "Garden and mid-rise").
		AddRow("pt-2", "industrial", "Industrial", "commercial", "")
	mock.ExpectQuery(propertyTypesQuery).WillReturnRows(rows)

	expected := []models.PropertyType{
		{ID: "pt-1", TypeKey: "multifamily", DisplayName: "Multifamily", Category: "residential", Description: "Garden and mid-rise"},
		{ID: "pt-2", TypeKey: "industrial", DisplayName: "Industrial", Category: "commercial"},
	}
	cached, _ := json.Marshal(expected)
	redisMock.ExpectSet(propertyTypesCacheKey, cached, 15*time.Minute).SetVal("OK")

	svc := NewService(testConfig(), db, redisClient, logger.NewTestLogger(t))
	types, err := svc.PropertyTypes(context.Background())

	require.NoError(t, err)
	assert.Equal(t, expected, types)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestPropertyTypes_CacheHitSkipsDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	redisClient, redisMock := redismock.NewClientMock()

	cached, _ := json.Marshal([]models.PropertyType{{ID: "pt-9", DisplayName: "Retail"}})
	redisMock.ExpectGet(propertyTypesCacheKey).SetVal(string(cached))

	svc := NewService(testConfig(), db, redisClient, logger.NewNoOpLogger())
	types, err := svc.PropertyTypes(context.Background())

	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "pt-9", types[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestPropertyTypes_DatabaseFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(propertyTypesQuery).WillReturnError(errors.New("connection refused"))

	svc := NewService(testConfig(), db, nil, logger.NewNoOpLogger())
	_, err = svc.PropertyTypes(context.Background())

	assert.True(t, apperrors.Is(err, apperrors.ErrCodePropertyTypeLookupFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Submarkets
// ==========================

func TestSubmarket_LookupThenCached(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(submarketQuery).
		WithArgs(atlanta.Lng, atlanta.Lat).
		WillReturnRows(sqlmock.NewRows([]string{"id", "msa_id"}).AddRow("sm-midtown", "msa-12060"))

	svc := NewService(testConfig(), db, redisClient, logger.NewNoOpLogger())

	sm, err := svc.Submarket(context.Background(), atlanta)
	require.NoError(t, err)
	assert.Equal(t, &models.Submarket{ID: "sm-midtown", MSAID: "msa-12060"}, sm)
	assert.True(t, mr.Exists(submarketCacheKey(atlanta)))

	again, err := svc.Submarket(context.Background(), atlanta)
	require.NoError(t, err)
	assert.Equal(t, sm, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmarket_NoMatch(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(submarketQuery).
		WithArgs(atlanta.Lng, atlanta.Lat).
		WillReturnRows(sqlmock.NewRows([]string{"id", "msa_id"}))

	svc := NewService(testConfig(), db, redisClient, logger.NewNoOpLogger())
	sm, err := svc.Submarket(context.Background(), atlanta)

	require.NoError(t, err)
	assert.Nil(t, sm)
	assert.False(t, mr.Exists(submarketCacheKey(atlanta)))
}

func TestSubmarket_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(submarketQuery).WillReturnError(errors.New("timeout"))

	svc := NewService(testConfig(), db, nil, logger.NewNoOpLogger())
	_, err = svc.Submarket(context.Background(), atlanta)

	assert.True(t, apperrors.Is(err, apperrors.ErrCodeSubmarketLookupFailed))
}

func TestSubmarketCacheKey_RoundsCoordinates(t *testing.T) {
	a := submarketCacheKey(models.Coordinates{Lng: -84.3880001, Lat: 33.7490001})
	b := submarketCacheKey(models.Coordinates{Lng: -84.388, Lat: 33.749})
	assert.Equal(t, a, b)
}
