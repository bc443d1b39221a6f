package designpipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/draft"
	"deal-wizard/internal/models"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string    { return &v }

func newDevStore() *draft.Store {
	s := draft.NewStore()
	s.SetCategory(models.CategoryPipeline)
	s.SetDevelopmentType(models.DevelopmentNew)
	return s
}

func TestNormalize_Defaults(t *testing.T) {
	d := Normalize(Metrics{
		UnitMix: map[string]int{"studio": 20, "1br": 60, "2br": 40},
		GrossSF: floatPtr(100000),
	})

	assert.Equal(t, 0.85, d.Efficiency)
	assert.Equal(t, 1, d.Stories)
	assert.Equal(t, "surface", d.ParkingType)
	assert.Equal(t, 120, d.TotalUnits)
	assert.InDelta(t, 85000, d.RentableSF, 0.001)
	assert.True(t, d.LastModified.IsZero())
}

func TestNormalize_ExplicitValuesWin(t *testing.T) {
	d := Normalize(Metrics{
		TotalUnits:  intPtr(100),
		UnitMix:     map[string]int{"1br": 10},
		GrossSF:     floatPtr(50000),
		RentableSF:  floatPtr(41000),
		Efficiency:  floatPtr(0.8),
		Stories:     intPtr(5),
		ParkingType: strPtr("structured"),
		FARMax:      floatPtr(3),
	})

	assert.Equal(t, 100, d.TotalUnits)
	assert.Equal(t, 41000.0, d.RentableSF)
	assert.Equal(t, 0.8, d.Efficiency)
	assert.Equal(t, 5, d.Stories)
	assert.Equal(t, "structured", d.ParkingType)
	assert.Equal(t, 3.0, d.FARMax)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		m     Metrics
		field string
	}{
		{"negative units", Metrics{TotalUnits: intPtr(-1)}, "totalUnits"},
		{"efficiency above one", Metrics{Efficiency: floatPtr(1.2)}, "efficiency"},
		{"zero stories", Metrics{Stories: intPtr(0)}, "stories"},
		{"unknown parking", Metrics{ParkingType: strPtr("valet")}, "parkingType"},
		{"negative unit mix", Metrics{UnitMix: map[string]int{"1br": -3}}, "unitMix.1br"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vr := Validate(tt.m)
			assert.False(t, vr.Valid)
			assert.True(t, vr.HasErrors(tt.field))
		})
	}
	assert.True(t, Validate(Metrics{}).Valid)
}

func TestApply_IdempotentExceptTimestamp(t *testing.T) {
	b := NewBridge(logger.NewTestLogger(t))
	tick := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	store := newDevStore()
	m := Metrics{UnitMix: map[string]int{"1br": 50}, GrossSF: floatPtr(60000), FARMax: floatPtr(2.5)}

	first, err := b.Apply(store, m)
	require.NoError(t, err)
	second, err := b.Apply(store, m)
	require.NoError(t, err)

	assert.NotEqual(t, first.LastModified, second.LastModified)
	first.LastModified, second.LastModified = time.Time{}, time.Time{}
	assert.Equal(t, first, second)

	stored := store.Design3D()
	assert.Equal(t, tick, stored.LastModified)
}

func TestApply_ReplacesPriorDesign(t *testing.T) {
	b := NewBridge(logger.NewTestLogger(t))
	store := newDevStore()

	_, err := b.Apply(store, Metrics{UnitMix: map[string]int{"1br": 50}, AmenitySF: floatPtr(2000)})
	require.NoError(t, err)
	_, err = b.Apply(store, Metrics{UnitMix: map[string]int{"2br": 10}})
	require.NoError(t, err)

	d := store.Design3D()
	assert.Equal(t, map[string]int{"2br": 10}, d.UnitMix)
	assert.Equal(t, 0.0, d.AmenitySF)
}

func TestApply_Rejections(t *testing.T) {
	b := NewBridge(logger.NewTestLogger(t))

	store := draft.NewStore()
	store.SetDevelopmentType(models.DevelopmentExisting)
	_, err := b.Apply(store, Metrics{})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDevelopmentOnlyField))

	dev := newDevStore()
	_, err = b.Apply(dev, Metrics{Stories: intPtr(0)})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeStepGateFailed))
	assert.Nil(t, dev.Design3D())
}
