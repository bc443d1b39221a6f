package draft

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/models"
)

func TestStore_DevelopmentOnlyGuard(t *testing.T) {
	tests := []struct {
		name  string
		write func(s *Store) error
		field Field
	}{
		{"design3D", func(s *Store) error { return s.SetDesign3D(&models.Design3D{TotalUnits: 10}) }, FieldDesign3D},
		{"selectedNeighbors", func(s *Store) error { return s.SetSelectedNeighbors([]models.Neighbor{{ID: "p-1"}}) }, FieldSelectedNeighbors},
		{"optimizationResult", func(s *Store) error { return s.SetOptimizationResult(&models.OptimizationResult{}) }, FieldOptimizationResult},
		{"financialAssumptions", func(s *Store) error { return s.SetFinancialAssumptions(&models.FinancialAssumptions{}) }, FieldFinancialAssumptions},
		{"proForma", func(s *Store) error { return s.SetProForma(&models.ProForma{Revision: 1}) }, FieldProForma},
	}

	for _, tt := range tests {
		t.Run(tt.name+" rejected for existing", func(t *testing.T) {
			s := NewStore()
			s.SetDevelopmentType(models.DevelopmentExisting)

			err := tt.write(s)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrCodeDevelopmentOnlyField))
		})

		t.Run(tt.name+" accepted for new", func(t *testing.T) {
			s := NewStore()
			s.SetDevelopmentType(models.DevelopmentNew)
			require.NoError(t, tt.write(s))
			assert.True(t, IsDevelopmentOnly(tt.field))
		})
	}
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s := NewStore()
	s.SetDevelopmentType(models.DevelopmentNew)
	require.NoError(t, s.SetDesign3D(&models.Design3D{UnitMix: map[string]int{"1br": 10}}))
	s.SetAddress("1 Peachtree St", models.Coordinates{Lng: -84.388, Lat: 33.749})
	s.AppendDocuments(models.Document{ID: "d-1", Name: "om.pdf"})

	snap := s.Snapshot()
	snap.Design3D.UnitMix["1br"] = 99
	snap.Coordinates.Lng = 0
	snap.Documents[0].Name = "changed"

	after := s.Snapshot()
	assert.Equal(t, 10, after.Design3D.UnitMix["1br"])
	assert.Equal(t, -84.388, after.Coordinates.Lng)
	assert.Equal(t, "om.pdf", after.Documents[0].Name)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.SetCategory(models.CategoryPipeline)
	s.SetEconomics(models.Economics{PurchasePrice: decimal.NewNullDecimal(decimal.NewFromInt(1000000)), OfferDate: "2025-03-01"})
	s.AppendDocuments(models.Document{ID: "d-1"})
	s.SetBoundary(models.PointGeometry(models.Coordinates{Lng: 1, Lat: 2}))

	s.Clear(FieldEconomics, FieldDocuments, FieldBoundary)

	snap := s.Snapshot()
	assert.Equal(t, models.CategoryPipeline, snap.Category)
	assert.False(t, snap.Economics.PurchasePrice.Valid)
	assert.Empty(t, snap.Economics.OfferDate)
	assert.Empty(t, snap.Documents)
	assert.Nil(t, snap.Boundary)
}

func TestStore_RemoveDocument(t *testing.T) {
	s := NewStore()
	s.AppendDocuments(models.Document{ID: "a"}, models.Document{ID: "b"}, models.Document{ID: "c"})

	assert.True(t, s.RemoveDocument("b"))
	assert.False(t, s.RemoveDocument("missing"))

	snap := s.Snapshot()
	require.Len(t, snap.Documents, 2)
	assert.Equal(t, "a", snap.Documents[0].ID)
	assert.Equal(t, "c", snap.Documents[1].ID)
}

func TestDealDraft_HasGeographicContext(t *testing.T) {
	d := DealDraft{}
	assert.False(t, d.HasGeographicContext())
	d.MSAID = "msa-12060"
	assert.True(t, d.HasGeographicContext())
}
