package draft

import (
	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/models"
)

// Store owns one DealDraft. It is not safe for concurrent use; the owning
// session serializes access.
type Store struct {
	draft DealDraft
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a deep copy of the current draft.
func (s *Store) Snapshot() DealDraft {
	return s.draft.Clone()
}

// Clear resets the given fields to their zero values.
func (s *Store) Clear(fields ...Field) {
	for _, f := range fields {
		s.draft.clear(f)
	}
}

func (s *Store) Category() models.Category {
	return s.draft.Category
}

func (s *Store) DevelopmentType() models.DevelopmentType {
	return s.draft.DevelopmentType
}

func (s *Store) Coordinates() *models.Coordinates {
	if s.draft.Coordinates == nil {
		return nil
	}
	c := *s.draft.Coordinates
	return &c
}

func (s *Store) SubmarketID() string {
	return s.draft.SubmarketID
}

func (s *Store) Boundary() *models.Geometry {
	return s.draft.Boundary.Clone()
}

func (s *Store) Design3D() *models.Design3D {
	return s.draft.Design3D.Clone()
}

func (s *Store) OptimizationResult() *models.OptimizationResult {
	return s.draft.OptimizationResult.Clone()
}

func (s *Store) FinancialAssumptions() *models.FinancialAssumptions {
	return s.draft.FinancialAssumptions.Clone()
}

func (s *Store) SelectedNeighbors() []models.Neighbor {
	return s.Snapshot().SelectedNeighbors
}

func (s *Store) SetCategory(c models.Category) {
	s.draft.Category = c
}

func (s *Store) SetDevelopmentType(t models.DevelopmentType) {
	s.draft.DevelopmentType = t
}

func (s *Store) SetPropertyType(pt models.PropertyType) {
	s.draft.PropertyType = &pt
}

// AppendDocuments adds descriptors in upload order.
func (s *Store) AppendDocuments(docs ...models.Document) {
	s.draft.Documents = append(s.draft.Documents, docs...)
}

// RemoveDocument drops the descriptor with the given id.
func (s *Store) RemoveDocument(id string) bool {
	for i, d := range s.draft.Documents {
		if d.ID == id {
			s.draft.Documents = append(s.draft.Documents[:i], s.draft.Documents[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) SetEconomics(e models.Economics) {
	s.draft.Economics = e.Clone()
}

func (s *Store) SetDetails(name, description string) {
	s.draft.Name = name
	s.draft.Description = description
}

func (s *Store) SetAddress(address string, coords models.Coordinates) {
	s.draft.Address = address
	s.draft.Coordinates = &coords
}

func (s *Store) SetTradeAreaID(id string) {
	s.draft.TradeAreaID = id
}

func (s *Store) SetSubmarket(submarketID, msaID string) {
	s.draft.SubmarketID = submarketID
	s.draft.MSAID = msaID
}

// SetBoundary stores g, or clears the boundary when g is nil.
func (s *Store) SetBoundary(g *models.Geometry) {
	s.draft.Boundary = g.Clone()
}

func (s *Store) guard(f Field) error {
	if IsDevelopmentOnly(f) && !s.draft.IsNewDevelopment() {
		return apperrors.NewDevelopmentOnlyFieldError(string(f))
	}
	return nil
}

func (s *Store) SetDesign3D(d *models.Design3D) error {
	if err := s.guard(FieldDesign3D); err != nil {
		return err
	}
	s.draft.Design3D = d.Clone()
	return nil
}

func (s *Store) SetSelectedNeighbors(neighbors []models.Neighbor) error {
	if err := s.guard(FieldSelectedNeighbors); err != nil {
		return err
	}
	out := make([]models.Neighbor, len(neighbors))
	for i, n := range neighbors {
		out[i] = n.Clone()
	}
	s.draft.SelectedNeighbors = out
	return nil
}

func (s *Store) SetOptimizationResult(r *models.OptimizationResult) error {
	if err := s.guard(FieldOptimizationResult); err != nil {
		return err
	}
	s.draft.OptimizationResult = r.Clone()
	return nil
}

func (s *Store) SetFinancialAssumptions(a *models.FinancialAssumptions) error {
	if err := s.guard(FieldFinancialAssumptions); err != nil {
		return err
	}
	s.draft.FinancialAssumptions = a.Clone()
	return nil
}

func (s *Store) SetProForma(p *models.ProForma) error {
	if err := s.guard(FieldProForma); err != nil {
		return err
	}
	s.draft.ProForma = p.Clone()
	return nil
}
