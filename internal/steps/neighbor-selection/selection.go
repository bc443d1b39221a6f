// Package neighborselection fetches assemblage candidates and tracks the
// user's multi-select set.
package neighborselection

import (
	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/draft"
	"deal-wizard/internal/models"
)

// Selection holds the current candidate list. The selected set itself lives
// in the draft.
type Selection struct {
	candidates []models.Neighbor
	logger     logger.Logger
}

func NewSelection(log logger.Logger) *Selection {
	return &Selection{logger: logger.ForComponent(log, "neighbor-selection")}
}

func (s *Selection) Candidates() []models.Neighbor {
	out := make([]models.Neighbor, len(s.candidates))
	for i, n := range s.candidates {
		out[i] = n.Clone()
	}
	return out
}

// SetCandidates replaces the candidate list. A nil list is stored as empty.
func (s *Selection) SetCandidates(candidates []models.Neighbor) {
	s.candidates = make([]models.Neighbor, 0, len(candidates))
	for _, n := range candidates {
		s.candidates = append(s.candidates, n.Clone())
	}
}

// Reset forgets the candidate list.
func (s *Selection) Reset() {
	s.candidates = nil
}

// Toggle adds the candidate to the selection, or removes it when already
// selected. It returns whether the id is selected afterwards.
func (s *Selection) Toggle(store *draft.Store, id string) (bool, error) {
	selected := store.SelectedNeighbors()
	for i, n := range selected {
		if n.ID == id {
			next := append(selected[:i:i], selected[i+1:]...)
			if err := store.SetSelectedNeighbors(next); err != nil {
				return true, err
			}
			s.logger.Debug("Neighbor deselected", map[string]interface{}{"neighborId": id})
			return false, nil
		}
	}

	for _, c := range s.candidates {
		if c.ID == id {
			if err := store.SetSelectedNeighbors(append(selected, c)); err != nil {
				return false, err
			}
			s.logger.Debug("Neighbor selected", map[string]interface{}{"neighborId": id})
			return true, nil
		}
	}
	return false, apperrors.NewUnknownCandidateError("neighbor", id)
}
