// Package optimization composes optimizer requests from the draft and applies
// or discards the optimizer's proposal.
package optimization

import (
	"context"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/draft"
	"deal-wizard/internal/models"
)

type Orchestrator struct {
	optimizer Optimizer
	logger    logger.Logger
}

func NewOrchestrator(optimizer Optimizer, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		optimizer: optimizer,
		logger:    logger.ForComponent(log, "optimization"),
	}
}

// BuildRequest composes the optimizer input from a draft snapshot. The draft
// must already carry a design.
func BuildRequest(d draft.DealDraft) (*Request, error) {
	if d.Design3D == nil {
		return nil, apperrors.NewStepGateFailedError("OPTIMIZE", []apperrors.FieldIssue{
			{Field: string(draft.FieldDesign3D), Message: "a design is required before optimizing", Code: "REQUIRED_FIELD_MISSING"},
		})
	}

	parcel := ParcelData{FARMax: d.Design3D.FARMax}
	if d.Design3D.FARMax > 0 {
		parcel.LotSizeSF = d.Design3D.GrossSF / d.Design3D.FARMax
		parcel.MaxGrossSF = parcel.LotSizeSF * d.Design3D.FARMax
	} else {
		parcel.LotSizeSF = d.Design3D.GrossSF
		parcel.MaxGrossSF = d.Design3D.GrossSF
	}
	if d.Boundary != nil && !d.Boundary.IsPoint() {
		parcel.Boundary = d.Boundary.Clone()
	}

	neighbors := d.SelectedNeighbors
	if neighbors == nil {
		neighbors = []models.Neighbor{}
	}

	return &Request{
		MarketDemand:      defaultMarketDemand(),
		ParcelData:        parcel,
		ExistingDesign:    d.Design3D,
		SelectedNeighbors: neighbors,
	}, nil
}

// Run calls the optimizer once. It does not touch the draft.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*models.OptimizationResult, error) {
	resp, err := o.optimizer.Optimize(ctx, req)
	if err != nil {
		o.logger.Warn("Optimization failed", map[string]interface{}{"error": err.Error()})
		return nil, apperrors.As(err)
	}

	return &models.OptimizationResult{
		OptimizedDesign:    resp.OptimizedDesign,
		Comparison:         resp.Comparison,
		ImprovementPercent: resp.ImprovementPercent,
		Summary:            resp.Summary,
	}, nil
}

// ApplyResult stores a fresh, not yet accepted, optimizer result.
func (o *Orchestrator) ApplyResult(store *draft.Store, result *models.OptimizationResult) error {
	r := result.Clone()
	r.Accepted = false
	if err := store.SetOptimizationResult(r); err != nil {
		return err
	}

	fields := map[string]interface{}{"hasDesign": r.OptimizedDesign != nil}
	if r.ImprovementPercent != nil {
		fields["improvementPercent"] = *r.ImprovementPercent
	}
	o.logger.Info("Optimization result received", fields)
	return nil
}

// Accept replaces the design with the optimizer's proposal and keeps the
// result for display.
func (o *Orchestrator) Accept(store *draft.Store) (*models.Design3D, error) {
	result := store.OptimizationResult()
	if result == nil || result.OptimizedDesign == nil {
		return nil, apperrors.NewNothingToAcceptError()
	}

	if err := store.SetDesign3D(result.OptimizedDesign); err != nil {
		return nil, err
	}
	result.Accepted = true
	if err := store.SetOptimizationResult(result); err != nil {
		return nil, err
	}

	o.logger.Info("Optimization accepted", map[string]interface{}{"totalUnits": result.OptimizedDesign.TotalUnits})
	return result.OptimizedDesign.Clone(), nil
}

// Reject discards the result and keeps the current design.
func (o *Orchestrator) Reject(store *draft.Store) {
	store.Clear(draft.FieldOptimizationResult)
	o.logger.Info("Optimization rejected", nil)
}

// DiscardUnaccepted drops a result the user never accepted. Leaving the
// optimize step without a decision counts as a skip.
func (o *Orchestrator) DiscardUnaccepted(store *draft.Store) bool {
	result := store.OptimizationResult()
	if result == nil || result.Accepted {
		return false
	}
	store.Clear(draft.FieldOptimizationResult)
	return true
}
