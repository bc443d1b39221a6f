package submission

import (
	_ "embed"
	"strings"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/validation"
	"deal-wizard/internal/draft"
)

//go:embed deal_payload.schema.json
var payloadSchema []byte

// Assemble validates the final draft and builds the creation payload.
// includeDevelopment selects the development-only sections.
func Assemble(d draft.DealDraft, includeDevelopment bool) (*Payload, error) {
	vr := validation.NewResult()
	vr.NonEmpty(string(draft.FieldName), strings.TrimSpace(d.Name))
	vr.Required(string(draft.FieldBoundary), d.Boundary != nil)
	if !vr.Valid {
		return nil, apperrors.NewSubmissionInvalidError(vr.FieldIssues())
	}

	p := &Payload{
		Category:        d.Category,
		DevelopmentType: d.DevelopmentType,
		Name:            strings.TrimSpace(d.Name),
		Description:     d.Description,
		Address:         d.Address,
		Coordinates:     d.Coordinates,
		Boundary:        d.Boundary,
		Economics:       d.Economics.Clone(),
		DocumentIDs:     make([]string, 0, len(d.Documents)),
	}
	if d.PropertyType != nil {
		p.PropertyTypeID = d.PropertyType.ID
		p.PropertyTypeKey = d.PropertyType.TypeKey
	}
	for _, doc := range d.Documents {
		p.DocumentIDs = append(p.DocumentIDs, doc.ID)
	}
	if d.HasGeographicContext() {
		p.GeographicContext = &GeographicContext{
			TradeAreaID: d.TradeAreaID,
			SubmarketID: d.SubmarketID,
			MSAID:       d.MSAID,
		}
	}

	if includeDevelopment {
		p.Design3D = d.Design3D
		p.SelectedNeighbors = d.SelectedNeighbors
		p.OptimizationResult = d.OptimizationResult
		p.ProForma = d.ProForma
		p.FinancialAssumptions = d.FinancialAssumptions
		if d.Design3D != nil {
			units := d.Design3D.TotalUnits
			p.Economics.Units = &units
		}
	}

	result, err := validation.ValidateDocument(payloadSchema, p)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !result.Valid {
		return nil, apperrors.NewSubmissionInvalidError(result.FieldIssues())
	}
	return p, nil
}
