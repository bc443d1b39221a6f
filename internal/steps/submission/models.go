package submission

import (
	"deal-wizard/internal/models"
)

// Payload is the deal-creation body. Development-only sections are omitted
// unless the deal is a new development.
type Payload struct {
	Category             models.Category              `json:"category"`
	DevelopmentType      models.DevelopmentType       `json:"developmentType"`
	PropertyTypeID       string                       `json:"propertyTypeId,omitempty"`
	PropertyTypeKey      string                       `json:"propertyTypeKey,omitempty"`
	Name                 string                       `json:"name"`
	Description          string                       `json:"description,omitempty"`
	Address              string                       `json:"address,omitempty"`
	Coordinates          *models.Coordinates          `json:"coordinates,omitempty"`
	Boundary             *models.Geometry             `json:"boundary"`
	Economics            models.Economics             `json:"economics"`
	DocumentIDs          []string                     `json:"documentIds"`
	Design3D             *models.Design3D             `json:"design3D,omitempty"`
	SelectedNeighbors    []models.Neighbor            `json:"selectedNeighbors,omitempty"`
	OptimizationResult   *models.OptimizationResult   `json:"optimizationResult,omitempty"`
	ProForma             *models.ProForma             `json:"proForma,omitempty"`
	FinancialAssumptions *models.FinancialAssumptions `json:"financialAssumptions,omitempty"`

	// GeographicContext is linked after creation and is not part of the body.
	GeographicContext *GeographicContext `json:"-"`
}

type GeographicContext struct {
	TradeAreaID string `json:"tradeAreaId,omitempty"`
	SubmarketID string `json:"submarketId,omitempty"`
	MSAID       string `json:"msaId,omitempty"`
}

// Result describes a created deal. Warnings list best-effort follow-ups that
// failed.
type Result struct {
	DealID            string   `json:"dealId"`
	ProcessInstanceID int64    `json:"processInstanceId,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}
