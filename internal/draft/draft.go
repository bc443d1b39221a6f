// Package draft holds the in-memory deal draft a wizard session accumulates.
package draft

import (
	"deal-wizard/internal/models"
)

// Field names a slice of the draft that a wizard step owns.
type Field string

const (
	FieldCategory             Field = "category"
	FieldDevelopmentType      Field = "developmentType"
	FieldPropertyType         Field = "propertyType"
	FieldDocuments            Field = "documents"
	FieldEconomics            Field = "economics"
	FieldName                 Field = "name"
	FieldDescription          Field = "description"
	FieldAddress              Field = "address"
	FieldCoordinates          Field = "coordinates"
	FieldTradeAreaID          Field = "tradeAreaId"
	FieldSubmarketID          Field = "submarketId"
	FieldMSAID                Field = "msaId"
	FieldBoundary             Field = "boundary"
	FieldDesign3D             Field = "design3D"
	FieldSelectedNeighbors    Field = "selectedNeighbors"
	FieldOptimizationResult   Field = "optimizationResult"
	FieldFinancialAssumptions Field = "financialAssumptions"
	FieldProForma             Field = "proForma"
)

// developmentOnly lists the sections settable only for new development.
var developmentOnly = map[Field]bool{
	FieldDesign3D:             true,
	FieldSelectedNeighbors:    true,
	FieldOptimizationResult:   true,
	FieldFinancialAssumptions: true,
	FieldProForma:             true,
}

// IsDevelopmentOnly reports whether f may only be set on new development deals.
func IsDevelopmentOnly(f Field) bool {
	return developmentOnly[f]
}

// DealDraft is the deal being created.
type DealDraft struct {
	Category             models.Category              `json:"category,omitempty"`
	DevelopmentType      models.DevelopmentType       `json:"developmentType,omitempty"`
	PropertyType         *models.PropertyType         `json:"propertyType,omitempty"`
	Documents            []models.Document            `json:"documents"`
	Economics            models.Economics             `json:"economics"`
	Name                 string                       `json:"name,omitempty"`
	Description          string                       `json:"description,omitempty"`
	Address              string                       `json:"address,omitempty"`
	Coordinates          *models.Coordinates          `json:"coordinates,omitempty"`
	TradeAreaID          string                       `json:"tradeAreaId,omitempty"`
	SubmarketID          string                       `json:"submarketId,omitempty"`
	MSAID                string                       `json:"msaId,omitempty"`
	Boundary             *models.Geometry             `json:"boundary,omitempty"`
	Design3D             *models.Design3D             `json:"design3D,omitempty"`
	SelectedNeighbors    []models.Neighbor            `json:"selectedNeighbors"`
	OptimizationResult   *models.OptimizationResult   `json:"optimizationResult,omitempty"`
	FinancialAssumptions *models.FinancialAssumptions `json:"financialAssumptions,omitempty"`
	ProForma             *models.ProForma             `json:"proForma,omitempty"`
}

// IsNewDevelopment reports whether development-only sections may be set.
func (d *DealDraft) IsNewDevelopment() bool {
	return d.DevelopmentType == models.DevelopmentNew
}

// HasGeographicContext reports whether any linkage identifier is set.
func (d *DealDraft) HasGeographicContext() bool {
	return d.TradeAreaID != "" || d.SubmarketID != "" || d.MSAID != ""
}

// Clone returns a deep copy.
func (d *DealDraft) Clone() DealDraft {
	out := *d
	if d.PropertyType != nil {
		pt := *d.PropertyType
		out.PropertyType = &pt
	}
	out.Documents = append([]models.Document(nil), d.Documents...)
	out.Economics = d.Economics.Clone()
	if d.Coordinates != nil {
		c := *d.Coordinates
		out.Coordinates = &c
	}
	out.Boundary = d.Boundary.Clone()
	out.Design3D = d.Design3D.Clone()
	if d.SelectedNeighbors != nil {
		out.SelectedNeighbors = make([]models.Neighbor, len(d.SelectedNeighbors))
		for i, n := range d.SelectedNeighbors {
			out.SelectedNeighbors[i] = n.Clone()
		}
	}
	out.OptimizationResult = d.OptimizationResult.Clone()
	out.FinancialAssumptions = d.FinancialAssumptions.Clone()
	out.ProForma = d.ProForma.Clone()
	return out
}

func (d *DealDraft) clear(f Field) {
	switch f {
	case FieldCategory:
		d.Category = ""
	case FieldDevelopmentType:
		d.DevelopmentType = ""
	case FieldPropertyType:
		d.PropertyType = nil
	case FieldDocuments:
		d.Documents = nil
	case FieldEconomics:
		d.Economics = models.Economics{}
	case FieldName:
		d.Name = ""
	case FieldDescription:
		d.Description = ""
	case FieldAddress:
		d.Address = ""
	case FieldCoordinates:
		d.Coordinates = nil
	case FieldTradeAreaID:
		d.TradeAreaID = ""
	case FieldSubmarketID:
		d.SubmarketID = ""
	case FieldMSAID:
		d.MSAID = ""
	case FieldBoundary:
		d.Boundary = nil
	case FieldDesign3D:
		d.Design3D = nil
	case FieldSelectedNeighbors:
		d.SelectedNeighbors = nil
	case FieldOptimizationResult:
		d.OptimizationResult = nil
	case FieldFinancialAssumptions:
		d.FinancialAssumptions = nil
	case FieldProForma:
		d.ProForma = nil
	}
}
