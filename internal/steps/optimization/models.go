package optimization

import (
	"encoding/json"

	"deal-wizard/internal/models"
)

// MarketDemand carries the placeholder demand assumptions sent with every
// request until a market data source is wired in.
type MarketDemand struct {
	TargetOccupancy    float64            `json:"targetOccupancy"`
	AbsorptionPerMonth int                `json:"absorptionPerMonth"`
	UnitMixDemand      map[string]float64 `json:"unitMixDemand"`
	AverageRentPerSF   float64            `json:"averageRentPerSF"`
}

type ParcelData struct {
	LotSizeSF  float64          `json:"lotSizeSF"`
	FARMax     float64          `json:"farMax"`
	MaxGrossSF float64          `json:"maxGrossSF"`
	Boundary   *models.Geometry `json:"boundary,omitempty"`
}

// Request is the optimizer input.
type Request struct {
	MarketDemand      MarketDemand      `json:"marketDemand"`
	ParcelData        ParcelData        `json:"parcelData"`
	ExistingDesign    *models.Design3D  `json:"existingDesign"`
	SelectedNeighbors []models.Neighbor `json:"selectedNeighbors"`
}

// Response is the optimizer output. Every field except Summary is optional.
type Response struct {
	OptimizedDesign    *models.Design3D `json:"optimizedDesign,omitempty"`
	Comparison         json.RawMessage  `json:"comparison,omitempty"`
	ImprovementPercent *float64         `json:"improvementPercent,omitempty"`
	Summary            string           `json:"summary"`
}

func defaultMarketDemand() MarketDemand {
	return MarketDemand{
		TargetOccupancy:    0.95,
		AbsorptionPerMonth: 20,
		UnitMixDemand: map[string]float64{
			"studio": 0.15,
			"1br":    0.45,
			"2br":    0.30,
			"3br":    0.10,
		},
		AverageRentPerSF: 2.25,
	}
}
