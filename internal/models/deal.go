package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the top-level deal classification.
type Category string

const (
	CategoryPortfolio Category = "portfolio"
	CategoryPipeline  Category = "pipeline"
)

func (c Category) Valid() bool {
	return c == CategoryPortfolio || c == CategoryPipeline
}

// DevelopmentType separates ground-up development from acquisitions.
type DevelopmentType string

const (
	DevelopmentNew      DevelopmentType = "new"
	DevelopmentExisting DevelopmentType = "existing"
)

func (d DevelopmentType) Valid() bool {
	return d == DevelopmentNew || d == DevelopmentExisting
}

// PropertyType is one row of the property type catalogue.
type PropertyType struct {
	ID          string `json:"id" db:"id"`
	TypeKey     string `json:"type_key" db:"type_key"`
	DisplayName string `json:"display_name" db:"display_name"`
	Category    string `json:"category" db:"category"`
	Description string `json:"description,omitempty" db:"description"`
}

// Submarket is the result of a point-in-polygon submarket lookup.
type Submarket struct {
	ID    string `json:"id" db:"id"`
	MSAID string `json:"msa_id,omitempty" db:"msa_id"`
}

// GeocodeResult is what the geocoding collaborator resolves an address to.
type GeocodeResult struct {
	FormattedAddress string  `json:"formattedAddress"`
	Lng              float64 `json:"lng"`
	Lat              float64 `json:"lat"`
}

// Document describes one uploaded file.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Economics holds the scalar deal economics captured on the documents step.
type Economics struct {
	PurchasePrice    decimal.NullDecimal `json:"purchasePrice"`
	OfferDate        string              `json:"offerDate,omitempty"`
	Units            *int                `json:"units,omitempty"`
	Occupancy        *float64            `json:"occupancy,omitempty"`
	RentPerSF        decimal.NullDecimal `json:"rentPerSF"`
	CapRate          *float64            `json:"capRate,omitempty"`
	RenovationBudget decimal.NullDecimal `json:"renovationBudget"`
}

func (e Economics) Clone() Economics {
	out := e
	if e.Units != nil {
		v := *e.Units
		out.Units = &v
	}
	if e.Occupancy != nil {
		v := *e.Occupancy
		out.Occupancy = &v
	}
	if e.CapRate != nil {
		v := *e.CapRate
		out.CapRate = &v
	}
	return out
}

// Design3D is the massing record produced by the 3D editor.
type Design3D struct {
	TotalUnits    int            `json:"totalUnits"`
	UnitMix       map[string]int `json:"unitMix"`
	RentableSF    float64        `json:"rentableSF"`
	GrossSF       float64        `json:"grossSF"`
	Efficiency    float64        `json:"efficiency"`
	ParkingSpaces int            `json:"parkingSpaces"`
	ParkingType   string         `json:"parkingType"`
	AmenitySF     float64        `json:"amenitySF"`
	Stories       int            `json:"stories"`
	FARUtilized   float64        `json:"farUtilized"`
	FARMax        float64        `json:"farMax"`
	LastModified  time.Time      `json:"lastModified"`
}

func (d *Design3D) Clone() *Design3D {
	if d == nil {
		return nil
	}
	out := *d
	if d.UnitMix != nil {
		out.UnitMix = make(map[string]int, len(d.UnitMix))
		for k, v := range d.UnitMix {
			out.UnitMix[k] = v
		}
	}
	return &out
}

// Neighbor is an assemblage candidate parcel.
type Neighbor struct {
	ID             string       `json:"id"`
	Address        string       `json:"address"`
	LotSize        float64      `json:"lotSize"`
	Benefits       []string     `json:"benefits,omitempty"`
	Location       *Coordinates `json:"location,omitempty"`
	DistanceMeters float64      `json:"distanceMeters,omitempty"`
}

func (n Neighbor) Clone() Neighbor {
	out := n
	if n.Benefits != nil {
		out.Benefits = append([]string(nil), n.Benefits...)
	}
	if n.Location != nil {
		loc := *n.Location
		out.Location = &loc
	}
	return out
}

// OptimizationResult is the optimizer response kept for display.
type OptimizationResult struct {
	OptimizedDesign    *Design3D       `json:"optimizedDesign,omitempty"`
	Comparison         json.RawMessage `json:"comparison,omitempty"`
	ImprovementPercent *float64        `json:"improvementPercent,omitempty"`
	Summary            string          `json:"summary,omitempty"`
	Accepted           bool            `json:"accepted"`
}

func (o *OptimizationResult) Clone() *OptimizationResult {
	if o == nil {
		return nil
	}
	out := *o
	out.OptimizedDesign = o.OptimizedDesign.Clone()
	out.Comparison = cloneRaw(o.Comparison)
	if o.ImprovementPercent != nil {
		v := *o.ImprovementPercent
		out.ImprovementPercent = &v
	}
	return &out
}

type MarketRentAssumptions struct {
	RentPerSFMonthly          float64 `json:"rentPerSFMonthly"`
	AnnualGrowth              float64 `json:"annualGrowth"`
	OtherIncomePerUnitMonthly float64 `json:"otherIncomePerUnitMonthly"`
}

type ConstructionCostAssumptions struct {
	HardCostPerSF              float64 `json:"hardCostPerSF"`
	SurfaceParkingPerSpace     float64 `json:"surfaceParkingPerSpace"`
	StructuredParkingPerSpace  float64 `json:"structuredParkingPerSpace"`
	UndergroundParkingPerSpace float64 `json:"undergroundParkingPerSpace"`
	Contingency                float64 `json:"contingency"`
}

type SoftCostAssumptions struct {
	PercentOfHard float64 `json:"percentOfHard"`
	Developer     float64 `json:"developerFee"`
}

type OperatingAssumptions struct {
	OpexRatio     float64 `json:"opexRatio"`
	Vacancy       float64 `json:"vacancy"`
	ManagementFee float64 `json:"managementFee"`
}

type DebtAssumptions struct {
	LoanToCost   float64 `json:"loanToCost"`
	InterestRate float64 `json:"interestRate"`
	TermMonths   int     `json:"termMonths"`
}

type ExitAssumptions struct {
	ExitCapRate  float64 `json:"exitCapRate"`
	HoldYears    int     `json:"holdYears"`
	SellingCosts float64 `json:"sellingCosts"`
}

// FinancialAssumptions feed the financial-modeling collaborator.
type FinancialAssumptions struct {
	MarketRents       MarketRentAssumptions       `json:"marketRents"`
	ConstructionCosts ConstructionCostAssumptions `json:"constructionCosts"`
	SoftCosts         SoftCostAssumptions         `json:"softCosts"`
	Operating         OperatingAssumptions        `json:"operating"`
	Debt              DebtAssumptions             `json:"debt"`
	Exit              ExitAssumptions             `json:"exit"`
}

func (f *FinancialAssumptions) Clone() *FinancialAssumptions {
	if f == nil {
		return nil
	}
	out := *f
	return &out
}

// ProForma is produced out of band by the financial-modeling collaborator.
// Revision ties it to the design change that triggered it.
type ProForma struct {
	Revision    int64           `json:"revision"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Data        json.RawMessage `json:"data"`
}

func (p *ProForma) Clone() *ProForma {
	if p == nil {
		return nil
	}
	out := *p
	out.Data = cloneRaw(p.Data)
	return &out
}
