package financialsync

import (
	"time"

	"deal-wizard/internal/models"
)

// DesignChanged is the outbound notification to the financial-modeling
// collaborator. Revisions increase strictly per session; a pro forma is only
// accepted for the latest revision.
type DesignChanged struct {
	SessionID      string                       `json:"sessionId"`
	Revision       int64                        `json:"revision"`
	Design         *models.Design3D             `json:"design3D"`
	Assumptions    *models.FinancialAssumptions `json:"financialAssumptions"`
	IdempotencyKey string                       `json:"idempotencyKey"`
	OccurredAt     time.Time                    `json:"occurredAt"`
}

// DefaultAssumptions is the record seeded on first entry to the financial
// step.
func DefaultAssumptions() *models.FinancialAssumptions {
	return &models.FinancialAssumptions{
		MarketRents: models.MarketRentAssumptions{
			RentPerSFMonthly:          2.25,
			AnnualGrowth:              0.03,
			OtherIncomePerUnitMonthly: 75,
		},
		ConstructionCosts: models.ConstructionCostAssumptions{
			HardCostPerSF:              185,
			SurfaceParkingPerSpace:     5000,
			StructuredParkingPerSpace:  25000,
			UndergroundParkingPerSpace: 45000,
			Contingency:                0.05,
		},
		SoftCosts: models.SoftCostAssumptions{
			PercentOfHard: 0.25,
			Developer:     0.04,
		},
		Operating: models.OperatingAssumptions{
			OpexRatio:     0.35,
			Vacancy:       0.05,
			ManagementFee: 0.03,
		},
		Debt: models.DebtAssumptions{
			LoanToCost:   0.65,
			InterestRate: 0.07,
			TermMonths:   36,
		},
		Exit: models.ExitAssumptions{
			ExitCapRate:  0.055,
			HoldYears:    5,
			SellingCosts: 0.02,
		},
	}
}
