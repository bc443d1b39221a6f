// Package wizard implements the deal-creation step machine: the step table,
// per-step exit gates, branch routing and backward navigation.
package wizard

import (
	"deal-wizard/internal/common/validation"
	"deal-wizard/internal/draft"
	"deal-wizard/internal/models"
)

// Step identifies one wizard screen.
type Step string

const (
	StepCategory     Step = "CATEGORY"
	StepType         Step = "TYPE"
	StepPropertyType Step = "PROPERTY_TYPE"
	StepDocuments    Step = "DOCUMENTS"
	StepDetails      Step = "DETAILS"
	StepAddress      Step = "ADDRESS"
	StepTradeArea    Step = "TRADE_AREA"
	StepBoundary     Step = "BOUNDARY"
	StepDesign3D     Step = "DESIGN_3D"
	StepNeighbors    Step = "NEIGHBORS"
	StepOptimize     Step = "OPTIMIZE"
	StepFinancial    Step = "FINANCIAL"
	StepSubmit       Step = "SUBMIT"
)

// Branch is the route through the step table selected by category and
// development type.
type Branch string

const (
	BranchPortfolio        Branch = "portfolio"
	BranchPipelineExisting Branch = "pipeline-existing"
	BranchPipelineNew      Branch = "pipeline-new"
)

// IsDesign reports whether the branch runs the design sub-pipeline.
func (b Branch) IsDesign() bool {
	return b == BranchPipelineNew
}

// ResolveBranch derives the active branch from the draft's choices. Portfolio
// deals stop after TRADE_AREA, pipeline deals continue to BOUNDARY, and only
// pipeline deals with developmentType=new enter the design sub-pipeline.
func ResolveBranch(category models.Category, devType models.DevelopmentType) Branch {
	if category == models.CategoryPortfolio {
		return BranchPortfolio
	}
	if category == models.CategoryPipeline && devType == models.DevelopmentNew {
		return BranchPipelineNew
	}
	return BranchPipelineExisting
}

// Gate validates the draft before the wizard may leave a step.
type Gate func(d *draft.DealDraft) *validation.ValidationResult

// Definition declares one step: the fields it owns, its exit gate and its
// legal successor per branch. Default applies to every branch not listed.
type Definition struct {
	Step       Step
	Owns       []draft.Field
	Gate       Gate
	Default    Step
	Successors map[Branch]Step
}

// Successor returns the legal next step on branch.
func (d Definition) Successor(b Branch) (Step, bool) {
	if next, ok := d.Successors[b]; ok {
		return next, next != ""
	}
	return d.Default, d.Default != ""
}

// order is the full step order; not every step is reachable on every branch.
var order = []Step{
	StepCategory, StepType, StepPropertyType, StepDocuments, StepDetails,
	StepAddress, StepTradeArea, StepBoundary, StepDesign3D, StepNeighbors,
	StepOptimize, StepFinancial, StepSubmit,
}

var definitions = map[Step]Definition{
	StepCategory: {
		Step:    StepCategory,
		Owns:    []draft.Field{draft.FieldCategory},
		Gate:    categoryGate,
		Default: StepType,
	},
	StepType: {
		Step:    StepType,
		Owns:    []draft.Field{draft.FieldDevelopmentType},
		Gate:    developmentTypeGate,
		Default: StepPropertyType,
	},
	StepPropertyType: {
		Step:    StepPropertyType,
		Owns:    []draft.Field{draft.FieldPropertyType},
		Gate:    propertyTypeGate,
		Default: StepDocuments,
	},
	StepDocuments: {
		Step:    StepDocuments,
		Owns:    []draft.Field{draft.FieldDocuments, draft.FieldEconomics},
		Gate:    documentsGate,
		Default: StepDetails,
	},
	StepDetails: {
		Step:    StepDetails,
		Owns:    []draft.Field{draft.FieldName, draft.FieldDescription},
		Gate:    detailsGate,
		Default: StepAddress,
	},
	StepAddress: {
		Step:    StepAddress,
		Owns:    []draft.Field{draft.FieldAddress, draft.FieldCoordinates},
		Default: StepTradeArea,
	},
	StepTradeArea: {
		Step:    StepTradeArea,
		Owns:    []draft.Field{draft.FieldTradeAreaID, draft.FieldSubmarketID, draft.FieldMSAID},
		Default: StepBoundary,
		Successors: map[Branch]Step{
			BranchPortfolio: StepSubmit,
		},
	},
	StepBoundary: {
		Step: StepBoundary,
		Owns: []draft.Field{draft.FieldBoundary},
		Successors: map[Branch]Step{
			BranchPipelineExisting: StepSubmit,
			BranchPipelineNew:      StepDesign3D,
		},
	},
	StepDesign3D: {
		Step:    StepDesign3D,
		Owns:    []draft.Field{draft.FieldDesign3D},
		Gate:    designGate,
		Default: StepNeighbors,
	},
	StepNeighbors: {
		Step:    StepNeighbors,
		Owns:    []draft.Field{draft.FieldSelectedNeighbors},
		Default: StepOptimize,
	},
	StepOptimize: {
		Step:    StepOptimize,
		Owns:    []draft.Field{draft.FieldOptimizationResult},
		Default: StepFinancial,
	},
	StepFinancial: {
		Step:    StepFinancial,
		Owns:    []draft.Field{draft.FieldFinancialAssumptions, draft.FieldProForma},
		Default: StepSubmit,
	},
	StepSubmit: {
		Step: StepSubmit,
	},
}

// Lookup returns the definition of s.
func Lookup(s Step) (Definition, bool) {
	d, ok := definitions[s]
	return d, ok
}

// Steps returns the full step order.
func Steps() []Step {
	return append([]Step(nil), order...)
}

// Sequence is the canonical list of steps reachable on branch, in order.
// Progress display and backward navigation both derive from it.
func Sequence(b Branch) []Step {
	seq := []Step{StepCategory}
	for cur := StepCategory; ; {
		next, ok := definitions[cur].Successor(b)
		if !ok {
			return seq
		}
		seq = append(seq, next)
		cur = next
	}
}

// OwnedAfter lists the fields owned by every step strictly after target in
// the full order.
func OwnedAfter(target Step) []draft.Field {
	var fields []draft.Field
	after := false
	for _, s := range order {
		if after {
			fields = append(fields, definitions[s].Owns...)
		}
		if s == target {
			after = true
		}
	}
	return fields
}

func categoryGate(d *draft.DealDraft) *validation.ValidationResult {
	vr := validation.NewResult()
	vr.Required(string(draft.FieldCategory), d.Category.Valid())
	return vr
}

func developmentTypeGate(d *draft.DealDraft) *validation.ValidationResult {
	vr := validation.NewResult()
	vr.Required(string(draft.FieldDevelopmentType), d.DevelopmentType.Valid())
	return vr
}

func propertyTypeGate(d *draft.DealDraft) *validation.ValidationResult {
	vr := validation.NewResult()
	vr.Required(string(draft.FieldPropertyType), d.PropertyType != nil && d.PropertyType.ID != "")
	return vr
}

func documentsGate(d *draft.DealDraft) *validation.ValidationResult {
	vr := validation.NewResult()
	e := d.Economics

	vr.Required("purchasePrice", e.PurchasePrice.Valid)
	if e.PurchasePrice.Valid && !e.PurchasePrice.Decimal.IsPositive() {
		vr.Add("purchasePrice", "value must be greater than 0", validation.CodeOutOfRange)
	}
	vr.NonEmpty("offerDate", e.OfferDate)
	vr.Date("offerDate", e.OfferDate)

	vr.NonNegative("units", e.Units)
	vr.Range("occupancy", e.Occupancy, 0, 1)
	vr.Range("capRate", e.CapRate, 0, 1)
	if e.RentPerSF.Valid && e.RentPerSF.Decimal.IsNegative() {
		vr.Add("rentPerSF", "value must not be negative", validation.CodeOutOfRange)
	}
	if e.RenovationBudget.Valid && e.RenovationBudget.Decimal.IsNegative() {
		vr.Add("renovationBudget", "value must not be negative", validation.CodeOutOfRange)
	}
	return vr
}

func detailsGate(d *draft.DealDraft) *validation.ValidationResult {
	vr := validation.NewResult()
	vr.NonEmpty(string(draft.FieldName), d.Name)
	return vr
}

func designGate(d *draft.DealDraft) *validation.ValidationResult {
	vr := validation.NewResult()
	vr.Required(string(draft.FieldDesign3D), d.Design3D != nil)
	return vr
}
