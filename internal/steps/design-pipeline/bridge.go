// Package designpipeline adapts 3D editor metrics into the draft's design
// record.
package designpipeline

import (
	"time"

	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/common/validation"
	"deal-wizard/internal/draft"
	"deal-wizard/internal/models"
)

type Bridge struct {
	now    func() time.Time
	logger logger.Logger
}

func NewBridge(log logger.Logger) *Bridge {
	return &Bridge{
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.ForComponent(log, "design-pipeline"),
	}
}

// Validate checks the raw metrics for impossible values.
func Validate(m Metrics) *validation.ValidationResult {
	vr := validation.NewResult()
	vr.NonNegative("totalUnits", m.TotalUnits)
	vr.NonNegative("parkingSpaces", m.ParkingSpaces)
	for unitType, n := range m.UnitMix {
		if n < 0 {
			vr.Add("unitMix."+unitType, "value must not be negative", validation.CodeOutOfRange)
		}
	}
	nonNegative := func(field string, v *float64) {
		if v != nil && *v < 0 {
			vr.Add(field, "value must not be negative", validation.CodeOutOfRange)
		}
	}
	nonNegative("rentableSF", m.RentableSF)
	nonNegative("grossSF", m.GrossSF)
	nonNegative("amenitySF", m.AmenitySF)
	nonNegative("farUtilized", m.FARUtilized)
	nonNegative("farMax", m.FARMax)
	if m.Efficiency != nil && (*m.Efficiency <= 0 || *m.Efficiency > 1) {
		vr.Add("efficiency", "value must be in (0, 1]", validation.CodeOutOfRange)
	}
	if m.Stories != nil && *m.Stories < 1 {
		vr.Add("stories", "value must be at least 1", validation.CodeOutOfRange)
	}
	if m.ParkingType != nil && !parkingTypes[*m.ParkingType] {
		vr.Add("parkingType", "unknown parking type", validation.CodeInvalidValue)
	}
	return vr
}

// Normalize builds a design record from raw metrics, applying defaults. The
// result carries no timestamp.
func Normalize(m Metrics) models.Design3D {
	d := models.Design3D{
		Efficiency:  DefaultEfficiency,
		Stories:     DefaultStories,
		ParkingType: DefaultParkingType,
	}
	if m.Efficiency != nil {
		d.Efficiency = *m.Efficiency
	}
	if m.Stories != nil {
		d.Stories = *m.Stories
	}
	if m.ParkingType != nil && *m.ParkingType != "" {
		d.ParkingType = *m.ParkingType
	}

	if len(m.UnitMix) > 0 {
		d.UnitMix = make(map[string]int, len(m.UnitMix))
		for k, v := range m.UnitMix {
			d.UnitMix[k] = v
		}
	}
	if m.TotalUnits != nil {
		d.TotalUnits = *m.TotalUnits
	} else {
		for _, n := range d.UnitMix {
			d.TotalUnits += n
		}
	}

	if m.GrossSF != nil {
		d.GrossSF = *m.GrossSF
	}
	if m.RentableSF != nil {
		d.RentableSF = *m.RentableSF
	} else {
		d.RentableSF = d.GrossSF * d.Efficiency
	}

	if m.ParkingSpaces != nil {
		d.ParkingSpaces = *m.ParkingSpaces
	}
	if m.AmenitySF != nil {
		d.AmenitySF = *m.AmenitySF
	}
	if m.FARUtilized != nil {
		d.FARUtilized = *m.FARUtilized
	}
	if m.FARMax != nil {
		d.FARMax = *m.FARMax
	}
	return d
}

// Apply replaces the draft's design with the normalized metrics and stamps
// the modification time.
func (b *Bridge) Apply(store *draft.Store, m Metrics) (*models.Design3D, error) {
	if vr := Validate(m); !vr.Valid {
		err := apperrors.NewStepGateFailedError("DESIGN_3D", vr.FieldIssues())
		err.Message = "Design metrics are invalid"
		return nil, err
	}

	d := Normalize(m)
	d.LastModified = b.now()
	if err := store.SetDesign3D(&d); err != nil {
		return nil, err
	}

	b.logger.Info("Design updated", map[string]interface{}{
		"totalUnits": d.TotalUnits,
		"grossSF":    d.GrossSF,
		"stories":    d.Stories,
	})
	return &d, nil
}
