package designpipeline

// Metrics is the raw payload pushed by the 3D editor. Absent fields are
// defaulted or derived when the design record is built.
type Metrics struct {
	TotalUnits    *int           `json:"totalUnits,omitempty"`
	UnitMix       map[string]int `json:"unitMix,omitempty"`
	RentableSF    *float64       `json:"rentableSF,omitempty"`
	GrossSF       *float64       `json:"grossSF,omitempty"`
	Efficiency    *float64       `json:"efficiency,omitempty"`
	ParkingSpaces *int           `json:"parkingSpaces,omitempty"`
	ParkingType   *string        `json:"parkingType,omitempty"`
	AmenitySF     *float64       `json:"amenitySF,omitempty"`
	Stories       *int           `json:"stories,omitempty"`
	FARUtilized   *float64       `json:"farUtilized,omitempty"`
	FARMax        *float64       `json:"farMax,omitempty"`
}

const (
	DefaultEfficiency  = 0.85
	DefaultStories     = 1
	DefaultParkingType = "surface"
)

var parkingTypes = map[string]bool{
	"surface":     true,
	"structured":  true,
	"podium":      true,
	"underground": true,
	"tuck-under":  true,
}
