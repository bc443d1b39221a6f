package neighborselection

// parcelSource is the parcels index document shape.
type parcelSource struct {
	ParcelID string   `json:"parcel_id"`
	Address  string   `json:"address"`
	LotSize  float64  `json:"lot_size"`
	Benefits []string `json:"benefits"`
	Location *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"location"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string        `json:"_id"`
			Source parcelSource  `json:"_source"`
			Sort   []interface{} `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}
