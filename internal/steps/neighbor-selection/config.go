package neighborselection

import "time"

type Config struct {
	Index        string
	RadiusMeters float64
	Limit        int
	Timeout      time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Index:        "parcels",
		RadiusMeters: 500,
		Limit:        10,
		Timeout:      5 * time.Second,
	}
}
