package geometrycapture

import "time"

type Config struct {
	GeocoderURL     string
	GeocoderAPIKey  string
	GeocoderTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		GeocoderTimeout: 10 * time.Second,
	}
}
