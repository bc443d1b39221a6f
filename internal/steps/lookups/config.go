package lookups

import "time"

type Config struct {
	CacheTTL     time.Duration
	QueryTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		CacheTTL:     15 * time.Minute,
		QueryTimeout: 5 * time.Second,
	}
}
