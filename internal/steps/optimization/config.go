package optimization

import "time"

type Config struct {
	OptimizerURL     string
	OptimizerAPIKey  string
	OptimizerTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		OptimizerTimeout: 60 * time.Second,
	}
}
