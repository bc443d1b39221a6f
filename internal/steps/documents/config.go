package documents

import "time"

type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxFileSize int64
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		MaxFileSize: 32 << 20,
	}
}
