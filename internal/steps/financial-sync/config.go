package financialsync

import "time"

type Config struct {
	SNSEnabled     bool
	DesignTopicARN string
	PublishTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		PublishTimeout: 10 * time.Second,
	}
}
