package submission

import "time"

type Config struct {
	OnboardingProcessID string
	ProcessEnabled      bool
	EmailEnabled        bool
	FromEmail           string
	NotifyEmail         string
	Timeout             time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		OnboardingProcessID: "deal-onboarding",
		Timeout:             30 * time.Second,
	}
}
