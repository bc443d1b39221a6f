package proformaready

import (
	"fmt"
	"time"

	"deal-wizard/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 10,
		Timeout:       5 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}

// createConfigFromAppConfig overlays the workers.proforma-ready section on
// the defaults. A custom config wins outright.
func createConfigFromAppConfig(appCfg *config.Config, custom *Config) *Config {
	if custom != nil {
		return custom
	}
	cfg := DefaultConfig()
	if appCfg == nil {
		return cfg
	}
	wc := config.GetWorkerConfig(appCfg, config.ProformaReadyWorker)
	cfg.Enabled = wc.Enabled
	if wc.MaxJobsActive > 0 {
		cfg.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}
