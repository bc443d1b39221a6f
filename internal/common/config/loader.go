// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ProformaReadyWorker is the workers map key of the pro forma intake worker.
const ProformaReadyWorker = "proforma-ready"

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay is optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders left in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		target *string
		env    string
	}{
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Collaborators.Geocoder.APIKey, "GEOCODER_API_KEY"},
		{&cfg.Collaborators.Optimizer.APIKey, "OPTIMIZER_API_KEY"},
		{&cfg.Integrations.AWS.DesignTopicARN, "DESIGN_TOPIC_ARN"},
	}
	for _, o := range overrides {
		if *o.target == "" {
			if val := os.Getenv(o.env); val != "" {
				*o.target = val
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "deal-wizard"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}

	if cfg.Camunda.OnboardingProcessID == "" {
		cfg.Camunda.OnboardingProcessID = "deal-onboarding"
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.ParcelsIndex == "" {
		cfg.Database.Elasticsearch.ParcelsIndex = "parcels"
	}

	if cfg.Collaborators.Optimizer.Timeout == 0 {
		cfg.Collaborators.Optimizer.Timeout = 60000
	}
	for _, c := range []*CollaboratorConfig{
		&cfg.Collaborators.Geocoder,
		&cfg.Collaborators.Documents,
	} {
		if c.Timeout == 0 {
			c.Timeout = 10000
		}
	}

	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = "us-east-1"
	}

	if cfg.Wizard.SessionTTL == 0 {
		cfg.Wizard.SessionTTL = 2 * 60 * 60 * 1000
	}
	if cfg.Wizard.NeighborRadiusMeters == 0 {
		cfg.Wizard.NeighborRadiusMeters = 500
	}
	if cfg.Wizard.NeighborLimit == 0 {
		cfg.Wizard.NeighborLimit = 10
	}
	if cfg.Wizard.LookupCacheTTL == 0 {
		cfg.Wizard.LookupCacheTTL = 15 * 60 * 1000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Workers == nil {
		cfg.Workers = make(map[string]WorkerConfig)
	}
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}
	if cfg.Integrations.AWS.SNSEnabled && cfg.Integrations.AWS.DesignTopicARN == "" {
		return fmt.Errorf("integrations.aws.design_topic_arn is required when sns is enabled")
	}
	if cfg.Integrations.AWS.SESEnabled && cfg.Integrations.AWS.FromEmail == "" {
		return fmt.Errorf("integrations.aws.from_email is required when ses is enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		JobType:       workerName,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
