package config

import "fmt"

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Collaborators CollaboratorsConfig     `mapstructure:"collaborators"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Wizard        WizardConfig            `mapstructure:"wizard"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
	MaxUploadMB  int    `mapstructure:"max_upload_mb"`
}

type CamundaConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	BrokerAddress       string `mapstructure:"broker_address"`
	OnboardingProcessID string `mapstructure:"onboarding_process_id"`
	ProcessEnabled      bool   `mapstructure:"process_enabled"`
	MaxJobsActive       int    `mapstructure:"max_jobs_active"`
	Timeout             int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout      int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	URL          string   `mapstructure:"url"`
	ParcelsIndex string   `mapstructure:"parcels_index"`
}

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CollaboratorConfig describes one REST collaborator.
type CollaboratorConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type CollaboratorsConfig struct {
	Geocoder  CollaboratorConfig `mapstructure:"geocoder"`
	Documents CollaboratorConfig `mapstructure:"documents"`
	Optimizer CollaboratorConfig `mapstructure:"optimizer"`
}

type IntegrationConfig struct {
	AWS AWSConfig `mapstructure:"aws"`
}

type AWSConfig struct {
	Region         string `mapstructure:"region"`
	SNSEnabled     bool   `mapstructure:"sns_enabled"`
	DesignTopicARN string `mapstructure:"design_topic_arn"`
	SESEnabled     bool   `mapstructure:"ses_enabled"`
	FromEmail      string `mapstructure:"from_email"`
	NotifyEmail    string `mapstructure:"notify_email"`
}

type WizardConfig struct {
	SessionTTL           int     `mapstructure:"session_ttl"` // milliseconds
	NeighborRadiusMeters float64 `mapstructure:"neighbor_radius_meters"`
	NeighborLimit        int     `mapstructure:"neighbor_limit"`
	LookupCacheTTL       int     `mapstructure:"lookup_cache_ttl"` // milliseconds
}

type WorkerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	JobType       string `mapstructure:"job_type"`
	MaxJobsActive int    `mapstructure:"max_jobs_active"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
	MaxRetries    int    `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
