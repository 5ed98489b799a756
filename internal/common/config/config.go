// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                `mapstructure:"app"`
	Research      ResearchConfig           `mapstructure:"research"`
	Sources       map[string]SourceConfig  `mapstructure:"sources"`
	Segments      map[string]SegmentConfig `mapstructure:"segments"`
	APIs          APIsConfig               `mapstructure:"apis"`
	Database      DatabaseConfig           `mapstructure:"database"`
	Notifications NotificationConfig       `mapstructure:"notifications"`
	Logging       LoggingConfig            `mapstructure:"logging"`
	Metrics       MetricsConfig            `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ResearchConfig holds the orchestration knobs: iteration cap, quality
// floors, generic convergence thresholds and the per-round collection budget.
type ResearchConfig struct {
	MaxIterations         int     `mapstructure:"max_iterations"`
	QualityFloor          float64 `mapstructure:"quality_floor"`
	QualityFloorLowStakes float64 `mapstructure:"quality_floor_low_stakes"`
	MinEvidenceCount      int     `mapstructure:"min_evidence_count"`
	QualityThreshold      float64 `mapstructure:"quality_threshold"`
	CollectionTimeout     int     `mapstructure:"collection_timeout"` // milliseconds
	RefinedQueriesPerGap  int     `mapstructure:"refined_queries_per_gap"`
	CacheTTL              int     `mapstructure:"cache_ttl"` // seconds
}

// CollectionTimeoutDuration returns the per-round collection budget.
func (r ResearchConfig) CollectionTimeoutDuration() time.Duration {
	return time.Duration(r.CollectionTimeout) * time.Millisecond
}

// RetryConfig is the per-source retry policy.
type RetryConfig struct {
	MaxRetries        int     `mapstructure:"max_retries"`
	InitialDelay      int     `mapstructure:"initial_delay"` // milliseconds
	MaxDelay          int     `mapstructure:"max_delay"`     // milliseconds
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
}

// BreakerConfig is the per-source circuit breaker policy.
type BreakerConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	ResetTimeout     int `mapstructure:"reset_timeout"` // milliseconds
}

// SourceConfig holds the core settings applicable to every source adapter.
type SourceConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Timeout   int           `mapstructure:"timeout"` // milliseconds
	Retry     RetryConfig   `mapstructure:"retry"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
	Fallbacks []string      `mapstructure:"fallbacks"`
}

// TimeoutDuration returns the per-call timeout for a source.
func (s SourceConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Millisecond
}

// SegmentConfig overrides the generic convergence thresholds for a
// customer-segment archetype.
type SegmentConfig struct {
	MinEvidenceCount int      `mapstructure:"min_evidence_count"`
	QualityThreshold float64  `mapstructure:"quality_threshold"`
	RequiredAspects  []string `mapstructure:"required_aspects"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	WebSearch struct {
		BaseURL  string `mapstructure:"base_url"`
		APIKey   string `mapstructure:"api_key"`
		EngineID string `mapstructure:"engine_id"`
		Timeout  int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"web_search"`

	Synthesizer struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Model   string `mapstructure:"model"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"synthesizer"`

	SecurityScan struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"security_scan"`

	TechScan struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"tech_scan"`

	Reviews struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"reviews"`

	Financial struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"financial"`
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

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotificationConfig holds settings for run-completion notifications.
type NotificationConfig struct {
	Email struct {
		Enabled    bool     `mapstructure:"enabled"`
		FromEmail  string   `mapstructure:"from_email"`
		Recipients []string `mapstructure:"recipients"`
	} `mapstructure:"email"`
	Alert struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"alert"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
