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

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like WEB_SEARCH_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load .env from multiple possible locations so tests run from package dirs
// pick it up too.
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

// Find project root by looking for go.mod
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
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.WebSearch.APIKey == "" {
		if val := os.Getenv("WEB_SEARCH_API_KEY"); val != "" {
			cfg.APIs.WebSearch.APIKey = val
		}
	}
	if cfg.APIs.WebSearch.EngineID == "" {
		if val := os.Getenv("WEB_SEARCH_ENGINE_ID"); val != "" {
			cfg.APIs.WebSearch.EngineID = val
		}
	}
	if cfg.APIs.Synthesizer.APIKey == "" {
		if val := os.Getenv("SYNTHESIZER_API_KEY"); val != "" {
			cfg.APIs.Synthesizer.APIKey = val
		}
	}
	if cfg.APIs.TechScan.APIKey == "" {
		if val := os.Getenv("TECH_SCAN_API_KEY"); val != "" {
			cfg.APIs.TechScan.APIKey = val
		}
	}
	if cfg.APIs.Reviews.APIKey == "" {
		if val := os.Getenv("REVIEWS_API_KEY"); val != "" {
			cfg.APIs.Reviews.APIKey = val
		}
	}
	if cfg.APIs.Financial.APIKey == "" {
		if val := os.Getenv("FINANCIAL_API_KEY"); val != "" {
			cfg.APIs.Financial.APIKey = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Research defaults
	if cfg.Research.MaxIterations == 0 {
		cfg.Research.MaxIterations = 3
	}
	if cfg.Research.QualityFloor == 0 {
		cfg.Research.QualityFloor = 60
	}
	if cfg.Research.QualityFloorLowStakes == 0 {
		cfg.Research.QualityFloorLowStakes = 50
	}
	if cfg.Research.MinEvidenceCount == 0 {
		cfg.Research.MinEvidenceCount = 20
	}
	if cfg.Research.QualityThreshold == 0 {
		cfg.Research.QualityThreshold = 0.7
	}
	if cfg.Research.CollectionTimeout == 0 {
		cfg.Research.CollectionTimeout = 120000
	}
	if cfg.Research.RefinedQueriesPerGap == 0 {
		cfg.Research.RefinedQueriesPerGap = 2
	}
	if cfg.Research.CacheTTL == 0 {
		cfg.Research.CacheTTL = 900
	}

	// Source defaults
	for key, src := range cfg.Sources {
		if src.Timeout == 0 {
			src.Timeout = 30000
		}
		if src.Retry.MaxRetries == 0 {
			src.Retry.MaxRetries = 3
		}
		if src.Retry.InitialDelay == 0 {
			src.Retry.InitialDelay = 500
		}
		if src.Retry.MaxDelay == 0 {
			src.Retry.MaxDelay = 10000
		}
		if src.Retry.BackoffMultiplier == 0 {
			src.Retry.BackoffMultiplier = 2.0
		}
		if src.Breaker.FailureThreshold == 0 {
			src.Breaker.FailureThreshold = 5
		}
		if src.Breaker.ResetTimeout == 0 {
			src.Breaker.ResetTimeout = 60000
		}
		cfg.Sources[key] = src
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "research-evidence"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// API timeout defaults
	if cfg.APIs.WebSearch.Timeout == 0 {
		cfg.APIs.WebSearch.Timeout = 10000
	}
	if cfg.APIs.Synthesizer.Timeout == 0 {
		cfg.APIs.Synthesizer.Timeout = 60000
	}
	if cfg.APIs.TechScan.Timeout == 0 {
		cfg.APIs.TechScan.Timeout = 30000
	}
	if cfg.APIs.Reviews.Timeout == 0 {
		cfg.APIs.Reviews.Timeout = 15000
	}
	if cfg.APIs.Financial.Timeout == 0 {
		cfg.APIs.Financial.Timeout = 15000
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Research.MaxIterations < 1 {
		return fmt.Errorf("research.max_iterations must be at least 1")
	}
	if cfg.Research.QualityThreshold < 0 || cfg.Research.QualityThreshold > 1 {
		return fmt.Errorf("research.quality_threshold must be in [0,1]")
	}

	for name, seg := range cfg.Segments {
		if seg.QualityThreshold < 0 || seg.QualityThreshold > 1 {
			return fmt.Errorf("segments.%s.quality_threshold must be in [0,1]", name)
		}
	}

	for name, src := range cfg.Sources {
		if src.Retry.BackoffMultiplier < 1.0 {
			return fmt.Errorf("sources.%s.retry.backoff_multiplier must be >= 1", name)
		}
		if src.Retry.MaxDelay < src.Retry.InitialDelay {
			return fmt.Errorf("sources.%s.retry.max_delay must be >= initial_delay", name)
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetSourceConfig retrieves source-specific configuration with fallback to defaults
func GetSourceConfig(cfg *Config, sourceName string) SourceConfig {
	if src, exists := cfg.Sources[sourceName]; exists {
		return src
	}

	return SourceConfig{
		Enabled: true,
		Timeout: 30000,
		Retry: RetryConfig{
			MaxRetries:        3,
			InitialDelay:      500,
			MaxDelay:          10000,
			BackoffMultiplier: 2.0,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     60000,
		},
	}
}

// IsSourceEnabled checks if a specific source adapter is enabled
func IsSourceEnabled(cfg *Config, sourceName string) bool {
	if src, exists := cfg.Sources[sourceName]; exists {
		return src.Enabled
	}
	return true
}
