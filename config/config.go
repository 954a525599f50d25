package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	TaapiConfig     TaapiConfig     `json:"taapi"`
	QueueConfig     QueueConfig     `json:"queue"`
	CacheConfig     CacheConfig     `json:"cache"`
	FilterConfig    FilterConfig    `json:"filter"`
	OptimizerConfig OptimizerConfig `json:"optimizer"`
	RedisConfig     RedisConfig     `json:"redis"`
	ServerConfig    ServerConfig    `json:"server"`
	LoggingConfig   LoggingConfig   `json:"logging"`
}

// TaapiConfig holds the indicator provider configuration
type TaapiConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	Exchange       string `json:"exchange"`
	RequestTimeout int    `json:"request_timeout_seconds"`
	MockMode       bool   `json:"mock_mode"` // Use simulated indicator data instead of the live provider
}

// QueueConfig holds the request queue pacing configuration
type QueueConfig struct {
	MinIntervalMs  int `json:"min_interval_ms"`  // Minimum gap between provider dispatches
	RetryBackoffMs int `json:"retry_backoff_ms"` // Backoff before the single rate-limit retry
}

// CacheConfig holds TTLs and capacities for the tiered cache
type CacheConfig struct {
	SnapshotTTLSeconds int `json:"snapshot_ttl_seconds"`
	SignalTTLSeconds   int `json:"signal_ttl_seconds"`
	BulkTTLSeconds     int `json:"bulk_ttl_seconds"`
	Capacity           int `json:"capacity"`
	SweepIntervalSecs  int `json:"sweep_interval_seconds"`
}

// FilterConfig holds the compliance filter chain configuration.
// MinConfidence is the single named minimum-confidence floor; the adaptive
// confidence threshold starts from this value.
type FilterConfig struct {
	MinConfidence      float64 `json:"min_confidence"`
	RSIOverboughtMax   float64 `json:"rsi_overbought_max"`
	RSISweetSpotLow    float64 `json:"rsi_sweet_spot_low"`
	RSISweetSpotHigh   float64 `json:"rsi_sweet_spot_high"`
	MinTrendStrength   float64 `json:"min_trend_strength"`
	ExcellentThreshold float64 `json:"excellent_threshold"`
}

// OptimizerConfig holds the performance optimizer targets and limits
type OptimizerConfig struct {
	TargetWinRate        float64 `json:"target_win_rate"`
	MinProfitFactor      float64 `json:"min_profit_factor"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	RecomputeInterval    int     `json:"recompute_interval"` // Closed trades between threshold recomputes
}

// RedisConfig holds Redis configuration for state persistence
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type ServerConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`
	WriteTimeout    int    `json:"write_timeout"`
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Output as JSON
}

func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// No config file - start from defaults and let env overrides fill in
		cfg = &Config{}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment values take precedence over the config file.
func applyEnvOverrides(cfg *Config) {
	cfg.TaapiConfig.APIKey = getEnvOrDefault("TAAPI_API_KEY", cfg.TaapiConfig.APIKey)
	cfg.TaapiConfig.BaseURL = getEnvOrDefault("TAAPI_BASE_URL", cfg.TaapiConfig.BaseURL)
	cfg.TaapiConfig.Exchange = getEnvOrDefault("TAAPI_EXCHANGE", cfg.TaapiConfig.Exchange)
	cfg.TaapiConfig.MockMode = getEnvOrDefault("MOCK_MODE", boolString(cfg.TaapiConfig.MockMode)) == "true"

	cfg.QueueConfig.MinIntervalMs = getEnvIntOrDefault("QUEUE_MIN_INTERVAL_MS", cfg.QueueConfig.MinIntervalMs)

	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", boolString(cfg.LoggingConfig.JSONFormat)) == "true"
}

// applyDefaults fills in zero-valued fields with working defaults
func applyDefaults(cfg *Config) {
	if cfg.TaapiConfig.BaseURL == "" {
		cfg.TaapiConfig.BaseURL = "https://api.taapi.io"
	}
	if cfg.TaapiConfig.Exchange == "" {
		cfg.TaapiConfig.Exchange = "binance"
	}
	if cfg.TaapiConfig.RequestTimeout <= 0 {
		cfg.TaapiConfig.RequestTimeout = 15
	}

	if cfg.QueueConfig.MinIntervalMs <= 0 {
		cfg.QueueConfig.MinIntervalMs = 800
	}
	if cfg.QueueConfig.RetryBackoffMs <= 0 {
		cfg.QueueConfig.RetryBackoffMs = 8000
	}

	if cfg.CacheConfig.SnapshotTTLSeconds <= 0 {
		cfg.CacheConfig.SnapshotTTLSeconds = 300
	}
	if cfg.CacheConfig.SignalTTLSeconds <= 0 {
		cfg.CacheConfig.SignalTTLSeconds = 180
	}
	if cfg.CacheConfig.BulkTTLSeconds <= 0 {
		cfg.CacheConfig.BulkTTLSeconds = 300
	}
	if cfg.CacheConfig.Capacity <= 0 {
		cfg.CacheConfig.Capacity = 100
	}
	if cfg.CacheConfig.SweepIntervalSecs <= 0 {
		cfg.CacheConfig.SweepIntervalSecs = 120
	}

	if cfg.FilterConfig.MinConfidence <= 0 {
		cfg.FilterConfig.MinConfidence = 65
	}
	if cfg.FilterConfig.RSIOverboughtMax <= 0 {
		cfg.FilterConfig.RSIOverboughtMax = 72
	}
	if cfg.FilterConfig.RSISweetSpotLow <= 0 {
		cfg.FilterConfig.RSISweetSpotLow = 40
	}
	if cfg.FilterConfig.RSISweetSpotHigh <= 0 {
		cfg.FilterConfig.RSISweetSpotHigh = 65
	}
	if cfg.FilterConfig.MinTrendStrength <= 0 {
		cfg.FilterConfig.MinTrendStrength = 25
	}
	if cfg.FilterConfig.ExcellentThreshold <= 0 {
		cfg.FilterConfig.ExcellentThreshold = 80
	}

	if cfg.OptimizerConfig.TargetWinRate <= 0 {
		cfg.OptimizerConfig.TargetWinRate = 0.75
	}
	if cfg.OptimizerConfig.MinProfitFactor <= 0 {
		cfg.OptimizerConfig.MinProfitFactor = 1.5
	}
	if cfg.OptimizerConfig.MaxConsecutiveLosses <= 0 {
		cfg.OptimizerConfig.MaxConsecutiveLosses = 5
	}
	if cfg.OptimizerConfig.RecomputeInterval <= 0 {
		cfg.OptimizerConfig.RecomputeInterval = 10
	}

	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.RedisConfig.PoolSize <= 0 {
		cfg.RedisConfig.PoolSize = 10
	}

	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.ServerConfig.Port <= 0 {
		cfg.ServerConfig.Port = 3000
	}
	if cfg.ServerConfig.AllowedOrigins == "" {
		cfg.ServerConfig.AllowedOrigins = "*"
	}
	if cfg.ServerConfig.ReadTimeout <= 0 {
		cfg.ServerConfig.ReadTimeout = 30
	}
	if cfg.ServerConfig.WriteTimeout <= 0 {
		cfg.ServerConfig.WriteTimeout = 30
	}
	if cfg.ServerConfig.ShutdownTimeout <= 0 {
		cfg.ServerConfig.ShutdownTimeout = 10
	}

	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "INFO"
	}
	if cfg.LoggingConfig.Output == "" {
		cfg.LoggingConfig.Output = "stdout"
	}
}

// SnapshotTTL returns the snapshot tier TTL as a duration
func (c CacheConfig) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLSeconds) * time.Second
}

// SignalTTL returns the signal tier TTL as a duration
func (c CacheConfig) SignalTTL() time.Duration {
	return time.Duration(c.SignalTTLSeconds) * time.Second
}

// BulkTTL returns the bulk tier TTL as a duration
func (c CacheConfig) BulkTTL() time.Duration {
	return time.Duration(c.BulkTTLSeconds) * time.Second
}

// SweepInterval returns the cache sweep interval as a duration
func (c CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSecs) * time.Second
}

// MinInterval returns the queue pacing interval as a duration
func (c QueueConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalMs) * time.Millisecond
}

// RetryBackoff returns the rate-limit retry backoff as a duration
func (c QueueConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
