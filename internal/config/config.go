package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	ERP         ERPConfig        `mapstructure:"erp"`
	Enrichment  EnrichmentConfig `mapstructure:"enrichment"`
	Forecast    ForecastConfig   `mapstructure:"forecast"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ERPConfig points at the ERP service that owns the historical records.
type ERPConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
	// HistoryDays bounds how far back record fetches reach.
	HistoryDays int `mapstructure:"history_days"`
}

// EnrichmentConfig configures the optional AI insight service.
type EnrichmentConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AuthURL    string `mapstructure:"auth_url"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key" json:"-" yaml:"-"`
	CustomerID string `mapstructure:"customer_id"`
	UserID     string `mapstructure:"user_id"`
	Timeout    string `mapstructure:"timeout"`
}

// TimeoutDuration parses the enrichment timeout, defaulting to 10s.
func (c EnrichmentConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// ForecastConfig carries the tunable knobs of the prediction engine.
type ForecastConfig struct {
	MinTrainingRows int     `mapstructure:"min_training_rows"`
	DefaultHorizon  int     `mapstructure:"default_horizon"`
	MaxHorizon      int     `mapstructure:"max_horizon"`
	BaseConfidence  float64 `mapstructure:"base_confidence"`
	ConfidenceDecay float64 `mapstructure:"confidence_decay"`
	CacheTTL        string  `mapstructure:"cache_ttl"`
}

// CacheTTLDuration parses the forecast response cache TTL, defaulting to 5m.
func (c ForecastConfig) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("enrichment.api_key", "ENRICHMENT_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind ENRICHMENT_API_KEY environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if config.Forecast.MinTrainingRows < 2 {
		return nil, fmt.Errorf("forecast.min_training_rows must be at least 2, got %d", config.Forecast.MinTrainingRows)
	}
	if config.Forecast.MaxHorizon < 1 {
		return nil, fmt.Errorf("forecast.max_horizon must be at least 1, got %d", config.Forecast.MaxHorizon)
	}
	if config.Enrichment.Enabled && config.Enrichment.APIKey == "" {
		return nil, fmt.Errorf("ENRICHMENT_API_KEY is required when enrichment is enabled")
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 3003)
	viper.SetDefault("server.allowed_origins", []string{"*"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "horizon")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 10)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("erp.base_url", "http://localhost:3001/api/v1")
	viper.SetDefault("erp.timeout", 30)
	viper.SetDefault("erp.history_days", 180)

	viper.SetDefault("enrichment.enabled", false)
	viper.SetDefault("enrichment.timeout", "10s")

	viper.SetDefault("forecast.min_training_rows", 10)
	viper.SetDefault("forecast.default_horizon", 30)
	viper.SetDefault("forecast.max_horizon", 90)
	viper.SetDefault("forecast.base_confidence", 0.8)
	viper.SetDefault("forecast.confidence_decay", 0.01)
	viper.SetDefault("forecast.cache_ttl", "5m")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.service_name", "horizon-go")
	viper.SetDefault("telemetry.service_version", "1.0.0")
}
