package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
	Logger     Logger     `mapstructure:"logger"`
	MarketData MarketData `mapstructure:"marketdata"`
	Auth       Auth       `mapstructure:"auth"`
	Scheduler  Scheduler  `mapstructure:"scheduler"`
	Trading    Trading    `mapstructure:"trading"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
// Driver is either "sqlite" or "postgres".
type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MarketData holds the configuration for the market data API.
type MarketData struct {
	BaseURL        string  `mapstructure:"base_url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Auth holds the configuration for password hashing and JWT issuance.
type Auth struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	Issuer        string `mapstructure:"issuer"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

// Scheduler holds the configuration for the background trading cycles.
type Scheduler struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
}

// Trading holds the configuration for the paper trading ledger.
type Trading struct {
	StartingBalance float64 `mapstructure:"starting_balance"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "trading.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("marketdata.base_url", "https://query1.finance.yahoo.com")
	viper.SetDefault("marketdata.timeout_seconds", 10)
	viper.SetDefault("marketdata.rate_limit", 5)       // requests per second
	viper.SetDefault("marketdata.rate_limit_burst", 2) // burst size
	viper.SetDefault("auth.issuer", "trading-backend")
	viper.SetDefault("auth.token_ttl_hours", 24)
	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.interval", "@every 15m")
	viper.SetDefault("trading.starting_balance", 100000)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
