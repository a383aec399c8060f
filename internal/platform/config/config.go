package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Payments  PaymentsConfig  `mapstructure:"payments"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Admin     AdminConfig     `mapstructure:"admin"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type PaymentsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	APIBaseURL      string        `mapstructure:"api_base_url"`
	SecretKey       string        `mapstructure:"secret_key"`
	WebhookSecret   string        `mapstructure:"webhook_secret"`
	ReplayTolerance time.Duration `mapstructure:"replay_tolerance"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type CheckoutConfig struct {
	SiteOrigin       string   `mapstructure:"site_origin"`
	AllowedSizes     []string `mapstructure:"allowed_sizes"`
	MaxQuantity      int      `mapstructure:"max_quantity"`
	AllowedCountries []string `mapstructure:"allowed_countries"`
}

type AdminConfig struct {
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"password_hash"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
}

type RateLimitConfig struct {
	CheckoutPerMinute int `mapstructure:"checkout_per_minute"`
	LoginPerMinute    int `mapstructure:"login_per_minute"`
	APIReadPerMinute  int `mapstructure:"api_read_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Payments.ReplayTolerance == 0 {
		config.Payments.ReplayTolerance = 5 * time.Minute
	}
	if config.Payments.RequestTimeout == 0 {
		config.Payments.RequestTimeout = 10 * time.Second
	}
	if config.Checkout.MaxQuantity == 0 {
		config.Checkout.MaxQuantity = 20
	}

	return &config, nil
}
