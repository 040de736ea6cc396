package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	PaymentAPI PaymentAPIConfig `koanf:"payment_api"`
	Lookup     LookupConfig     `koanf:"lookup"`
	Redis      RedisConfig      `koanf:"redis"`
	Display    DisplayConfig    `koanf:"display"`
}

type PaymentAPIConfig struct {
	BaseURL      string        `koanf:"base_url"`
	Timeout      time.Duration `koanf:"timeout"`
	RateLimitRPS int           `koanf:"rate_limit_rps"`
}

type LookupConfig struct {
	CountriesURL  string        `koanf:"countries_url"`
	CurrenciesURL string        `koanf:"currencies_url"`
	Timeout       time.Duration `koanf:"timeout"`
	RateLimitRPS  int           `koanf:"rate_limit_rps"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
}

type RedisConfig struct {
	Enabled      bool          `koanf:"enabled"`
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type DisplayConfig struct {
	PageSize int `koanf:"page_size"`
}

// Load builds the configuration from defaults, an optional YAML file and
// BILLPILOT_-prefixed environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		PaymentAPI: PaymentAPIConfig{
			BaseURL:      "http://localhost:8000/payments",
			Timeout:      30 * time.Second,
			RateLimitRPS: 10,
		},
		Lookup: LookupConfig{
			CountriesURL:  "https://countriesnow.space/api/v0.1/countries",
			CurrenciesURL: "https://restcountries.com/v3.1/all",
			Timeout:       30 * time.Second,
			RateLimitRPS:  5,
			CacheTTL:      4 * time.Hour,
		},
		Redis: RedisConfig{
			Enabled:      false,
			URL:          "localhost:6379",
			DB:           0,
			PoolSize:     5,
			MinIdleConns: 1,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Display: DisplayConfig{
			PageSize: 10,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = "configs/config.yaml"
	}
	// Config file is optional
	_ = k.Load(file.Provider(path), yaml.Parser())

	// Double underscore separates nesting levels so keys like payment_api
	// stay addressable, e.g. BILLPILOT_PAYMENT_API__BASE_URL
	if err := k.Load(env.Provider("BILLPILOT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "BILLPILOT_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
