// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	OrderAPI  OrderAPIConfig  `mapstructure:"order_api"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	HealthPort  int    `mapstructure:"health_port"`
}

// EthereumConfig holds Ethereum node configuration.
// The network is not configured: it is resolved from the node's chain ID.
// HTTPURL is only required by commands that read the chain.
type EthereumConfig struct {
	HTTPURL     string        `mapstructure:"http_url"`
	WSURL       string        `mapstructure:"ws_url"` // optional, newHeads subscription for watch
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// PricingConfig drives the multi-source pricing service and the watch TUI.
type PricingConfig struct {
	Sources       []string      `mapstructure:"sources"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"` // 0 disables the price cache
	CacheSizeMB   int           `mapstructure:"cache_size_mb"`
	Tolerance     float64       `mapstructure:"tolerance"`
	WatchPairs    []string      `mapstructure:"watch_pairs"` // "BASE/QUOTE" symbols or addresses
	WatchInterval time.Duration `mapstructure:"watch_interval"`
}

// OrderAPIConfig holds the order-matching service client settings.
type OrderAPIConfig struct {
	BaseURL           string        `mapstructure:"base_url"` // overrides the per-network URL
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	SigningScheme     string        `mapstructure:"signing_scheme"` // ethsign or eip712
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceExporter  string `mapstructure:"trace_exporter"` // zipkin, otlp-grpc, otlp-http, console, none
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Known price sources, in default preference order.
const (
	SourceUniswapV3 = "uniswap_v3"
	SourceUniswapV2 = "uniswap_v2"
	SourceSushiswap = "sushiswap"
)

// FlagKeys maps command-line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"rpc":            "ethereum.http_url",
	"ws":             "ethereum.ws_url",
	"log-level":      "app.log_level",
	"sources":        "pricing.sources",
	"pair":           "pricing.watch_pairs",
	"order-api":      "order_api.base_url",
	"signing-scheme": "order_api.signing_scheme",
	"health-port":    "app.health_port",
}

// Load merges config file, environment variables and flags. Only flags
// named in FlagKeys that were set on the command line are applied.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ORC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ORC_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ORC_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ORC_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.health_port", "ORC_HEALTH_PORT")

	// Ethereum
	v.BindEnv("ethereum.http_url", "ORC_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.ws_url", "ORC_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.call_timeout", "ORC_ETH_CALL_TIMEOUT")

	// Pricing
	v.BindEnv("pricing.sources", "ORC_PRICE_SOURCES")
	v.BindEnv("pricing.cache_ttl", "ORC_PRICE_CACHE_TTL")
	v.BindEnv("pricing.tolerance", "ORC_PRICE_TOLERANCE")
	v.BindEnv("pricing.watch_pairs", "ORC_WATCH_PAIRS")

	// Order API
	v.BindEnv("order_api.base_url", "ORC_ORDER_API_URL")
	v.BindEnv("order_api.requests_per_minute", "ORC_ORDER_API_RPM")
	v.BindEnv("order_api.signing_scheme", "ORC_ORDER_SIGNING_SCHEME")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ORC_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ORC_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ORC_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "ORC_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	v.BindEnv("telemetry.trace_exporter", "ORC_OTEL_EXPORTER")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "chain-oracles")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8080)

	v.SetDefault("ethereum.call_timeout", "10s")

	v.SetDefault("pricing.sources", []string{SourceUniswapV3, SourceUniswapV2, SourceSushiswap})
	v.SetDefault("pricing.cache_ttl", "15s")
	v.SetDefault("pricing.cache_size_mb", 8)
	v.SetDefault("pricing.tolerance", 0.5)
	v.SetDefault("pricing.watch_pairs", []string{"WETH/USDC", "WETH/DAI"})
	v.SetDefault("pricing.watch_interval", "12s")

	v.SetDefault("order_api.requests_per_minute", 300)
	v.SetDefault("order_api.request_timeout", "15s")
	v.SetDefault("order_api.signing_scheme", "ethsign")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "chain-oracles")
	v.SetDefault("telemetry.trace_exporter", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.CallTimeout <= 0 {
		return fmt.Errorf("ethereum.call_timeout must be positive")
	}
	if len(c.Pricing.Sources) == 0 {
		return fmt.Errorf("pricing.sources cannot be empty")
	}
	for _, s := range c.Pricing.Sources {
		switch s {
		case SourceUniswapV3, SourceUniswapV2, SourceSushiswap:
		default:
			return fmt.Errorf("unknown pricing source: %s", s)
		}
	}
	if c.Pricing.Tolerance <= 0 {
		return fmt.Errorf("pricing.tolerance must be positive")
	}
	if c.Pricing.CacheTTL < 0 {
		return fmt.Errorf("pricing.cache_ttl cannot be negative")
	}
	if c.Pricing.CacheTTL > 0 && c.Pricing.CacheSizeMB <= 0 {
		return fmt.Errorf("pricing.cache_size_mb must be positive when the cache is enabled")
	}
	if c.OrderAPI.RequestsPerMinute <= 0 {
		return fmt.Errorf("order_api.requests_per_minute must be positive")
	}
	switch c.OrderAPI.SigningScheme {
	case "ethsign", "eip712":
	default:
		return fmt.Errorf("order_api.signing_scheme must be ethsign or eip712")
	}
	return nil
}
