package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func validConfig() Config {
	return Config{
		Ethereum: EthereumConfig{HTTPURL: "http://localhost:8545", CallTimeout: time.Second},
		Pricing: PricingConfig{
			Sources:     []string{SourceUniswapV3},
			CacheTTL:    time.Second,
			CacheSizeMB: 1,
			Tolerance:   0.5,
		},
		OrderAPI: OrderAPIConfig{RequestsPerMinute: 60, SigningScheme: "ethsign"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing http url is allowed", func(c *Config) { c.Ethereum.HTTPURL = "" }, false},
		{"zero call timeout", func(c *Config) { c.Ethereum.CallTimeout = 0 }, true},
		{"unknown source", func(c *Config) { c.Pricing.Sources = []string{"curve"} }, true},
		{"no sources", func(c *Config) { c.Pricing.Sources = nil }, true},
		{"zero tolerance", func(c *Config) { c.Pricing.Tolerance = 0 }, true},
		{"cache disabled needs no size", func(c *Config) { c.Pricing.CacheTTL = 0; c.Pricing.CacheSizeMB = 0 }, false},
		{"cache enabled needs size", func(c *Config) { c.Pricing.CacheSizeMB = 0 }, true},
		{"zero rpm", func(c *Config) { c.OrderAPI.RequestsPerMinute = 0 }, true},
		{"eip712 scheme", func(c *Config) { c.OrderAPI.SigningScheme = "eip712" }, false},
		{"unknown scheme", func(c *Config) { c.OrderAPI.SigningScheme = "presign" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
ethereum:
  http_url: http://node:8545
pricing:
  sources: [sushiswap, uniswap_v3]
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Ethereum.HTTPURL != "http://node:8545" {
		t.Errorf("expected http_url from file, got %q", cfg.Ethereum.HTTPURL)
	}
	if len(cfg.Pricing.Sources) != 2 || cfg.Pricing.Sources[0] != SourceSushiswap {
		t.Errorf("expected sources from file, got %v", cfg.Pricing.Sources)
	}
	if cfg.Pricing.Tolerance != 0.5 {
		t.Errorf("expected default tolerance 0.5, got %v", cfg.Pricing.Tolerance)
	}
	if cfg.Ethereum.CallTimeout != 10*time.Second {
		t.Errorf("expected default call timeout 10s, got %v", cfg.Ethereum.CallTimeout)
	}
	if cfg.App.Name != "chain-oracles" {
		t.Errorf("expected default app name, got %q", cfg.App.Name)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("ethereum:\n  http_url: http://file:8545\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ORC_ETH_HTTP_URL", "http://env:8545")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Ethereum.HTTPURL != "http://env:8545" {
		t.Errorf("expected env override, got %q", cfg.Ethereum.HTTPURL)
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("ethereum:\n  http_url: http://file:8545\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ORC_ETH_HTTP_URL", "http://env:8545")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.StringSlice("pair", nil, "")
	flags.String("log-level", "info", "")
	if err := flags.Parse([]string{"--rpc", "http://flag:8545", "--pair", "WBTC/USDC,GNO/WETH"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Ethereum.HTTPURL != "http://flag:8545" {
		t.Errorf("expected flag override, got %q", cfg.Ethereum.HTTPURL)
	}
	if len(cfg.Pricing.WatchPairs) != 2 || cfg.Pricing.WatchPairs[1] != "GNO/WETH" {
		t.Errorf("expected pairs from flag, got %v", cfg.Pricing.WatchPairs)
	}
	// unset flags keep the configured value
	if cfg.App.LogLevel != "info" {
		t.Errorf("expected default log level, got %q", cfg.App.LogLevel)
	}
}
