package config

import (
	"os"
	"time"

	"github.com/sam121/fx-curves/internal/types"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Corridors []types.Corridor `yaml:"corridors"`

	Reference struct {
		Currency string    `yaml:"currency"`
		Anchors  []float64 `yaml:"anchors"`
	} `yaml:"reference"`

	Wise struct {
		APIToken  string   `yaml:"api_token"`
		RestURL   string   `yaml:"rest_url"`
		ProfileID int64    `yaml:"profile_id"`
		PayIn     string   `yaml:"pay_in"`
		PayOuts   []string `yaml:"pay_outs"`
	} `yaml:"wise"`

	Kraken struct {
		APIKey       string `yaml:"api_key"`
		APISecret    string `yaml:"api_secret"`
		RestURL      string `yaml:"rest_url"`
		WsURL        string `yaml:"ws_url"`
		Intermediate string `yaml:"intermediate"`
		BookDepth    int    `yaml:"book_depth"`
	} `yaml:"kraken"`

	Costing struct {
		ApplyTakerFees bool `yaml:"apply_taker_fees"`
	} `yaml:"costing"`

	Redis struct {
		Addr     string `yaml:"addr"`
		DB       int    `yaml:"db"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Stream   string `yaml:"stream"`
		LatestNS string `yaml:"latest_ns"`
	} `yaml:"redis"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`

	Timings struct {
		RequestDelayMs    int     `yaml:"request_delay_ms"`
		ProviderRPS       float64 `yaml:"provider_rps"`
		HTTPTimeoutSec    int     `yaml:"http_timeout_sec"`
		BackoffBaseMs     int     `yaml:"backoff_base_ms"`
		BackoffMaxRetries int     `yaml:"backoff_max_retries"`
	} `yaml:"timings"`

	Log struct {
		File      string `yaml:"file"`
		MaxSizeMB int    `yaml:"max_size_mb"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Reference.Currency == "" {
		c.Reference.Currency = "EUR"
	}
	if len(c.Reference.Anchors) == 0 {
		c.Reference.Anchors = []float64{10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000}
	}
	if c.Wise.RestURL == "" {
		c.Wise.RestURL = "https://api.transferwise.com"
	}
	if c.Wise.PayIn == "" {
		c.Wise.PayIn = "BALANCE"
	}
	if len(c.Wise.PayOuts) == 0 {
		c.Wise.PayOuts = []string{"BANK_TRANSFER"}
	}
	if c.Kraken.RestURL == "" {
		c.Kraken.RestURL = "https://api.kraken.com"
	}
	if c.Kraken.WsURL == "" {
		c.Kraken.WsURL = "wss://ws.kraken.com/v2"
	}
	if c.Kraken.Intermediate == "" {
		c.Kraken.Intermediate = "USDT"
	}
	if c.Kraken.BookDepth == 0 {
		c.Kraken.BookDepth = 500
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "cost:stream"
	}
	if c.Redis.LatestNS == "" {
		c.Redis.LatestNS = "cost:latest:"
	}
	if c.Timings.RequestDelayMs == 0 {
		c.Timings.RequestDelayMs = 750
	}
	if c.Timings.ProviderRPS == 0 {
		c.Timings.ProviderRPS = 1.0
	}
	if c.Timings.HTTPTimeoutSec == 0 {
		c.Timings.HTTPTimeoutSec = 15
	}
	if c.Timings.BackoffBaseMs == 0 {
		c.Timings.BackoffBaseMs = 1000
	}
	if c.Timings.BackoffMaxRetries == 0 {
		c.Timings.BackoffMaxRetries = 6
	}
	return &c, nil
}

func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.Timings.RequestDelayMs) * time.Millisecond
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Timings.HTTPTimeoutSec) * time.Second
}

func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Timings.BackoffBaseMs) * time.Millisecond
}
