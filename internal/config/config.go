package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Chain struct {
		ID    uint64 `yaml:"id"`
		WETH9 string `yaml:"weth9"`
	} `yaml:"chain"`

	Signer struct {
		URL       string `yaml:"url"`
		APIKey    string `yaml:"api_key"`
		TimeoutMs int    `yaml:"timeout_ms"`
		Retries   int    `yaml:"retries"`
	} `yaml:"signer"`

	Service struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"service"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Stream   string `yaml:"stream"`
		LastNS   string `yaml:"last_ns"`
	} `yaml:"redis"`

	Swap struct {
		DefaultSlippageBps int `yaml:"default_slippage_bps"`
	} `yaml:"swap"`
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

	if c.Chain.ID == 0 {
		c.Chain.ID = 1
	}
	if c.Service.ListenAddr == "" {
		c.Service.ListenAddr = ":8080"
	}
	if c.Signer.TimeoutMs == 0 {
		c.Signer.TimeoutMs = 5000
	}
	if c.Signer.Retries == 0 {
		c.Signer.Retries = 3
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "swap:stream"
	}
	if c.Redis.LastNS == "" {
		c.Redis.LastNS = "swap:last:"
	}
	if c.Swap.DefaultSlippageBps == 0 {
		c.Swap.DefaultSlippageBps = 50
	}
	return &c, nil
}

func (c *Config) SignerTimeout() time.Duration {
	return time.Duration(c.Signer.TimeoutMs) * time.Millisecond
}
