package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // wall-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN     string `yaml:"dsn"`
	Channel string `yaml:"channel"` // NOTIFY channel for participant inserts
}

type Storage struct {
	BaseURL    string `yaml:"baseUrl"` // e.g. https://<project>.supabase.co/storage/v1
	Bucket     string `yaml:"bucket"`
	ServiceKey string `yaml:"serviceKey"`
	Timeout    string `yaml:"timeout"`
}

type Chain struct {
	RPCURL          string `yaml:"rpcUrl"`
	ContractAddress string `yaml:"contractAddress"`
	FromAddress     string `yaml:"fromAddress"` // account the node signs joins with
	ReceiptTimeout  string `yaml:"receiptTimeout"`
	PollInterval    string `yaml:"pollInterval"`
}

type Redis struct {
	Addr     string `yaml:"addr"` // empty means file-backed state store
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Wall struct {
	FlushInterval string `yaml:"flushInterval"`
	StateDir      string `yaml:"stateDir"` // file fallback for flags/checkpoints
	SiteURL       string `yaml:"siteUrl"`  // public URL embedded in share links
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Storage  Storage  `yaml:"storage"`
	Chain    Chain    `yaml:"chain"`
	Redis    Redis    `yaml:"redis"`
	Wall     Wall     `yaml:"wall"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Storage.BaseURL == "" {
		return errors.New("storage.baseUrl is required")
	}
	if c.Chain.RPCURL == "" {
		return errors.New("chain.rpcUrl is required")
	}
	if c.Chain.ContractAddress == "" {
		return errors.New("chain.contractAddress is required")
	}
	// defaults when values are not set
	if c.Postgres.Channel == "" {
		c.Postgres.Channel = "participants_insert"
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "avatars"
	}
	if c.Wall.FlushInterval == "" {
		c.Wall.FlushInterval = "500ms"
	}
	if c.Wall.StateDir == "" {
		c.Wall.StateDir = "./state"
	}
	if c.Wall.SiteURL == "" {
		c.Wall.SiteURL = "https://monument.example"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "wall-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

// FlushInterval parses wall.flushInterval, falling back to 500ms.
func (c *Config) FlushInterval() time.Duration {
	return parseDurationOr(500*time.Millisecond, c.Wall.FlushInterval)
}

// ReceiptTimeout parses chain.receiptTimeout, falling back to 60s.
func (c *Config) ReceiptTimeout() time.Duration {
	return parseDurationOr(60*time.Second, c.Chain.ReceiptTimeout)
}

// ReceiptPollInterval parses chain.pollInterval, falling back to 2s.
func (c *Config) ReceiptPollInterval() time.Duration {
	return parseDurationOr(2*time.Second, c.Chain.PollInterval)
}

// StorageTimeout parses storage.timeout, falling back to 30s.
func (c *Config) StorageTimeout() time.Duration {
	return parseDurationOr(30*time.Second, c.Storage.Timeout)
}

// helper for parsing timeouts
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
