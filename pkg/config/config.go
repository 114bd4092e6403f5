// Package config loads and validates the API server configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level API server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Identity IdentityConfig `yaml:"identity"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Solana   SolanaConfig   `yaml:"solana"`
	Payments PaymentsConfig `yaml:"payments"`
	Keys     KeysConfig     `yaml:"keys"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost" validate:"required"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"devbox_api" validate:"required"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// IdentityConfig points at the hosted identity provider that issues the
// bearer tokens accepted by the API.
type IdentityConfig struct {
	JWKSURL  string `yaml:"jwks_url" validate:"required,url"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// SandboxConfig contains settings for the container-provisioning service.
type SandboxConfig struct {
	APIURL         string        `yaml:"api_url" validate:"required,url"`
	APIKeyEnv      string        `yaml:"api_key_env" default:"SANDBOX_API_KEY"`
	Image          string        `yaml:"image" default:"node:20"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"60s"`
	ExecTimeout    time.Duration `yaml:"exec_timeout" default:"120s"`
	DevPortMin     int           `yaml:"dev_port_min" default:"3000"`
	DevPortMax     int           `yaml:"dev_port_max" default:"3999"`
}

// SolanaConfig contains Solana JSON-RPC settings.
type SolanaConfig struct {
	RPCURL         string        `yaml:"rpc_url" validate:"required,url"`
	Commitment     string        `yaml:"commitment" default:"confirmed"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
}

// PaymentsConfig controls payment intent matching and the deposit poller.
type PaymentsConfig struct {
	IntentTTL          time.Duration `yaml:"intent_ttl" default:"30m"`
	TolerancePct       string        `yaml:"tolerance_pct" default:"1"`
	PollInterval       time.Duration `yaml:"poll_interval" default:"30s"`
	PollSignatureLimit int           `yaml:"poll_signature_limit" default:"20"`
	CreditsPerUSD      int64         `yaml:"credits_per_usd" default:"100"`
}

// KeysConfig names the environment variable holding the base64 master key
// used to encrypt deposit wallet secret keys at rest.
type KeysConfig struct {
	MasterKeyEnv string `yaml:"master_key_env" default:"DEPOSIT_MASTER_KEY"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// Load reads the YAML config file, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// GetConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
