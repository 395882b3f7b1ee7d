// Package config loads the service configuration from the environment, with
// an optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	// Solana endpoints.
	RPCEndpoint string
	WSEndpoint  string

	// Databases.
	PostgresDSN   string
	ClickhouseDSN string // optional; empty disables the analytics archive

	// On-chain program identities.
	ProgramID    string
	VRFProgramID string

	// PayerKey is the base58-encoded 64-byte keypair that signs every
	// submitted transaction.
	PayerKey string

	// TokenURI is the metadata URI attached to created tokens.
	TokenURI string

	// Campaign lifecycle durations.
	PresaleDuration   time.Duration
	DistributionDelay time.Duration
	DrawStartDelay    time.Duration
	DrawDuration      time.Duration

	MetricsAddr string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first without overriding existing variables.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		RPCEndpoint:   os.Getenv("SOLANA_RPC_ENDPOINT"),
		WSEndpoint:    os.Getenv("SOLANA_WS_ENDPOINT"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		ClickhouseDSN: os.Getenv("CLICKHOUSE_DSN"),
		ProgramID:     os.Getenv("PRESALE_PROGRAM_ID"),
		VRFProgramID:  envOr("VRF_PROGRAM_ID", "VRFzZoJdhFWL8rkvu87LpKM3RbcVezpMEc6X5GVDr7y"),
		PayerKey:      os.Getenv("PAYER_SECRET_KEY"),
		TokenURI:      os.Getenv("TOKEN_URI"),
		MetricsAddr:   envOr("METRICS_ADDR", ":9090"),
	}

	var err error
	if cfg.PresaleDuration, err = envDuration("PRESALE_DURATION", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DistributionDelay, err = envDuration("DISTRIBUTION_DELAY", time.Hour); err != nil {
		return nil, err
	}
	if cfg.DrawStartDelay, err = envDuration("DRAW_START_DELAY", 48*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DrawDuration, err = envDuration("DRAW_DURATION", 24*time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"SOLANA_RPC_ENDPOINT": c.RPCEndpoint,
		"SOLANA_WS_ENDPOINT":  c.WSEndpoint,
		"POSTGRES_DSN":        c.PostgresDSN,
		"PRESALE_PROGRAM_ID":  c.ProgramID,
		"PAYER_SECRET_KEY":    c.PayerKey,
	}
	for key, value := range required {
		if value == "" {
			return fmt.Errorf("missing required environment variable %s", key)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envDuration parses a duration variable. Bare integers are taken as seconds
// to stay compatible with older deployments.
func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
