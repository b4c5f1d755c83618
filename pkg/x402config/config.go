// Package x402config loads the startup configuration for the payment
// interceptor and the Hive vendor adapter from environment variables,
// mirroring a Spring @ConfigurationProperties class with a .env-backed
// loader in front of it.
package x402config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the process-wide, read-only-after-startup configuration.
type Config struct {
	// Payment interceptor settings.
	Enabled           bool
	Scheme            string
	Network           string
	Asset             string
	AssetDecimals     int
	DefaultPayTo      string
	MaxTimeoutSeconds int
	MimeType          string
	OutputSchema      map[string]any
	Extra             map[string]any
	FacilitatorBaseURL string

	// Hive vendor adapter settings.
	HiveBaseURL        string
	HiveAccount        string
	HiveToken          string
	HiveTokenHeaderName string

	// HTTP server settings.
	Host string
	Port string
}

// Load reads a .env file if present (a missing file is not an error, it
// just means the process relies on the ambient environment), then fills
// Config from the environment with the protocol's documented defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Enabled:             getBoolOrDefault("X402_ENABLED", false),
		Scheme:              getEnvOrDefault("X402_SCHEME", "exact"),
		Network:             getEnvOrDefault("X402_NETWORK", "base-sepolia"),
		Asset:               getEnvOrDefault("X402_ASSET", "0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
		AssetDecimals:       getIntOrDefault("X402_ASSET_DECIMALS", 6),
		DefaultPayTo:        os.Getenv("X402_DEFAULT_PAY_TO"),
		MaxTimeoutSeconds:   getIntOrDefault("X402_MAX_TIMEOUT_SECONDS", 30),
		MimeType:            os.Getenv("X402_MIME_TYPE"),
		FacilitatorBaseURL:  os.Getenv("X402_FACILITATOR_BASE_URL"),
		HiveBaseURL:         os.Getenv("HIVE_BASE_URL"),
		HiveAccount:         os.Getenv("HIVE_ACCOUNT"),
		HiveToken:           os.Getenv("HIVE_TOKEN"),
		HiveTokenHeaderName: getEnvOrDefault("HIVE_TOKEN_HEADER_NAME", "Authorization"),
		Host:                getEnvOrDefault("HOST", "0.0.0.0"),
		Port:                getEnvOrDefault("PORT", "8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the one cross-field startup invariant the protocol
// names: a facilitator base URL is required whenever the interceptor is
// enabled.
func (c *Config) Validate() error {
	if c.Enabled && c.FacilitatorBaseURL == "" {
		return fmt.Errorf("x402config: facilitatorBaseUrl is required when x402 is enabled")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
