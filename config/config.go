// Package config loads the offer-codes server configuration.
//
// The file is YAML with ${VAR} environment expansion. It is read once at
// startup.
package config

import (
	"github.com/Chia-Network/offer-codes/logging"
	"github.com/Chia-Network/offer-codes/storage/storeconfig"
)

// Environment variables that override file values.
const (
	EnvPublicKey = "OFFER_CODES_PUBLIC_KEY"
	EnvListen    = "OFFER_CODES_LISTEN"
)

type Config struct {
	Server   ServerConfig       `yaml:"server"`
	Identity IdentityConfig     `yaml:"identity"`
	Storage  storeconfig.Config `yaml:"storage"`
	Logging  logging.Config     `yaml:"logging"`
}

type ServerConfig struct {
	Listen      string `yaml:"listen"`
	MetricsPath string `yaml:"metrics_path"`
	// MaxBodyBytes caps request bodies on both endpoints.
	MaxBodyBytes int64           `yaml:"max_body_bytes"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a per-client-IP token bucket applied to uploads.
// A zero RequestsPerSecond disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type IdentityConfig struct {
	// PublicKey is the single trusted signer, "ed25519:<base64>",
	// "dilithium3:<base64>" or bare hex.
	PublicKey string `yaml:"public_key"`
	HashAlg   string `yaml:"hash_alg"`
	CodeWidth int    `yaml:"code_width"`
}
