package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Chia-Network/offer-codes/keys"
	"github.com/Chia-Network/offer-codes/offer"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return fmt.Errorf("server.metrics_path must start with /, got %q", c.Server.MetricsPath)
	}
	if c.Server.MaxBodyBytes < 1 {
		return errors.New("server.max_body_bytes must be >= 1")
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 {
		return errors.New("server.rate_limit.requests_per_second must be >= 0")
	}
	if c.Server.RateLimit.RequestsPerSecond > 0 && c.Server.RateLimit.Burst < 1 {
		return errors.New("server.rate_limit.burst must be >= 1")
	}

	if c.Identity.PublicKey == "" {
		return fmt.Errorf("identity.public_key is required (or set %s)", EnvPublicKey)
	}
	if _, err := keys.ParsePublicKey(c.Identity.PublicKey); err != nil {
		return fmt.Errorf("identity.public_key: %w", err)
	}
	scheme, err := c.Scheme()
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}

	if err := c.validateRemoteSchemes(scheme); err != nil {
		return err
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return c.Logging.Validate()
}

// validateRemoteSchemes rejects grpc backends whose daemon would derive codes
// differently from identity; every Put through them would fail.
func (c *Config) validateRemoteSchemes(scheme offer.Scheme) error {
	for i, b := range c.Storage.Backends {
		if b.Name != remoteBackend {
			continue
		}
		if alg := b.Settings["hash_alg"]; alg != "" && alg != string(scheme.Alg) {
			return fmt.Errorf("storage.backends[%d].settings.hash_alg %q must match identity.hash_alg %q", i, alg, scheme.Alg)
		}
		if w := b.Settings["code_width"]; w != "" && w != strconv.Itoa(scheme.Width()) {
			return fmt.Errorf("storage.backends[%d].settings.code_width %s must match identity.code_width %d", i, w, scheme.Width())
		}
	}
	return nil
}

// Scheme returns the code scheme named by the identity section.
func (c *Config) Scheme() (offer.Scheme, error) {
	return offer.NewScheme(c.Identity.HashAlg, c.Identity.CodeWidth)
}

// PublicKey parses the trusted key.
func (c *Config) PublicKey() (keys.PublicKey, error) {
	return keys.ParsePublicKey(c.Identity.PublicKey)
}
