package config

import (
	"strconv"

	"github.com/Chia-Network/offer-codes/offer"
	"github.com/Chia-Network/offer-codes/storage/storeconfig"
)

// Default values for optional configuration fields.
const (
	DefaultListen       = ":8080"
	DefaultMetricsPath  = "/metrics"
	DefaultMaxBodyBytes = 16 << 20
	DefaultHashAlg      = string(offer.SHA256)
	DefaultCodeWidth    = offer.DefaultCodeWidth
	DefaultBurst        = 10
)

// remoteBackend is the registry name of the store daemon client.
const remoteBackend = "grpc"

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Server.RateLimit.RequestsPerSecond > 0 && c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = DefaultBurst
	}

	if c.Identity.HashAlg == "" {
		c.Identity.HashAlg = DefaultHashAlg
	}
	if c.Identity.CodeWidth == 0 {
		c.Identity.CodeWidth = DefaultCodeWidth
	}

	if len(c.Storage.Backends) == 0 {
		c.Storage.Backends = []storeconfig.BackendConfig{{Name: "badger", Settings: map[string]string{"dir": "./data/offers"}}}
	}
	// Remote stores derive codes themselves and must agree with identity.
	for i := range c.Storage.Backends {
		b := &c.Storage.Backends[i]
		if b.Name != remoteBackend {
			continue
		}
		if b.Settings == nil {
			b.Settings = map[string]string{}
		}
		if b.Settings["hash_alg"] == "" {
			b.Settings["hash_alg"] = c.Identity.HashAlg
		}
		if b.Settings["code_width"] == "" {
			b.Settings["code_width"] = strconv.Itoa(c.Identity.CodeWidth)
		}
	}

	c.Logging.ApplyDefaults()
}
