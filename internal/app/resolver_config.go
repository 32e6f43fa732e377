package app

import (
	"strings"
	"time"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/registry"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/resolver"
)

// ResolverSettings converts the resolver tuning for the named registry into
// the resolver package representation. Per-registry overrides win; unset
// values inherit the shared section.
func (c *Config) ResolverSettings(registryName string) resolver.Config {
	tuning := c.Resolver.tuningFor(registryName)
	return resolver.Config{
		Registry:           registryName,
		CacheEnabled:       c.Cache.Enabled,
		CacheTTL:           pickDuration(tuning.CacheTTL, c.Resolver.CacheTTL),
		SearchCacheTTL:     pickDuration(tuning.SearchCacheTTL, c.Resolver.SearchCacheTTL),
		StalenessThreshold: pickDuration(tuning.StalenessThreshold, c.Resolver.StalenessThreshold),
	}
}

func (r ResolverConfig) tuningFor(registryName string) ResolverTuning {
	switch strings.ToLower(strings.TrimSpace(registryName)) {
	case "fsa":
		return r.FSA
	case "off":
		return r.OFF
	default:
		return ResolverTuning{}
	}
}

func pickDuration(override, fallback time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return fallback
}

// RetryPolicy converts the upstream tuning into the registry package representation.
func (c UpstreamConfig) RetryPolicy() registry.RetryPolicy {
	policy := registry.DefaultRetryPolicy()
	if c.MaxAttempts > 0 {
		policy.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoff > 0 {
		policy.InitialBackoff = c.InitialBackoff
	}
	if c.MaxBackoff > 0 {
		policy.MaxBackoff = c.MaxBackoff
	}
	return policy
}
