package exstream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
)

// CacheType selects the response cache backend.
type CacheType string

// Supported cache backends.
const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeNATS   CacheType = "nats"
	CacheTypeNone   CacheType = "none"
)

var (
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrCacheDisabled        = errors.New("cache disabled")
)

// CacheConfig configures the design service response cache.
type CacheConfig struct {
	Type CacheType

	// Memory applies to CacheTypeMemory.
	Memory *MemoryCacheConfig

	// NATS applies to CacheTypeNATS.
	NATS *NATSKVConfig

	// Options default to DefaultCacheOptions.
	Options *CacheOptions

	// Policy defaults to DefaultCachingPolicy.
	Policy *CachingPolicy

	// Backend, when set, is used as is and Type is ignored. Clients may
	// share one backend as long as their scopes differ.
	Backend Cache

	// Scope prefixes every key. Clients sharing one NATS bucket or Backend
	// must use distinct scopes. The client fills it from the tenant and subscription
	// when it is empty.
	Scope string
}

// MemoryCacheConfig configures the in-process backend.
type MemoryCacheConfig struct {
	MaxSize int
}

// DefaultCacheConfig returns an in-process cache with default options.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type:    CacheTypeMemory,
		Memory:  &MemoryCacheConfig{MaxSize: constants.DefaultCacheSize},
		Options: DefaultCacheOptions(),
		Policy:  DefaultCachingPolicy(),
	}
}

// CacheScope builds the key scope of a tenant and subscription. Local
// deployments have no subscription and are scoped by tenant alone.
func CacheScope(tenant, subscriptionName string) string {
	if subscriptionName == "" {
		return strings.ToLower(tenant)
	}

	return strings.ToLower(tenant) + "/" + strings.ToLower(subscriptionName)
}

// NewCacheFromConfig creates the backend named by config.Type.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	if config.Backend != nil {
		return config.Backend, nil
	}

	switch config.Type {
	case "", CacheTypeMemory:
		size := constants.DefaultCacheSize
		if config.Memory != nil && config.Memory.MaxSize > 0 {
			size = config.Memory.MaxSize
		}

		return NewMemoryCache(size), nil
	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)
	case CacheTypeNone:
		return NewNoOpCache(), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
}

// NoOpCache stores nothing. Every lookup misses.
type NoOpCache struct{}

// NewNoOpCache creates a disabled cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error { return nil }

func (c *NoOpCache) Delete(ctx context.Context, key string) error { return nil }

func (c *NoOpCache) Clear(ctx context.Context) error { return nil }

func (c *NoOpCache) Has(ctx context.Context, key string) bool { return false }
