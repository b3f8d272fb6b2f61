package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/prodapt-cloud/Pioneer-Training/pkg/types"
	"github.com/prodapt-cloud/Pioneer-Training/pkg/utils"
)

// ErrDisabled is returned by Ping when no cache backend is configured
var ErrDisabled = errors.New("cache: no backend configured")

// DeriveKey computes the fingerprint for a request: the compact JSON
// serialization of the ordered message sequence, concatenated with the
// department tag, hashed with SHA-256. The match is intentionally exact;
// whitespace or ordering differences produce distinct keys. Temperature
// and model are excluded to stay compatible with the established key
// format, so entries written at one temperature serve all temperatures
// within the TTL window.
func DeriveKey(messages []types.ChatMessage, department string) string {
	payload, _ := json.Marshal(messages)
	sum := sha256.Sum256(append(payload, []byte(department)...))
	return "cache:" + hex.EncodeToString(sum[:])
}

// ResponseCache stores completion payloads by fingerprint. It is an
// optimization, never a correctness dependency: every backend failure
// degrades to a miss or a dropped write and is only logged.
type ResponseCache struct {
	store  Store
	ttl    time.Duration
	logger *utils.Logger
}

// NewResponseCache creates a response cache over the given store.
// A nil store means the capability is absent; lookups always miss.
func NewResponseCache(store Store, ttl time.Duration, logger *utils.Logger) *ResponseCache {
	return &ResponseCache{store: store, ttl: ttl, logger: logger}
}

// Enabled reports whether a cache backend is configured
func (c *ResponseCache) Enabled() bool {
	return c.store != nil
}

// TTL returns the configured entry lifetime
func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}

// Lookup returns the cached completion for key, or (nil, false) on a
// miss, an absent backend, a backend error, or an undecodable entry.
func (c *ResponseCache) Lookup(ctx context.Context, key string) (*types.ChatCompletionResponse, bool) {
	if c.store == nil {
		return nil, false
	}

	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Cache lookup failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if !found {
		c.logger.Debug("Cache MISS", "key", key)
		return nil, false
	}

	var payload types.ChatCompletionResponse
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		c.logger.Warn("Cache entry undecodable, treating as miss", "key", key, "error", err)
		return nil, false
	}

	c.logger.Debug("Cache HIT", "key", key)
	return &payload, true
}

// Store writes a completion payload under key with the configured TTL.
// Failures are logged and dropped.
func (c *ResponseCache) Store(ctx context.Context, key string, payload *types.ChatCompletionResponse) {
	if c.store == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("Failed to serialize completion for cache", "key", key, "error", err)
		return
	}

	if err := c.store.Set(ctx, key, string(raw), c.ttl); err != nil {
		c.logger.Warn("Cache store failed, dropping entry", "key", key, "error", err)
		return
	}

	c.logger.Debug("Cache SET", "key", key, "ttl", c.ttl)
}

// Ping probes the cache backend for liveness reporting. Not called on
// the request hot path.
func (c *ResponseCache) Ping(ctx context.Context) error {
	if c.store == nil {
		return ErrDisabled
	}
	return c.store.Ping(ctx)
}
