package cache

import (
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is not present
var ErrCacheMiss = errors.New("cache: miss")

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// SessionKey is the key a login session cookie is stored under
func SessionKey(email string) string {
	return "session:" + email
}

// RateLimitKey is the key that blocks requests to host while present
func RateLimitKey(host string) string {
	return "ratelimit:" + host
}
