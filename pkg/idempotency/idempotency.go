// Package idempotency remembers the result of a request by its Idempotency-Key so that
// a retried request returns the first result instead of repeating the side effect.
package idempotency

import (
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const Header = "Idempotency-Key"

// MaxKeyLength bounds client supplied keys.
const MaxKeyLength = 128

// ErrKeyTooLong is returned for keys over MaxKeyLength.
var ErrKeyTooLong = errors.New("idempotency key is too long")

// Key normalizes a raw header value. An empty result means the request carries no key.
func Key(raw string) (string, error) {
	k := strings.TrimSpace(raw)
	if len(k) > MaxKeyLength {
		return "", ErrKeyTooLong
	}
	return k, nil
}

// Store is a bounded cache with a fixed TTL per entry. Entries are scoped so that two
// callers choosing the same key never see each other's results.
type Store[V any] struct {
	cache *expirable.LRU[string, V]
}

// NewStore creates a store holding at most size entries, each for ttl.
func NewStore[V any](size int, ttl time.Duration) *Store[V] {
	return &Store[V]{cache: expirable.NewLRU[string, V](size, nil, ttl)}
}

func scoped(scope, key string) string { return scope + "\x00" + key }

// Get returns the value stored for (scope, key) if it has not expired.
func (s *Store[V]) Get(scope, key string) (V, bool) {
	return s.cache.Get(scoped(scope, key))
}

// Put records v for (scope, key), replacing any previous value.
func (s *Store[V]) Put(scope, key string, v V) {
	s.cache.Add(scoped(scope, key), v)
}

// Len reports the number of live entries.
func (s *Store[V]) Len() int { return s.cache.Len() }
