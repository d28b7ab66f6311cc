// Package cache provides the memoization stores for chat replies and lip-sync
// timing data: size-bounded LRUs with a fixed expiration window applied at
// write time.
package cache

import (
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store is a TTL'd, size-bounded key/value store. Entries expire a fixed
// window after the last write; the LRU bound caps growth from distinct keys.
type Store[V any] struct {
	lru *expirable.LRU[string, V]
}

// New creates a store holding at most size entries, each valid for ttl.
func New[V any](size int, ttl time.Duration) *Store[V] {
	return &Store[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Get returns the unexpired value for key, if any.
func (s *Store[V]) Get(key string) (V, bool) {
	return s.lru.Get(key)
}

// Add stores value under key, restarting its expiration window.
func (s *Store[V]) Add(key string, value V) {
	s.lru.Add(key, value)
}

// Len reports the number of live entries.
func (s *Store[V]) Len() int {
	return s.lru.Len()
}

// Key derives the deterministic cache key for a user message: lowercase with
// everything but letters and digits collapsed away, so trivial punctuation or
// spacing variants of the same question share one entry.
func Key(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
