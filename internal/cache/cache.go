package cache

import "time"

// Set is a membership set whose entries drop out at their own deadline.
// It backs token revocation: a revoked token id only needs to be remembered
// until the token would have expired anyway.
type Set[K comparable] interface {
	// Add remembers key until the given instant. A zero instant never expires.
	Add(key K, until time.Time)

	// Contains reports whether key is present and not expired.
	Contains(key K) bool

	// Remove forgets key.
	Remove(key K)

	// Len returns the number of live entries.
	Len() int

	// PurgeExpired removes expired entries.
	PurgeExpired()
}
