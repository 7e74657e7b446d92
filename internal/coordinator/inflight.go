package coordinator

import (
	"sync"
	"time"
)

// InFlightEntry tracks one fingerprint's most recent request.
type InFlightEntry struct {
	// Response is the completed response. Only meaningful when Completed.
	Response Response

	// Completed reports whether the response is final.
	Completed bool

	// CreatedAt is when the entry was first observed.
	CreatedAt time.Time
}

// InFlightCache is a keyed store of recently completed responses. It lets
// a burst of identical requests reuse one answer instead of processing
// each copy.
//
// Entries expire after the TTL and are evicted lazily on the next lookup;
// there is no sweeping timer. At most one entry exists per fingerprint.
// The zero-value map inside sync.Map keeps lookups for distinct
// fingerprints from contending.
type InFlightCache struct {
	ttl     time.Duration
	entries sync.Map
	now     func() time.Time
}

// NewInFlightCache creates a cache whose entries expire after ttl.
func NewInFlightCache(ttl time.Duration) *InFlightCache {
	return &InFlightCache{
		ttl: ttl,
		now: time.Now,
	}
}

// Lookup returns the entry for a fingerprint. An entry past its TTL is
// deleted as a side effect and reported as missing. The returned entry is
// a copy; mutating it does not affect the cache.
func (c *InFlightCache) Lookup(fp string) (InFlightEntry, bool) {
	value, ok := c.entries.Load(fp)
	if !ok {
		return InFlightEntry{}, false
	}
	entry := value.(InFlightEntry)
	if c.now().Sub(entry.CreatedAt) > c.ttl {
		c.entries.Delete(fp)
		return InFlightEntry{}, false
	}
	return entry, true
}

// Begin records that a request for the fingerprint is in flight. It never
// overwrites an existing entry, so a completed response survives
// concurrent duplicate submissions.
func (c *InFlightCache) Begin(fp string) {
	c.entries.LoadOrStore(fp, InFlightEntry{CreatedAt: c.now()})
}

// Complete stores a finished response for the fingerprint, marking the
// entry completed exactly once from the caller's perspective: the single
// writer per key is the submission path or its worker.
func (c *InFlightCache) Complete(fp string, response Response) {
	c.entries.Store(fp, InFlightEntry{
		Response:  response,
		Completed: true,
		CreatedAt: c.now(),
	})
}

// Forget drops the fingerprint's entry unless it has completed,
// reopening the generation path. Used when a background generation ends
// without a reusable answer; a concurrent duplicate may already have
// completed the entry, and that answer wins.
func (c *InFlightCache) Forget(fp string) {
	value, ok := c.entries.Load(fp)
	if !ok {
		return
	}
	if entry := value.(InFlightEntry); !entry.Completed {
		c.entries.CompareAndDelete(fp, value)
	}
}
