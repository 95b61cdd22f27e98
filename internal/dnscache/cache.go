// Package dnscache provides a thread-safe, TTL-based cache for DNS MX lookups
// with singleflight deduplication for concurrent requests to the same domain.
// Entries live only in memory for the lifetime of the Cache.
package dnscache

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Resolver is the lookup the cache sits in front of.
// *net.Resolver and *dnsclient.Client satisfy it.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Cache is a thread-safe DNS MX lookup cache.
// Concurrent lookups for the same domain are deduplicated:
// only one actual DNS query is performed, and all waiters receive the result.
type Cache struct {
	mu            sync.Mutex
	entries       map[string]entry
	group         singleflight.Group
	cacheTTL      time.Duration
	lookupTimeout time.Duration
	resolver      Resolver
}

type entry struct {
	records []*net.MX
	err     error
	expires time.Time
}

// New creates a DNS cache backed by the system resolver.
func New(lookupTimeout, cacheTTL time.Duration) *Cache {
	return NewWithResolver(lookupTimeout, cacheTTL, &net.Resolver{})
}

// NewWithResolver creates a DNS cache with a custom resolver.
func NewWithResolver(lookupTimeout, cacheTTL time.Duration, r Resolver) *Cache {
	return &Cache{
		entries:       make(map[string]entry),
		cacheTTL:      cacheTTL,
		lookupTimeout: lookupTimeout,
		resolver:      r,
	}
}

// LookupMX returns MX records for the domain, using the cache when possible.
// A definitive "not found" answer is cached like a success, so a dead domain
// is queried once per TTL. Other failures are shared with concurrent callers
// but not kept, and the next call queries again.
func (c *Cache) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	if e, ok := c.cached(domain); ok {
		return copyMX(e.records), e.err
	}

	v, _, _ := c.group.Do(domain, func() (interface{}, error) {
		// another flight may have finished between the miss and Do
		if e, ok := c.cached(domain); ok {
			return e, nil
		}

		// shared by every waiter, so one caller's cancellation must not
		// fail the others
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()

		records, err := c.resolver.LookupMX(lctx, domain)
		e := entry{records: records, err: err, expires: time.Now().Add(c.cacheTTL)}
		if !cacheable(err) {
			return e, nil
		}

		c.mu.Lock()
		c.entries[domain] = e
		c.mu.Unlock()
		return e, nil
	})

	e := v.(entry)
	return copyMX(e.records), e.err
}

// Len returns the number of entries in the cache (for diagnostics).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) cached(domain string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[domain]
	if !ok || !time.Now().Before(e.expires) {
		return entry{}, false
	}
	return e, true
}

// cacheable reports whether a lookup result is a final answer for the name.
func cacheable(err error) bool {
	if err == nil {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

// copyMX returns a deep copy of MX records to prevent callers from
// mutating cached data (e.g., via sort.Slice).
func copyMX(records []*net.MX) []*net.MX {
	if records == nil {
		return nil
	}
	out := make([]*net.MX, len(records))
	for i, r := range records {
		cp := *r
		out[i] = &cp
	}
	return out
}
