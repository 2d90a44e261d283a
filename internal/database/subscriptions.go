package database

import (
	"context"
	"time"

	"supportdesk/internal/cache"
	"supportdesk/internal/models"
)

// SubscriptionLookup resolves the billing state of an organization
type SubscriptionLookup interface {
	GetSubscriptionByOrganizationID(ctx context.Context, organizationID string) (*models.Subscription, error)
}

// ContactSessionLookup resolves widget contact sessions
type ContactSessionLookup interface {
	GetContactSession(ctx context.Context, id string) (*models.ContactSession, error)
}

// PlatformDirectory is the read side of the platform database
type PlatformDirectory interface {
	ContactSessionLookup
	SubscriptionLookup
}

// CachedDirectory caches subscription lookups, including misses, for a fixed TTL.
// Contact sessions are always read through.
type CachedDirectory struct {
	next  PlatformDirectory
	cache *cache.Cache[*models.Subscription]
	ttl   time.Duration
}

// NewCachedDirectory wraps next. A non-positive ttl disables caching.
func NewCachedDirectory(next PlatformDirectory, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		next:  next,
		cache: cache.New[*models.Subscription](),
		ttl:   ttl,
	}
}

// GetContactSession reads through to the wrapped directory
func (c *CachedDirectory) GetContactSession(ctx context.Context, id string) (*models.ContactSession, error) {
	return c.next.GetContactSession(ctx, id)
}

// GetSubscriptionByOrganizationID returns the cached subscription when fresh
func (c *CachedDirectory) GetSubscriptionByOrganizationID(ctx context.Context, organizationID string) (*models.Subscription, error) {
	if c.ttl <= 0 {
		return c.next.GetSubscriptionByOrganizationID(ctx, organizationID)
	}
	if sub, ok := c.cache.Get(organizationID); ok {
		return sub, nil
	}

	sub, err := c.next.GetSubscriptionByOrganizationID(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(organizationID, sub, c.ttl)
	return sub, nil
}

// Invalidate drops the cached subscription of an organization
func (c *CachedDirectory) Invalidate(organizationID string) {
	c.cache.Delete(organizationID)
}
