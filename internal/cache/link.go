// Package cache holds the two read caches on the redirect path: the Redis
// link-by-slug cache and the process-local custom domain cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shortloop/link-resolver/internal/domain"
)

// ErrMiss is returned when no usable entry exists for a slug.
var ErrMiss = errors.New("cache: miss")

// linkKeyPrefix is the wire key format shared with external writers of the
// same cache; it must not change.
const linkKeyPrefix = "link:"

// linkEntry is the serialized subset of a Link stored in Redis. Entries for
// archived or nonexistent links are never written.
type linkEntry struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug"`
	URL            string     `json:"url"`
	WorkspaceID    string     `json:"workspaceId"`
	WorkspaceSlug  string     `json:"workspaceSlug,omitempty"`
	CustomDomainID *string    `json:"customDomainId,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	ExpirationURL  *string    `json:"expirationUrl,omitempty"`
	Password       *string    `json:"password,omitempty"`
}

// LinkCache is the cache-aside front for link lookups.
type LinkCache struct {
	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

// NewLinkCache creates a LinkCache writing entries with the given TTL.
func NewLinkCache(client *redis.Client, ttl, opTimeout time.Duration) *LinkCache {
	return &LinkCache{client: client, ttl: ttl, opTimeout: opTimeout}
}

// Get returns the cached link for a slug, or ErrMiss. A malformed payload is
// treated as a miss so the durable store can repopulate it.
func (c *LinkCache) Get(ctx context.Context, slug string) (*domain.Link, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, linkKeyPrefix+slug).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get %s: %w", slug, err)
	}

	var entry linkEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, ErrMiss
	}

	return entry.toDomain(), nil
}

// Set writes the link entry under link:{slug} with the configured TTL.
func (c *LinkCache) Set(ctx context.Context, link *domain.Link) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	entry := linkEntry{
		ID:             link.ID,
		Slug:           link.Slug,
		URL:            link.URL,
		WorkspaceID:    link.WorkspaceID,
		WorkspaceSlug:  link.WorkspaceSlug,
		CustomDomainID: link.CustomDomainID,
		ExpiresAt:      link.ExpiresAt,
		ExpirationURL:  link.ExpirationURL,
		Password:       link.Password,
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal link entry: %w", err)
	}

	if err := c.client.Set(ctx, linkKeyPrefix+link.Slug, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", link.Slug, err)
	}

	return nil
}

// Delete removes the entry for a slug. External mutation paths call this
// when a link changes so stale destinations are bounded by writes, not TTL.
func (c *LinkCache) Delete(ctx context.Context, slug string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, linkKeyPrefix+slug).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", slug, err)
	}
	return nil
}

func (e *linkEntry) toDomain() *domain.Link {
	return &domain.Link{
		ID:             e.ID,
		Slug:           e.Slug,
		URL:            e.URL,
		WorkspaceID:    e.WorkspaceID,
		WorkspaceSlug:  e.WorkspaceSlug,
		CustomDomainID: e.CustomDomainID,
		ExpiresAt:      e.ExpiresAt,
		ExpirationURL:  e.ExpirationURL,
		Password:       e.Password,
	}
}
