package domain

import "time"

// EphemeralLink is a cache-only short link with no durable counterpart. It
// lives under temp:link:{code} with a fixed window TTL that every read
// renews, and counts its own clicks inline.
type EphemeralLink struct {
	URL       string    `json:"url"`
	Code      string    `json:"code"`
	CreatorIP string    `json:"creatorIp"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Clicks    int64     `json:"clicks"`
}

// Expired reports whether the record's own expiry has passed. A stale read
// from the cache must not be honored past this point.
func (e *EphemeralLink) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}
