// Package domain holds the core types shared across the resolution and
// analytics packages.
package domain

import "time"

// Link is the durable, authoritative short-link record. A link is addressable
// by slug under the product's default hostnames, or by (slug, custom domain)
// under a verified customer domain; the two namespaces are disjoint.
type Link struct {
	ID            string
	Slug          string
	URL           string
	WorkspaceID   string
	WorkspaceSlug string
	// CustomDomainID references the owning custom domain row, if any.
	CustomDomainID *string
	ExpiresAt      *time.Time
	// ExpirationURL is the fallback destination served once ExpiresAt has
	// passed. When unset, visitors land on a generic expired page.
	ExpirationURL *string
	// Password gates the redirect behind a verification cookie when set.
	Password *string
	Archived bool
}

// Expired reports whether the link's expiration time has passed.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// PasswordProtected reports whether the link has a password set.
func (l *Link) PasswordProtected() bool {
	return l.Password != nil && *l.Password != ""
}

// CustomDomain is a customer-owned hostname mapped to a workspace. A domain
// participates in resolution only when both Verified and DNSConfigured hold.
type CustomDomain struct {
	ID            string
	Domain        string
	WorkspaceID   string
	Verified      bool
	DNSConfigured bool
}
