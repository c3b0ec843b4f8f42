// Package storage provides read access to the relational system of record
// for links and custom domains. It is the slow, authoritative half of the
// cache-aside read path.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/shortloop/link-resolver/internal/domain"
)

// ErrNotFound is returned when no matching row exists. Callers treat it as a
// first-class outcome, not a failure.
var ErrNotFound = errors.New("storage: not found")

// Store reads links and custom domains from PostgreSQL. Every query is
// bounded by queryTimeout because these lookups sit on the redirect path.
type Store struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

// New creates a Store around the given database handle.
func New(db *sqlx.DB, queryTimeout time.Duration) *Store {
	return &Store{db: db, queryTimeout: queryTimeout}
}

type linkRow struct {
	ID             string         `db:"id"`
	Slug           string         `db:"slug"`
	URL            string         `db:"url"`
	WorkspaceID    string         `db:"workspace_id"`
	WorkspaceSlug  string         `db:"workspace_slug"`
	CustomDomainID sql.NullString `db:"custom_domain_id"`
	ExpiresAt      sql.NullTime   `db:"expires_at"`
	ExpirationURL  sql.NullString `db:"expiration_url"`
	Password       sql.NullString `db:"password"`
}

type customDomainRow struct {
	ID            string `db:"id"`
	Domain        string `db:"domain"`
	WorkspaceID   string `db:"workspace_id"`
	Verified      bool   `db:"verified"`
	DNSConfigured bool   `db:"dns_configured"`
}

const linkColumns = `l.id, l.slug, l.url, l.workspace_id, w.slug AS workspace_slug,
	l.custom_domain_id, l.expires_at, l.expiration_url, l.password`

// GetLinkBySlug returns the non-archived link for a slug under the default
// domain namespace (no custom domain attached).
func (s *Store) GetLinkBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + `
		FROM links l
		JOIN workspaces w ON w.id = l.workspace_id
		WHERE l.slug = $1 AND l.custom_domain_id IS NULL AND l.is_archived = FALSE`

	return s.getLink(ctx, query, slug)
}

// GetLinkBySlugAndDomain returns the non-archived link for a slug scoped to
// a custom domain row.
func (s *Store) GetLinkBySlugAndDomain(ctx context.Context, slug, domainID string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + `
		FROM links l
		JOIN workspaces w ON w.id = l.workspace_id
		WHERE l.slug = $1 AND l.custom_domain_id = $2 AND l.is_archived = FALSE`

	return s.getLink(ctx, query, slug, domainID)
}

func (s *Store) getLink(ctx context.Context, query string, args ...any) (*domain.Link, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var row linkRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query link: %w", err)
	}

	return row.toDomain(), nil
}

// GetCustomDomain returns the custom domain row for a hostname, restricted
// to domains that are verified and have DNS configured. Unverified domains
// are indistinguishable from unknown ones by design.
func (s *Store) GetCustomDomain(ctx context.Context, hostname string) (*domain.CustomDomain, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `SELECT id, domain, workspace_id, verified, dns_configured
		FROM custom_domains
		WHERE domain = $1 AND verified = TRUE AND dns_configured = TRUE`

	var row customDomainRow
	if err := s.db.GetContext(ctx, &row, query, hostname); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query custom domain: %w", err)
	}

	return &domain.CustomDomain{
		ID:            row.ID,
		Domain:        row.Domain,
		WorkspaceID:   row.WorkspaceID,
		Verified:      row.Verified,
		DNSConfigured: row.DNSConfigured,
	}, nil
}

func (r *linkRow) toDomain() *domain.Link {
	link := &domain.Link{
		ID:            r.ID,
		Slug:          r.Slug,
		URL:           r.URL,
		WorkspaceID:   r.WorkspaceID,
		WorkspaceSlug: r.WorkspaceSlug,
	}
	if r.CustomDomainID.Valid {
		v := r.CustomDomainID.String
		link.CustomDomainID = &v
	}
	if r.ExpiresAt.Valid {
		v := r.ExpiresAt.Time
		link.ExpiresAt = &v
	}
	if r.ExpirationURL.Valid {
		v := r.ExpirationURL.String
		link.ExpirationURL = &v
	}
	if r.Password.Valid {
		v := r.Password.String
		link.Password = &v
	}
	return link
}
