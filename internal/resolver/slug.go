package resolver

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/shortloop/link-resolver/internal/cache"
	"github.com/shortloop/link-resolver/internal/domain"
	"github.com/shortloop/link-resolver/internal/logger"
	"github.com/shortloop/link-resolver/internal/metrics"
	"github.com/shortloop/link-resolver/internal/storage"
)

// maxSlugLength bounds accepted slugs; anything longer is rejected before
// any I/O happens.
const maxSlugLength = 50

// passwordCookiePrefix is the per-slug verification cookie the embedding
// application sets after a successful password entry. Presence of any
// non-empty value is accepted as proof.
const passwordCookiePrefix = "password_verified_"

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// LinkSource is the durable store contract consumed by the resolver.
type LinkSource interface {
	GetLinkBySlug(ctx context.Context, slug string) (*domain.Link, error)
	GetLinkBySlugAndDomain(ctx context.Context, slug, domainID string) (*domain.Link, error)
}

// LinkCache is the cache-aside front consumed by the resolver.
type LinkCache interface {
	Get(ctx context.Context, slug string) (*domain.Link, error)
	Set(ctx context.Context, link *domain.Link) error
}

// ResolveRequest carries the per-request inputs for a slug resolution.
type ResolveRequest struct {
	Slug string
	// Origin is the scheme://host of the inbound request, used to build
	// landing-state URLs.
	Origin string
	// Cookies are the request cookies; only the per-slug password marker
	// is consulted.
	Cookies []*http.Cookie
	// Domain scopes the lookup to a custom domain namespace when set.
	// Nil means the default domain namespace.
	Domain *Classification
}

// SlugResolver performs the cache-aside slug lookup and applies expiration
// and password-gate policy.
type SlugResolver struct {
	store LinkSource
	cache LinkCache
	log   logger.Logger
	now   func() time.Time
}

// NewSlugResolver creates a SlugResolver.
func NewSlugResolver(store LinkSource, linkCache LinkCache, log logger.Logger) *SlugResolver {
	return &SlugResolver{
		store: store,
		cache: linkCache,
		log:   log,
		now:   time.Now,
	}
}

// Resolve maps a slug to its tagged outcome. The precedence is fixed:
// syntactic rejection, lookup, expiration, password gate, success.
func (r *SlugResolver) Resolve(ctx context.Context, req ResolveRequest) Outcome {
	if !validSlug(req.Slug) {
		return invalidOutcome(req.Origin)
	}

	link, outcome, done := r.lookup(ctx, req)
	if done {
		return outcome
	}

	if link.Expired(r.now()) {
		return expiredOutcome(req.Origin, link)
	}

	if link.PasswordProtected() && !hasPasswordCookie(req.Cookies, req.Slug) {
		return passwordRequiredOutcome(req.Slug)
	}

	return successOutcome(link)
}

// lookup runs the cache-aside read. done=true means resolution ended at the
// lookup stage and outcome carries the result.
func (r *SlugResolver) lookup(ctx context.Context, req ResolveRequest) (*domain.Link, Outcome, bool) {
	if link := r.fromCache(ctx, req); link != nil {
		return link, Outcome{}, false
	}

	link, err := r.fromStore(ctx, req)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFoundOutcome(req.Origin), true
		}
		// Uncertain state: never guess a destination.
		r.log.Error("Durable store lookup failed",
			logger.String("slug", req.Slug),
			logger.Error(err),
		)
		return nil, errorOutcome(req.Origin), true
	}

	if !namespaceMatch(link, req.Domain) {
		return nil, notFoundOutcome(req.Origin), true
	}

	// Read-through population; failures cost a future cache miss, nothing
	// more.
	if err := r.cache.Set(ctx, link); err != nil {
		r.log.Warn("Link cache population failed",
			logger.String("slug", req.Slug),
			logger.Error(err),
		)
	}

	return link, Outcome{}, false
}

// fromCache returns a cached link whose namespace matches the request, or
// nil. Cache failures are misses: the cache is an optimization, never a
// hard dependency.
func (r *SlugResolver) fromCache(ctx context.Context, req ResolveRequest) *domain.Link {
	link, err := r.cache.Get(ctx, req.Slug)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			r.log.Warn("Link cache read failed",
				logger.String("slug", req.Slug),
				logger.Error(err),
			)
			metrics.LinkCacheTotal.WithLabelValues("error").Inc()
			return nil
		}
		metrics.LinkCacheTotal.WithLabelValues("miss").Inc()
		return nil
	}

	// The cache keys by slug alone while default and custom domain links
	// live in disjoint namespaces. An entry from the other namespace is
	// treated as a miss, never served.
	if !namespaceMatch(link, req.Domain) {
		metrics.LinkCacheTotal.WithLabelValues("miss").Inc()
		return nil
	}

	metrics.LinkCacheTotal.WithLabelValues("hit").Inc()
	return link
}

func (r *SlugResolver) fromStore(ctx context.Context, req ResolveRequest) (*domain.Link, error) {
	if req.Domain != nil {
		return r.store.GetLinkBySlugAndDomain(ctx, req.Slug, req.Domain.DomainID)
	}
	return r.store.GetLinkBySlug(ctx, req.Slug)
}

// namespaceMatch enforces the disjoint-namespace invariant: default-domain
// requests only accept links without a custom domain, and custom-domain
// requests require both the workspace and the domain reference to line up.
// This blocks cross-tenant slug collisions.
func namespaceMatch(link *domain.Link, dom *Classification) bool {
	if dom == nil {
		return link.CustomDomainID == nil
	}
	if link.CustomDomainID == nil || *link.CustomDomainID != dom.DomainID {
		return false
	}
	return link.WorkspaceID == dom.WorkspaceID
}

func validSlug(slug string) bool {
	if slug == "" || len(slug) > maxSlugLength {
		return false
	}
	return slugPattern.MatchString(slug)
}

func hasPasswordCookie(cookies []*http.Cookie, slug string) bool {
	name := passwordCookiePrefix + slug
	for _, c := range cookies {
		if c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}
