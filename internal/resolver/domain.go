package resolver

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/shortloop/link-resolver/internal/cache"
	"github.com/shortloop/link-resolver/internal/domain"
	"github.com/shortloop/link-resolver/internal/logger"
	"github.com/shortloop/link-resolver/internal/metrics"
	"github.com/shortloop/link-resolver/internal/storage"
)

// DomainSource is the durable store contract for hostname classification.
type DomainSource interface {
	GetCustomDomain(ctx context.Context, hostname string) (*domain.CustomDomain, error)
}

// Classification is the result of mapping an inbound hostname to a tenant.
type Classification struct {
	IsCustom    bool
	WorkspaceID string
	DomainID    string
}

// DomainResolver classifies inbound hostnames with a process-local TTL
// cache in front of the durable store. Negative results are cached on
// purpose: domain verification changes far less often than link state.
type DomainResolver struct {
	store        DomainSource
	cache        *cache.HostCache
	defaultHosts map[string]struct{}
	log          logger.Logger
}

// NewDomainResolver creates a DomainResolver. defaultHostnames are the
// product's own hostnames, classified non-custom without any I/O.
func NewDomainResolver(
	store DomainSource,
	hostCache *cache.HostCache,
	defaultHostnames []string,
	log logger.Logger,
) *DomainResolver {
	defaults := make(map[string]struct{}, len(defaultHostnames))
	for _, h := range defaultHostnames {
		defaults[NormalizeHost(h)] = struct{}{}
	}

	return &DomainResolver{
		store:        store,
		cache:        hostCache,
		defaultHosts: defaults,
		log:          log,
	}
}

// Classify maps a hostname to its tenant. An error means the durable store
// failed while no cached answer existed; callers must not fall back to the
// default namespace on uncertain state.
func (r *DomainResolver) Classify(ctx context.Context, hostname string) (Classification, error) {
	host := NormalizeHost(hostname)

	if _, ok := r.defaultHosts[host]; ok {
		return Classification{}, nil
	}

	if entry, ok := r.cache.Get(host); ok {
		metrics.HostCacheTotal.WithLabelValues("hit").Inc()
		return classificationFrom(entry), nil
	}
	metrics.HostCacheTotal.WithLabelValues("miss").Inc()

	dom, err := r.store.GetCustomDomain(ctx, host)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Unknown or unverified: cache the negative answer too.
			r.cache.Put(host, cache.HostEntry{Verified: false})
			return Classification{}, nil
		}
		r.log.Error("Custom domain lookup failed",
			logger.String("host", host),
			logger.Error(err),
		)
		return Classification{}, err
	}

	r.cache.Put(host, cache.HostEntry{
		WorkspaceID: dom.WorkspaceID,
		DomainID:    dom.ID,
		Verified:    true,
	})

	return Classification{
		IsCustom:    true,
		WorkspaceID: dom.WorkspaceID,
		DomainID:    dom.ID,
	}, nil
}

// Invalidate clears one hostname from the local cache, or everything when
// host is empty. Wired to the domain verification webhook.
func (r *DomainResolver) Invalidate(host string) {
	if host == "" {
		r.cache.InvalidateAll()
		return
	}
	r.cache.Invalidate(NormalizeHost(host))
}

// NormalizeHost lowercases a hostname and strips any trailing port.
func NormalizeHost(hostname string) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

func classificationFrom(entry cache.HostEntry) Classification {
	if !entry.Verified {
		return Classification{}
	}
	return Classification{
		IsCustom:    true,
		WorkspaceID: entry.WorkspaceID,
		DomainID:    entry.DomainID,
	}
}
