// Package metrics registers the Prometheus collectors for the redirect and
// analytics paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedirectsTotal counts resolved requests by outcome kind.
	RedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "link_resolver_redirects_total",
		Help: "Redirect requests by resolution outcome.",
	}, []string{"outcome"})

	// LinkCacheTotal counts link cache lookups by result.
	LinkCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "link_resolver_link_cache_total",
		Help: "Link cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	// HostCacheTotal counts custom domain cache lookups by result.
	HostCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "link_resolver_host_cache_total",
		Help: "Custom domain cache lookups by result (hit, miss).",
	}, []string{"result"})

	// AnalyticsEventsTotal counts sink writes by sink and status.
	AnalyticsEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "link_resolver_analytics_events_total",
		Help: "Analytics sink writes by sink (ingest, rolling) and status (ok, error).",
	}, []string{"sink", "status"})

	// AnalyticsDroppedTotal counts events dropped because the buffer was full.
	AnalyticsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_resolver_analytics_dropped_total",
		Help: "Analytics events dropped before reaching any sink.",
	})

	// EphemeralResolvesTotal counts ephemeral code lookups by action.
	EphemeralResolvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "link_resolver_ephemeral_resolves_total",
		Help: "Ephemeral link lookups by action (redirect, pass).",
	}, []string{"action"})
)
