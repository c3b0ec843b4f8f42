// Package analytics builds click events from request context and fans them
// out, fire-and-forget, to the durable ingestion endpoint and the rolling
// 24-hour sorted-set index.
package analytics

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"

	"github.com/shortloop/link-resolver/internal/domain"
)

// ClickContext carries the resolved-link identity attached to an event.
type ClickContext struct {
	WorkspaceID   string
	WorkspaceSlug string
	LinkID        string
	Slug          string
	URL           string
}

// EventFromRequest decodes request headers into a ClickEvent. Every
// best-effort field falls back to a sentinel string so downstream
// aggregation never sees empty or null values.
func EventFromRequest(r *http.Request, cc ClickContext, now time.Time) *domain.ClickEvent {
	ua := r.UserAgent()
	parsed := useragent.Parse(ua)

	return &domain.ClickEvent{
		WorkspaceID:   cc.WorkspaceID,
		WorkspaceSlug: cc.WorkspaceSlug,
		LinkID:        cc.LinkID,
		Slug:          cc.Slug,
		URL:           cc.URL,
		Domain:        hostname(r),
		IP:            clientIP(r),
		Country:       geoHeader(r, "X-Vercel-IP-Country", "CF-IPCountry"),
		City:          geoHeader(r, "X-Vercel-IP-City"),
		Continent:     geoHeader(r, "X-Vercel-IP-Continent"),
		Device:        deviceOf(parsed),
		Browser:       orUnknown(parsed.Name),
		OS:            orUnknown(parsed.OS),
		UA:            orUnknown(ua),
		Referer:       refererOf(r),
		Timestamp:     now,
		ClickID:       uuid.NewString(),
		Trigger:       triggerOf(r),
	}
}

// geoHeader returns the first non-empty header value, URL-unescaped because
// edge platforms percent-encode city names.
func geoHeader(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := r.Header.Get(name); v != "" {
			if decoded, err := url.QueryUnescape(v); err == nil {
				return decoded
			}
			return v
		}
	}
	return domain.UnknownValue
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return domain.UnknownValue
}

func hostname(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return orUnknown(strings.ToLower(host))
}

func deviceOf(ua useragent.UserAgent) string {
	switch {
	case ua.Bot:
		return "bot"
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	case ua.Desktop:
		return "desktop"
	default:
		return domain.UnknownValue
	}
}

func refererOf(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return domain.DirectReferer
	}
	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		return u.Host
	}
	return ref
}

func triggerOf(r *http.Request) string {
	if r.URL.Query().Get("qr") == "1" {
		return "qr"
	}
	return "link"
}

func orUnknown(v string) string {
	if v == "" {
		return domain.UnknownValue
	}
	return v
}
