// Package resolver implements slug-to-link resolution and hostname-to-tenant
// classification for the redirect path.
package resolver

import "github.com/shortloop/link-resolver/internal/domain"

// OutcomeKind discriminates the closed set of resolution results. The kinds
// are mutually exclusive; callers switch on Kind and never infer state from
// which fields happen to be empty.
type OutcomeKind int

const (
	// OutcomeError is a dependency or input failure; URL points at the
	// generic error landing state.
	OutcomeError OutcomeKind = iota
	// OutcomeNotFound is the benign soft-404: no link exists anywhere.
	OutcomeNotFound
	// OutcomeExpired is a link past its expiration time; URL is the
	// configured fallback or the generic expired landing state.
	OutcomeExpired
	// OutcomePasswordRequired means the caller must render a password
	// challenge. No redirect URL is provided.
	OutcomePasswordRequired
	// OutcomeSuccess is a resolved redirect, recorded for analytics.
	OutcomeSuccess
)

// String names the outcome kind for logs and metrics labels.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeError:
		return "error"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeExpired:
		return "expired"
	case OutcomePasswordRequired:
		return "password_required"
	case OutcomeSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of a slug resolution.
type Outcome struct {
	Kind OutcomeKind
	// URL is the redirect destination. Empty only for PasswordRequired.
	URL string

	// Identity fields, set on Success for analytics.
	Slug          string
	LinkID        string
	WorkspaceID   string
	WorkspaceSlug string
}

// Landing-state status codes rendered by the embedding application.
const (
	statusInvalid  = "invalid"
	statusError    = "error"
	statusNotFound = "not-found"
	statusExpired  = "expired"
)

func statusURL(origin, status string) string {
	return origin + "/?status=" + status
}

func errorOutcome(origin string) Outcome {
	return Outcome{Kind: OutcomeError, URL: statusURL(origin, statusError)}
}

func invalidOutcome(origin string) Outcome {
	return Outcome{Kind: OutcomeError, URL: statusURL(origin, statusInvalid)}
}

func notFoundOutcome(origin string) Outcome {
	return Outcome{Kind: OutcomeNotFound, URL: statusURL(origin, statusNotFound)}
}

func expiredOutcome(origin string, link *domain.Link) Outcome {
	url := statusURL(origin, statusExpired)
	if link.ExpirationURL != nil && *link.ExpirationURL != "" {
		url = *link.ExpirationURL
	}
	return Outcome{Kind: OutcomeExpired, URL: url, Slug: link.Slug}
}

func passwordRequiredOutcome(slug string) Outcome {
	return Outcome{Kind: OutcomePasswordRequired, Slug: slug}
}

func successOutcome(link *domain.Link) Outcome {
	return Outcome{
		Kind:          OutcomeSuccess,
		URL:           link.URL,
		Slug:          link.Slug,
		LinkID:        link.ID,
		WorkspaceID:   link.WorkspaceID,
		WorkspaceSlug: link.WorkspaceSlug,
	}
}
