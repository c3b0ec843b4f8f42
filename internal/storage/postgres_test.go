package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/shortloop/link-resolver/internal/domain"
	"github.com/shortloop/link-resolver/internal/storage"
)

const testQueryTimeout = 500 * time.Millisecond

func newTestStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	sqlxDB := sqlx.NewDb(db, "postgres")
	store := storage.New(sqlxDB, testQueryTimeout)

	return store, mock, func() { _ = db.Close() }
}

func linkColumns() []string {
	return []string{
		"id", "slug", "url", "workspace_id", "workspace_slug",
		"custom_domain_id", "expires_at", "expiration_url", "password",
	}
}

func TestGetLinkBySlug(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		check     func(t *testing.T, err error, got *linkResult)
	}{
		{
			name: "returns link with optional fields unset",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(linkColumns()).
					AddRow("lnk_1", "git", "https://example.com/project", "ws_1", "acme",
						nil, nil, nil, nil)
				mock.ExpectQuery("SELECT .+ FROM links l").
					WithArgs("git").
					WillReturnRows(rows)
			},
			check: func(t *testing.T, err error, got *linkResult) {
				t.Helper()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.url != "https://example.com/project" {
					t.Errorf("url: got %q", got.url)
				}
				if got.hasExpiry || got.hasPassword {
					t.Error("expected no expiry and no password")
				}
			},
		},
		{
			name: "returns link with expiry and password",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(linkColumns()).
					AddRow("lnk_2", "promo", "https://example.com/sale", "ws_1", "acme",
						nil, expiry, "https://example.com/sale-over", "s3cret")
				mock.ExpectQuery("SELECT .+ FROM links l").
					WithArgs("promo").
					WillReturnRows(rows)
			},
			check: func(t *testing.T, err error, got *linkResult) {
				t.Helper()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !got.hasExpiry || !got.expiresAt.Equal(expiry) {
					t.Errorf("expiresAt: got %v, want %v", got.expiresAt, expiry)
				}
				if got.expirationURL != "https://example.com/sale-over" {
					t.Errorf("expirationUrl: got %q", got.expirationURL)
				}
				if !got.hasPassword {
					t.Error("expected password to be set")
				}
			},
		},
		{
			name: "maps no rows to ErrNotFound",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM links l").
					WithArgs("missing").
					WillReturnError(sql.ErrNoRows)
			},
			check: func(t *testing.T, err error, got *linkResult) {
				t.Helper()
				if !errors.Is(err, storage.ErrNotFound) {
					t.Fatalf("expected ErrNotFound, got %v", err)
				}
			},
		},
		{
			name: "propagates database failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM links l").
					WithArgs("broken").
					WillReturnError(sql.ErrConnDone)
			},
			check: func(t *testing.T, err error, got *linkResult) {
				t.Helper()
				if err == nil || errors.Is(err, storage.ErrNotFound) {
					t.Fatalf("expected a hard error, got %v", err)
				}
			},
		},
	}

	slugs := []string{"git", "promo", "missing", "broken"}

	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock, cleanup := newTestStore(t)
			defer cleanup()

			tc.setupMock(mock)

			link, err := store.GetLinkBySlug(context.Background(), slugs[i])
			tc.check(t, err, summarize(link))

			if expErr := mock.ExpectationsWereMet(); expErr != nil {
				t.Errorf("unfulfilled expectations: %v", expErr)
			}
		})
	}
}

func TestGetLinkBySlugAndDomain(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	rows := sqlmock.NewRows(linkColumns()).
		AddRow("lnk_3", "docs", "https://example.com/docs", "ws_2", "globex",
			"dom_1", nil, nil, nil)
	mock.ExpectQuery("SELECT .+ FROM links l").
		WithArgs("docs", "dom_1").
		WillReturnRows(rows)

	link, err := store.GetLinkBySlugAndDomain(context.Background(), "docs", "dom_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.WorkspaceID != "ws_2" {
		t.Errorf("workspace: got %q, want ws_2", link.WorkspaceID)
	}
	if link.CustomDomainID == nil || *link.CustomDomainID != "dom_1" {
		t.Errorf("customDomainId: got %v, want dom_1", link.CustomDomainID)
	}

	if expErr := mock.ExpectationsWereMet(); expErr != nil {
		t.Errorf("unfulfilled expectations: %v", expErr)
	}
}

func TestGetCustomDomain(t *testing.T) {
	testCases := []struct {
		name      string
		hostname  string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name:     "returns verified domain",
			hostname: "links.acme.com",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(
					[]string{"id", "domain", "workspace_id", "verified", "dns_configured"}).
					AddRow("dom_1", "links.acme.com", "ws_1", true, true)
				mock.ExpectQuery("SELECT .+ FROM custom_domains").
					WithArgs("links.acme.com").
					WillReturnRows(rows)
			},
		},
		{
			name:     "unverified domain is not found",
			hostname: "links.pending.com",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM custom_domains").
					WithArgs("links.pending.com").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: storage.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock, cleanup := newTestStore(t)
			defer cleanup()

			tc.setupMock(mock)

			dom, err := store.GetCustomDomain(context.Background(), tc.hostname)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dom.WorkspaceID != "ws_1" {
				t.Errorf("workspace: got %q, want ws_1", dom.WorkspaceID)
			}
			if !dom.Verified || !dom.DNSConfigured {
				t.Error("expected verified and dns_configured to be true")
			}

			if expErr := mock.ExpectationsWereMet(); expErr != nil {
				t.Errorf("unfulfilled expectations: %v", expErr)
			}
		})
	}
}

// linkResult flattens optional link fields for assertions.
type linkResult struct {
	url           string
	hasExpiry     bool
	expiresAt     time.Time
	expirationURL string
	hasPassword   bool
}

func summarize(link *domain.Link) *linkResult {
	if link == nil {
		return &linkResult{}
	}
	res := &linkResult{url: link.URL}
	if link.ExpiresAt != nil {
		res.hasExpiry = true
		res.expiresAt = *link.ExpiresAt
	}
	if link.ExpirationURL != nil {
		res.expirationURL = *link.ExpirationURL
	}
	res.hasPassword = link.Password != nil
	return res
}
