package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shortloop/link-resolver/internal/cache"
	"github.com/shortloop/link-resolver/internal/domain"
	"github.com/shortloop/link-resolver/internal/logger"
	"github.com/shortloop/link-resolver/internal/storage"
)

type spyDomainStore struct {
	domains map[string]*domain.CustomDomain
	err     error
	calls   int
}

func (s *spyDomainStore) GetCustomDomain(_ context.Context, hostname string) (*domain.CustomDomain, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.domains[hostname]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return d, nil
}

func newTestDomainResolver(store *spyDomainStore) *DomainResolver {
	return NewDomainResolver(store, cache.NewHostCache(time.Minute), []string{"sl.example", "SL.Example:443"}, logger.NewNop())
}

func TestClassify_DefaultHostnameSkipsStore(t *testing.T) {
	store := &spyDomainStore{}
	r := newTestDomainResolver(store)

	for _, host := range []string{"sl.example", "SL.EXAMPLE", "sl.example:8094"} {
		c, err := r.Classify(context.Background(), host)
		if err != nil {
			t.Fatalf("Classify(%q) error: %v", host, err)
		}
		if c.IsCustom {
			t.Errorf("Classify(%q) classified as custom", host)
		}
	}

	if store.calls != 0 {
		t.Errorf("store consulted for default hostnames: %d calls", store.calls)
	}
}

func TestClassify_VerifiedCustomDomainCached(t *testing.T) {
	store := &spyDomainStore{domains: map[string]*domain.CustomDomain{
		"links.acme.com": {ID: "dom_1", Domain: "links.acme.com", WorkspaceID: "ws_2", Verified: true, DNSConfigured: true},
	}}
	r := newTestDomainResolver(store)

	for i := 0; i < 3; i++ {
		c, err := r.Classify(context.Background(), "Links.ACME.com:443")
		if err != nil {
			t.Fatalf("Classify error on pass %d: %v", i, err)
		}
		if !c.IsCustom || c.WorkspaceID != "ws_2" || c.DomainID != "dom_1" {
			t.Fatalf("classification = %+v", c)
		}
	}

	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1 (repeats must hit the local cache)", store.calls)
	}
}

func TestClassify_UnknownHostnameCachedNegatively(t *testing.T) {
	store := &spyDomainStore{domains: map[string]*domain.CustomDomain{}}
	r := newTestDomainResolver(store)

	for i := 0; i < 3; i++ {
		c, err := r.Classify(context.Background(), "nobody.example")
		if err != nil {
			t.Fatalf("Classify error on pass %d: %v", i, err)
		}
		if c.IsCustom {
			t.Fatalf("unknown hostname classified as custom: %+v", c)
		}
	}

	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1 (negative answers are cached too)", store.calls)
	}
}

func TestClassify_StoreErrorNotCached(t *testing.T) {
	store := &spyDomainStore{err: errors.New("connection refused")}
	r := newTestDomainResolver(store)

	if _, err := r.Classify(context.Background(), "links.acme.com"); err == nil {
		t.Fatal("expected error from failing store")
	}
	if _, err := r.Classify(context.Background(), "links.acme.com"); err == nil {
		t.Fatal("expected error again: failures must not be cached")
	}
	if store.calls != 2 {
		t.Errorf("store calls = %d, want 2", store.calls)
	}
}

func TestClassify_InvalidateForcesReload(t *testing.T) {
	store := &spyDomainStore{domains: map[string]*domain.CustomDomain{}}
	r := newTestDomainResolver(store)

	if _, err := r.Classify(context.Background(), "links.acme.com"); err != nil {
		t.Fatalf("Classify error: %v", err)
	}

	// Domain gets verified between requests.
	store.domains["links.acme.com"] = &domain.CustomDomain{
		ID: "dom_1", Domain: "links.acme.com", WorkspaceID: "ws_2", Verified: true, DNSConfigured: true,
	}
	r.Invalidate("Links.ACME.com")

	c, err := r.Classify(context.Background(), "links.acme.com")
	if err != nil {
		t.Fatalf("Classify error after invalidate: %v", err)
	}
	if !c.IsCustom {
		t.Fatal("invalidate did not evict the stale negative entry")
	}
	if store.calls != 2 {
		t.Errorf("store calls = %d, want 2", store.calls)
	}
}

func TestClassify_InvalidateAll(t *testing.T) {
	store := &spyDomainStore{domains: map[string]*domain.CustomDomain{
		"links.acme.com": {ID: "dom_1", Domain: "links.acme.com", WorkspaceID: "ws_2", Verified: true, DNSConfigured: true},
	}}
	r := newTestDomainResolver(store)

	if _, err := r.Classify(context.Background(), "links.acme.com"); err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	r.Invalidate("")
	if _, err := r.Classify(context.Background(), "links.acme.com"); err != nil {
		t.Fatalf("Classify error: %v", err)
	}

	if store.calls != 2 {
		t.Errorf("store calls = %d, want 2 after full invalidation", store.calls)
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Links.ACME.com", "links.acme.com"},
		{"links.acme.com:8094", "links.acme.com"},
		{"  sl.example ", "sl.example"},
		{"sl.example", "sl.example"},
	}
	for _, tt := range tests {
		if got := NormalizeHost(tt.in); got != tt.want {
			t.Errorf("NormalizeHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
