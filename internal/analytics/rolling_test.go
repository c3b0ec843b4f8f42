package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shortloop/link-resolver/internal/domain"
)

func newTestIndex(t *testing.T) (*RollingIndex, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRollingIndex(client, 24*time.Hour), mr
}

func eventAt(ts time.Time, mutate func(*domain.ClickEvent)) *domain.ClickEvent {
	e := &domain.ClickEvent{
		WorkspaceID:   "ws_1",
		WorkspaceSlug: "acme",
		LinkID:        "lnk_1",
		Slug:          "git",
		URL:           "https://example.com/project",
		Domain:        "sl.example",
		IP:            "203.0.113.9",
		Country:       "CA",
		City:          "Toronto",
		Continent:     "NA",
		Device:        "desktop",
		Browser:       "Chrome",
		OS:            "Linux",
		UA:            "Mozilla/5.0",
		Referer:       domain.DirectReferer,
		Timestamp:     ts,
		ClickID:       "clk_" + ts.Format("150405.000"),
	}
	if mutate != nil {
		mutate(e)
	}
	return e
}

func TestRollingIndex_WritesBothKeys(t *testing.T) {
	index, mr := newTestIndex(t)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := index.Write(context.Background(), eventAt(ts, nil)); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	for _, key := range []string{"analytics:zset:ws:ws_1", "analytics:zset:wslug:acme"} {
		members, err := mr.ZMembers(key)
		if err != nil {
			t.Fatalf("ZMembers(%s): %v", key, err)
		}
		if len(members) != 1 {
			t.Fatalf("%s holds %d members, want 1", key, len(members))
		}
		score, err := mr.ZScore(key, members[0])
		if err != nil {
			t.Fatalf("ZScore(%s): %v", key, err)
		}
		if int64(score) != ts.UnixMilli() {
			t.Errorf("%s score = %d, want %d", key, int64(score), ts.UnixMilli())
		}
	}
}

func TestRollingIndex_TrimsOldEntries(t *testing.T) {
	index, mr := newTestIndex(t)
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	old := eventAt(base.Add(-25*time.Hour), nil)
	if err := index.Write(context.Background(), old); err != nil {
		t.Fatalf("Write old event: %v", err)
	}

	// Writing a fresh event trims everything older than the retention
	// window in the same pipeline.
	if err := index.Write(context.Background(), eventAt(base, nil)); err != nil {
		t.Fatalf("Write fresh event: %v", err)
	}

	for _, key := range []string{"analytics:zset:ws:ws_1", "analytics:zset:wslug:acme"} {
		members, err := mr.ZMembers(key)
		if err != nil {
			t.Fatalf("ZMembers(%s): %v", key, err)
		}
		if len(members) != 1 {
			t.Errorf("%s holds %d members after trim, want 1", key, len(members))
		}
	}
}

func TestRollingIndex_AggregateBoundaryInclusive(t *testing.T) {
	index, _ := newTestIndex(t)
	ctx := context.Background()

	from := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Two events sit exactly on the boundaries, two just outside them.
	for _, ts := range []time.Time{
		from.Add(-time.Millisecond),
		from,
		from.Add(time.Hour),
		to,
		to.Add(time.Millisecond),
	} {
		if err := index.Write(ctx, eventAt(ts, nil)); err != nil {
			t.Fatalf("Write at %v: %v", ts, err)
		}
	}

	report, err := index.Aggregate(ctx, "ws_1", from, to)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if report.Total != 3 {
		t.Fatalf("total = %d, want 3 (boundaries inclusive)", report.Total)
	}
}

func TestRollingIndex_AggregateGroupCounts(t *testing.T) {
	index, _ := newTestIndex(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	events := []*domain.ClickEvent{
		eventAt(base, nil),
		eventAt(base.Add(10*time.Minute), func(e *domain.ClickEvent) {
			e.Device = "mobile"
			e.Browser = "Safari"
			e.OS = "iOS"
		}),
		eventAt(base.Add(70*time.Minute), func(e *domain.ClickEvent) {
			e.LinkID = "lnk_2"
			e.Slug = "promo"
			e.URL = "https://example.com/sale"
			e.Country = "DE"
			e.City = "Berlin"
			e.Continent = "EU"
			e.Referer = "news.ycombinator.com"
		}),
	}
	for _, e := range events {
		if err := index.Write(ctx, e); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}

	report, err := index.Aggregate(ctx, "ws_1", base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	if report.Total != 3 {
		t.Fatalf("total = %d, want 3", report.Total)
	}

	dimensions := map[string]map[string]int{
		"hours":      report.Hours,
		"links":      report.Links,
		"cities":     report.Cities,
		"countries":  report.Countries,
		"continents": report.Continents,
		"devices":    report.Devices,
		"browsers":   report.Browsers,
		"oses":       report.OSes,
		"referers":   report.Referers,
		"urls":       report.URLs,
	}
	for name, groups := range dimensions {
		sum := 0
		for _, n := range groups {
			sum += n
		}
		if sum != report.Total {
			t.Errorf("%s group counts sum to %d, want %d", name, sum, report.Total)
		}
	}

	if report.Hours["2025-06-01T10:00"] != 2 || report.Hours["2025-06-01T11:00"] != 1 {
		t.Errorf("hour buckets = %v", report.Hours)
	}
	if report.Links["lnk_1"] != 2 || report.Links["lnk_2"] != 1 {
		t.Errorf("link groups = %v", report.Links)
	}
	if report.Cities["Berlin, DE"] != 1 || report.Cities["Toronto, CA"] != 2 {
		t.Errorf("city groups = %v", report.Cities)
	}
	if report.Devices["mobile"] != 1 || report.Devices["desktop"] != 2 {
		t.Errorf("device groups = %v", report.Devices)
	}
	if report.Referers[domain.DirectReferer] != 2 {
		t.Errorf("referer groups = %v", report.Referers)
	}
}

func TestRollingIndex_AggregateEmptyRange(t *testing.T) {
	index, _ := newTestIndex(t)

	report, err := index.Aggregate(context.Background(), "ws_none", time.Unix(0, 0), time.Now())
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if report.Total != 0 {
		t.Errorf("total = %d, want 0", report.Total)
	}
}
