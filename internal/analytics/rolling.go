package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shortloop/link-resolver/internal/domain"
)

// Sorted-set key formats shared with external readers of the same cache;
// they must not change.
const (
	wsKeyPrefix    = "analytics:zset:ws:"
	wslugKeyPrefix = "analytics:zset:wslug:"
)

// RollingIndex is Sink B: a rolling-window sorted-set time index keyed by
// workspace id and, redundantly, workspace slug. It backs the last-24-hours
// dashboards, which the durable sink's query cost is unsuited for.
type RollingIndex struct {
	client    *redis.Client
	retention time.Duration
}

// NewRollingIndex creates a RollingIndex keeping retention worth of events.
func NewRollingIndex(client *redis.Client, retention time.Duration) *RollingIndex {
	return &RollingIndex{client: client, retention: retention}
}

// Name implements Sink.
func (i *RollingIndex) Name() string { return "rolling" }

// Write implements Sink. The event lands in both sorted sets scored by its
// epoch-millis timestamp, and entries older than the retention window are
// trimmed from both sets in the same pipeline.
func (i *RollingIndex) Write(ctx context.Context, event *domain.ClickEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	member := redis.Z{Score: event.Score(), Member: payload}
	cutoff := strconv.FormatInt(event.Timestamp.Add(-i.retention).UnixMilli(), 10)

	keys := []string{wsKeyPrefix + event.WorkspaceID}
	if event.WorkspaceSlug != "" {
		keys = append(keys, wslugKeyPrefix+event.WorkspaceSlug)
	}

	pipe := i.client.Pipeline()
	for _, key := range keys {
		pipe.ZAdd(ctx, key, member)
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+cutoff)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index event: %w", err)
	}
	return nil
}

// Report is the aggregation of a workspace's events over a time range:
// group counts per dimension, each summing to Total.
type Report struct {
	Total      int            `json:"total"`
	Hours      map[string]int `json:"hours"`
	Links      map[string]int `json:"links"`
	Cities     map[string]int `json:"cities"`
	Countries  map[string]int `json:"countries"`
	Continents map[string]int `json:"continents"`
	Devices    map[string]int `json:"devices"`
	Browsers   map[string]int `json:"browsers"`
	OSes       map[string]int `json:"oses"`
	Referers   map[string]int `json:"referers"`
	URLs       map[string]int `json:"urls"`
}

// Aggregate fetches every event for a workspace scored within [from, to],
// boundary-inclusive, and folds it into a Report. Pure and deterministic:
// the same range always produces the same report.
func (i *RollingIndex) Aggregate(ctx context.Context, workspaceID string, from, to time.Time) (*Report, error) {
	members, err := i.client.ZRangeByScore(ctx, wsKeyPrefix+workspaceID, &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixMilli(), 10),
		Max: strconv.FormatInt(to.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range events for %s: %w", workspaceID, err)
	}

	report := newReport()
	for _, member := range members {
		var event domain.ClickEvent
		if err := json.Unmarshal([]byte(member), &event); err != nil {
			// A malformed member skews no dimension; skip it whole.
			continue
		}
		report.add(&event)
	}
	return report, nil
}

func newReport() *Report {
	return &Report{
		Hours:      make(map[string]int),
		Links:      make(map[string]int),
		Cities:     make(map[string]int),
		Countries:  make(map[string]int),
		Continents: make(map[string]int),
		Devices:    make(map[string]int),
		Browsers:   make(map[string]int),
		OSes:       make(map[string]int),
		Referers:   make(map[string]int),
		URLs:       make(map[string]int),
	}
}

func (r *Report) add(event *domain.ClickEvent) {
	r.Total++
	r.Hours[event.Timestamp.UTC().Truncate(time.Hour).Format("2006-01-02T15:00")]++
	r.Links[event.LinkID]++
	r.Cities[event.City+", "+event.Country]++
	r.Countries[event.Country]++
	r.Continents[event.Continent]++
	r.Devices[event.Device]++
	r.Browsers[event.Browser]++
	r.OSes[event.OS]++
	r.Referers[event.Referer]++
	r.URLs[event.URL]++
}
