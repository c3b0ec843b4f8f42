package domain

import "time"

// Sentinel values for best-effort event fields. Downstream aggregation never
// has to special-case absence: unknown values are always these strings,
// never empty and never null.
const (
	UnknownValue  = "unknown"
	DirectReferer = "Direct"
)

// ClickEvent is the write-once analytics record for a resolved redirect.
// It exists only transiently: the recorder fans it out to the durable
// ingestion endpoint and the rolling sorted-set index.
//
// The JSON shape is the ingestion wire contract and must stay flat.
type ClickEvent struct {
	WorkspaceID string    `json:"workspaceId"`
	LinkID      string    `json:"linkId"`
	Slug        string    `json:"slug"`
	URL         string    `json:"url"`
	Domain      string    `json:"domain"`
	IP          string    `json:"ip"`
	Country     string    `json:"country"`
	City        string    `json:"city"`
	Continent   string    `json:"continent"`
	Device      string    `json:"device"`
	Browser     string    `json:"browser"`
	OS          string    `json:"os"`
	UA          string    `json:"ua"`
	Referer     string    `json:"referer"`
	Timestamp   time.Time `json:"timestamp"`
	ClickID     string    `json:"clickId,omitempty"`
	Trigger     string    `json:"trigger,omitempty"`

	// WorkspaceSlug keys the secondary sorted-set index. It is not part of
	// the ingestion payload.
	WorkspaceSlug string `json:"-"`
}

// Score returns the sorted-set score for the event: epoch milliseconds.
func (e *ClickEvent) Score() float64 {
	return float64(e.Timestamp.UnixMilli())
}
