package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shortloop/link-resolver/internal/domain"
)

// IngestClient is Sink A: it POSTs each event as flat JSON to the
// write-optimized ingestion endpoint. No retry; the recorder logs and
// drops on failure.
type IngestClient struct {
	httpClient *http.Client
	url        string
	token      string
}

// NewIngestClient creates an IngestClient for the given endpoint. token is
// optional; when set it is sent as a bearer token.
func NewIngestClient(url, token string, timeout time.Duration) *IngestClient {
	return &IngestClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		token:      token,
	}
}

// Name implements Sink.
func (c *IngestClient) Name() string { return "ingest" }

// Write implements Sink.
func (c *IngestClient) Write(ctx context.Context, event *domain.ClickEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ingest endpoint returned %d", resp.StatusCode)
	}
	return nil
}
