package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// FetchMetrics reads /api/metrics from a running daemon at addr
// ("host:port" or a full URL).
func FetchMetrics(ctx context.Context, client *http.Client, addr string) (*IngestionMetrics, error) {
	if client == nil {
		client = http.DefaultClient
	}
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/api/metrics", nil)
	if err != nil {
		return nil, fmt.Errorf("building metrics request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon metrics: status %d", resp.StatusCode)
	}
	var m IngestionMetrics
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding daemon metrics: %w", err)
	}
	return &m, nil
}
