package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of an upstream reply is read.
const maxResponseBytes = 1 << 20

// HTTPSuggester posts {"taskName": ...} to URL and returns the response body,
// which is expected to be {"subtasks": [...]}.
type HTTPSuggester struct {
	URL    string
	Client *http.Client
}

// NewHTTPSuggester creates an HTTPSuggester with a client bounded by timeout.
func NewHTTPSuggester(url string, timeout time.Duration) *HTTPSuggester {
	return &HTTPSuggester{URL: url, Client: &http.Client{Timeout: timeout}}
}

// Suggest performs one request.
func (h *HTTPSuggester) Suggest(ctx context.Context, taskName string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"taskName": taskName})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrUpstream, h.URL, resp.StatusCode, truncate(string(data), 200))
	}
	return data, nil
}
