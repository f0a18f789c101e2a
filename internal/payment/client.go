package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bazaar/internal/metrics"
)

const maxErrorBody = 4 * 1024

// restClient is the JSON-over-HTTP plumbing shared by the providers.
type restClient struct {
	name     string
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	decorate func(*http.Request)
}

func newRESTClient(name, baseURL string, client *http.Client, timeout time.Duration, decorate func(*http.Request)) *restClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &restClient{
		name:     name,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     client,
		timeout:  timeout,
		decorate: decorate,
	}
}

// do sends in (when non-nil) as JSON and decodes a 2xx reply into out.
// Every failure is wrapped in ErrGateway with the upstream status and body attached.
func (c *restClient) do(ctx context.Context, operation, method, path string, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s request: %w", c.name, operation, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s %s request: %w", c.name, operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.decorate != nil {
		c.decorate(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamDuration.WithLabelValues(c.name, operation).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrGateway, c.name, operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %s %s: reading reply: %v", ErrGateway, c.name, operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrGateway, c.name, operation, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s %s: malformed reply: %v", ErrGateway, c.name, operation, err)
	}
	return nil
}
