package repositories

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
	"bazaar/internal/models"
)

const maxUpstreamBody = 4 * 1024

// HTTPProductRepository talks to the catalog service over HTTP.
type HTTPProductRepository struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPProductRepository creates a catalog client. Every call is bounded by timeout.
func NewHTTPProductRepository(baseURL string, client *http.Client, timeout time.Duration) *HTTPProductRepository {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProductRepository{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
	}
}

type byIDsRequest struct {
	ProductIDs []string `json:"productIds"`
	Pincode    string   `json:"pincode"`
}

// FetchProducts posts {productIds, pincode} to {base}/by-ids.
// An empty or undecodable reply means nothing is available at the pincode;
// transport failures and 5xx replies mean the catalog is unavailable.
func (r *HTTPProductRepository) FetchProducts(ctx context.Context, pincode string, productIDs []string) ([]models.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := json.Marshal(byIDsRequest{ProductIDs: productIDs, Pincode: pincode})
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/by-ids", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	metrics.UpstreamDuration.WithLabelValues("catalog", "by_ids").Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading reply: %v", ErrCatalogUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNoProducts, pincode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d: %s", ErrCatalogUnavailable, resp.StatusCode, truncate(raw))
	}

	var items []models.CatalogItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s (malformed catalog reply)", ErrNoProducts, pincode)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoProducts, pincode)
	}
	return items, nil
}

func truncate(b []byte) string {
	if len(b) > maxUpstreamBody {
		return string(b[:maxUpstreamBody]) + "..."
	}
	return string(b)
}
