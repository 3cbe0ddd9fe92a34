package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/cheesesashimi/cookiescraper/pkg/config"
	"github.com/cheesesashimi/cookiescraper/pkg/metrics"
	"github.com/cheesesashimi/cookiescraper/pkg/store"
)

const (
	clientIDHeader     string = "X-Naver-Client-Id"
	clientSecretHeader string = "X-Naver-Client-Secret"
)

// Searcher runs a single local search query.
type Searcher interface {
	Search(ctx context.Context, query string) (store.RawListings, error)
}

// APIError is returned when the provider answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Payload    json.RawMessage
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

type searchResponse struct {
	LastBuildDate string            `json:"lastBuildDate"`
	Total         int               `json:"total"`
	Start         int               `json:"start"`
	Display       int               `json:"display"`
	Items         store.RawListings `json:"items"`
}

type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	url     string
	display int
	sort    string
}

var _ Searcher = (*Client)(nil)

func NewClient(cfg config.Provider) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader(clientIDHeader, cfg.ClientID).
		SetHeader(clientSecretHeader, cfg.ClientSecret).
		SetHeader("Accept", "application/json")

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		url:     cfg.URL,
		display: cfg.Display,
		sort:    cfg.Sort,
	}
}

func (c *Client) Search(ctx context.Context, query string) (store.RawListings, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("could not wait for provider rate limit: %w", err)
	}

	start := time.Now()
	out := &searchResponse{}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":   query,
			"display": strconv.Itoa(c.display),
			"start":   "1",
			"sort":    c.sort,
		}).
		Get(c.url)

	if err != nil {
		metrics.ObserveProviderCall("error", time.Since(start))
		return nil, fmt.Errorf("could not query provider for %q: %w", query, err)
	}

	if resp.StatusCode() != http.StatusOK {
		metrics.ObserveProviderCall(strconv.Itoa(resp.StatusCode()), time.Since(start))
		return nil, newAPIError(resp)
	}

	metrics.ObserveProviderCall("ok", time.Since(start))

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return nil, fmt.Errorf("could not parse provider response for %q: %w", query, err)
	}

	if out.Items == nil {
		return store.RawListings{}, nil
	}

	return out.Items, nil
}

func newAPIError(resp *resty.Response) *APIError {
	body := resp.Body()
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Body:       string(body),
	}

	if json.Valid(body) {
		apiErr.Payload = json.RawMessage(body)
	}

	return apiErr
}
