package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cheesesashimi/cookiescraper/pkg/config"
)

const defaultPageTimeout = 10 * time.Second

// PageSource loads the rendered HTML of a detail page.
type PageSource interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// NewPageSource picks the page source named by the scraper config.
func NewPageSource(cfg config.Scraper) PageSource {
	if cfg.Engine == "http" {
		return NewHTTPPageSource(cfg)
	}

	return NewBrowser(cfg)
}

// HTTPPageSource fetches pages without running their scripts. Pages that
// render reviews client side come back without them.
type HTTPPageSource struct {
	client *resty.Client
}

var _ PageSource = (*HTTPPageSource)(nil)

func NewHTTPPageSource(cfg config.Scraper) *HTTPPageSource {
	timeout := cfg.PageTimeout
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}

	return &HTTPPageSource{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", cfg.UserAgent),
	}
}

func (h *HTTPPageSource) Fetch(ctx context.Context, pageURL string) (string, error) {
	resp, err := h.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return "", fmt.Errorf("could not fetch %s: %w", pageURL, err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("could not fetch %s: status %d", pageURL, resp.StatusCode())
	}

	return resp.String(), nil
}
