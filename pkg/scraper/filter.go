package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cheesesashimi/cookiescraper/pkg/config"
	"github.com/cheesesashimi/cookiescraper/pkg/metrics"
	"github.com/cheesesashimi/cookiescraper/pkg/store"
	"github.com/cheesesashimi/cookiescraper/pkg/utils"
)

// Filter confirms stores by reading their detail pages.
type Filter struct {
	source     PageSource
	terms      []string
	maxStores  int
	maxReviews int
	pause      time.Duration
	timeout    time.Duration
}

func NewFilter(source PageSource, cfg config.Scraper) *Filter {
	if cfg.MaxStores <= 0 {
		cfg.MaxStores = 20
	}
	if cfg.MaxReviews <= 0 {
		cfg.MaxReviews = 10
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = defaultPageTimeout
	}

	return &Filter{
		source:     source,
		terms:      cfg.DetailTerms,
		maxStores:  cfg.MaxStores,
		maxReviews: cfg.MaxReviews,
		pause:      cfg.StorePause,
		timeout:    cfg.PageTimeout,
	}
}

// FilterByDetail scrapes the detail pages of the first stores, one at a
// time, and keeps the ones whose reviews or menu mention a detail term.
// When nothing matches the input is returned as is.
func (f *Filter) FilterByDetail(ctx context.Context, stores []store.Store) []store.Store {
	candidates := stores
	if len(candidates) > f.maxStores {
		candidates = candidates[:f.maxStores]
	}

	matched := []store.Store{}
	visited := 0

	for _, s := range candidates {
		link := utils.NormalizeLink(s.Link)
		if link == "" {
			continue
		}

		if visited > 0 && !sleep(ctx, f.pause) {
			break
		}
		visited++

		found := f.scrape(ctx, link)
		if !found.Matches(f.terms) {
			continue
		}

		log.Debug().
			Str("store", s.Name).
			Int("reviews", len(found.Reviews)).
			Int("menus", len(found.Menus)).
			Msg("Detail page matched")

		matched = append(matched, s.WithDetail(len(found.Reviews), len(found.Menus)))
	}

	log.Info().
		Int("candidates", len(candidates)).
		Int("visited", visited).
		Int("matched", len(matched)).
		Msg("Detail filter finished")

	if len(matched) == 0 {
		return stores
	}

	return matched
}

// scrape never fails; an unreachable page has nothing in it.
func (f *Filter) scrape(ctx context.Context, link string) Extraction {
	pageCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	html, err := f.source.Fetch(pageCtx, link)
	if err != nil {
		log.Warn().Err(err).Str("host", utils.URLToHostname(link)).Msg("Could not load detail page, treating as empty")
		metrics.ObserveScrape("error")
		return Extraction{}
	}

	found, err := Extract(strings.NewReader(html), f.maxReviews)
	if err != nil {
		log.Warn().Err(err).Str("link", link).Msg("Could not parse detail page, treating as empty")
		metrics.ObserveScrape("error")
		return Extraction{}
	}

	metrics.ObserveScrape("ok")
	return found
}

// sleep waits for d or until ctx is done, reporting whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
