package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/cheesesashimi/cookiescraper/pkg/config"
	"github.com/cheesesashimi/cookiescraper/pkg/geo"
	"github.com/cheesesashimi/cookiescraper/pkg/metrics"
	"github.com/cheesesashimi/cookiescraper/pkg/provider"
	"github.com/cheesesashimi/cookiescraper/pkg/store"
)

const (
	MethodLocationBased string = "location-based"
	MethodKeywordOnly   string = "keyword-only"
)

// DetailFilter narrows stores down using their detail pages.
type DetailFilter interface {
	FilterByDetail(ctx context.Context, stores []store.Store) []store.Store
}

type Ranked struct {
	store.Store
	// Distance from the reference point in kilometers.
	Distance *float64 `json:"distance,omitempty"`
}

type Result struct {
	Stores   []Ranked   `json:"stores"`
	Method   string     `json:"method"`
	Detailed bool       `json:"detailedSearch"`
	Origin   *geo.Point `json:"origin,omitempty"`
}

type Orchestrator struct {
	provider   provider.Searcher
	detail     DetailFilter
	categories []string
	variants   []string
	pause      time.Duration
}

func NewOrchestrator(p provider.Searcher, detail DetailFilter, cfg config.Search) *Orchestrator {
	return &Orchestrator{
		provider:   p,
		detail:     detail,
		categories: cfg.Categories,
		variants:   cfg.KeywordVariants,
		pause:      cfg.CategoryPause,
	}
}

// Search runs the keyword-only strategy without a location and the
// location-based strategy with one. Provider failures on the keyword query
// are returned, never retried.
func (o *Orchestrator) Search(ctx context.Context, keyword string, location *geo.Point, detailed bool) (*Result, error) {
	start := time.Now()
	method := MethodKeywordOnly
	if location != nil {
		method = MethodLocationBased
	}

	logger := log.With().Str("keyword", keyword).Str("method", method).Bool("detailed", detailed).Logger()
	logger.Info().Msg("Search started")

	var (
		listings store.RawListings
		err      error
	)

	if location == nil {
		listings, err = o.provider.Search(ctx, keyword)
	} else {
		listings, err = o.locationBased(ctx, keyword)
	}

	fail := func(err error) (*Result, error) {
		metrics.ObserveSearch(method, "error", time.Since(start))
		return nil, fmt.Errorf("could not search for %q: %w", keyword, err)
	}

	// A cancelled search has skipped categories or pages, so its partial
	// result is dropped.
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return fail(err)
	}

	stores := store.NormalizeAll(listings)

	if location != nil && detailed && o.detail != nil {
		stores = o.detail.FilterByDetail(ctx, stores)
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
	}

	result := &Result{
		Stores:   Rank(stores, location),
		Method:   method,
		Detailed: detailed,
		Origin:   location,
	}

	logger.Info().Int("count", len(result.Stores)).Dur("took", time.Since(start)).Msg("Search finished")
	metrics.ObserveSearch(method, "ok", time.Since(start))

	return result, nil
}

func (o *Orchestrator) locationBased(ctx context.Context, keyword string) (store.RawListings, error) {
	direct, err := o.provider.Search(ctx, keyword)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("count", len(direct)).Msg("Keyword results")

	nearby := o.nearby(ctx)
	log.Debug().Int("count", len(nearby)).Msg("Nearby category results")

	filtered := FilterByTerms(nearby, o.variants)
	log.Debug().Int("count", len(filtered)).Msg("Nearby results mentioning the keyword")

	return Union(direct, filtered), nil
}

// nearby queries every category in order, skipping the ones that fail. It
// stops early once ctx is done.
func (o *Orchestrator) nearby(ctx context.Context) store.RawListings {
	all := store.RawListings{}

	for i, category := range o.categories {
		pause := o.pause
		if i == 0 {
			pause = 0
		}
		if !sleep(ctx, pause) {
			break
		}

		items, err := o.provider.Search(ctx, category)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			log.Warn().Err(err).Str("category", category).Msg("Category search failed, skipping")
			continue
		}

		all = append(all, items...)
	}

	return DedupeByTitle(all)
}

// DedupeByTitle collapses listings with the same raw title. The last
// listing seen wins but it keeps the position of the first.
func DedupeByTitle(listings store.RawListings) store.RawListings {
	index := map[string]int{}
	out := store.RawListings{}

	for _, l := range listings {
		if i, ok := index[l.Title]; ok {
			out[i] = l
			continue
		}

		index[l.Title] = len(out)
		out = append(out, l)
	}

	return out
}

// FilterByTerms keeps listings whose stripped title, category or address
// mentions any of the terms, ignoring case.
func FilterByTerms(listings store.RawListings, terms []string) store.RawListings {
	lowered := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			lowered = append(lowered, term)
		}
	}

	out := store.RawListings{}
	for _, l := range listings {
		fields := []string{
			strings.ToLower(store.StripMarkup(l.Title)),
			strings.ToLower(l.Category),
			strings.ToLower(l.Address),
		}

		if containsAny(fields, lowered) {
			out = append(out, l)
		}
	}

	return out
}

func containsAny(fields, terms []string) bool {
	for _, term := range terms {
		for _, field := range fields {
			if strings.Contains(field, term) {
				return true
			}
		}
	}

	return false
}

// Union concatenates the listing groups and drops every listing whose key
// was already seen.
func Union(groups ...store.RawListings) store.RawListings {
	seen := sets.NewString()
	out := store.RawListings{}

	for _, group := range groups {
		for _, l := range group {
			key := l.Key()
			if seen.Has(key) {
				continue
			}

			seen.Insert(key)
			out = append(out, l)
		}
	}

	return out
}

// Rank attaches the distance from origin to every store and sorts nearest
// first. Without an origin the order is left alone.
func Rank(stores []store.Store, origin *geo.Point) []Ranked {
	out := make([]Ranked, 0, len(stores))

	for _, s := range stores {
		r := Ranked{Store: s}
		if origin != nil {
			d := geo.Haversine(*origin, geo.FromNative(int64(s.MapX), int64(s.MapY)))
			r.Distance = &d
		}
		out = append(out, r)
	}

	if origin != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return *out[i].Distance < *out[j].Distance
		})
	}

	return out
}

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
