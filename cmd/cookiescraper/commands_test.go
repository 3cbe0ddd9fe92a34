package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheesesashimi/cookiescraper/pkg/config"
	"github.com/cheesesashimi/cookiescraper/pkg/geo"
	"github.com/cheesesashimi/cookiescraper/pkg/scraper"
	"github.com/cheesesashimi/cookiescraper/pkg/search"
	"github.com/cheesesashimi/cookiescraper/pkg/store"
)

func sampleResult() *search.Result {
	origin := &geo.Point{Lat: 37.5665, Lng: 126.978}
	stores := store.NormalizeAll(store.RawListings{
		{Title: "<b>두쫀쿠</b> 본점", Address: "서울 1", Telephone: "02-1", MapX: 1269780000, MapY: 375665000},
		{Title: "쿠키집", Address: "서울 2", RoadAddress: "서울 2로", MapX: 1270080000, MapY: 375665000},
	})
	stores[1] = stores[1].WithDetail(4, 2)

	return &search.Result{
		Stores: search.Rank(stores, origin),
		Method: search.MethodLocationBased,
		Origin: origin,
	}
}

func TestFormatLine(t *testing.T) {
	res := sampleResult()

	assert.Equal(t, "1. ⭐ 두쫀쿠 본점 (0m) - 서울 1 - 02-1", formatLine(0, res.Stores[0], true))
	assert.Equal(t, "2. ⭐ 쿠키집 (2.6km) - 서울 2로 [reviews: 4, menu: 2]", formatLine(1, res.Stores[1], true))

	plain := search.Ranked{Store: store.Normalize(store.RawListing{Title: "빵", Address: "부산"})}
	assert.Equal(t, "4. 빵 - 부산", formatLine(3, plain, false))
}

func TestExportToDisk(t *testing.T) {
	dir := t.TempDir()
	res := sampleResult()

	require.NoError(t, renderToDisk(dir, "두쫀쿠", "두쫀쿠", res))
	require.NoError(t, jsonToDisk(dir, "두쫀쿠", res))

	page, err := os.ReadFile(filepath.Join(dir, "index-두쫀쿠.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "두쫀쿠 본점")

	raw, err := os.ReadFile(filepath.Join(dir, "data-두쫀쿠.json"))
	require.NoError(t, err)

	var decoded struct {
		Stores []struct {
			Name          string  `json:"name"`
			Distance      float64 `json:"distance"`
			DetailedMatch bool    `json:"detailedMatch"`
		} `json:"stores"`
		Method string `json:"method"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, search.MethodLocationBased, decoded.Method)
	require.Len(t, decoded.Stores, 2)
	assert.True(t, decoded.Stores[1].DetailedMatch)
}

func TestExportToMissingDir(t *testing.T) {
	err := renderToDisk(filepath.Join(t.TempDir(), "missing"), "x", "x", sampleResult())
	assert.Error(t, err)
}

func TestNewOrchestratorReleasesBrowser(t *testing.T) {
	cfg, err := config.Parse()
	require.NoError(t, err)

	cfg.Scraper.Engine = "http"
	_, release := newOrchestrator(cfg)
	release()

	cfg.Scraper.Engine = "chrome"
	_, release = newOrchestrator(cfg)
	release()

	b, ok := scraper.NewPageSource(cfg.Scraper).(*scraper.Browser)
	require.True(t, ok)
	b.Close()
}
