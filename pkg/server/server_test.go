package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheesesashimi/cookiescraper/pkg/config"
	"github.com/cheesesashimi/cookiescraper/pkg/geo"
	"github.com/cheesesashimi/cookiescraper/pkg/provider"
	"github.com/cheesesashimi/cookiescraper/pkg/search"
)

// fakeNaver answers local search queries from canned items per query.
func fakeNaver(t *testing.T, items map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := items[r.URL.Query().Get("query")]
		if !ok {
			body = ""
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"total":0,"start":1,"display":50,"items":[%s]}`, body)
	}))
}

func item(title, category, address string, mapx, mapy int64) string {
	return fmt.Sprintf(`{"title":%q,"category":%q,"address":%q,"roadAddress":"","mapx":"%d","mapy":"%d","telephone":"","link":""}`,
		title, category, address, mapx, mapy)
}

func testConfig(providerURL string) *config.Config {
	return &config.Config{
		GinMode: gin.TestMode,
		Provider: config.Provider{
			URL:     providerURL,
			Display: 50,
			Sort:    "random",
			Timeout: 5 * time.Second,
		},
		Search: config.Search{
			DefaultKeyword:  "두바이쫀득쿠키",
			Categories:      []string{"카페", "디저트", "베이커리", "쿠키", "디저트카페"},
			KeywordVariants: []string{"두바이쫀득쿠키", "두바이 쫀득쿠키", "두바이쫀득", "두쫀쿠", "두바이 쿠키", "dubai cookie"},
		},
		Map: config.Map{CenterLat: 37.5665, CenterLng: 126.978, Zoom: 12, MinZoom: 7, MaxZoom: 18, Padding: 50},
	}
}

func newTestServer(t *testing.T, items map[string]string) (*Server, func()) {
	naver := fakeNaver(t, items)
	cfg := testConfig(naver.URL)
	orchestrator := search.NewOrchestrator(provider.NewClient(cfg.Provider), nil, cfg.Search)

	return New(orchestrator, cfg), naver.Close
}

type storeJSON struct {
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Distance *float64 `json:"distance"`
}

type responseJSON struct {
	Success        bool        `json:"success"`
	Count          int         `json:"count"`
	Stores         []storeJSON `json:"stores"`
	Method         string      `json:"method"`
	DetailedSearch bool        `json:"detailedSearch"`
	View           struct {
		Markers []struct {
			Label   string `json:"label"`
			Starred bool   `json:"starred"`
		} `json:"markers"`
	} `json:"view"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

func get(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, responseJSON) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	s.Handler().ServeHTTP(rec, req)

	var body responseJSON
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}

	return rec, body
}

func TestSearchStoresKeywordOnly(t *testing.T) {
	s, done := newTestServer(t, map[string]string{
		"두바이쫀득쿠키": strings.Join([]string{
			item("<b>두바이쫀득쿠키</b> 본점", "디저트", "서울 A", 1269780000, 375665000),
			item("<b>두바이</b> <b>쫀득쿠키</b> 2호점", "카페", "서울 B", 1270000000, 375000000),
		}, ","),
	})
	defer done()

	rec, body := get(t, s, "/api/search-stores?keyword="+url.QueryEscape("두바이쫀득쿠키"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, search.MethodKeywordOnly, body.Method)
	assert.Equal(t, 2, body.Count)
	assert.False(t, body.DetailedSearch)

	for _, st := range body.Stores {
		assert.NotContains(t, st.Name, "<b>")
		assert.NotContains(t, st.Name, "</b>")
		assert.Equal(t, "전화번호 없음", st.Phone)
		assert.Nil(t, st.Distance)
	}

	require.Len(t, body.View.Markers, 2)
	assert.Equal(t, "1", body.View.Markers[0].Label)
	assert.False(t, body.View.Markers[0].Starred)
}

func TestSearchStoresDefaultsKeyword(t *testing.T) {
	s, done := newTestServer(t, map[string]string{
		"두바이쫀득쿠키": item("쿠키가게", "디저트", "서울", 1269780000, 375665000),
	})
	defer done()

	_, body := get(t, s, "/api/search-stores")
	assert.Equal(t, 1, body.Count)
}

func TestSearchStoresLocationBased(t *testing.T) {
	s, done := newTestServer(t, map[string]string{
		"두바이쫀득쿠키": strings.Join([]string{
			item("두바이쫀득쿠키 강남", "디저트", "서울 강남", 1270280000, 374980000),
			item("두바이쫀득쿠키 부산", "디저트", "부산", 1290750000, 351796000),
		}, ","),
		"카페": strings.Join([]string{
			item("두쫀쿠 카페", "카페", "서울 성동", 1270100000, 375010000),
			item("그냥 카페", "카페", "서울 성동", 1270100000, 375010000),
		}, ","),
		"디저트": item("디저트랩", "두바이쫀득쿠키 전문점", "서울 마포", 1269200000, 375500000),
	})
	defer done()

	rec, body := get(t, s, "/api/search-stores?keyword="+url.QueryEscape("두바이쫀득쿠키")+"&lat=37.5&lng=127.0")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, search.MethodLocationBased, body.Method)
	require.Equal(t, 4, body.Count)

	for i, st := range body.Stores {
		require.NotNil(t, st.Distance, st.Name)
		if i > 0 {
			assert.LessOrEqual(t, *body.Stores[i-1].Distance, *st.Distance)
		}
	}
	assert.Equal(t, "두바이쫀득쿠키 부산", body.Stores[3].Name)

	assert.True(t, body.View.Markers[0].Starred)
	assert.True(t, body.View.Markers[2].Starred)
	assert.False(t, body.View.Markers[3].Starred)
}

func TestSearchStoresIgnoresPartialLocation(t *testing.T) {
	s, done := newTestServer(t, map[string]string{
		"쿠키": item("쿠키가게", "디저트", "서울", 1269780000, 375665000),
	})
	defer done()

	_, body := get(t, s, "/api/search-stores?keyword=%EC%BF%A0%ED%82%A4&lat=37.5&lng=abc")
	assert.Equal(t, search.MethodKeywordOnly, body.Method)

	_, body = get(t, s, "/api/search-stores?keyword=%EC%BF%A0%ED%82%A4&lat=NaN&lng=127")
	assert.Equal(t, search.MethodKeywordOnly, body.Method)
}

func TestSearchStoresProviderError(t *testing.T) {
	naver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errorMessage":"Authentication failed","errorCode":"024"}`))
	}))
	defer naver.Close()

	cfg := testConfig(naver.URL)
	s := New(search.NewOrchestrator(provider.NewClient(cfg.Provider), nil, cfg.Search), cfg)

	rec, body := get(t, s, "/api/search-stores?keyword=x")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, searchFailedMessage, body.Error)
	assert.JSONEq(t, `{"errorMessage":"Authentication failed","errorCode":"024"}`, string(body.Details))
}

type fakeSearcher struct {
	mu       sync.Mutex
	err      error
	location *geo.Point
	detailed bool
}

func (f *fakeSearcher) Search(_ context.Context, keyword string, location *geo.Point, detailed bool) (*search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.location = location
	f.detailed = detailed
	if f.err != nil {
		return nil, f.err
	}

	return &search.Result{Stores: []search.Ranked{}, Method: search.MethodKeywordOnly, Detailed: detailed}, nil
}

func TestSearchStoresPassesFlags(t *testing.T) {
	f := &fakeSearcher{}
	s := New(f, testConfig(""))

	_, body := get(t, s, "/api/search-stores?keyword=x&detailed=true&lat=37.1&lng=127.2")
	assert.True(t, body.DetailedSearch)
	assert.True(t, f.detailed)
	assert.Equal(t, &geo.Point{Lat: 37.1, Lng: 127.2}, f.location)
	assert.Equal(t, 0, body.Count)
	assert.NotNil(t, body.Stores)

	get(t, s, "/api/search-stores?keyword=x&detailed=yes")
	assert.False(t, f.detailed)
}

func TestSearchStoresPlainError(t *testing.T) {
	s := New(&fakeSearcher{err: errors.New("boom")}, testConfig(""))

	rec, body := get(t, s, "/api/search-stores?keyword=x")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, `"boom"`, string(body.Details))
}

func TestIndexAndAssets(t *testing.T) {
	s := New(&fakeSearcher{}, testConfig(""))

	rec, _ := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="app-config"`)
	assert.Contains(t, rec.Body.String(), scriptPath)

	rec, _ = get(t, s, scriptPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "getCurrentPosition")

	rec, _ = get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
