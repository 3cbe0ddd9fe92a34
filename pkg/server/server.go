package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/cheesesashimi/cookiescraper/pkg/config"
	"github.com/cheesesashimi/cookiescraper/pkg/geo"
	"github.com/cheesesashimi/cookiescraper/pkg/html"
	"github.com/cheesesashimi/cookiescraper/pkg/metrics"
	"github.com/cheesesashimi/cookiescraper/pkg/provider"
	"github.com/cheesesashimi/cookiescraper/pkg/search"
	"github.com/cheesesashimi/cookiescraper/pkg/view"
)

const (
	searchPath string = "/api/search-stores"
	scriptPath string = "/static/app.js"

	searchFailedMessage string = "매장 검색에 실패했습니다."
)

//go:embed static/app.js
var appScript []byte

type Searcher interface {
	Search(ctx context.Context, keyword string, location *geo.Point, detailed bool) (*search.Result, error)
}

type searchResponse struct {
	Success        bool            `json:"success"`
	Count          int             `json:"count"`
	Stores         []search.Ranked `json:"stores"`
	Method         string          `json:"method"`
	DetailedSearch bool            `json:"detailedSearch"`
	View           view.State      `json:"view"`
}

type errorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Details interface{} `json:"details"`
}

type Server struct {
	searcher       Searcher
	cfg            *config.Config
	defaultKeyword string
	engine         *gin.Engine
}

func New(searcher Searcher, cfg *config.Config) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	s := &Server{
		searcher:       searcher,
		cfg:            cfg,
		defaultKeyword: cfg.Search.DefaultKeyword,
		engine:         gin.New(),
	}

	s.engine.Use(gin.Recovery(), requestLogger())

	s.engine.GET("/", s.index)
	s.engine.GET(scriptPath, s.script)
	s.engine.GET(searchPath, s.searchStores)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", s.cfg.Port).Msgf("Listening on http://localhost:%d", s.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Info().Msg("Shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) index(c *gin.Context) {
	page, err := html.IndexPage(s.cfg.Map.ClientID, scriptPath, html.PageConfig{
		DefaultKeyword:      s.defaultKeyword,
		Map:                 view.NewMapOptions(s.cfg.Map),
		Geolocation:         view.DefaultGeolocationOptions(),
		GeolocationMessages: view.GeolocationMessages(),
		SearchEndpoint:      searchPath,
	})
	if err != nil {
		log.Error().Err(err).Msg("Could not render index page")
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (s *Server) script(c *gin.Context) {
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", appScript)
}

func (s *Server) searchStores(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		keyword = s.defaultKeyword
	}

	location := parseLocation(c.Query("lat"), c.Query("lng"))
	detailed := c.Query("detailed") == "true"

	res, err := s.searcher.Search(c.Request.Context(), keyword, location, detailed)
	if err != nil {
		log.Error().Err(err).Str("keyword", keyword).Msg("Search failed")
		c.JSON(http.StatusInternalServerError, errorResponse{
			Success: false,
			Error:   searchFailedMessage,
			Details: errorDetails(err),
		})
		return
	}

	c.JSON(http.StatusOK, searchResponse{
		Success:        true,
		Count:          len(res.Stores),
		Stores:         res.Stores,
		Method:         res.Method,
		DetailedSearch: res.Detailed,
		View:           view.Render(res, s.cfg.Map.Padding),
	})
}

// parseLocation only returns a point when both coordinates parse to finite
// numbers.
func parseLocation(lat, lng string) *geo.Point {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil || math.IsNaN(la) || math.IsInf(la, 0) {
		return nil
	}

	lo, err := strconv.ParseFloat(lng, 64)
	if err != nil || math.IsNaN(lo) || math.IsInf(lo, 0) {
		return nil
	}

	return &geo.Point{Lat: la, Lng: lo}
}

// errorDetails prefers the provider's own error payload.
func errorDetails(err error) interface{} {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) && apiErr.Payload != nil {
		return json.RawMessage(apiErr.Payload)
	}

	return err.Error()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("Request")
	}
}
