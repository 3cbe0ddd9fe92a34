package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    int    `env:"PORT" envDefault:"3000"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	Provider Provider
	Search   Search
	Scraper  Scraper
	Map      Map
}

type Provider struct {
	URL          string        `env:"NAVER_SEARCH_URL" envDefault:"https://openapi.naver.com/v1/search/local.json"`
	ClientID     string        `env:"NAVER_CLIENT_ID"`
	ClientSecret string        `env:"NAVER_CLIENT_SECRET"`
	Display      int           `env:"NAVER_SEARCH_DISPLAY" envDefault:"50"`
	Sort         string        `env:"NAVER_SEARCH_SORT" envDefault:"random"`
	Timeout      time.Duration `env:"NAVER_SEARCH_TIMEOUT" envDefault:"10s"`
	// Client side ceiling shared by every request.
	RequestsPerSecond float64 `env:"NAVER_SEARCH_RPS" envDefault:"10"`
}

type Search struct {
	DefaultKeyword  string        `env:"DEFAULT_KEYWORD" envDefault:"두바이쫀득쿠키"`
	Categories      []string      `env:"NEARBY_CATEGORIES" envSeparator:"," envDefault:"카페,디저트,베이커리,쿠키,디저트카페"`
	KeywordVariants []string      `env:"KEYWORD_VARIANTS" envSeparator:"," envDefault:"두바이쫀득쿠키,두바이 쫀득쿠키,두바이쫀득,두쫀쿠,두바이 쿠키,dubai cookie"`
	CategoryPause   time.Duration `env:"CATEGORY_PAUSE" envDefault:"100ms"`
}

type Scraper struct {
	// Engine is either "chrome" or "http".
	Engine      string        `env:"SCRAPER_ENGINE" envDefault:"chrome"`
	ChromePath  string        `env:"CHROME_PATH"`
	Headless    bool          `env:"CHROME_HEADLESS" envDefault:"true"`
	UserAgent   string        `env:"SCRAPER_USER_AGENT" envDefault:"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.55 Safari/537.36"`
	PageTimeout time.Duration `env:"DETAIL_PAGE_TIMEOUT" envDefault:"10s"`
	StorePause  time.Duration `env:"DETAIL_STORE_PAUSE" envDefault:"500ms"`
	MaxStores   int           `env:"DETAIL_MAX_STORES" envDefault:"20"`
	MaxReviews  int           `env:"DETAIL_MAX_REVIEWS" envDefault:"10"`
	DetailTerms []string      `env:"DETAIL_TERMS" envSeparator:"," envDefault:"두바이쫀득쿠키,두바이 쿠키,두쫀쿠,dubai cookie"`
}

type Map struct {
	ClientID  string  `env:"NAVER_MAP_CLIENT_ID"`
	CenterLat float64 `env:"MAP_CENTER_LAT" envDefault:"37.5665"`
	CenterLng float64 `env:"MAP_CENTER_LNG" envDefault:"126.9780"`
	Zoom      int     `env:"MAP_ZOOM" envDefault:"12"`
	MinZoom   int     `env:"MAP_MIN_ZOOM" envDefault:"7"`
	MaxZoom   int     `env:"MAP_MAX_ZOOM" envDefault:"18"`
	Padding   int     `env:"MAP_FIT_PADDING" envDefault:"50"`
}

// Load reads the optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("could not load .env: %w", err)
	}

	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.Scraper.Engine = strings.ToLower(strings.TrimSpace(cfg.Scraper.Engine))

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Map.MinZoom > c.Map.MaxZoom {
		return fmt.Errorf("map min zoom %d is above max zoom %d", c.Map.MinZoom, c.Map.MaxZoom)
	}

	switch c.Scraper.Engine {
	case "chrome", "http":
	default:
		return fmt.Errorf("unknown scraper engine %q", c.Scraper.Engine)
	}

	if c.Provider.Display <= 0 {
		return fmt.Errorf("provider display must be positive, got %d", c.Provider.Display)
	}

	return nil
}
