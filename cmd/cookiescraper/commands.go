package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/cheesesashimi/cookiescraper/pkg/config"
	"github.com/cheesesashimi/cookiescraper/pkg/geo"
	"github.com/cheesesashimi/cookiescraper/pkg/html"
	"github.com/cheesesashimi/cookiescraper/pkg/provider"
	"github.com/cheesesashimi/cookiescraper/pkg/scraper"
	"github.com/cheesesashimi/cookiescraper/pkg/search"
	"github.com/cheesesashimi/cookiescraper/pkg/server"
	"github.com/cheesesashimi/cookiescraper/pkg/utils"
)

// newOrchestrator wires the provider and the detail scraper. The returned
// func releases the browser, if one was started.
func newOrchestrator(cfg *config.Config) (*search.Orchestrator, func()) {
	source := scraper.NewPageSource(cfg.Scraper)
	filter := scraper.NewFilter(source, cfg.Scraper)
	orchestrator := search.NewOrchestrator(provider.NewClient(cfg.Provider), filter, cfg.Search)

	release := func() {
		if closer, ok := source.(interface{ Close() }); ok {
			closer.Close()
		}
	}

	return orchestrator, release
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "keyword",
			Aliases: []string{"k"},
			Usage:   "what to look for, defaults to DEFAULT_KEYWORD",
		},
		&cli.Float64Flag{
			Name:  "lat",
			Usage: "latitude of the reference point",
		},
		&cli.Float64Flag{
			Name:  "lng",
			Usage: "longitude of the reference point",
		},
		&cli.BoolFlag{
			Name:  "detailed",
			Usage: "confirm stores by scraping their detail pages",
		},
	}
}

type searchArgs struct {
	keyword  string
	location *geo.Point
	detailed bool
}

func parseSearchArgs(c *cli.Context, cfg *config.Config) searchArgs {
	args := searchArgs{
		keyword:  c.String("keyword"),
		detailed: c.Bool("detailed"),
	}

	if args.keyword == "" {
		args.keyword = cfg.Search.DefaultKeyword
	}

	if c.IsSet("lat") && c.IsSet("lng") {
		args.location = &geo.Point{Lat: c.Float64("lat"), Lng: c.Float64("lng")}
	}

	return args
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the map page and search API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "port to listen on, overrides PORT",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}

			orchestrator, release := newOrchestrator(cfg)
			defer release()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(orchestrator, cfg).Run(ctx)
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "run one search and print the stores",
		Flags: searchFlags(),
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			args := parseSearchArgs(c, cfg)

			orchestrator, release := newOrchestrator(cfg)
			defer release()

			res, err := orchestrator.Search(c.Context, args.keyword, args.location, args.detailed)
			if err != nil {
				return err
			}

			printResult(res)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	flags := append(searchFlags(), &cli.StringFlag{
		Name:  "out-dir",
		Value: ".",
		Usage: "directory to write the HTML listing and JSON dump to",
	})

	return &cli.Command{
		Name:  "export",
		Usage: "run one search and write the results to disk",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			args := parseSearchArgs(c, cfg)

			orchestrator, release := newOrchestrator(cfg)
			defer release()

			res, err := orchestrator.Search(c.Context, args.keyword, args.location, args.detailed)
			if err != nil {
				return err
			}

			slug := utils.Slug(args.keyword)
			if err := renderToDisk(c.String("out-dir"), slug, args.keyword, res); err != nil {
				return err
			}

			return jsonToDisk(c.String("out-dir"), slug, res)
		},
	}
}

func printResult(res *search.Result) {
	if len(res.Stores) == 0 {
		fmt.Println("검색 결과가 없습니다.")
		return
	}

	fmt.Printf("%d stores (%s)\n", len(res.Stores), res.Method)
	for i, s := range res.Stores {
		fmt.Println(formatLine(i, s, res.Origin != nil))
	}
}

func formatLine(i int, s search.Ranked, hasOrigin bool) string {
	line := fmt.Sprintf("%d.", i+1)
	if i < 3 && hasOrigin {
		line += " ⭐"
	}

	line += " " + s.Name
	if s.Distance != nil {
		line += " (" + geo.FormatDistance(*s.Distance) + ")"
	}

	line += " - " + s.DisplayAddress()
	if s.HasPhone() {
		line += " - " + s.Phone
	}

	if s.DetailedMatch {
		line += fmt.Sprintf(" [reviews: %d, menu: %d]", s.ReviewCount, s.MenuCount)
	}

	return line
}

func renderToDisk(dir, slug, keyword string, res *search.Result) error {
	filename := filepath.Join(dir, fmt.Sprintf("index-%s.html", slug))
	log.Info().Str("file", filename).Msg("Rendering stores page")

	page := html.StoresPage(keyword, res)
	if err := os.WriteFile(filename, []byte(page), 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", filename, err)
	}

	return nil
}

func jsonToDisk(dir, slug string, res *search.Result) error {
	filename := filepath.Join(dir, fmt.Sprintf("data-%s.json", slug))
	log.Info().Str("file", filename).Msg("Dumping JSON")

	outBytes, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode result: %w", err)
	}

	if err := os.WriteFile(filename, outBytes, 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", filename, err)
	}

	return nil
}
