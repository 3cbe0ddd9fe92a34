package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/cheesesashimi/cookiescraper/pkg/config"
	"github.com/cheesesashimi/cookiescraper/pkg/logging"
)

func main() {
	app := &cli.App{
		Name:     "cookiescraper",
		Usage:    "find stores selling a dessert near you",
		Metadata: map[string]interface{}{},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logging.Setup(cfg.LogLevel, cfg.LogFormat)
			c.App.Metadata["config"] = cfg
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			searchCommand(),
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("cookiescraper failed")
	}
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}
