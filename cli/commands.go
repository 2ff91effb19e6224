package cli

import (
	"github.com/go-barry/teamsite"
	"github.com/go-barry/teamsite/core"

	"github.com/urfave/cli/v2"
)

var configFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "path to the site config file",
	Value: teamsite.ConfigFile,
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		configFlag,
		&cli.StringFlag{
			Name:    "ip",
			Usage:   "address to bind",
			Value:   "0.0.0.0",
			EnvVars: []string{"IP"},
		},
		&cli.IntFlag{
			Name:    "port",
			Usage:   "port to bind",
			Value:   5000,
			EnvVars: []string{"PORT"},
		},
	}
}

func runtimeConfig(c *cli.Context, env string, debug bool) teamsite.RuntimeConfig {
	return teamsite.RuntimeConfig{
		Env:        env,
		Debug:      debug,
		Host:       c.String("ip"),
		Port:       c.Int("port"),
		ConfigPath: c.String("config"),
	}
}

func loadConfig(c *cli.Context) core.Config {
	path := c.String("config")
	if path == "" {
		path = teamsite.ConfigFile
	}
	return core.LoadConfig(path)
}

var DevCommand = &cli.Command{
	Name:  "dev",
	Usage: "Serve the site in debug mode (request logs, error detail, live reload)",
	Flags: serveFlags(),
	Action: func(c *cli.Context) error {
		return teamsite.Start(runtimeConfig(c, "dev", true))
	},
}

var ProdCommand = &cli.Command{
	Name:  "prod",
	Usage: "Serve the site with cached templates and minified output",
	Flags: serveFlags(),
	Action: func(c *cli.Context) error {
		return teamsite.Start(runtimeConfig(c, "prod", false))
	},
}
