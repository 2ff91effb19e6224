package main

import (
	"fmt"
	"log"
	"os"

	sitecli "github.com/go-barry/teamsite/cli"
	clilib "github.com/urfave/cli/v2"
)

func newApp() *clilib.App {
	return &clilib.App{
		Name:  "teamsite",
		Usage: "Company website: home, team, contact and careers pages",
		Commands: []*clilib.Command{
			sitecli.InitCommand,
			sitecli.DevCommand,
			sitecli.ProdCommand,
			sitecli.CleanCommand,
			sitecli.CheckCommand,
			sitecli.InfoCommand,
		},
		// Without a command the site is served in dev mode.
		Flags: sitecli.DevCommand.Flags,
		Action: func(c *clilib.Context) error {
			if c.Args().Present() {
				return clilib.Exit(fmt.Sprintf("unknown command %q", c.Args().First()), 3)
			}
			return sitecli.DevCommand.Action(c)
		},
	}
}

func runApp(args []string) error {
	return newApp().Run(args)
}

func main() {
	if err := runApp(os.Args); err != nil {
		log.Fatal(err)
	}
}
