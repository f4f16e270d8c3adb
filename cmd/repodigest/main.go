package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newApp().Run(ctx, os.Args)
}

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "path to an env file",
		Value: ".env",
	}
}

func urlFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "url",
		Usage:    "GitHub repository URL",
		Required: true,
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "repodigest",
		Usage: "fetch a GitHub repository and flatten its files into one summary",
		Commands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "download a repository into the local cache and summarize it",
				Flags: []cli.Flag{
					envFlag(),
					urlFlag(),
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "archive, tree or clone (defaults to REPO_STRATEGY)",
					},
					&cli.StringFlag{
						Name:  "branch",
						Usage: "branch to fetch (defaults to REPO_BRANCH)",
					},
					&cli.BoolFlag{
						Name:  "delete-after",
						Usage: "remove the extracted tree once summarized",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "show a download progress bar",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "print the summary as JSON",
					},
				},
				Action: fetchAction,
			},
			{
				Name:  "walk",
				Usage: "list and download every file through the contents API",
				Flags: []cli.Flag{
					envFlag(),
					urlFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "print the summary as JSON",
					},
				},
				Action: walkAction,
			},
			{
				Name:  "batch",
				Usage: "add every repository listed in a YAML file, one at a time",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "YAML file with a repositories list",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "without-deps",
						Usage: "leave dependency manifests out of the counts",
					},
				},
				Action: batchAction,
			},
			{
				Name:  "inspect",
				Usage: "show language breakdown and token estimate of a repository",
				Flags: []cli.Flag{
					envFlag(),
					urlFlag(),
					&cli.BoolFlag{
						Name:  "no-tokens",
						Usage: "skip the token estimate",
					},
				},
				Action: inspectAction,
			},
			{
				Name:  "info",
				Usage: "show visibility and default branch of a repository",
				Flags: []cli.Flag{
					envFlag(),
					urlFlag(),
				},
				Action: infoAction,
			},
		},
	}
}
