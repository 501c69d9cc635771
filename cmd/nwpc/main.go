// Command nwpc drives one consume or archive run, or prints registry
// metadata, against the provider selected by the MODEL environment
// variable. Grounded on the teacher's cli/commands package: one urfave/cli
// app, one subcommand per operator action, flags validated in Action
// rather than in a separate parse pass.
/*
 * Copyright (c) 2024, nwp-consumer contributors. All rights reserved.
 */
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/golang/glog"
	"github.com/urfave/cli"

	"github.com/nwp-consumer/core/config"
	"github.com/nwp-consumer/core/engine"
	"github.com/nwp-consumer/core/models"
	"github.com/nwp-consumer/core/notify"
	"github.com/nwp-consumer/core/parameter"
	"github.com/nwp-consumer/core/raw"
	"github.com/nwp-consumer/core/raw/archiveapi"
	"github.com/nwp-consumer/core/raw/cloudobj"
	"github.com/nwp-consumer/core/raw/extdecode"
)

func main() {
	app := cli.NewApp()
	app.Name = "nwpc"
	app.Usage = "fetch, decode and store numerical weather prediction output"
	app.Commands = []cli.Command{
		consumeCommand,
		archiveCommand,
		infoCommand,
	}

	if err := app.Run(os.Args); err != nil {
		glog.Errorf("nwpc: %v", err)
		os.Exit(1)
	}
}

var consumeCommand = cli.Command{
	Name:  "consume",
	Usage: "fetch and store a single init-time",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "init-time", Usage: "YYYY-MM-DDTHH, defaults to the provider's latest available init-time"},
	},
	Action: func(c *cli.Context) error {
		repo, env, err := buildRepository()
		if err != nil {
			return err
		}

		var it *time.Time
		if v := c.String("init-time"); v != "" {
			t, err := time.Parse("2006-01-02T15", v)
			if err != nil {
				return cli.NewExitError(fmt.Sprintf("invalid --init-time %q: %v", v, err), 1)
			}
			t = t.UTC()
			it = &t
		}

		sink := defaultSink()
		path, err := engine.Consume(context.Background(), repo, env.StoreDir, it, sink)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		fmt.Println(path)
		return nil
	},
}

var archiveCommand = cli.Command{
	Name:  "archive",
	Usage: "fill in every missing init-time in one calendar month",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "year", Usage: "calendar year, UTC"},
		cli.IntFlag{Name: "month", Usage: "calendar month, 1-12"},
	},
	Action: func(c *cli.Context) error {
		year, month := c.Int("year"), c.Int("month")
		if year == 0 || month < 1 || month > 12 {
			return cli.NewExitError("--year and --month (1-12) are required", 1)
		}

		repo, env, err := buildRepository()
		if err != nil {
			return err
		}

		sink := defaultSink()
		path, err := engine.Archive(context.Background(), repo, env.StoreDir, year, month, sink)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		fmt.Println(path)
		return nil
	},
}

var infoCommand = cli.Command{
	Name:  "info",
	Usage: "print registered model or parameter metadata",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "model", Usage: "print the selected model's static descriptor"},
		cli.BoolFlag{Name: "parameters", Usage: "print every canonical parameter name"},
	},
	Action: func(c *cli.Context) error {
		switch {
		case c.Bool("parameters"):
			names := parameter.All()
			sort.Strings(names)
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		case c.Bool("model"):
			name := os.Getenv("MODEL")
			if name == "" {
				name = "default"
			}
			entry, ok := models.Lookup(name)
			if !ok {
				return cli.NewExitError(fmt.Sprintf("unregistered model %q, known: %v", name, models.Names()), 1)
			}
			fmt.Printf("name: %s\n", entry.Model.Name)
			fmt.Printf("adaptor: %s\n", entry.Kind)
			fmt.Printf("running_hours: %v\n", entry.Model.RunningHours)
			fmt.Printf("delay_minutes: %d\n", entry.Model.DelayMinutes)
			fmt.Printf("max_connections: %d\n", entry.Model.MaxConnections)
			fmt.Printf("variables: %v\n", entry.Model.ExpectedCoordinates.Variable)
			return nil
		default:
			return cli.NewExitError("one of --model or --parameters is required", 1)
		}
	},
}

// buildRepository resolves the configured model into a concrete
// raw.Repository, dispatching to the adaptor its registry entry names.
func buildRepository() (raw.Repository, *config.Env, error) {
	name := os.Getenv("MODEL")
	if name == "" {
		name = "default"
	}
	entry, ok := models.Lookup(name)
	if !ok {
		return nil, nil, cli.NewExitError(fmt.Sprintf("unregistered model %q, known: %v", name, models.Names()), 1)
	}

	env, err := config.FromEnv(entry.Model)
	if err != nil {
		return nil, nil, cli.NewExitError(err.Error(), 1)
	}
	config.SetGlobal(env)

	decode := extdecode.New(env.Provider["DECODER_BIN"])

	switch entry.Kind {
	case models.KindCloudObj:
		return cloudobj.New(entry.Model, env.RawDir, env.Provider, decode), env, nil
	case models.KindArchiveAPI:
		lister := archiveapi.HTTPManifestLister(nil, env.Provider["MANIFEST_URL"])
		return archiveapi.New(entry.Model, env.RawDir, env.Provider, decode, lister), env, nil
	default:
		return nil, nil, cli.NewExitError(fmt.Sprintf("unknown adaptor kind %q for model %q", entry.Kind, name), 1)
	}
}

func defaultSink() notify.Sink {
	if url := os.Getenv("NOTIFY_WEBHOOK_URL"); url != "" {
		return &notify.Webhook{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
	}
	return &notify.Stdout{}
}
