// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/classit/metrics"
)

const metricsServerKey = "metrics-server"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	taxonomyFlag := &cli.StringFlag{
		Name:     "taxonomy",
		Aliases:  []string{"t"},
		Usage:    "Path to the taxonomy table (.csv, .tsv or .xlsx)",
		Required: true,
	}
	cacheFlag := &cli.StringFlag{
		Name:  "cache",
		Usage: "Path to the BadgerDB vector cache directory (overrides the config file)",
	}
	offlineFlag := &cli.BoolFlag{
		Name:  "offline",
		Usage: "Do not contact remote model services",
	}

	return &cli.App{
		Name:  "classit",
		Usage: "Classify company descriptions into a sector, industry and sub-industry taxonomy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (e.g. :9090)",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return startMetrics(c)
		},
		After: stopMetrics,
		Commands: []*cli.Command{
			{
				Name:   "classify",
				Usage:  "Classify one company description and print the result as JSON",
				Action: classifyCommand,
				Flags: []cli.Flag{
					taxonomyFlag,
					cacheFlag,
					offlineFlag,
					&cli.StringFlag{
						Name:  "company",
						Usage: "Company name reported in the result",
					},
					&cli.StringFlag{
						Name:  "text",
						Usage: "Company description",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read the company description from a file (- for stdin)",
					},
				},
			},
			{
				Name:   "batch",
				Usage:  "Classify JSON lines of {company, text, documents} concurrently",
				Action: batchCommand,
				Flags: []cli.Flag{
					taxonomyFlag,
					cacheFlag,
					offlineFlag,
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "JSON lines input file (- for stdin)",
						Value:   "-",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "JSON lines output file (- for stdout)",
						Value:   "-",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent classifications",
						Value: 4,
					},
				},
			},
			{
				Name:   "warm-cache",
				Usage:  "Embed every taxonomy label text into the vector cache",
				Action: warmCacheCommand,
				Flags: []cli.Flag{
					taxonomyFlag,
					&cli.StringFlag{
						Name:     "cache",
						Usage:    "Path to the BadgerDB vector cache directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of texts to embed in each request",
						Value: 64,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N texts",
						Value: 64,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "taxonomy",
				Usage:  "Load, validate and summarise a taxonomy table",
				Action: taxonomyCommand,
				Flags: []cli.Flag{
					taxonomyFlag,
					&cli.BoolFlag{
						Name:  "tree",
						Usage: "Print the full sector / industry / sub-industry tree",
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func startMetrics(c *cli.Context) error {
	addr := c.String("metrics-addr")
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[metricsServerKey] = server
	slog.Info("serving metrics", "addr", addr)
	return nil
}

func stopMetrics(c *cli.Context) error {
	server, ok := c.App.Metadata[metricsServerKey].(*http.Server)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
