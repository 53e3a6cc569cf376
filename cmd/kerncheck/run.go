// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/kerncheck/internal/config"
	"github.com/born-ml/kerncheck/internal/harness"
	"github.com/born-ml/kerncheck/internal/logger"
)

func runCmd() *cli.Command {
	var (
		referenceOnly bool
		configPath    string
		jsonPath      string
		logLevel      string
		logFormat     string
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Run the full conformance suite and print a summary",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "reference-only", Usage: "skip device acquisition, run every case on the host reference", Destination: &referenceOnly},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML tolerance overrides", Destination: &configPath},
			&cli.StringFlag{Name: "json", Usage: "write the machine-readable report to this path", Destination: &jsonPath},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn, error", Value: "info", Destination: &logLevel},
			&cli.StringFlag{Name: "log-format", Usage: "console or json", Value: "console", Destination: &logFormat},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx
			log := logger.New(logLevel, logFormat)

			var cfg *config.Config
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				cfg = loaded
			}

			h, err := harness.New(harness.Options{
				ReferenceOnly: referenceOnly,
				Config:        cfg,
				Log:           log,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer h.Release()

			rep := harness.RunSuite(h)
			fmt.Printf("adapter: %s\n", rep.Adapter)
			fmt.Println(rep.Summary())

			if jsonPath != "" {
				f, err := os.Create(jsonPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: create report: %v", err), 1)
				}
				defer func() { _ = f.Close() }()
				if err := rep.WriteJSON(f); err != nil {
					return cli.Exit(fmt.Sprintf("error: write report: %v", err), 1)
				}
			}

			if !rep.Ok() {
				return cli.Exit("conformance failures", 1)
			}
			return nil
		},
	}
}
