// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/kerncheck/internal/device"
)

func adaptersCmd() *cli.Command {
	return &cli.Command{
		Name:  "adapters",
		Usage: "Enumerate available compute adapters",
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx
			adapters, err := device.ListAdapters()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(adapters) == 0 {
				fmt.Println("no adapters available")
				return nil
			}
			for i, a := range adapters {
				fmt.Printf("%d: %s (%s)\n", i, a.Device, a.Vendor)
			}
			return nil
		},
	}
}
