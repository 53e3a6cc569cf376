// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/kerncheck/internal/harness"
)

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List catalog operations with their binding policy and error budget",
		Action: func(ctx context.Context, c *cli.Command) error {
			_ = ctx
			for _, op := range harness.Catalog() {
				fmt.Printf("%-16s %-17s abs=%-8g rel=%-8g max_mismatches=%d\n",
					op.Name, op.Mode, op.Tolerance.Abs, op.Tolerance.Rel, op.Tolerance.MaxMismatches)
			}
			return nil
		},
	}
}
