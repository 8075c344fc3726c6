package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/productgraph/pgsched/fsproj"
	"github.com/productgraph/pgsched/graph"
	"github.com/productgraph/pgsched/pathglob"
	"github.com/productgraph/pgsched/process"
	"github.com/productgraph/pgsched/registry"
	"github.com/productgraph/pgsched/scheduler"
)

var visualizeCmd = &cobra.Command{
	Use:   "visualize",
	Short: "resolve a glob and print the product graph as Graphviz DOT",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.New()
		tree, err := fsproj.New(buildRoot)
		if err != nil {
			return err
		}
		if err := pathglob.RegisterIntrinsics(reg, tree); err != nil {
			return err
		}

		pg, err := pathglob.CreatePathGlobs(relativeTo, globs)
		if err != nil {
			return err
		}

		cfg := config()
		sched := scheduler.New(reg, process.NewLocalPool(cfg.PoolSize), cfg)

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		root := sched.Graph().Demand(pg, "pathglob.Paths", nil)
		_, err = sched.Schedule(ctx, scheduler.ExecutionRequest{
			Roots: []scheduler.Root{{Subject: pg, Product: "pathglob.Paths"}},
		})
		if err != nil {
			return err
		}

		fmt.Print(sched.Visualize([]graph.NodeID{root}))
		return nil
	},
}

func init() {
	visualizeCmd.Flags().StringSliceVarP(&globs, "glob", "g", nil, "path glob pattern (repeatable)")
	visualizeCmd.Flags().StringVar(&relativeTo, "relative-to", "", "directory the globs are relative to, within the build root")
	visualizeCmd.Flags().IntVar(&poolSize, "pool-size", 0, "LocalPool goroutine bound (0 = GOMAXPROCS)")
	visualizeCmd.MarkFlagRequired("glob")
}
