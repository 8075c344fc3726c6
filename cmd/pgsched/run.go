package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/productgraph/pgsched/fsproj"
	"github.com/productgraph/pgsched/pathglob"
	"github.com/productgraph/pgsched/process"
	"github.com/productgraph/pgsched/registry"
	"github.com/productgraph/pgsched/scheduler"
	"github.com/productgraph/pgsched/types"
)

var (
	globs       []string
	relativeTo  string
	showContent bool
	poolSize    int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "resolve one or more path globs against the build root",
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

		product := "pathglob.Paths"
		if showContent {
			product = "pathglob.FilesContent"
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		results, err := sched.Schedule(ctx, scheduler.ExecutionRequest{
			Roots: []scheduler.Root{{Subject: pg, Product: types.ProductType(product)}},
		})
		if err != nil {
			return err
		}

		r := results[0]
		switch r.State {
		case types.Return:
			printResult(r.Value)
			return nil
		case types.Noop:
			return fmt.Errorf("pgsched: no match: %s", r.Noop)
		case types.Throw:
			return r.Err
		default:
			return fmt.Errorf("pgsched: unexpected terminal state %s", r.State)
		}
	},
}

func printResult(value any) {
	switch v := value.(type) {
	case pathglob.Paths:
		for _, p := range v.Paths {
			fmt.Printf("%s\t%s\n", p.Stat.Kind, p.SymbolicPath)
		}
	default:
		fmt.Printf("%v\n", v)
	}
}

func init() {
	runCmd.Flags().StringSliceVarP(&globs, "glob", "g", nil, "path glob pattern (repeatable)")
	runCmd.Flags().StringVar(&relativeTo, "relative-to", "", "directory the globs are relative to, within the build root")
	runCmd.Flags().BoolVar(&showContent, "content", false, "gather file content instead of just matching paths")
	runCmd.Flags().IntVar(&poolSize, "pool-size", 0, "LocalPool goroutine bound (0 = GOMAXPROCS)")
	runCmd.MarkFlagRequired("glob")
}
