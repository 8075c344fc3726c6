// Command pgsched is the CLI front end for the product-graph scheduler:
// it resolves path-glob patterns against a build root, the one concrete
// domain this module wires end to end for the intrinsic rule set.
//
// Grounded on codenerd's cmd/nerd/main.go: a cobra rootCmd carrying
// persistent flags, a PersistentPreRunE building a zap logger gated by
// --verbose, and leaf commands split across files.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/productgraph/pgsched/rlog"
	"github.com/productgraph/pgsched/types"
)

var (
	verbose   bool
	buildRoot string
	timeout   time.Duration

	logger *rlog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pgsched",
	Short: "pgsched resolves demand-driven product graphs against a build root",
	Long: `pgsched is a demand-driven, memoizing scheduler: it resolves a
requested product (e.g. the matched files of a path glob) against a
build root by running only the rules needed to satisfy that demand.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = rlog.NewDevelopment()
		} else {
			logger, err = rlog.New()
		}
		if err != nil {
			return fmt.Errorf("pgsched: initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&buildRoot, "build-root", "r", ".", "build root path globs resolve against")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "scheduling timeout")

	rootCmd.AddCommand(validateCmd, runCmd, visualizeCmd)
}

func config() types.Config {
	return types.NewConfig(types.WithLogger(logger), types.WithPoolSize(poolSize))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
