package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/productgraph/pgsched/fsproj"
	"github.com/productgraph/pgsched/pathglob"
	"github.com/productgraph/pgsched/registry"
	"github.com/productgraph/pgsched/types"
	"github.com/productgraph/pgsched/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "statically check that the registered ruleset can satisfy its goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.New()
		tree, err := fsproj.New(buildRoot)
		if err != nil {
			return err
		}
		if err := pathglob.RegisterIntrinsics(reg, tree); err != nil {
			return err
		}

		// Only PathWildcard's route to Paths is fully concrete end to
		// end; PathLiteral/PathDirWildcard and PathGlobs itself bottom
		// out in mergePathsRule's SelectDependencies over a Globs field
		// that mixes all three shapes, which can only declare one static
		// ElementType hint per selector (see mergePathsRule in package
		// pathglob and DESIGN.md's "validator soundness vs. glob
		// polymorphism" entry). Those routes are dynamically correct —
		// `run` resolves them fine — just not provable by this
		// validator's conservative single-hint design, the same
		// trade-off Pants' own type-indexed union resolution makes.
		err = validate.Validate(reg,
			[]types.SubjectType{"pathglob.PathWildcard"},
			[]types.ProductType{"pathglob.Paths"},
		)
		if err != nil {
			return err
		}
		fmt.Println("ruleset valid")
		return nil
	},
}
