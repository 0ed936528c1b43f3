// Command primemovergen is the build-time transformation's CLI front end:
// given a package directory, it analyzes entity-marked types and generates
// their dispatch/signature/scheduling-stub sibling file.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/primemover/transform"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var outName string

	cmd := &cobra.Command{
		Use:   "primemovergen [package-dir]",
		Short: "Generate dispatch and scheduling stubs for primemover-marked entities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			pkg, err := transform.Analyze(abs)
			if err != nil {
				return err
			}

			outPath := filepath.Join(abs, outName)
			if err := transform.Generate(pkg, outPath); err != nil {
				var mismatch *transform.AlreadyTransformedMismatch
				if ok := asMismatch(err, &mismatch); ok {
					return fmt.Errorf("refusing to regenerate: %w", mismatch)
				}
				var none *transform.NoEntitiesFound
				if ok := asNoEntities(err, &none); ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: no entities to transform\n", abs)
					return nil
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d entities)\n", outPath, len(pkg.Entities))
			return nil
		},
	}

	cmd.Flags().StringVar(&outName, "out", "primemover_eventgen.go", "generated file name, relative to the package directory")
	return cmd
}

func asMismatch(err error, target **transform.AlreadyTransformedMismatch) bool {
	m, ok := err.(*transform.AlreadyTransformedMismatch)
	if ok {
		*target = m
	}
	return ok
}

func asNoEntities(err error, target **transform.NoEntitiesFound) bool {
	n, ok := err.(*transform.NoEntitiesFound)
	if ok {
		*target = n
	}
	return ok
}
