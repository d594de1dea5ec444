package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabmaster/tabmaster/pkg/dsl"
	"github.com/tabmaster/tabmaster/pkg/ruleset"
)

func NewCheckCmd(_ *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "check <ruleset>...",
		Short: "Validate ruleset files",
		Long: `Validate ruleset files.

DSL files are parsed; YAML files are additionally validated against the
ruleset schema. Parse errors are reported with their line and column.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0

			for _, path := range args {
				rs, err := ruleset.Load(path)
				if err != nil {
					failed++

					reportCheckError(cmd, path, err)

					continue
				}

				mustN(fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules OK\n", path, len(rs.Rules)))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files invalid", failed, len(args))
			}

			return nil
		},
	}
}

func reportCheckError(cmd *cobra.Command, path string, err error) {
	var parseErr *dsl.ParseError
	if errors.As(err, &parseErr) {
		mustN(fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d:%d: expected %s, got %s\n",
			path, parseErr.Line, parseErr.Column, parseErr.Expected, parseErr.Actual))

		return
	}

	mustN(fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err))
}
