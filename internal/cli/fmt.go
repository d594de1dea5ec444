package cli

import (
	"fmt"
	"os"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/tabmaster/tabmaster/pkg/ruleset"
)

type FmtArgs struct {
	*RootArgs

	Write bool
	Diff  bool
}

func NewFmtArgs(rootArgs *RootArgs) *FmtArgs {
	return &FmtArgs{
		RootArgs: rootArgs,
	}
}

func (fa *FmtArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&fa.Write, "write", "w", false, "Rewrite files in place instead of printing")
	cmd.Flags().BoolVarP(&fa.Diff, "diff", "d", false, "Print a unified diff instead of the formatted text")
}

func NewFmtCmd(fa *FmtArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fmt <ruleset>...",
		Short: "Rewrite ruleset files in canonical form",
		Long: `Rewrite ruleset files in canonical form.

Files are parsed and re-serialized: DSL files get canonical block layout,
YAML files get the canonical envelope and key order. By default the result
is printed to stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fa.Write && fa.Diff {
				return fmt.Errorf("--write and --diff are mutually exclusive")
			}

			for _, path := range args {
				err := formatFile(cmd, fa, path)
				if err != nil {
					return err
				}
			}

			return nil
		},
	}
	fa.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func formatFile(cmd *cobra.Command, fa *FmtArgs, path string) error {
	format, err := ruleset.FormatForPath(path)
	if err != nil {
		return err
	}

	orig, err := os.ReadFile(path) //nolint:gosec // G304: user-supplied path.
	if err != nil {
		return fmt.Errorf("read ruleset: %w", err)
	}

	rs, err := ruleset.Parse(orig, format)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	var formatted []byte

	switch format {
	case ruleset.FormatDSL:
		formatted = []byte(rs.EncodeDSL())
	case ruleset.FormatYAML:
		formatted, err = rs.EncodeYAML()
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}

	switch {
	case fa.Diff:
		diff := udiff.Unified(path, path, string(orig), string(formatted))
		if diff != "" {
			mustN(fmt.Fprint(cmd.OutOrStdout(), diff))
		}

	case fa.Write:
		if string(orig) == string(formatted) {
			return nil
		}

		err = os.WriteFile(path, formatted, 0o600)
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}

		mustN(fmt.Fprintln(cmd.OutOrStdout(), path))

	default:
		mustN(fmt.Fprint(cmd.OutOrStdout(), string(formatted)))
	}

	return nil
}
