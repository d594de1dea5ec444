package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tabmaster/tabmaster/pkg/log"
)

const (
	cmdName = "tabmaster"
	cmdDesc = `Rule engine for browser tab housekeeping.`

	cmdExamples = `  # Validate a ruleset:
  tabmaster check ./tabs.rules

  # Preview what a ruleset would do to a snapshot:
  tabmaster run ./tabs.rules ./snapshot.json --dry-run

  # Apply a ruleset to a snapshot read from stdin:
  cat snapshot.json | tabmaster run ./tabs.rules -

  # Rewrite rules in canonical form:
  tabmaster fmt --write ./tabs.rules`
)

type RootArgs struct {
	tracingShutdown func() error

	LogLevel     string
	LogFormat    string
	ConfigPath   string
	OTLPEndpoint string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVar(&ra.ConfigPath, "config", "", "Path to the tabmaster configuration file")
	cmd.PersistentFlags().
		StringVar(&ra.OTLPEndpoint, "otlp-endpoint", "", "Export traces to the given OTLP gRPC endpoint")

	var err error

	err = cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()

	cmd := &cobra.Command{
		Use:               cmdName,
		Short:             cmdDesc,
		Example:           cmdExamples,
		PersistentPreRunE: setup(args),
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return args.shutdownTracing()
		},
		SilenceUsage: true,
	}

	args.AddFlags(cmd)
	cmd.AddCommand(
		NewRunCmd(NewRunArgs(args)),
		NewCheckCmd(args),
		NewFmtCmd(NewFmtArgs(args)),
		NewConfigCmd(NewConfigArgs(args)),
	)

	bindEnvVars(cmd)

	return cmd
}

func setup(ra *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		logHandler, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), ra.LogLevel, ra.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		slog.SetDefault(slog.New(logHandler))

		if ra.OTLPEndpoint != "" {
			shutdown, err := setupTracing(cmd.Context(), ra.OTLPEndpoint)
			if err != nil {
				return fmt.Errorf("setup tracing: %w", err)
			}

			ra.tracingShutdown = shutdown
		}

		return nil
	}
}

func (ra *RootArgs) shutdownTracing() error {
	if ra.tracingShutdown == nil {
		return nil
	}

	return ra.tracingShutdown()
}
