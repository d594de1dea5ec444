package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tabmaster/tabmaster/pkg/command"
	"github.com/tabmaster/tabmaster/pkg/config"
	"github.com/tabmaster/tabmaster/pkg/engine"
	"github.com/tabmaster/tabmaster/pkg/ruleset"
	"github.com/tabmaster/tabmaster/pkg/tab"
)

type RunArgs struct {
	*RootArgs

	RulesetPath     string
	SnapshotPath    string
	DryRun          bool
	Force           bool
	ContinueOnError bool
	Watch           bool
}

func NewRunArgs(rootArgs *RootArgs) *RunArgs {
	return &RunArgs{
		RootArgs: rootArgs,
	}
}

func (ra *RunArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&ra.DryRun, "dry-run", false, "Preview commands without executing them")
	cmd.Flags().BoolVar(&ra.Force, "force", false, "Execute despite validation errors")
	cmd.Flags().BoolVar(&ra.ContinueOnError, "continue-on-error", false, "Keep executing after a command fails")
	cmd.Flags().BoolVarP(&ra.Watch, "watch", "w", false, "Watch the ruleset for changes and re-run")
}

func NewRunCmd(ra *RunArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <ruleset> [snapshot]",
		Short: "Run a ruleset against a tab snapshot",
		Long: `Run a ruleset against a tab snapshot.

The snapshot argument is a JSON or YAML file, or "-" to read from stdin.
When omitted and stdin is not a terminal, the snapshot is read from stdin.
Without a browser attached, executed commands are printed as the operations
that would be sent to the host.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ra.RulesetPath = args[0]
			if len(args) > 1 {
				ra.SnapshotPath = args[1]
			}

			return run(cmd, ra)
		},
	}
	ra.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func run(cmd *cobra.Command, ra *RunArgs) error {
	cfg, err := loadConfig(ra.RootArgs)
	if err != nil {
		return err
	}

	rs, err := ruleset.Load(ra.RulesetPath)
	if err != nil {
		return fmt.Errorf("load ruleset: %w", err)
	}

	snap, err := loadSnapshot(cmd, ra.SnapshotPath)
	if err != nil {
		return err
	}

	execOpts := cfg.Execution.Options()
	if ra.DryRun {
		execOpts.DryRun = true
	}
	if ra.Force {
		execOpts.Force = true
	}
	if ra.ContinueOnError {
		execOpts.ContinueOnError = true
	}

	eng := engine.New(
		engine.WithRules(rs.Rules),
		engine.WithDispatcher(command.NewDispatcher(
			command.WithHost(&printHost{w: cmd.OutOrStdout()}),
			command.WithLogCapacity(cfg.Execution.LogCapacity),
		)),
		engine.WithIndexOpts(cfg.IndexOpts()...),
		engine.WithExecuteOptions(execOpts),
	)

	ctx := cmd.Context()

	if ra.Watch {
		return runWatch(ctx, cmd, eng, ra.RulesetPath, snap)
	}

	result := eng.Run(ctx, snap)
	printResult(cmd.OutOrStdout(), result)

	if len(result.Errors) > 0 {
		return fmt.Errorf("%d of %d commands failed", len(result.Errors), result.TotalCommands)
	}

	return nil
}

// runWatch re-runs the engine every time the ruleset file reloads, until
// interrupted.
func runWatch(ctx context.Context, cmd *cobra.Command, eng *engine.Engine, path string, snap *tab.Snapshot) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan engine.Event, 16)
	eng.Subscribe(events)

	err := eng.WatchRuleset(ctx, path)
	if err != nil {
		return fmt.Errorf("watch ruleset: %w", err)
	}

	result := eng.Run(ctx, snap)
	printResult(cmd.OutOrStdout(), result)

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt := <-events:
			switch e := evt.(type) {
			case engine.RulesetReload:
				slog.Info("ruleset changed, re-running",
					slog.String("path", e.Path),
					slog.Int("rules", e.Rules),
				)

				result := eng.Run(ctx, snap)
				printResult(cmd.OutOrStdout(), result)

			case engine.RulesetError:
				slog.Error("ruleset reload failed", slog.Any("error", e.Err))
			}
		}
	}
}

func loadConfig(ra *RootArgs) (*config.Config, error) {
	configPath := ra.ConfigPath
	if configPath == "" {
		configPath = config.GetPath()
	}

	err := config.WriteDefaultConfig(configPath, false)
	if err != nil {
		slog.Debug("write default config", slog.Any("error", err))
	}

	cl, err := config.NewConfigLoaderFromFile(configPath)
	if err != nil {
		slog.Warn("could not read config, using defaults", slog.Any("error", err))

		return config.NewConfig(), nil
	}

	err = cl.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", configPath, err)
	}

	cfg, err := cl.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", configPath, err)
	}

	return cfg, nil
}

func loadSnapshot(cmd *cobra.Command, path string) (*tab.Snapshot, error) {
	fromStdin := path == "-"
	if path == "" {
		// No snapshot argument: accept piped input.
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, fmt.Errorf("no snapshot: pass a file path or pipe one to stdin")
		}

		fromStdin = true
	}

	if fromStdin {
		snap, err := tab.DecodeSnapshot(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read snapshot from stdin: %w", err)
		}

		return snap, nil
	}

	snap, err := tab.LoadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	return snap, nil
}

func printResult(w io.Writer, result *command.ExecutionResult) {
	for _, out := range result.Executed {
		status := string(out.State)
		if out.Error != "" {
			status += ": " + out.Error
		}

		mustN(fmt.Fprintf(w, "%s %s\n", status, out.Command.Preview().Description))
	}

	for _, skip := range result.Skipped {
		mustN(fmt.Fprintf(w, "skipped %s (%s)\n", skip.Command.Preview().Description, skip.Reason))
	}

	mustN(fmt.Fprintf(w, "%d commands, %d executed, %d skipped, %d errors in %s\n",
		result.TotalCommands, len(result.Executed), len(result.Skipped), len(result.Errors),
		result.Duration.Round(time.Millisecond),
	))
}

// printHost writes the operations a browser host would receive, one line per
// call. It stands in when no browser is attached.
type printHost struct {
	w io.Writer
}

var _ command.Host = (*printHost)(nil)

func (h *printHost) CloseTabs(_ context.Context, ids []int) error {
	return h.printf("close tabs %v", ids)
}

func (h *printHost) SetPinned(_ context.Context, ids []int, pinned bool) error {
	if pinned {
		return h.printf("pin tabs %v", ids)
	}

	return h.printf("unpin tabs %v", ids)
}

func (h *printHost) SetMuted(_ context.Context, ids []int, muted bool) error {
	if muted {
		return h.printf("mute tabs %v", ids)
	}

	return h.printf("unmute tabs %v", ids)
}

func (h *printHost) SuspendTabs(_ context.Context, ids []int) error {
	return h.printf("suspend tabs %v", ids)
}

func (h *printHost) GroupTabs(_ context.Context, ids []int, spec command.GroupSpec) error {
	var b strings.Builder

	fmt.Fprintf(&b, "group tabs %v", ids)
	if spec.Name != "" {
		fmt.Fprintf(&b, " as %q", spec.Name)
	}
	if spec.Color != "" {
		fmt.Fprintf(&b, " (%s)", spec.Color)
	}

	return h.printf("%s", b.String())
}

func (h *printHost) SnoozeTabs(_ context.Context, ids []int, spec command.SnoozeSpec) error {
	if spec.Duration > 0 {
		return h.printf("snooze tabs %v for %s", ids, spec.Duration)
	}

	return h.printf("snooze tabs %v until %s", ids, spec.Until)
}

func (h *printHost) BookmarkTabs(_ context.Context, ids []int, folder string) error {
	if folder != "" {
		return h.printf("bookmark tabs %v into %q", ids, folder)
	}

	return h.printf("bookmark tabs %v", ids)
}

func (h *printHost) MoveTabs(_ context.Context, ids []int, windowID, index int) error {
	if index < 0 {
		return h.printf("move tabs %v to the end of window %d", ids, windowID)
	}

	return h.printf("move tabs %v to window %d at %d", ids, windowID, index)
}

func (h *printHost) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(h.w, format+"\n", args...)
	if err != nil {
		return fmt.Errorf("write host output: %w", err)
	}

	return nil
}
