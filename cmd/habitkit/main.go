package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"habitkit/internal/bootstrap"
	"habitkit/internal/platform/config"
	"habitkit/internal/platform/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	dataDir    string
	configPath string
	user       string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "habitkit",
		Short:         "Track challenge sessions and reflections",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", defaultDataDir(), "directory holding config, catalog and database")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default <data-dir>/habitkit.yaml)")
	root.PersistentFlags().StringVar(&flags.user, "user", "", "user id to act as (overrides config and HABITKIT_USER_ID)")

	root.AddCommand(
		newStartCmd(&flags),
		newCompleteCmd(&flags),
		newCancelCmd(&flags),
		newStatusCmd(&flags),
		newListCmd(&flags),
		newChallengesCmd(&flags),
		newReflectionsCmd(&flags),
		newServeCmd(&flags),
		newWatchCmd(&flags),
		newTUICmd(&flags),
	)
	return root
}

func defaultDataDir() string {
	if dir := os.Getenv("HABITKIT_DATA_DIR"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home + string(os.PathSeparator) + ".habitkit"
	}
	return ".habitkit"
}

func loadApp(ctx context.Context, flags *globalFlags) (*bootstrap.App, error) {
	cfg, err := config.Load(flags.dataDir, flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.user != "" {
		cfg.UserID = flags.user
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return bootstrap.New(ctx, cfg, logger)
}

// withApp runs fn with a loaded app and closes it afterwards.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := loadApp(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return fn(ctx, app)
}

func newStartCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start <challenge-id>",
		Short: "Start a challenge (returns the running session if already started)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Start(ctx, args[0])
				if err != nil {
					return err
				}
				verb := "started"
				if !out.Created {
					verb = "already running"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s session=%s since=%s\n", verb, args[0], out.Session.ID, out.Session.StartedAt.Local().Format(time.RFC3339))
				return nil
			})
		},
	}
}

func newCompleteCmd(flags *globalFlags) *cobra.Command {
	var (
		answers   []string
		anonymous bool
	)
	cmd := &cobra.Command{
		Use:   "complete <challenge-id>",
		Short: "Complete a challenge with reflection answers",
		Long: "Complete a challenge. Pass answers as --answer \"Question=Answer\"; without\n" +
			"answers on an interactive terminal you are asked each reflection question.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				parsed, err := parseAnswers(answers)
				if err != nil {
					return err
				}
				if len(parsed) == 0 && isInteractive(cmd.InOrStdin()) {
					questions := []string{"Reflection"}
					if c, err := app.ChallengeCLI.Get(ctx, args[0]); err == nil && len(c.ReflectionQuestions) > 0 {
						questions = c.ReflectionQuestions
					}
					parsed, err = promptAnswers(cmd.InOrStdin(), cmd.OutOrStdout(), questions)
					if err != nil {
						return err
					}
				}
				out, err := app.SessionCLI.Complete(ctx, args[0], anonymous, parsed)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "completed %s reflection=%s\n", args[0], out.ReflectionID)
				switch {
				case out.SessionID == "":
					_, _ = fmt.Fprintln(w, "note: no running session was found; the reflection was saved on its own")
				case !out.SessionDeactivated:
					_, _ = fmt.Fprintln(w, "note: the session will be closed on the next list")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&answers, "answer", "a", nil, `reflection answer as "Question=Answer" (repeatable)`)
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "post the completion anonymously")
	return cmd
}

func newCancelCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <challenge-id>",
		Short: "Abandon a running challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Cancel(ctx, args[0])
				if err != nil {
					return err
				}
				if out.Cancelled {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s\n", args[0])
				} else {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "no running session for %s\n", args[0])
				}
				return nil
			})
		},
	}
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <challenge-id>",
		Short: "Show the running session for a challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.GetActive(ctx, args[0])
				if err != nil {
					return err
				}
				if !out.Found {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: not running\n", args[0])
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: running session=%s since=%s\n", args[0], out.Session.ID, out.Session.StartedAt.Local().Format(time.RFC3339))
				return nil
			})
		},
	}
}

func newListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List challenges in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				return printInProgress(ctx, cmd.OutOrStdout(), app)
			})
		},
	}
}

func printInProgress(ctx context.Context, out io.Writer, app *bootstrap.App) error {
	items, err := app.SessionCLI.ListInProgress(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		_, _ = fmt.Fprintln(out, "nothing in progress")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CHALLENGE\tTITLE\tPOINTS\tSTARTED")
	for _, item := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", item.ChallengeID, item.ChallengeTitle, item.Points, item.StartedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func newChallengesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "challenges",
		Short: "List the challenge catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.ChallengeCLI.List(ctx)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "no challenges in %s\n", app.Config.CatalogPath)
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tTITLE\tPOINTS\tDAYS")
				for _, c := range items {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", c.ID, c.Title, c.Points, c.DurationDays)
				}
				return tw.Flush()
			})
		},
	}
}

func newReflectionsCmd(flags *globalFlags) *cobra.Command {
	reflections := &cobra.Command{Use: "reflections", Short: "Reflection journal commands"}

	var challengeID string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write reflections as Markdown notes under <data-dir>/journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.Export(ctx, challengeID)
				if err != nil {
					return err
				}
				for _, p := range out.Paths {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d reflections\n", len(out.Paths))
				return nil
			})
		},
	}
	export.Flags().StringVar(&challengeID, "challenge", "", "only export this challenge")

	reflections.AddCommand(export)
	return reflections
}

func newTUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return withApp(cmd, flags, func(ctx context.Context, app *bootstrap.App) error {
				return bootstrap.RunTUI(ctx, app)
			})
		},
	}
}

// parseAnswers turns "Question=Answer" pairs into a map. Later duplicates
// win.
func parseAnswers(pairs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range pairs {
		q, a, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("answer %q must look like Question=Answer", pair)
		}
		out[strings.TrimSpace(q)] = strings.TrimSpace(a)
	}
	return out, nil
}

func promptAnswers(in io.Reader, out io.Writer, questions []string) (map[string]string, error) {
	scanner := bufio.NewScanner(in)
	answers := map[string]string{}
	for _, q := range questions {
		_, _ = fmt.Fprintf(out, "%s\n> ", q)
		if !scanner.Scan() {
			break
		}
		answers[q] = scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	return answers, nil
}

func isInteractive(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
