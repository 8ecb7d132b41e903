package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"companion/internal/bootstrap"
	sessioncli "companion/internal/modules/session/adapter/in"
	sessiondto "companion/internal/modules/session/dto"
	"companion/internal/platform/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globals struct {
	dataDir    string
	configPath string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "companion",
		Short:         "Guided session companion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.dataDir, "data", ".", "companion data directory")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default <data>/.companion/config.yaml)")

	root.AddCommand(
		statusCommand(g, "status", "Show the current companion state", cobra.NoArgs, func(ctx context.Context, h sessioncli.CLIHandler, _ []string) (sessiondto.StatusOutput, error) {
			return h.Status(ctx)
		}),
		statusCommand(g, "reset", "Discard all session state", cobra.NoArgs, func(ctx context.Context, h sessioncli.CLIHandler, _ []string) (sessiondto.StatusOutput, error) {
			return h.Reset(ctx)
		}),
		newIntakeCmd(g),
		newPreSessionCmd(g),
		newChecklistCmd(g),
		newSessionCmd(g),
		newModuleCmd(g),
		newCheckInCmd(g),
		newTransitionCmd(g),
		newBoosterCmd(g),
		newFollowUpCmd(g),
		newJournalCmd(g),
		newHistoryCmd(g),
		newCatalogCmd(g),
		newRunCmd(g),
	)
	return root
}

func loadApp(g *globals) (*bootstrap.App, error) {
	cfg, err := config.Load(g.dataDir, g.configPath)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, bootstrap.Options{})
}

// withApp loads the app, restores persisted state and runs fn.
func withApp(g *globals, fn func(ctx context.Context, app *bootstrap.App) error) error {
	app, err := loadApp(g)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	ctx := context.Background()
	restored, err := app.SessionCLI.Load(ctx)
	if err != nil {
		return err
	}
	if restored.Outcome == "reset" {
		_, _ = fmt.Fprintf(os.Stderr, "stored state was unreadable and has been reset: %s\n", restored.Reason)
	}
	return fn(ctx, app)
}

type statusFunc func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error)

func statusCommand(g *globals, use, short string, args cobra.PositionalArgs, fn statusFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			return withApp(g, func(ctx context.Context, app *bootstrap.App) error {
				out, err := fn(ctx, app.SessionCLI, argv)
				if err != nil {
					return err
				}
				sessioncli.WriteStatus(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func simple(g *globals, use, short string, fn func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error)) *cobra.Command {
	return statusCommand(g, use, short, cobra.NoArgs, func(ctx context.Context, h sessioncli.CLIHandler, _ []string) (sessiondto.StatusOutput, error) {
		return fn(h)(ctx)
	})
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func newIntakeCmd(g *globals) *cobra.Command {
	intake := &cobra.Command{Use: "intake", Short: "Pre-session intake questionnaire"}

	var experience, duration, focus, intention string
	var customMinutes int
	var preferences []string
	var booster bool
	update := statusCommand(g, "update", "Update intake answers", cobra.NoArgs, nil)
	update.RunE = func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		input := sessiondto.IntakeInput{}
		if flags.Changed("experience") {
			input.ExperienceLevel = &experience
		}
		if flags.Changed("duration") {
			input.SessionDuration = &duration
		}
		if flags.Changed("custom-minutes") {
			input.CustomDurationMinutes = &customMinutes
		}
		if flags.Changed("prefer") {
			input.ActivityPreferences = preferences
		}
		if flags.Changed("booster") {
			input.ConsiderBooster = &booster
		}
		if flags.Changed("focus") {
			input.PrimaryFocus = &focus
		}
		if flags.Changed("intention") {
			input.Intention = &intention
		}
		return withApp(g, func(ctx context.Context, app *bootstrap.App) error {
			out, err := app.SessionCLI.UpdateIntake(ctx, input)
			if err != nil {
				return err
			}
			sessioncli.WriteStatus(cmd.OutOrStdout(), out)
			return nil
		})
	}
	update.Flags().StringVar(&experience, "experience", "", "experience level: first-time|some|experienced")
	update.Flags().StringVar(&duration, "duration", "", "session length: 3h|4h|5h|6h|custom")
	update.Flags().IntVar(&customMinutes, "custom-minutes", 0, "custom session length in minutes")
	update.Flags().StringSliceVar(&preferences, "prefer", nil, "activity preferences: music,journaling,breathing,meditation")
	update.Flags().BoolVar(&booster, "booster", false, "consider a booster dose")
	update.Flags().StringVar(&focus, "focus", "", "primary focus")
	update.Flags().StringVar(&intention, "intention", "", "session intention")

	intake.AddCommand(
		simple(g, "start", "Begin the intake", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.StartIntake }),
		update,
		simple(g, "complete", "Finish the intake and generate the timeline", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) {
			return h.CompleteIntake
		}),
	)
	return intake
}

func newPreSessionCmd(g *globals) *cobra.Command {
	var note, word string
	var breath, complete bool
	cmd := statusCommand(g, "presession", "Record the pre-substance reflection", cobra.NoArgs, nil)
	cmd.RunE = func(c *cobra.Command, _ []string) error {
		input := sessiondto.PreSubstanceInput{Complete: complete}
		if c.Flags().Changed("note") {
			input.IntentionNote = &note
		}
		if c.Flags().Changed("word") {
			input.FocusWord = &word
		}
		if c.Flags().Changed("breath") {
			input.CenteringBreathCompleted = &breath
		}
		return withApp(g, func(ctx context.Context, app *bootstrap.App) error {
			out, err := app.SessionCLI.RecordPreSubstance(ctx, input)
			if err != nil {
				return err
			}
			sessioncli.WriteStatus(c.OutOrStdout(), out)
			return nil
		})
	}
	cmd.Flags().StringVar(&note, "note", "", "intention note")
	cmd.Flags().StringVar(&word, "word", "", "focus word")
	cmd.Flags().BoolVar(&breath, "breath", false, "centering breath completed")
	cmd.Flags().BoolVar(&complete, "complete", false, "mark the reflection complete")
	return cmd
}

func newChecklistCmd(g *globals) *cobra.Command {
	checklist := &cobra.Command{Use: "checklist", Short: "Substance checklist"}

	var dose int
	var tested, space, hydration, support bool
	update := statusCommand(g, "update", "Update checklist answers", cobra.NoArgs, nil)
	update.RunE = func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		input := sessiondto.ChecklistInput{}
		if flags.Changed("dose") {
			input.PlannedDosageMg = &dose
		}
		if flags.Changed("tested") {
			input.TestedSubstance = &tested
		}
		if flags.Changed("space") {
			input.PreparedSpace = &space
		}
		if flags.Changed("hydration") {
			input.HydrationReady = &hydration
		}
		if flags.Changed("support") {
			input.SupportContactReady = &support
		}
		return withApp(g, func(ctx context.Context, app *bootstrap.App) error {
			out, err := app.SessionCLI.UpdateChecklist(ctx, input)
			if err != nil {
				return err
			}
			sessioncli.WriteStatus(cmd.OutOrStdout(), out)
			return nil
		})
	}
	update.Flags().IntVar(&dose, "dose", 0, "planned dosage in mg")
	update.Flags().BoolVar(&tested, "tested", false, "substance tested")
	update.Flags().BoolVar(&space, "space", false, "space prepared")
	update.Flags().BoolVar(&hydration, "hydration", false, "hydration ready")
	update.Flags().BoolVar(&support, "support", false, "support contact ready")

	checklist.AddCommand(
		simple(g, "start", "Open the checklist", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.StartChecklist }),
		update,
		simple(g, "ack-heavy", "Acknowledge a heavy planned dose", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) {
			return h.AcknowledgeHeavyDose
		}),
		statusCommand(g, "ingested [time]", "Record the ingestion time (now, HH:MM, RFC3339 or -20m)", cobra.MaximumNArgs(1), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.RecordIngestion(ctx, optionalArg(args))
		}),
	)
	return checklist
}

func newSessionCmd(g *globals) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Session lifecycle"}
	session.AddCommand(
		simple(g, "start", "Start the session", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.StartSession }),
		simple(g, "pause", "Pause the session", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.PauseSession }),
		simple(g, "resume", "Resume the session", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.ResumeSession }),
		simple(g, "complete", "Close the session", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) {
			return h.CompleteSession
		}),
	)
	return session
}

func newModuleCmd(g *globals) *cobra.Command {
	module := &cobra.Command{Use: "module", Short: "Timeline modules"}

	var phase string
	add := &cobra.Command{
		Use:   "add <library-id>",
		Short: "Add a library module to the timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.SessionCLI.AddModule(ctx, sessiondto.AddModuleInput{LibraryID: args[0], Phase: phase})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", out.InstanceID)
				sessioncli.WriteStatus(cmd.OutOrStdout(), out.Status)
				return nil
			})
		},
	}
	add.Flags().StringVar(&phase, "phase", "", "target phase (default: current phase)")

	module.AddCommand(
		statusCommand(g, "start <instance-id>", "Start a module", cobra.ExactArgs(1), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.StartModule(ctx, args[0])
		}),
		statusCommand(g, "complete [instance-id]", "Complete a module (default: current)", cobra.MaximumNArgs(1), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.CompleteModule(ctx, optionalArg(args))
		}),
		statusCommand(g, "skip [instance-id]", "Skip a module (default: current)", cobra.MaximumNArgs(1), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.SkipModule(ctx, optionalArg(args))
		}),
		add,
		statusCommand(g, "remove <instance-id>", "Remove an upcoming module", cobra.ExactArgs(1), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.RemoveModule(ctx, args[0])
		}),
		statusCommand(g, "reorder <instance-id> <order>", "Move a module within its phase", cobra.ExactArgs(2), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			order, err := strconv.Atoi(args[1])
			if err != nil {
				return sessiondto.StatusOutput{}, fmt.Errorf("order must be a number: %w", err)
			}
			return h.ReorderModule(ctx, args[0], order)
		}),
		simple(g, "pause", "Pause playback", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.PausePlayback }),
		simple(g, "resume", "Resume playback", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.ResumePlayback }),
	)
	return module
}

func newCheckInCmd(g *globals) *cobra.Command {
	checkin := &cobra.Command{Use: "checkin", Short: "Phase check-ins"}
	checkin.AddCommand(
		simple(g, "open", "Open the come-up check-in", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.OpenCheckIn }),
		statusCommand(g, "respond <response>", "Answer the come-up check-in", cobra.ExactArgs(1), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.RespondCheckIn(ctx, args[0])
		}),
		simple(g, "continue", "Stay in the come-up", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.ContinueComeUp }),
		statusCommand(g, "dismiss <peak|closing> [response]", "Dismiss the peak or closing check-in", cobra.RangeArgs(1, 2), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.DismissCheckIn(ctx, args[0], optionalArg(args[1:]))
		}),
	)
	return checkin
}

func newTransitionCmd(g *globals) *cobra.Command {
	transition := &cobra.Command{Use: "transition", Short: "Phase transitions"}

	var kind string
	capture := statusCommand(g, "capture <key=value>", "Record a transition answer", cobra.ExactArgs(1), nil)
	capture.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(g, func(ctx context.Context, app *bootstrap.App) error {
			out, err := app.SessionCLI.CaptureTransition(ctx, kind, args[0])
			if err != nil {
				return err
			}
			sessioncli.WriteStatus(cmd.OutOrStdout(), out)
			return nil
		})
	}
	capture.Flags().StringVar(&kind, "kind", "", "capture kind (default: active transition)")

	transition.AddCommand(
		statusCommand(g, "begin <peak|integration|closing>", "Begin a transition", cobra.ExactArgs(1), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.BeginTransition(ctx, args[0])
		}),
		simple(g, "complete", "Complete the active transition", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) {
			return h.CompleteTransition
		}),
		capture,
	)
	return transition
}

func newBoosterCmd(g *globals) *cobra.Command {
	booster := &cobra.Command{Use: "booster", Short: "Booster dose flow"}
	booster.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show booster state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(g, func(ctx context.Context, app *bootstrap.App) error {
					out, err := app.SessionCLI.Booster(ctx)
					if err != nil {
						return err
					}
					sessioncli.WriteBooster(cmd.OutOrStdout(), out)
					return nil
				})
			},
		},
		statusCommand(g, "respond <field> <value>", "Answer a booster check-in question", cobra.ExactArgs(2), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.RespondBooster(ctx, args[0], args[1])
		}),
		statusCommand(g, "take [time]", "Record the booster as taken", cobra.MaximumNArgs(1), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.TakeBooster(ctx, optionalArg(args))
		}),
		simple(g, "skip", "Decline the booster", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.SkipBooster }),
		simple(g, "snooze", "Ask again later", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.SnoozeBooster }),
		simple(g, "minimize", "Minimize the booster prompt", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.MinimizeBooster }),
		simple(g, "maximize", "Restore the booster prompt", func(h sessioncli.CLIHandler) func(context.Context) (sessiondto.StatusOutput, error) { return h.MaximizeBooster }),
		statusCommand(g, "prepared <true|false>", "Mark the booster dose as prepared", cobra.ExactArgs(1), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			prepared, err := strconv.ParseBool(args[0])
			if err != nil {
				return sessiondto.StatusOutput{}, fmt.Errorf("prepared must be true or false: %w", err)
			}
			return h.SetBoosterPrepared(ctx, prepared)
		}),
	)
	return booster
}

func newFollowUpCmd(g *globals) *cobra.Command {
	followup := &cobra.Command{Use: "followup", Short: "Post-session follow-ups"}
	followup.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Refresh and list follow-up availability",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(g, func(ctx context.Context, app *bootstrap.App) error {
					items, err := app.SessionCLI.CheckFollowUps(ctx)
					if err != nil {
						return err
					}
					sessioncli.WriteFollowUps(cmd.OutOrStdout(), items)
					return nil
				})
			},
		},
		statusCommand(g, "start <id>", "Open a follow-up", cobra.ExactArgs(1), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.StartFollowUp(ctx, args[0])
		}),
		statusCommand(g, "complete <id> [key=value...]", "Complete a follow-up with responses", cobra.MinimumNArgs(1), func(ctx context.Context, h sessioncli.CLIHandler, args []string) (sessiondto.StatusOutput, error) {
			return h.CompleteFollowUp(ctx, args[0], args[1:])
		}),
	)
	return followup
}

func newJournalCmd(g *globals) *cobra.Command {
	journal := &cobra.Command{Use: "journal", Short: "Session journal"}
	var prompt string
	add := statusCommand(g, "add <text>", "Add a journal entry", cobra.ExactArgs(1), nil)
	add.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(g, func(ctx context.Context, app *bootstrap.App) error {
			out, err := app.SessionCLI.AddJournalEntry(ctx, prompt, args[0])
			if err != nil {
				return err
			}
			sessioncli.WriteStatus(cmd.OutOrStdout(), out)
			return nil
		})
	}
	add.Flags().StringVar(&prompt, "prompt", "", "prompt that inspired the entry")
	journal.AddCommand(add)
	return journal
}

func newHistoryCmd(g *globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished modules, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(g, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.SessionCLI.History(ctx, limit)
				if err != nil {
					return err
				}
				sessioncli.WriteHistory(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows (0 for all)")
	return cmd
}

func newCatalogCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List library modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(g, func(ctx context.Context, app *bootstrap.App) error {
				items, err := app.SessionCLI.Catalog(ctx)
				if err != nil {
					return err
				}
				sessioncli.WriteCatalog(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
}

func newRunCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Keep evaluating time gates until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(g, func(_ context.Context, app *bootstrap.App) error {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				app.Scheduler.Start(ctx)
				app.Logger.Info("companion running", "data", app.Config.DataDir, "tick", app.Config.TickInterval)
				<-ctx.Done()
				app.Scheduler.Stop()
				out, err := app.SessionCLI.Status(context.Background())
				if err != nil {
					return err
				}
				sessioncli.WriteStatus(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}
