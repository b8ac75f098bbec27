package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/brain/internal/brain"
	"github.com/steveyegge/brain/internal/config"
	"github.com/steveyegge/brain/internal/observer"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	jsonOutput bool
	force      bool

	cfg *config.Config
	app *brain.Brain

	// cleanups run before the process exits, including on fail()
	cleanups []func()
)

var rootCmd = &cobra.Command{
	Use:   "brain",
	Short: "Workflow observer and self-improvement loop",
	Long: `brain watches sprint workflow state for rule violations, halts automated
work when a critical rule is broken, and turns A/B test outcomes, report
scores and learning results into improvement plans.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			fail("%v", err)
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		slog.SetDefault(logger)

		app, err = brain.Open(cmd.Context(), cfg, brain.Options{Logger: logger})
		if err != nil {
			fail("%v", err)
		}
		cleanups = append(cleanups, func() {
			if err := app.Close(); err != nil {
				slog.Warn("failed to close storage", "error", err)
			}
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		runCleanups()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "brain.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, "Run mutating commands even while the observer is halted")
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
}

func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

func exit(code int) {
	runCleanups()
	os.Exit(code)
}

// fail prints an error and exits 1
func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	exit(1)
}

// beginWrite takes the writer lock for a mutating command and applies the
// halted guard.
func beginWrite(ctx context.Context, holder string, guarded bool) {
	release, err := app.LockWriter(holder)
	if err != nil {
		fail("%v", err)
	}
	cleanups = append(cleanups, release)

	if err := guardActive(ctx, app.Observer, guarded, force); err != nil {
		if errors.Is(err, observer.ErrHalted) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintf(os.Stderr, "Hint: resolve the violation and run 'brain observer resume', or pass --force.\n")
			exit(1)
		}
		fail("%v", err)
	}
}

// activeChecker is the part of the observer the guard needs
type activeChecker interface {
	RequireActive(ctx context.Context) error
}

// guardActive refuses guarded commands while the observer is halted.
// Operator commands and --force skip the check.
func guardActive(ctx context.Context, obs activeChecker, guarded, force bool) error {
	if !guarded || force {
		return nil
	}
	return obs.RequireActive(ctx)
}
