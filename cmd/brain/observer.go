package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/brain/internal/observer"
	"github.com/steveyegge/brain/internal/types"
)

var observerCmd = &cobra.Command{
	Use:   "observer",
	Short: "Workflow observer commands",
	Long:  `Scan sprint workflow state for rule violations and manage the halt state.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var observerCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one observation",
	Long: `Scan every sprint state record once. Any critical violation halts the
observer. While halted the check is skipped and nothing is recorded.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		beginWrite(ctx, "observer check", false)

		res, err := app.Observer.Observe(ctx)
		if err != nil {
			fail("observation failed: %v", err)
		}
		if jsonOutput {
			printJSON(res)
			return
		}
		printObserveResult(res)
	},
}

var observerWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Observe continuously until interrupted",
	Long: `Run an observation every interval (observer.watch_interval, default 30s)
until Ctrl+C. Halts are reported as they happen; a halted observer keeps
polling without recording anything until it is resumed.

Each check takes the writer lock. A check is skipped while another brain
command holds it.`,
	Run: func(cmd *cobra.Command, args []string) {
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval == 0 {
			interval = cfg.Observer.WatchInterval
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !jsonOutput {
			fmt.Printf("%s Watching every %v (Ctrl+C to stop)\n", cyan("●"), interval)
		}
		err := app.Watch(ctx, interval, func(res *observer.ObserveResult) {
			if jsonOutput {
				printJSON(res)
				return
			}
			printObserveResult(res)
		})
		if err != nil {
			fail("%v", err)
		}
	},
}

var observerHaltCmd = &cobra.Command{
	Use:   "halt <reason>",
	Short: "Halt automated work",
	Long:  `Move the observer to HALTED and record a MANUAL_HALT violation with the given reason.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		beginWrite(ctx, "observer halt", false)

		st, err := app.Observer.Halt(ctx, strings.Join(args, " "))
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(st)
			return
		}
		fmt.Printf("%s Workflow halted: %s\n", red("■"), st.HaltReason)
		fmt.Printf("\nTo resume: brain observer resume\n")
	},
}

var observerResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume automated work",
	Long:  `Move the observer back to ACTIVE. Violation history is kept.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		beginWrite(ctx, "observer resume", false)

		st, err := app.Observer.Resume(ctx)
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(st)
			return
		}
		fmt.Printf("%s Workflow resumed\n", green("✓"))
	},
}

var observerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show observer state and recent violations",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("violations")

		st, err := app.Observer.Status(ctx)
		if err != nil {
			fail("%v", err)
		}
		recent, err := app.Observer.Violations(ctx, limit)
		if err != nil {
			fail("%v", err)
		}

		if jsonOutput {
			printJSON(struct {
				*observer.StatusReport
				RecentViolations []types.Violation `json:"recentViolations"`
			}{st, recent})
			return
		}

		header("Observer Status")
		fmt.Printf("  Status:       %s\n", statusColor(st.Status))
		if st.Halted {
			fmt.Printf("  Halt reason:  %s\n", st.HaltReason)
		}
		fmt.Printf("  Violations:   %d\n", st.TotalViolations)
		fmt.Printf("  Observations: %d\n", st.TotalObservations)
		fmt.Printf("  Last check:   %s\n", formatTime(st.LastCheck))

		if len(recent) > 0 {
			fmt.Printf("\n%s\n", yellow("Recent violations:"))
			for _, v := range recent {
				fmt.Printf("  %s [%s] %s %s\n",
					gray(v.Timestamp.Local().Format("01-02 15:04")), severityColor(v.Severity), v.Rule, v.Message)
			}
		}
		fmt.Println()
	},
}

func printObserveResult(res *observer.ObserveResult) {
	stamp := gray(time.Now().Format("15:04:05"))
	if res.Skipped {
		fmt.Printf("%s %s Observer halted, check skipped: %s\n", stamp, red("■"), res.HaltReason)
		return
	}
	if res.ViolationsFound == 0 {
		fmt.Printf("%s %s No violations\n", stamp, green("✓"))
		return
	}
	fmt.Printf("%s %s %d violations (%d critical)\n", stamp, yellow("⚠"), res.ViolationsFound, res.CriticalViolations)
	for _, v := range res.Violations {
		fmt.Printf("    [%s] %s %s\n", severityColor(v.Severity), v.Rule, v.Message)
	}
	if res.Halted {
		fmt.Printf("  %s Workflow halted: %s\n", red("■"), res.HaltReason)
	}
}

func init() {
	observerWatchCmd.Flags().Duration("interval", 0, "Time between checks (default from config)")
	observerStatusCmd.Flags().Int("violations", 10, "Number of recent violations to show (0 for all)")

	observerCmd.AddCommand(observerCheckCmd)
	observerCmd.AddCommand(observerWatchCmd)
	observerCmd.AddCommand(observerHaltCmd)
	observerCmd.AddCommand(observerResumeCmd)
	observerCmd.AddCommand(observerStatusCmd)
	rootCmd.AddCommand(observerCmd)
}
