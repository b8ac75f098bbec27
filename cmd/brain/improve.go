package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/brain/internal/improver"
	"github.com/steveyegge/brain/internal/types"
)

var improveCmd = &cobra.Command{
	Use:   "improve",
	Short: "Self-improvement commands",
	Long:  `Analyze A/B test, report score and learning history and manage improvement plans.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var improveAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show insights without creating a plan",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := app.Improver.Analyze(cmd.Context())
		if err != nil {
			fail("analysis failed: %v", err)
		}
		if jsonOutput {
			printJSON(a)
			return
		}
		header("Analysis")
		printSummary(a.Summary)
		printInsights(a.Insights)
	},
}

var improvePlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Create an improvement plan from current insights",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		beginWrite(ctx, "improve plan", true)

		out, err := app.Improver.CreatePlan(ctx)
		if err != nil {
			fail("creating plan: %v", err)
		}
		if jsonOutput {
			printJSON(out)
			return
		}
		if out.Status == improver.OutcomeNoPlanNeeded {
			fmt.Printf("%s %s\n", green("✓"), out.Message)
			return
		}

		plan := out.Plan
		fmt.Printf("%s Created plan %s: %s\n\n", green("✓"), plan.ID, plan.Summary)
		for i, act := range plan.Actions {
			fmt.Printf("  %s [%s] %s\n", act.ID, priorityColor(act.Priority), act.Action)
			fmt.Printf("    %s\n", gray(act.Source+": "+plan.Insights[i].Finding))
		}
		fmt.Printf("\nTo apply: brain improve apply %s\n", plan.ID)
	},
}

var improveApplyCmd = &cobra.Command{
	Use:   "apply <plan-id>",
	Short: "Mark a plan as applied",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		beginWrite(ctx, "improve apply", true)

		plan, err := app.Improver.ApplyPlan(ctx, args[0])
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(plan)
			return
		}
		fmt.Printf("%s Applied plan %s (%d actions)\n", green("✓"), plan.ID, len(plan.Actions))
	},
}

var improveStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show plan counts",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := app.Improver.Stats(cmd.Context())
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(s)
			return
		}
		header("Self-Improver")
		fmt.Printf("  Plans:                %d (%d pending)\n", s.TotalPlans, s.PendingPlans)
		fmt.Printf("  Applied improvements: %d\n", s.AppliedImprovements)
		fmt.Printf("  Insights recorded:    %d\n\n", s.TotalInsights)
	},
}

func printSummary(s improver.Summary) {
	fmt.Printf("  A/B tests completed: %d\n", s.ABTestsCompleted)
	fmt.Printf("  Reports scored:      %d\n", s.ReportsScored)
	fmt.Printf("  Learnings recorded:  %d\n", s.LearningsRecorded)
	fmt.Printf("  Violations recorded: %d\n\n", s.ViolationsRecorded)
}

func printInsights(insights []types.Insight) {
	if len(insights) == 0 {
		fmt.Printf("  %s\n\n", gray("No insights"))
		return
	}
	fmt.Printf("%s\n", yellow("Insights:"))
	for _, in := range insights {
		fmt.Printf("  [%s] %s\n", in.Source, in.Finding)
		fmt.Printf("    → %s\n", in.Suggestion)
	}
	fmt.Println()
}

func init() {
	improveCmd.AddCommand(improveAnalyzeCmd)
	improveCmd.AddCommand(improvePlanCmd)
	improveCmd.AddCommand(improveApplyCmd)
	improveCmd.AddCommand(improveStatsCmd)
	rootCmd.AddCommand(improveCmd)
}
