package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/brain/internal/learner"
	"github.com/steveyegge/brain/internal/types"
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Knowledge capture commands",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var learnRecordCmd = &cobra.Command{
	Use:   "record <description>",
	Short: "Record a knowledge capture attempt",
	Long: `Record the outcome of capturing knowledge from a completed task. Each
--step is name=status or name=status:error, where status is success,
skipped or failed. The attempt succeeds when no step failed.

Example:
  $ brain learn record "added retry middleware" --step kb=success --step graph=skipped:not configured`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		rawSteps, _ := cmd.Flags().GetStringArray("step")
		steps := make([]types.LearningStep, 0, len(rawSteps))
		for _, raw := range rawSteps {
			step, err := learner.ParseStep(raw)
			if err != nil {
				fail("%v", err)
			}
			steps = append(steps, step)
		}

		beginWrite(ctx, "learn record", true)
		res, err := app.Learner.Record(ctx, strings.Join(args, " "), steps)
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(res)
			return
		}

		switch res.Status {
		case learner.StatusDisabled:
			fmt.Printf("%s %s\n", gray("○"), res.Message)
			fmt.Printf("\nTo enable: brain learn enable\n")
			return
		case learner.StatusPartial:
			fmt.Printf("%s Partially learned: %s\n", yellow("⚠"), res.Description)
		default:
			fmt.Printf("%s Learned: %s\n", green("✓"), res.Description)
		}
		for _, s := range res.Steps {
			line := fmt.Sprintf("  %-20s %s", s.Step, stepColor(s.Status))
			if s.Error != "" {
				line += gray(" (" + s.Error + ")")
			}
			fmt.Println(line)
		}
	},
}

var learnEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable automatic learning",
	Run: func(cmd *cobra.Command, args []string) {
		setAutoLearn(cmd, true)
	},
}

var learnDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable automatic learning",
	Run: func(cmd *cobra.Command, args []string) {
		setAutoLearn(cmd, false)
	},
}

var learnStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning counts",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := app.Learner.Stats(cmd.Context())
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(s)
			return
		}
		enabled := green("enabled")
		if !s.AutoLearnEnabled {
			enabled = gray("disabled")
		}
		header("Learner")
		fmt.Printf("  Auto-learn:   %s\n", enabled)
		fmt.Printf("  Learnings:    %d (%d successful)\n", s.TotalLearnings, s.SuccessfulLearnings)
		fmt.Printf("  Last updated: %s\n\n", formatTime(s.LastUpdated))
	},
}

func setAutoLearn(cmd *cobra.Command, enabled bool) {
	ctx := cmd.Context()
	beginWrite(ctx, "learn "+cmd.Name(), false)
	if err := app.Learner.SetAutoLearn(ctx, enabled); err != nil {
		fail("%v", err)
	}
	if jsonOutput {
		printJSON(map[string]bool{"autoLearnEnabled": enabled})
		return
	}
	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Printf("%s Auto-learning %s\n", green("✓"), state)
}

func stepColor(s types.StepStatus) string {
	switch s {
	case types.StepSuccess:
		return green(string(s))
	case types.StepFailed:
		return red(string(s))
	default:
		return gray(string(s))
	}
}

func init() {
	learnRecordCmd.Flags().StringArray("step", nil, "Step outcome as name=status[:error] (repeatable)")

	learnCmd.AddCommand(learnRecordCmd)
	learnCmd.AddCommand(learnEnableCmd)
	learnCmd.AddCommand(learnDisableCmd)
	learnCmd.AddCommand(learnStatsCmd)
	rootCmd.AddCommand(learnCmd)
}
