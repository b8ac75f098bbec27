package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

var judgeCmd = &cobra.Command{
	Use:   "judge",
	Short: "Report quality scoring commands",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var judgeRecordCmd = &cobra.Command{
	Use:   "record <report> <category=score>...",
	Short: "Score a report",
	Long: `Record category scores (0-10) for a report. The final score is their mean;
the report passes when it reaches the pass threshold.

Example:
  $ brain judge record sprint-3-report clarity=7 detail=4 format=8`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		scores, err := parseScores(args[1:])
		if err != nil {
			fail("%v", err)
		}

		beginWrite(ctx, "judge record", true)
		score, err := app.Judge.Record(ctx, args[0], scores)
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(score)
			return
		}

		verdict := green("PASSED")
		if !score.Passed {
			verdict = red("FAILED")
		}
		fmt.Printf("%s %s: %.1f/10\n", verdict, score.Report, score.FinalScore)
		categories := make([]string, 0, len(score.Scores))
		for c := range score.Scores {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Printf("  %-12s %.1f\n", c, score.Scores[c])
		}
	},
}

var judgeThresholdCmd = &cobra.Command{
	Use:   "threshold <score>",
	Short: "Set the pass threshold (0-10)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		threshold, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			fail("threshold must be a number: %v", err)
		}

		beginWrite(ctx, "judge threshold", false)
		if err := app.Judge.SetThreshold(ctx, threshold); err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(map[string]float64{"passThreshold": threshold})
			return
		}
		fmt.Printf("%s Pass threshold set to %.1f\n", green("✓"), threshold)
	},
}

var judgeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show score counts",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := app.Judge.Stats(cmd.Context())
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(s)
			return
		}
		header("Judge")
		fmt.Printf("  Reports scored: %d (%s passed, %s failed)\n",
			s.TotalScored, green(strconv.Itoa(s.Passed)), red(strconv.Itoa(s.Failed)))
		fmt.Printf("  Average score:  %.1f/10\n", s.AverageScore)
		fmt.Printf("  Pass threshold: %.1f\n\n", s.PassThreshold)
	},
}

func init() {
	judgeCmd.AddCommand(judgeRecordCmd)
	judgeCmd.AddCommand(judgeThresholdCmd)
	judgeCmd.AddCommand(judgeStatsCmd)
	rootCmd.AddCommand(judgeCmd)
}
