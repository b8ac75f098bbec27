package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/brain/internal/abtest"
	"github.com/steveyegge/brain/internal/types"
)

var abtestCmd = &cobra.Command{
	Use:   "abtest",
	Short: "A/B test commands",
	Long:  `Compare two approaches to a small task and record which one won.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var abtestCreateCmd = &cobra.Command{
	Use:   "create <description>",
	Short: "Start a new A/B test",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		beginWrite(ctx, "abtest create", true)

		test, err := app.ABTests.Create(ctx, strings.Join(args, " "))
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(test)
			return
		}
		fmt.Printf("%s Created %s: %s\n", green("✓"), test.ID, test.Description)
		fmt.Printf("\nNext: brain abtest update %s A <description> --score N\n", test.ID)
	},
}

var abtestUpdateCmd = &cobra.Command{
	Use:   "update <test-id> <A|B> <description>",
	Short: "Record the implementation of one option",
	Args:  cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		option, err := abtest.ParseOption(args[1])
		if err != nil {
			fail("%v", err)
		}
		var score *int
		if cmd.Flags().Changed("score") {
			s, _ := cmd.Flags().GetInt("score")
			score = &s
		}

		beginWrite(ctx, "abtest update", true)
		test, err := app.ABTests.UpdateOption(ctx, args[0], option, strings.Join(args[2:], " "), score)
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(test)
			return
		}
		fmt.Printf("%s Updated option %s of %s (%s)\n", green("✓"), option, test.ID, test.Status)
		if test.Status == types.ABTestReadyToCompare {
			fmt.Printf("\nNext: brain abtest compare %s\n", test.ID)
		}
	},
}

var abtestCompareCmd = &cobra.Command{
	Use:   "compare <test-id>",
	Short: "Recommend the better option",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := app.ABTests.Compare(cmd.Context(), args[0])
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(c)
			return
		}
		header("Comparison " + c.TestID)
		fmt.Printf("  A (%d/10): %s\n", c.OptionA.Score, c.OptionA.Description)
		fmt.Printf("  B (%d/10): %s\n\n", c.OptionB.Score, c.OptionB.Description)
		fmt.Printf("  Recommendation: %s (margin %d)\n", green(string(c.Recommendation)), c.Margin)
		fmt.Printf("\nTo record: brain abtest select %s %s <reason>\n", c.TestID, c.Recommendation)
	},
}

var abtestSelectCmd = &cobra.Command{
	Use:   "select <test-id> <A|B> [reason]",
	Short: "Record the winning option",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		winner, err := abtest.ParseOption(args[1])
		if err != nil {
			fail("%v", err)
		}

		beginWrite(ctx, "abtest select", true)
		test, err := app.ABTests.SelectWinner(ctx, args[0], winner, strings.Join(args[2:], " "))
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(test)
			return
		}
		fmt.Printf("%s %s completed, winner: %s\n", green("✓"), test.ID, winner)
	},
}

var abtestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List A/B tests",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		tests, err := app.ABTests.List(cmd.Context(), types.ABTestStatus(strings.ToUpper(status)))
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(tests)
			return
		}
		if len(tests) == 0 {
			fmt.Printf("%s\n", gray("No A/B tests"))
			return
		}
		for _, t := range tests {
			winner := gray("-")
			if t.Winner != nil {
				winner = green(string(*t.Winner))
			}
			fmt.Printf("  %s  %-16s %s  %s\n", t.ID, t.Status, winner, t.Description)
		}
	},
}

var abtestStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show A/B test counts and win tallies",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := app.ABTests.Stats(cmd.Context())
		if err != nil {
			fail("%v", err)
		}
		if jsonOutput {
			printJSON(s)
			return
		}
		header("A/B Tests")
		fmt.Printf("  Tests:     %d (%d completed, %d pending)\n", s.TotalTests, s.CompletedTests, s.PendingTests)
		fmt.Printf("  A wins:    %d\n", s.OptionAWins)
		fmt.Printf("  B wins:    %d\n\n", s.OptionBWins)
	},
}

func init() {
	abtestUpdateCmd.Flags().Int("score", 0, "Score for this option (1-10)")
	abtestListCmd.Flags().String("status", "", "Only show tests with this status (PENDING, READY_TO_COMPARE, COMPLETED)")

	abtestCmd.AddCommand(abtestCreateCmd)
	abtestCmd.AddCommand(abtestUpdateCmd)
	abtestCmd.AddCommand(abtestCompareCmd)
	abtestCmd.AddCommand(abtestSelectCmd)
	abtestCmd.AddCommand(abtestListCmd)
	abtestCmd.AddCommand(abtestStatsCmd)
	rootCmd.AddCommand(abtestCmd)
}
