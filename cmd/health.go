package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jeeves/shared/health"
	"jeeves/shared/registry"
)

var healthCmd = &cobra.Command{
	Use:   "health [service]",
	Short: "Probe the fleet (or one service) and print a report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCore()
		if err != nil {
			return err
		}
		ctx := context.Background()

		if len(args) == 1 {
			res := c.checker.CheckService(ctx, registry.ServiceName(args[0]))
			printServiceHealth(res)
			return nil
		}

		report := c.checker.Report(ctx)
		fmt.Print(report.Render())
		return nil
	},
}

func printServiceHealth(res health.Result) {
	switch res.Status {
	case health.StatusHealthy:
		color.Green("✅ %s is healthy (%s)", res.Service, res.Duration.Round(time.Millisecond))
	case health.StatusUnknown:
		color.Yellow("❓ %s is not in the catalog", res.Service)
	default:
		color.Red("💥 %s is %s", res.Service, res.Status)
	}
	for _, check := range res.Checks {
		mark := color.GreenString("✓")
		detail := ""
		if !check.Passed {
			mark = color.RedString("✗")
			detail = " — " + check.Error
		}
		fmt.Printf("  %s %-9s %s%s\n", mark, check.Probe, check.Target, detail)
	}
}

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the host diagnostics battery",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCore()
		if err != nil {
			return err
		}

		results := c.checker.RunSelfTests(context.Background(), c.cfg)
		failed := 0
		for _, res := range results {
			if res.Passed {
				fmt.Printf("%s %-18s %s\n", color.GreenString("✓"), res.Name, res.Summary)
			} else {
				failed++
				fmt.Printf("%s %-18s %s\n", color.RedString("✗"), res.Name, res.Summary)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d/%d self-tests failed", failed, len(results))
		}
		color.Green("all %d self-tests passed", len(results))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(selftestCmd)
}
