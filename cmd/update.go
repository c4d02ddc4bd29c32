package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Rolling update of every active service, critical first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCore()
		if err != nil {
			return err
		}

		res := c.inst.UpdateAll(context.Background())
		if res.Success {
			color.Green("✅ %s (%s)", res.Message, res.Duration.Round(time.Millisecond))
		} else {
			color.Red("❌ %s", res.Message)
		}
		for _, name := range res.Updated {
			fmt.Printf("  %s %s\n", color.GreenString("↑"), name)
		}
		for _, name := range res.Failed {
			fmt.Printf("  %s %s\n", color.RedString("✗"), name)
		}
		for _, name := range res.Skipped {
			fmt.Printf("  %s %s (skipped)\n", color.YellowString("-"), name)
		}
		for _, w := range res.Warnings {
			color.Yellow("⚠️  %s", w)
		}
		if !res.Success {
			return fmt.Errorf("update finished with failures")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
