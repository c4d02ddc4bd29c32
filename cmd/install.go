package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jeeves/shared/installer"
	"jeeves/shared/registry"
)

var installCmd = &cobra.Command{
	Use:   "install <service>",
	Short: "Install a service from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCore()
		if err != nil {
			return err
		}

		res := c.inst.Install(context.Background(), registry.ServiceName(args[0]))
		printResult(res)
		if !res.Success {
			return fmt.Errorf("install failed")
		}
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <service>",
	Short: "Tear a service down (data volumes are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCore()
		if err != nil {
			return err
		}

		res := c.inst.Uninstall(context.Background(), registry.ServiceName(args[0]))
		printResult(res)
		if !res.Success {
			return fmt.Errorf("uninstall failed")
		}
		return nil
	},
}

func printResult(res installer.InstallResult) {
	if res.Success {
		color.Green("✅ %s", res.Message)
	} else {
		color.Red("❌ %s", res.Message)
	}
	for _, w := range res.Warnings {
		color.Yellow("⚠️  %s", w)
	}
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}
