package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jeeves/shared"
	"jeeves/shared/registry"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the service catalog and runtime state",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCore()
		if err != nil {
			return err
		}

		headers := []string{"NAME", "TIER", "PRIORITY", "RAM", "PORTS", "STATE"}
		var rows [][]string
		for _, def := range c.reg.List() {
			ram := fmt.Sprintf("%d MB", def.RAMLimitMB)
			if def.SystemService {
				ram = "host"
			}
			rows = append(rows, []string{
				def.Name.String(),
				string(def.Tier),
				string(def.Priority),
				ram,
				formatPorts(def.Ports),
				colorState(def.State),
			})
		}
		clog.Table(shared.LevelInfo, headers, rows)

		usage := c.reg.RAMUsage()
		fmt.Printf("\n💾 RAM: %d/%d MB declared (%d MB headroom)\n",
			usage.TotalMB, usage.BudgetMB, usage.HeadroomMB)
		return nil
	},
}

var serviceInfoCmd = &cobra.Command{
	Use:   "info <service>",
	Short: "Show one catalog entry in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCore()
		if err != nil {
			return err
		}

		name := registry.ServiceName(args[0])
		def, ok := c.reg.Get(name)
		if !ok {
			return fmt.Errorf("%s is not in the catalog", name)
		}

		fmt.Printf("Name:      %s\n", def.Name)
		fmt.Printf("Tier:      %s\n", def.Tier)
		fmt.Printf("Priority:  %s\n", def.Priority)
		fmt.Printf("Image:     %s\n", def.Image)
		fmt.Printf("Ports:     %v\n", def.Ports)
		fmt.Printf("RAM limit: %d MB\n", def.RAMLimitMB)
		fmt.Printf("State:     %s\n", colorState(def.State))
		if len(def.DependsOn) > 0 {
			fmt.Printf("Depends:   %v\n", def.DependsOn)
			fmt.Printf("Resolved:  %v\n", c.reg.Dependencies(name))
		}
		if deps := c.reg.Dependents(name); len(deps) > 0 {
			fmt.Printf("Needed by: %v\n", deps)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check catalog invariants (ports, RAM budget, dependencies)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCore()
		if err != nil {
			return err
		}

		problems := c.reg.Validate()
		if len(problems) == 0 {
			color.Green("✅ catalog is sound")
			return nil
		}
		for _, p := range problems {
			color.Red("✗ %s", p)
		}
		return fmt.Errorf("%d catalog problems", len(problems))
	},
}

func formatPorts(ports []int) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ",")
}

func colorState(s registry.State) string {
	switch s {
	case registry.StateRunning:
		return color.GreenString(string(s))
	case registry.StateError:
		return color.RedString(string(s))
	case registry.StateStopped:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}

func init() {
	servicesCmd.AddCommand(serviceInfoCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(validateCmd)
}
