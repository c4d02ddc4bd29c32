package health

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"jeeves/shared/registry"
)

// SystemServiceStatus is reported informationally: host daemons are not
// container-managed, so they stay out of the fleet tally.
type SystemServiceStatus struct {
	Name   registry.ServiceName
	Active bool
}

// FleetReport aggregates per-service results into fleet totals.
type FleetReport struct {
	Total     int
	Healthy   int
	Degraded  int
	Unhealthy int
	Unknown   int

	SystemServices []SystemServiceStatus
	Alerts         []string

	Results map[registry.ServiceName]Result
}

// Report checks the whole fleet and aggregates the outcome. One alert
// line is emitted per degraded or unhealthy service, naming the probes
// that failed.
func (c *Checker) Report(ctx context.Context) FleetReport {
	results := c.CheckAll(ctx)

	report := FleetReport{Results: results}

	names := make([]registry.ServiceName, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		res := results[name]
		def, _ := c.reg.Get(name)

		if def.SystemService {
			report.SystemServices = append(report.SystemServices, SystemServiceStatus{
				Name:   name,
				Active: res.Status == StatusHealthy,
			})
			continue
		}

		report.Total++
		switch res.Status {
		case StatusHealthy:
			report.Healthy++
		case StatusDegraded:
			report.Degraded++
		case StatusUnhealthy:
			report.Unhealthy++
		default:
			report.Unknown++
		}

		if res.Status == StatusDegraded || res.Status == StatusUnhealthy {
			report.Alerts = append(report.Alerts, fmt.Sprintf(
				"%s is %s (failed: %s)", name, res.Status,
				strings.Join(res.FailedProbes(), ", ")))
		}
	}

	return report
}

// Render formats the report for humans: one summary line, then one line
// per alert, then the host daemons.
func (r FleetReport) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d/%d services healthy", r.Healthy, r.Total)
	if r.Degraded > 0 {
		fmt.Fprintf(&b, ", %d degraded", r.Degraded)
	}
	if r.Unhealthy > 0 {
		fmt.Fprintf(&b, ", %d unhealthy", r.Unhealthy)
	}
	if r.Unknown > 0 {
		fmt.Fprintf(&b, ", %d unknown", r.Unknown)
	}
	b.WriteString("\n")

	for _, alert := range r.Alerts {
		fmt.Fprintf(&b, "⚠️  %s\n", alert)
	}

	for _, sys := range r.SystemServices {
		state := "active"
		if !sys.Active {
			state = "inactive"
		}
		fmt.Fprintf(&b, "host daemon %s: %s\n", sys.Name, state)
	}

	return b.String()
}
