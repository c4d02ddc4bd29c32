// Package health runs liveness probes against the service fleet and a
// fixed battery of host self-tests, writing observed state back into the
// registry. Probes never return errors to callers: a timeout or refused
// connection is a failed check record, nothing more.
package health

import (
	"time"

	"jeeves/shared/registry"
)

// ProbeTimeout bounds every individual probe.
const ProbeTimeout = 5 * time.Second

// Status is the aggregate health of one service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// Check is one probe invocation: probe kind, what it targeted, and how
// it went.
type Check struct {
	Probe   string
	Target  string
	Passed  bool
	Latency time.Duration
	Error   string
}

// Result is the outcome of checking one service.
type Result struct {
	Service  registry.ServiceName
	Status   Status
	Checks   []Check
	Duration time.Duration
}

// FailedProbes lists the probe names that failed, for alert lines.
func (r Result) FailedProbes() []string {
	var failed []string
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c.Probe)
		}
	}
	return failed
}

// aggregate applies the fleet-wide rule: all probes passed is healthy,
// some is degraded, none is unhealthy, and no probes at all is unknown.
func aggregate(checks []Check) Status {
	if len(checks) == 0 {
		return StatusUnknown
	}
	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}
	switch passed {
	case len(checks):
		return StatusHealthy
	case 0:
		return StatusUnhealthy
	default:
		return StatusDegraded
	}
}

// healthEndpoints maps service names to HTTP health paths. Only services
// listed here get an HTTP probe; plain TCP is enough for the rest.
var healthEndpoints = map[registry.ServiceName]string{
	"jellyfin":    "/health",
	"grafana":     "/api/health",
	"vaultwarden": "/alive",
	"gitea":       "/api/healthz",
	"immich":      "/api/server/ping",
	"uptime-kuma": "/",
}
