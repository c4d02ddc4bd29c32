package health

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"jeeves/shared"
	"jeeves/shared/engine"
	"jeeves/shared/registry"
	"jeeves/shared/runner"
)

var hlog = shared.PackageLogger("health", "🩺 HEALTH")

// Engine is the container inspection surface the checker needs.
type Engine interface {
	Inspect(ctx context.Context, name string) (engine.HealthInfo, error)
}

// Checker probes services and records their state in the registry.
type Checker struct {
	reg     *registry.Registry
	engine  Engine
	client  *http.Client
	dialer  *net.Dialer
	// probeHost is where published ports are reachable; localhost on
	// the box itself, overridable for tests.
	probeHost string
}

// NewChecker builds a Checker against the given registry and engine.
func NewChecker(reg *registry.Registry, eng Engine) *Checker {
	return &Checker{
		reg:       reg,
		engine:    eng,
		client:    &http.Client{Timeout: ProbeTimeout},
		dialer:    &net.Dialer{Timeout: ProbeTimeout},
		probeHost: "localhost",
	}
}

// CheckService runs every applicable probe for one service, aggregates
// the outcome, and writes it back into the registry. A name missing from
// the catalog yields StatusUnknown with no side effects.
func (c *Checker) CheckService(ctx context.Context, name registry.ServiceName) Result {
	start := time.Now()

	def, ok := c.reg.Get(name)
	if !ok {
		return Result{Service: name, Status: StatusUnknown}
	}

	var checks []Check
	if def.SystemService {
		checks = append(checks, c.systemdProbe(ctx, name))
	} else {
		checks = append(checks, c.containerProbe(ctx, name))
		for _, port := range def.Ports {
			checks = append(checks, c.tcpProbe(port))
		}
		if path, known := healthEndpoints[name]; known && len(def.Ports) > 0 {
			checks = append(checks, c.httpProbe(ctx, def.Ports[0], path))
		}
	}

	result := Result{
		Service:  name,
		Status:   aggregate(checks),
		Checks:   checks,
		Duration: time.Since(start),
	}

	switch result.Status {
	case StatusHealthy, StatusDegraded:
		_ = c.reg.SetState(name, registry.StateRunning)
	case StatusUnhealthy:
		_ = c.reg.SetState(name, registry.StateError)
	}

	if result.Status != StatusHealthy {
		hlog.Warn("%s is %s (failed: %v)", name, result.Status, result.FailedProbes())
	}

	return result
}

// CheckAll fans CheckService out across the whole catalog concurrently.
// Each goroutine only touches its own service's registry entry, so no
// extra synchronization is needed beyond the registry's own lock.
func (c *Checker) CheckAll(ctx context.Context) map[registry.ServiceName]Result {
	defs := c.reg.List()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[registry.ServiceName]Result, len(defs))
	)

	for _, def := range defs {
		wg.Add(1)
		go func(name registry.ServiceName) {
			defer wg.Done()
			res := c.CheckService(ctx, name)
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(def.Name)
	}
	wg.Wait()

	return results
}

// containerProbe asks the engine about the container. A configured
// healthcheck is authoritative; without one, a running container counts
// as alive.
func (c *Checker) containerProbe(ctx context.Context, name registry.ServiceName) Check {
	start := time.Now()
	check := Check{Probe: "container", Target: name.String()}

	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	info, err := c.engine.Inspect(probeCtx, name.String())
	check.Latency = time.Since(start)
	if err != nil {
		check.Error = err.Error()
		return check
	}

	if info.HasHealthcheck {
		check.Passed = info.Status == "healthy"
		if !check.Passed {
			check.Error = fmt.Sprintf("engine reports %s", info.Status)
		}
		return check
	}

	check.Passed = info.Running
	if !check.Passed {
		check.Error = "container not running"
	}
	return check
}

// tcpProbe attempts a raw connect to a published port.
func (c *Checker) tcpProbe(port int) Check {
	addr := net.JoinHostPort(c.probeHost, fmt.Sprintf("%d", port))
	start := time.Now()
	check := Check{Probe: "tcp", Target: addr}

	conn, err := c.dialer.Dial("tcp", addr)
	check.Latency = time.Since(start)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	conn.Close()
	check.Passed = true
	return check
}

// httpProbe issues a GET against a known health endpoint. Anything below
// 500 passes: login pages, redirects and setup wizards all mean the
// service is serving.
func (c *Checker) httpProbe(ctx context.Context, port int, path string) Check {
	url := fmt.Sprintf("http://%s%s", net.JoinHostPort(c.probeHost, fmt.Sprintf("%d", port)), path)
	start := time.Now()
	check := Check{Probe: "http", Target: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		check.Error = err.Error()
		return check
	}

	resp, err := c.client.Do(req)
	check.Latency = time.Since(start)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 1 && resp.StatusCode <= 499 {
		check.Passed = true
	} else {
		check.Error = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return check
}

// systemdProbe replaces the container/TCP/HTTP trio for host daemons.
func (c *Checker) systemdProbe(ctx context.Context, name registry.ServiceName) Check {
	start := time.Now()
	check := Check{Probe: "systemd", Target: name.String()}

	res := runner.Run(ctx, ProbeTimeout, "systemctl", "is-active", "--quiet", name.String())
	check.Latency = time.Since(start)
	check.Passed = res.OK()
	if !check.Passed {
		check.Error = fmt.Sprintf("systemctl is-active exited %d", res.ExitCode)
	}
	return check
}
