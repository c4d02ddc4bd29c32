// Package installer orchestrates install, uninstall and priority-ordered
// bulk updates. The failure policy favors availability: validation
// problems become warnings on an otherwise successful result; only a
// failed deploy, an uninstall blocked by live dependents, or an
// unrecoverable update flip the success flag.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"jeeves/shared"
	"jeeves/shared/caddy"
	"jeeves/shared/compose"
	"jeeves/shared/config"
	"jeeves/shared/engine"
	"jeeves/shared/health"
	"jeeves/shared/registry"
)

// SettlePeriod is how long a freshly (re)created container gets before
// its first health check.
const SettlePeriod = 5 * time.Second

var (
	ErrUnknownService      = errors.New("service not in catalog")
	ErrSystemService       = errors.New("system services are host-managed")
	ErrBlockedByDependents = errors.New("running services depend on this one")
	ErrDeployFailed        = errors.New("deployment failed")
)

var ilog = shared.PackageLogger("installer", "📦 INSTALLER")

// Engine is the container-engine surface the installer drives.
type Engine interface {
	IsActive(ctx context.Context, name string) (bool, error)
	ListActive(ctx context.Context) ([]engine.ContainerInfo, error)
	ComposeUp(ctx context.Context, dir string) error
	ComposeDown(ctx context.Context, dir string) error
	Recreate(ctx context.Context, dir string) error
	Restart(ctx context.Context, name string) error
	Pull(ctx context.Context, image string) error
}

// Health gates deploys and updates.
type Health interface {
	CheckService(ctx context.Context, name registry.ServiceName) health.Result
}

// Proxy registers reverse-proxy routes. Black box: success or message.
type Proxy interface {
	AddRoute(ctx context.Context, service, domain string, port int) (string, error)
	RemoveRoute(ctx context.Context, service string) (string, error)
}

// DNS registers local DNS names. Black box: success or message.
type DNS interface {
	Register(ctx context.Context, service, domain, hostIP string) (string, error)
	Deregister(ctx context.Context, service, domain, hostIP string) (string, error)
}

// InstallResult is the outcome of one install or uninstall.
type InstallResult struct {
	Service  registry.ServiceName
	Success  bool
	Message  string
	Warnings []string
	Duration time.Duration
}

// UpdateAllResult aggregates a rolling update across the fleet.
type UpdateAllResult struct {
	Success  bool
	Message  string
	Updated  []registry.ServiceName
	Failed   []registry.ServiceName
	Skipped  []registry.ServiceName
	Warnings []string
	Duration time.Duration
}

// Installer wires the registry, health checker, engine, proxy and DNS
// helpers together.
type Installer struct {
	reg    *registry.Registry
	engine Engine
	health Health
	proxy  Proxy
	dns    DNS
	cfg    *config.Config

	settle time.Duration

	// Operations on the same service are serialized with a per-service
	// mutex; operations on distinct services may interleave freely.
	mu    sync.Mutex
	locks map[registry.ServiceName]*sync.Mutex
}

// New builds an Installer.
func New(reg *registry.Registry, eng Engine, hc Health, proxy Proxy, dns DNS, cfg *config.Config) *Installer {
	return &Installer{
		reg:    reg,
		engine: eng,
		health: hc,
		proxy:  proxy,
		dns:    dns,
		cfg:    cfg,
		settle: SettlePeriod,
		locks:  make(map[registry.ServiceName]*sync.Mutex),
	}
}

// lock serializes operations touching one service.
func (i *Installer) lock(name registry.ServiceName) func() {
	i.mu.Lock()
	m, ok := i.locks[name]
	if !ok {
		m = &sync.Mutex{}
		i.locks[name] = m
	}
	i.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Install deploys one service from its catalog definition. Validation
// problems warn; only a failed deploy (or being unable to write the
// descriptor it needs) fails.
func (i *Installer) Install(ctx context.Context, name registry.ServiceName) InstallResult {
	defer i.lock(name)()
	start := time.Now()
	res := InstallResult{Service: name}

	def, ok := i.reg.Get(name)
	if !ok {
		res.Message = fmt.Sprintf("%s: %v", name, ErrUnknownService)
		res.Duration = time.Since(start)
		return res
	}
	if def.SystemService {
		res.Message = fmt.Sprintf("%s: %v", name, ErrSystemService)
		res.Duration = time.Since(start)
		return res
	}

	active, err := i.engine.IsActive(ctx, name.String())
	switch {
	case err != nil:
		res.Warnings = append(res.Warnings, fmt.Sprintf("could not list running containers: %v", err))
	case active:
		res.Warnings = append(res.Warnings, fmt.Sprintf("container %s is already active", name))
	}

	if projected := i.reg.RunningRAM() + def.RAMLimitMB; projected > i.reg.Budget() {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"projected RAM %d MB exceeds budget %d MB", projected, i.reg.Budget()))
	}

	for _, dep := range def.DependsOn {
		if depDef, ok := i.reg.Get(dep); ok && depDef.State != registry.StateRunning {
			res.Warnings = append(res.Warnings, fmt.Sprintf("dependency %s is not running", dep))
		}
	}

	stackDir := i.cfg.StackDir(name.String())
	if err := os.MkdirAll(stackDir, 0755); err != nil {
		res.Message = fmt.Sprintf("failed to create %s: %v", stackDir, err)
		res.Duration = time.Since(start)
		return res
	}

	var labels map[string]string
	if !def.HostNetwork && len(def.Ports) > 0 {
		labels = caddy.Labels(name.String(), i.cfg.Domain, def.Ports[0])
	}

	file, err := compose.Generate(def, labels, stackDir)
	if err != nil {
		res.Message = fmt.Sprintf("failed to generate descriptor: %v", err)
		res.Duration = time.Since(start)
		return res
	}
	if err := compose.Write(file, stackDir); err != nil {
		res.Message = fmt.Sprintf("failed to persist descriptor: %v", err)
		res.Duration = time.Since(start)
		return res
	}

	// Deploy is the one hard stop.
	if err := i.engine.ComposeUp(ctx, stackDir); err != nil {
		_ = i.reg.SetState(name, registry.StateError)
		res.Message = fmt.Sprintf("%v: %v", ErrDeployFailed, err)
		res.Duration = time.Since(start)
		return res
	}

	time.Sleep(i.settle)
	if check := i.health.CheckService(ctx, name); check.Status != health.StatusHealthy {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"deployed but %s (failed: %v)", check.Status, check.FailedProbes()))
	}

	if !def.HostNetwork && len(def.Ports) > 0 {
		if _, err := i.proxy.AddRoute(ctx, name.String(), i.cfg.Domain, def.Ports[0]); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("reverse proxy: %v", err))
		}
	}
	if _, err := i.dns.Register(ctx, name.String(), i.cfg.Domain, i.cfg.HostIP); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("dns: %v", err))
	}

	res.Success = true
	res.Duration = time.Since(start)
	res.Message = fmt.Sprintf("%s installed in %s", name, res.Duration.Round(time.Millisecond))
	ilog.Success("%s installed (%d warnings)", name, len(res.Warnings))
	return res
}

// Uninstall tears a service down, refusing outright while any running
// service depends on it. Data volumes and the stack directory survive,
// so uninstall is reversible by reinstalling.
func (i *Installer) Uninstall(ctx context.Context, name registry.ServiceName) InstallResult {
	defer i.lock(name)()
	start := time.Now()
	res := InstallResult{Service: name}

	def, ok := i.reg.Get(name)
	if !ok {
		res.Message = fmt.Sprintf("%s: %v", name, ErrUnknownService)
		res.Duration = time.Since(start)
		return res
	}
	if def.SystemService {
		res.Message = fmt.Sprintf("%s: %v", name, ErrSystemService)
		res.Duration = time.Since(start)
		return res
	}

	var blockers []registry.ServiceName
	for _, dep := range i.reg.Dependents(name) {
		if depDef, ok := i.reg.Get(dep); ok && depDef.State == registry.StateRunning {
			blockers = append(blockers, dep)
		}
	}
	if len(blockers) > 0 {
		res.Message = fmt.Sprintf("%v: %v", ErrBlockedByDependents, blockers)
		res.Duration = time.Since(start)
		return res
	}

	if err := i.engine.ComposeDown(ctx, i.cfg.StackDir(name.String())); err != nil {
		res.Message = fmt.Sprintf("teardown failed: %v", err)
		res.Duration = time.Since(start)
		return res
	}

	if _, err := i.proxy.RemoveRoute(ctx, name.String()); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("reverse proxy: %v", err))
	}
	if _, err := i.dns.Deregister(ctx, name.String(), i.cfg.Domain, i.cfg.HostIP); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("dns: %v", err))
	}

	_ = i.reg.SetState(name, registry.StateStopped)

	res.Success = true
	res.Duration = time.Since(start)
	res.Message = fmt.Sprintf("%s uninstalled; data volumes kept", name)
	return res
}

// UpdateAll refreshes every active, catalog-known container in priority
// order, critical first, so infrastructure is current before anything
// that depends on it. Each service gets pull, recreate, settle, check,
// and at most one restart-rollback before being declared failed.
func (i *Installer) UpdateAll(ctx context.Context) UpdateAllResult {
	start := time.Now()
	res := UpdateAllResult{}

	active, err := i.engine.ListActive(ctx)
	if err != nil {
		res.Message = fmt.Sprintf("could not list containers: %v", err)
		res.Duration = time.Since(start)
		return res
	}

	var targets []registry.ServiceDefinition
	for _, info := range active {
		def, ok := i.reg.Get(registry.ServiceName(info.Name))
		if !ok || def.SystemService {
			res.Skipped = append(res.Skipped, registry.ServiceName(info.Name))
			continue
		}
		targets = append(targets, def)
	}

	sort.SliceStable(targets, func(a, b int) bool {
		return targets[a].Priority.Rank() < targets[b].Priority.Rank()
	})

	for _, def := range targets {
		i.updateOne(ctx, def, &res)
	}

	res.Success = len(res.Failed) == 0
	res.Duration = time.Since(start)
	res.Message = fmt.Sprintf("%d updated, %d failed, %d skipped",
		len(res.Updated), len(res.Failed), len(res.Skipped))
	return res
}

func (i *Installer) updateOne(ctx context.Context, def registry.ServiceDefinition, res *UpdateAllResult) {
	name := def.Name
	defer i.lock(name)()

	if err := i.engine.Pull(ctx, def.Image); err != nil {
		ilog.Error("%s: pull failed: %v", name, err)
		res.Failed = append(res.Failed, name)
		return
	}

	stackDir := i.cfg.StackDir(name.String())
	if err := i.engine.Recreate(ctx, stackDir); err != nil {
		ilog.Error("%s: recreate failed: %v", name, err)
		res.Failed = append(res.Failed, name)
		return
	}

	time.Sleep(i.settle)
	if i.health.CheckService(ctx, name).Status == health.StatusHealthy {
		res.Updated = append(res.Updated, name)
		return
	}

	// One rollback attempt: an in-place restart, not a downgrade.
	ilog.Warn("%s unhealthy after update, restarting once", name)
	if err := i.engine.Restart(ctx, name.String()); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: restart failed: %v", name, err))
	}
	time.Sleep(i.settle)
	if i.health.CheckService(ctx, name).Status == health.StatusHealthy {
		res.Updated = append(res.Updated, name)
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s recovered after restart", name))
		return
	}

	res.Failed = append(res.Failed, name)
	_ = i.reg.SetState(name, registry.StateError)
}
