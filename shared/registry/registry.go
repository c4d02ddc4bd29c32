package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"jeeves/shared"
)

var (
	ErrUnknownService = errors.New("service not in catalog")
)

var rlog = shared.PackageLogger("registry", "📇 REGISTRY")

// Registry is the catalog of service definitions plus their runtime state.
// The catalog is seeded once by New and never grows or shrinks; entries
// are only ever marked stopped or error, never deleted. Construct one per
// process (or per test) and pass the handle around.
type Registry struct {
	mu       sync.RWMutex
	services map[ServiceName]*ServiceDefinition
	order    []ServiceName
	budgetMB int
}

// New builds a registry from the given definitions with the given RAM
// budget. Definitions start in StateUnknown unless they declare a state.
func New(budgetMB int, defs []ServiceDefinition) *Registry {
	r := &Registry{
		services: make(map[ServiceName]*ServiceDefinition, len(defs)),
		order:    make([]ServiceName, 0, len(defs)),
		budgetMB: budgetMB,
	}
	for _, def := range defs {
		d := def
		if d.State == "" {
			d.State = StateUnknown
		}
		r.services[d.Name] = &d
		r.order = append(r.order, d.Name)
	}
	return r
}

// Budget returns the RAM budget the registry was constructed with.
func (r *Registry) Budget() int {
	return r.budgetMB
}

// Get returns a copy of the named definition.
func (r *Registry) Get(name ServiceName) (ServiceDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.services[name]
	if !ok {
		return ServiceDefinition{}, false
	}
	return *def, true
}

// List returns copies of all definitions in catalog order.
func (r *Registry) List() []ServiceDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ServiceDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.services[name])
	}
	return out
}

// ByTier returns all definitions in the given tier.
func (r *Registry) ByTier(tier Tier) []ServiceDefinition {
	var out []ServiceDefinition
	for _, def := range r.List() {
		if def.Tier == tier {
			out = append(out, def)
		}
	}
	return out
}

// ByPriority returns all definitions with the given priority.
func (r *Registry) ByPriority(priority Priority) []ServiceDefinition {
	var out []ServiceDefinition
	for _, def := range r.List() {
		if def.Priority == priority {
			out = append(out, def)
		}
	}
	return out
}

// AllPorts returns every declared host port across the catalog, sorted.
func (r *Registry) AllPorts() []int {
	var ports []int
	for _, def := range r.List() {
		ports = append(ports, def.Ports...)
	}
	sort.Ints(ports)
	return ports
}

// RAMUsage sums declared limits across the whole catalog against the
// budget. System services declare no container limit and contribute zero.
func (r *Registry) RAMUsage() RAMReport {
	total := 0
	for _, def := range r.List() {
		total += def.RAMLimitMB
	}
	return RAMReport{
		TotalMB:      total,
		BudgetMB:     r.budgetMB,
		WithinBudget: total <= r.budgetMB,
		HeadroomMB:   r.budgetMB - total,
	}
}

// RunningRAM sums the declared limits of services currently in
// StateRunning. The installer uses this for its projected-RAM warning.
func (r *Registry) RunningRAM() int {
	total := 0
	for _, def := range r.List() {
		if def.State == StateRunning {
			total += def.RAMLimitMB
		}
	}
	return total
}

// SetState records an observed state for a service. LastChecked is always
// refreshed; LastTransition only moves when the state actually changes.
func (r *Registry) SetState(name ServiceName, state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.services[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	now := time.Now()
	def.LastChecked = now
	if def.State != state {
		rlog.Debug("%s: %s -> %s", name, def.State, state)
		def.State = state
		def.LastTransition = now
	}
	return nil
}

// Dependencies resolves the full transitive dependency set of a service,
// dependency-first, excluding the service itself. Unknown names in
// DependsOn are skipped here; Validate reports them.
func (r *Registry) Dependencies(name ServiceName) []ServiceName {
	resolved := r.resolve(name)
	out := make([]ServiceName, 0, len(resolved))
	for _, dep := range resolved {
		if dep != name {
			out = append(out, dep)
		}
	}
	return out
}

// resolve walks the dependency graph depth-first with a visited-set
// guard. The root itself appears in the result only when a cycle leads
// back to it, which Validate uses as the cycle signal.
func (r *Registry) resolve(name ServiceName) []ServiceName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visited := make(map[ServiceName]bool)
	var order []ServiceName

	var walk func(n ServiceName)
	walk = func(n ServiceName) {
		def, ok := r.services[n]
		if !ok {
			return
		}
		for _, dep := range def.DependsOn {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			walk(dep)
			order = append(order, dep)
		}
	}
	walk(name)
	return order
}

// Dependents returns every service that lists name as a direct dependency.
func (r *Registry) Dependents(name ServiceName) []ServiceName {
	var out []ServiceName
	for _, def := range r.List() {
		for _, dep := range def.DependsOn {
			if dep == name {
				out = append(out, def.Name)
				break
			}
		}
	}
	return out
}

// PortConflicts returns one message per host port claimed by more than
// one service.
func (r *Registry) PortConflicts() []string {
	claims := make(map[int][]ServiceName)
	for _, def := range r.List() {
		for _, port := range def.Ports {
			claims[port] = append(claims[port], def.Name)
		}
	}

	ports := make([]int, 0, len(claims))
	for port := range claims {
		ports = append(ports, port)
	}
	sort.Ints(ports)

	var conflicts []string
	for _, port := range ports {
		if len(claims[port]) > 1 {
			conflicts = append(conflicts, fmt.Sprintf("port %d claimed by %v", port, claims[port]))
		}
	}
	return conflicts
}

// Validate runs the full catalog invariant sweep: port conflicts, RAM
// budget, dangling dependency references and dependency cycles. It
// returns one message per problem; an empty slice means the catalog is
// sound.
func (r *Registry) Validate() []string {
	var problems []string

	problems = append(problems, r.PortConflicts()...)

	if usage := r.RAMUsage(); !usage.WithinBudget {
		problems = append(problems, fmt.Sprintf(
			"declared RAM %d MB exceeds budget %d MB by %d MB",
			usage.TotalMB, usage.BudgetMB, usage.OverageMB()))
	}

	for _, def := range r.List() {
		for _, dep := range def.DependsOn {
			if _, ok := r.Get(dep); !ok {
				problems = append(problems, fmt.Sprintf(
					"%s depends on %s, which is not in the catalog", def.Name, dep))
			}
		}
	}

	for _, def := range r.List() {
		for _, dep := range r.resolve(def.Name) {
			if dep == def.Name {
				problems = append(problems, fmt.Sprintf(
					"%s is part of a dependency cycle", def.Name))
				break
			}
		}
	}

	return problems
}
