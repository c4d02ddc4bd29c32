package registry

import "time"

// ServiceName identifies a catalog entry. A distinct type keeps service
// lookups from being mixed up with the other name-keyed maps in the
// assistant (routes, DNS records, container names).
type ServiceName string

func (n ServiceName) String() string { return string(n) }

// Tier is the coarse role grouping of a service.
type Tier string

const (
	TierCore       Tier = "core"
	TierMedia      Tier = "media"
	TierServices   Tier = "services"
	TierDatabases  Tier = "databases"
	TierMonitoring Tier = "monitoring"
)

// Priority orders startup and update sequencing, critical first.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Rank returns the numeric sort rank of the priority, critical lowest.
// Unknown priorities sort last.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// State is the observed runtime state of a service.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateError   State = "error"
	StateUnknown State = "unknown"
)

// ServiceDefinition describes one deployable unit. The static fields are
// fixed at catalog seed time; only State and the timestamps mutate, and
// only through Registry.SetState.
type ServiceDefinition struct {
	Name       ServiceName
	Tier       Tier
	Image      string
	Ports      []int
	RAMLimitMB int
	Priority   Priority
	DependsOn  []ServiceName

	// Devices passed through to the container, e.g. /dev/dri for
	// hardware transcode.
	Devices []string

	// HostNetwork services share the host network namespace and get no
	// reverse proxy route.
	HostNetwork bool

	// SystemService marks a host daemon that is not container-managed.
	// The installer refuses these; health checks use the service
	// manager instead of container probes.
	SystemService bool

	Env     map[string]string
	Volumes []string

	State          State
	LastChecked    time.Time
	LastTransition time.Time
}

// RAMReport summarizes declared memory limits against the host budget.
type RAMReport struct {
	TotalMB      int
	BudgetMB     int
	WithinBudget bool
	// HeadroomMB is negative when the catalog exceeds the budget.
	HeadroomMB int
}

// OverageMB returns how far over budget the catalog is, zero when within.
func (r RAMReport) OverageMB() int {
	if r.HeadroomMB < 0 {
		return -r.HeadroomMB
	}
	return 0
}
