package registry

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefs() []ServiceDefinition {
	return []ServiceDefinition{
		{Name: "db", Tier: TierDatabases, Ports: []int{5432}, RAMLimitMB: 1024, Priority: PriorityCritical},
		{Name: "cache", Tier: TierDatabases, Ports: []int{6379}, RAMLimitMB: 512, Priority: PriorityCritical},
		{Name: "app", Tier: TierServices, Ports: []int{8080}, RAMLimitMB: 2048, Priority: PriorityHigh,
			DependsOn: []ServiceName{"db", "cache"}},
		{Name: "web", Tier: TierServices, Ports: []int{8081}, RAMLimitMB: 512, Priority: PriorityMedium,
			DependsOn: []ServiceName{"app"}},
	}
}

func TestGetAndList(t *testing.T) {
	r := New(8192, testDefs())

	def, ok := r.Get("app")
	require.True(t, ok)
	assert.Equal(t, ServiceName("app"), def.Name)
	assert.Equal(t, StateUnknown, def.State)

	_, ok = r.Get("nope")
	assert.False(t, ok)

	assert.Len(t, r.List(), 4)
	assert.Len(t, r.ByTier(TierDatabases), 2)
	assert.Len(t, r.ByPriority(PriorityCritical), 2)
}

func TestAllPorts(t *testing.T) {
	r := New(8192, testDefs())
	assert.Equal(t, []int{5432, 6379, 8080, 8081}, r.AllPorts())
}

func TestDependenciesOrder(t *testing.T) {
	r := New(8192, testDefs())

	deps := r.Dependencies("web")
	assert.NotContains(t, deps, ServiceName("web"))
	assert.Contains(t, deps, ServiceName("app"))
	assert.Contains(t, deps, ServiceName("db"))

	// db must come before app, which depends on it
	idx := func(n ServiceName) int {
		for i, d := range deps {
			if d == n {
				return i
			}
		}
		return -1
	}
	assert.Less(t, idx("db"), idx("app"))
	assert.Less(t, idx("cache"), idx("app"))
}

func TestDependents(t *testing.T) {
	r := New(8192, testDefs())
	assert.Equal(t, []ServiceName{"app"}, r.Dependents("db"))
	assert.Equal(t, []ServiceName{"web"}, r.Dependents("app"))
	assert.Empty(t, r.Dependents("web"))
}

func TestCycleDetection(t *testing.T) {
	r := New(8192, []ServiceDefinition{
		{Name: "a", RAMLimitMB: 100, DependsOn: []ServiceName{"b"}},
		{Name: "b", RAMLimitMB: 100, DependsOn: []ServiceName{"a"}},
	})

	problems := r.Validate()
	require.NotEmpty(t, problems)

	var cycles int
	for _, p := range problems {
		if strings.Contains(p, "dependency cycle") {
			cycles++
		}
	}
	assert.Equal(t, 2, cycles, "both a and b should be flagged")
}

func TestRAMBudget(t *testing.T) {
	defs := []ServiceDefinition{
		{Name: "big", RAMLimitMB: 15000},
	}
	r := New(14336, defs)

	usage := r.RAMUsage()
	assert.False(t, usage.WithinBudget)
	assert.Equal(t, 15000, usage.TotalMB)
	assert.Equal(t, -664, usage.HeadroomMB)
	assert.Equal(t, 664, usage.OverageMB())

	problems := r.Validate()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "664 MB")
}

func TestRunningRAM(t *testing.T) {
	r := New(8192, testDefs())
	assert.Equal(t, 0, r.RunningRAM())

	require.NoError(t, r.SetState("db", StateRunning))
	require.NoError(t, r.SetState("app", StateRunning))
	assert.Equal(t, 3072, r.RunningRAM())
}

func TestSetStateIdempotent(t *testing.T) {
	r := New(8192, testDefs())

	require.NoError(t, r.SetState("db", StateRunning))
	def, _ := r.Get("db")
	firstChecked := def.LastChecked
	firstTransition := def.LastTransition
	assert.False(t, firstTransition.IsZero())

	time.Sleep(5 * time.Millisecond)

	require.NoError(t, r.SetState("db", StateRunning))
	def, _ = r.Get("db")
	assert.True(t, def.LastChecked.After(firstChecked), "last-checked always refreshes")
	assert.Equal(t, firstTransition, def.LastTransition, "transition stamp only moves on change")

	require.NoError(t, r.SetState("db", StateStopped))
	def, _ = r.Get("db")
	assert.True(t, def.LastTransition.After(firstTransition))

	assert.ErrorIs(t, r.SetState("nope", StateRunning), ErrUnknownService)
}

func TestPortConflicts(t *testing.T) {
	r := New(8192, []ServiceDefinition{
		{Name: "a", Ports: []int{8080}},
		{Name: "b", Ports: []int{8080, 9090}},
		{Name: "c", Ports: []int{9091}},
	})

	conflicts := r.PortConflicts()
	require.Len(t, conflicts, 1)
	assert.Contains(t, conflicts[0], "8080")
}

func TestDanglingDependency(t *testing.T) {
	r := New(8192, []ServiceDefinition{
		{Name: "a", DependsOn: []ServiceName{"ghost"}},
	})

	problems := r.Validate()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "ghost")
}

func TestBuiltinCatalogIsSound(t *testing.T) {
	r := New(14336, Catalog())
	assert.Empty(t, r.Validate())
}
