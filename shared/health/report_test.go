package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jeeves/shared/engine"
	"jeeves/shared/registry"
)

func TestReportExcludesSystemServices(t *testing.T) {
	reg := registry.New(8192, []registry.ServiceDefinition{
		{Name: "app"},
		{Name: "broken"},
		{Name: "sshd", SystemService: true},
	})
	eng := &fakeEngine{infos: map[string]engine.HealthInfo{
		"app": {Running: true},
	}}
	c := newTestChecker(reg, eng)

	report := c.Report(context.Background())

	assert.Equal(t, 2, report.Total, "system services stay out of the tally")
	assert.Equal(t, 1, report.Healthy)
	assert.Equal(t, 1, report.Unhealthy)
	require.Len(t, report.SystemServices, 1)
	assert.Equal(t, registry.ServiceName("sshd"), report.SystemServices[0].Name)

	require.Len(t, report.Alerts, 1)
	assert.Contains(t, report.Alerts[0], "broken")
	assert.Contains(t, report.Alerts[0], "container")
}

func TestRender(t *testing.T) {
	report := FleetReport{
		Total:     3,
		Healthy:   2,
		Unhealthy: 1,
		Alerts:    []string{"broken is unhealthy (failed: container)"},
		SystemServices: []SystemServiceStatus{
			{Name: "sshd", Active: true},
		},
	}

	out := report.Render()
	assert.Contains(t, out, "2/3 services healthy")
	assert.Contains(t, out, "1 unhealthy")
	assert.Contains(t, out, "broken is unhealthy")
	assert.Contains(t, out, "host daemon sshd: active")
}

func TestParseUsePercent(t *testing.T) {
	out := "Use%\n 42%\n"
	pct, ok := parseUsePercent(out)
	require.True(t, ok)
	assert.Equal(t, 42, pct)

	_, ok = parseUsePercent("garbage")
	assert.False(t, ok)
}
