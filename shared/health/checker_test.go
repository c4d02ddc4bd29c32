package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jeeves/shared/engine"
	"jeeves/shared/registry"
)

type fakeEngine struct {
	infos map[string]engine.HealthInfo
}

func (f *fakeEngine) Inspect(ctx context.Context, name string) (engine.HealthInfo, error) {
	info, ok := f.infos[name]
	if !ok {
		return engine.HealthInfo{}, errors.New("no such container")
	}
	return info, nil
}

func newTestChecker(reg *registry.Registry, eng Engine) *Checker {
	c := NewChecker(reg, eng)
	c.probeHost = "127.0.0.1"
	return c
}

// listen opens a throwaway TCP listener and returns its port.
func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestAggregate(t *testing.T) {
	pass := Check{Passed: true}
	fail := Check{Passed: false}

	assert.Equal(t, StatusUnknown, aggregate(nil))
	assert.Equal(t, StatusHealthy, aggregate([]Check{pass, pass}))
	assert.Equal(t, StatusDegraded, aggregate([]Check{pass, fail}))
	assert.Equal(t, StatusUnhealthy, aggregate([]Check{fail, fail}))
}

func TestCheckServiceUnknownName(t *testing.T) {
	reg := registry.New(8192, nil)
	c := newTestChecker(reg, &fakeEngine{})

	res := c.CheckService(context.Background(), "ghost")
	assert.Equal(t, StatusUnknown, res.Status)
	assert.Empty(t, res.Checks)
}

func TestCheckServiceHealthy(t *testing.T) {
	_, port := listen(t)

	reg := registry.New(8192, []registry.ServiceDefinition{
		{Name: "svc", Ports: []int{port}},
	})
	eng := &fakeEngine{infos: map[string]engine.HealthInfo{
		"svc": {Running: true},
	}}
	c := newTestChecker(reg, eng)

	res := c.CheckService(context.Background(), "svc")
	assert.Equal(t, StatusHealthy, res.Status)
	require.Len(t, res.Checks, 2) // container + tcp

	def, _ := reg.Get("svc")
	assert.Equal(t, registry.StateRunning, def.State)
}

func TestCheckServiceDegraded(t *testing.T) {
	// HTTP endpoint serving 500, TCP connect to it still succeeds.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	healthEndpoints["webapp"] = "/health"
	defer delete(healthEndpoints, "webapp")

	reg := registry.New(8192, []registry.ServiceDefinition{
		{Name: "webapp", Ports: []int{port}},
	})
	eng := &fakeEngine{infos: map[string]engine.HealthInfo{
		"webapp": {Running: true},
	}}
	c := newTestChecker(reg, eng)

	res := c.CheckService(context.Background(), "webapp")
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, []string{"http"}, res.FailedProbes())

	def, _ := reg.Get("webapp")
	assert.Equal(t, registry.StateRunning, def.State, "degraded still counts as running")
}

func TestCheckServiceUnhealthy(t *testing.T) {
	// Grab a free port and close it again so the TCP probe is refused.
	ln, port := listen(t)
	ln.Close()

	reg := registry.New(8192, []registry.ServiceDefinition{
		{Name: "down", Ports: []int{port}},
	})
	c := newTestChecker(reg, &fakeEngine{}) // inspect errors too

	res := c.CheckService(context.Background(), "down")
	assert.Equal(t, StatusUnhealthy, res.Status)

	def, _ := reg.Get("down")
	assert.Equal(t, registry.StateError, def.State)
}

func TestContainerProbeHealthcheckAuthoritative(t *testing.T) {
	reg := registry.New(8192, []registry.ServiceDefinition{{Name: "svc"}})
	eng := &fakeEngine{infos: map[string]engine.HealthInfo{
		"svc": {Running: true, HasHealthcheck: true, Status: "unhealthy"},
	}}
	c := newTestChecker(reg, eng)

	check := c.containerProbe(context.Background(), "svc")
	assert.False(t, check.Passed, "a failing healthcheck beats a running container")
	assert.Contains(t, check.Error, "unhealthy")
}

func TestHTTPProbeLenientStatuses(t *testing.T) {
	for _, status := range []int{200, 302, 401, 404} {
		t.Run(fmt.Sprintf("status_%d", status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			_, portStr, _ := net.SplitHostPort(srv.Listener.Addr().String())
			port, _ := strconv.Atoi(portStr)

			c := newTestChecker(registry.New(8192, nil), &fakeEngine{})
			check := c.httpProbe(context.Background(), port, "/")
			assert.True(t, check.Passed)
		})
	}
}

func TestCheckAll(t *testing.T) {
	reg := registry.New(8192, []registry.ServiceDefinition{
		{Name: "a"},
		{Name: "b"},
		{Name: "c"},
	})
	eng := &fakeEngine{infos: map[string]engine.HealthInfo{
		"a": {Running: true},
		"b": {Running: true},
		// c missing: inspect fails
	}}
	c := newTestChecker(reg, eng)

	results := c.CheckAll(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, StatusHealthy, results["a"].Status)
	assert.Equal(t, StatusHealthy, results["b"].Status)
	assert.Equal(t, StatusUnhealthy, results["c"].Status)
}
