package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/mem"

	"jeeves/shared/config"
	"jeeves/shared/runner"
)

// usageAlarmPercent is where disk and memory self-tests start failing.
const usageAlarmPercent = 90.0

// SelfTestResult is the outcome of one host diagnostic.
type SelfTestResult struct {
	Name     string
	Passed   bool
	Summary  string
	Duration time.Duration
}

// selfTest pairs a diagnostic name with its implementation.
type selfTest struct {
	name string
	run  func(ctx context.Context) (bool, string)
}

// RunSelfTests executes the host diagnostics strictly in sequence. The
// box is small; running ten probes at once is how you fail all ten.
func (c *Checker) RunSelfTests(ctx context.Context, cfg *config.Config) []SelfTestResult {
	tests := []selfTest{
		{"container engine", testEngine},
		{"internet egress", testEgress},
		{"local dns", testDNS},
		{"firewall", testFirewall},
		{"backup repository", testBackupRepo(cfg.BackupRepo)},
		{"tls handshake", testTLS},
		{"postgres", testPostgres},
		{"redis", testRedis},
		{"disk usage", testDisk},
		{"memory usage", testMemory},
	}

	results := make([]SelfTestResult, 0, len(tests))
	for _, t := range tests {
		start := time.Now()
		passed, summary := t.run(ctx)
		results = append(results, SelfTestResult{
			Name:     t.name,
			Passed:   passed,
			Summary:  summary,
			Duration: time.Since(start),
		})
		if !passed {
			hlog.Warn("self-test %q failed: %s", t.name, summary)
		}
	}
	return results
}

func testEngine(ctx context.Context) (bool, string) {
	res := runner.Run(ctx, ProbeTimeout, "docker", "info", "--format", "{{.ServerVersion}}")
	if !res.OK() {
		return false, "docker daemon unreachable"
	}
	return true, "engine " + strings.TrimSpace(res.Stdout)
}

func testEgress(ctx context.Context) (bool, string) {
	res := runner.Run(ctx, ProbeTimeout, "curl", "-fsS", "-o", "/dev/null", "-m", "4", "https://one.one.one.one")
	if !res.OK() {
		return false, "no route to the internet"
	}
	return true, "internet reachable"
}

func testDNS(ctx context.Context) (bool, string) {
	res := runner.Run(ctx, ProbeTimeout, "getent", "hosts", "example.com")
	if !res.OK() {
		return false, "local resolver returned nothing for example.com"
	}
	return true, "resolver answering"
}

func testFirewall(ctx context.Context) (bool, string) {
	res := runner.Run(ctx, ProbeTimeout, "ufw", "status")
	if !res.OK() {
		return false, "ufw status failed"
	}
	if !strings.Contains(res.Stdout, "Status: active") {
		return false, "firewall is not active"
	}
	return true, "firewall active"
}

func testBackupRepo(repo string) func(ctx context.Context) (bool, string) {
	return func(ctx context.Context) (bool, string) {
		res := runner.Run(ctx, ProbeTimeout, "stat", repo)
		if !res.OK() {
			return false, fmt.Sprintf("backup repository %s unreachable", repo)
		}
		return true, "backup repository reachable"
	}
}

func testTLS(ctx context.Context) (bool, string) {
	res := runner.Run(ctx, ProbeTimeout, "openssl", "s_client", "-connect", "localhost:443", "-brief")
	if !res.OK() {
		return false, "tls handshake with local proxy failed"
	}
	return true, "tls handshake ok"
}

func testPostgres(ctx context.Context) (bool, string) {
	res := runner.Run(ctx, ProbeTimeout, "pg_isready", "-h", "localhost", "-p", "5432")
	if !res.OK() {
		return false, "postgres not accepting connections"
	}
	return true, "postgres accepting connections"
}

// testRedis requires the literal PONG: redis-cli exits zero even when it
// only printed an error to stdout.
func testRedis(ctx context.Context) (bool, string) {
	res := runner.Run(ctx, ProbeTimeout, "redis-cli", "-h", "localhost", "ping")
	if !res.OK() || !strings.Contains(res.Stdout, "PONG") {
		return false, "redis did not answer PONG"
	}
	return true, "redis answering"
}

func testDisk(ctx context.Context) (bool, string) {
	res := runner.Run(ctx, ProbeTimeout, "df", "--output=pcent", "/")
	if !res.OK() {
		return false, "df failed"
	}
	pct, ok := parseUsePercent(res.Stdout)
	if !ok {
		return false, "could not parse df output"
	}
	summary := fmt.Sprintf("root filesystem %d%% used", pct)
	return float64(pct) < usageAlarmPercent, summary
}

func testMemory(ctx context.Context) (bool, string) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return false, "could not read memory stats"
	}
	summary := fmt.Sprintf("%.1f%% used (%.1f/%.1f GB)",
		vm.UsedPercent,
		float64(vm.Used)/(1<<30),
		float64(vm.Total)/(1<<30))
	return vm.UsedPercent < usageAlarmPercent, summary
}

// parseUsePercent pulls the first percentage out of df output.
func parseUsePercent(out string) (int, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "%"))
		if line == "" || strings.EqualFold(line, "Use") {
			continue
		}
		var pct int
		if _, err := fmt.Sscanf(line, "%d", &pct); err == nil {
			return pct, true
		}
	}
	return 0, false
}
