package cmd

import (
	"jeeves/shared"
	"jeeves/shared/caddy"
	"jeeves/shared/config"
	"jeeves/shared/dns"
	"jeeves/shared/engine"
	"jeeves/shared/health"
	"jeeves/shared/installer"
	"jeeves/shared/registry"
)

var clog = shared.PackageLogger("cmd", "🤵 JEEVES")

// core bundles the wired-up triad for the commands.
type core struct {
	cfg     *config.Config
	reg     *registry.Registry
	checker *health.Checker
	inst    *installer.Installer
}

// newCore loads config, seeds the registry from the static catalog and
// connects to the container engine. Commands call this once.
func newCore() (*core, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}

	reg := registry.New(cfg.RAMBudgetMB, registry.Catalog())
	if problems := reg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			clog.Warn("catalog: %s", p)
		}
	}

	eng, err := engine.NewClient()
	if err != nil {
		return nil, err
	}

	checker := health.NewChecker(reg, eng)
	inst := installer.New(reg, eng, checker,
		caddy.New(cfg.CaddyAdminAPI),
		dns.New(cfg.DNSAdminAPI),
		cfg)

	return &core{cfg: cfg, reg: reg, checker: checker, inst: inst}, nil
}
