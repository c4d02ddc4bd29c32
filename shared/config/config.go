package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultRAMBudgetMB is the ceiling on the sum of declared memory
	// limits across the catalog. The host has 16 GB; 2 GB is reserved
	// for the OS and the assistant itself.
	DefaultRAMBudgetMB = 14336

	configName = "jeeves"
	envPrefix  = "JEEVES"
)

// Config supplies filesystem paths and host constants to the registry,
// health checker and installer.
type Config struct {
	// StacksDir holds one subdirectory per installed service with its
	// generated compose file and optional .env.
	StacksDir string `mapstructure:"stacks_dir"`

	// RAMBudgetMB caps the sum of declared service memory limits.
	RAMBudgetMB int `mapstructure:"ram_budget_mb"`

	// HostIP is the LAN address services are reachable on.
	HostIP string `mapstructure:"host_ip"`

	// Domain is the local DNS zone services are registered under.
	Domain string `mapstructure:"domain"`

	// CaddyAdminAPI is the reverse proxy admin endpoint.
	CaddyAdminAPI string `mapstructure:"caddy_admin_api"`

	// DNSAdminAPI is the local DNS server admin endpoint.
	DNSAdminAPI string `mapstructure:"dns_admin_api"`

	// BackupRepo is the restic repository checked by the self-tests.
	BackupRepo string `mapstructure:"backup_repo"`
}

// Load reads jeeves.yml from the given directory (or the defaults listed
// below when dir is empty) and applies JEEVES_* environment overrides.
// A missing config file is not an error; defaults apply.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")

	if dir != "" {
		v.AddConfigPath(dir)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/jeeves")
		v.AddConfigPath("$HOME/.config/jeeves")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("stacks_dir", "/opt/stacks")
	v.SetDefault("ram_budget_mb", DefaultRAMBudgetMB)
	v.SetDefault("host_ip", "192.168.1.10")
	v.SetDefault("domain", "home.lan")
	v.SetDefault("caddy_admin_api", "http://localhost:2019")
	v.SetDefault("dns_admin_api", "http://localhost:5380")
	v.SetDefault("backup_repo", "/mnt/backup/restic")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}

	return &cfg, nil
}

// StackDir returns the stack directory for a single service.
func (c *Config) StackDir(service string) string {
	return filepath.Join(c.StacksDir, service)
}
