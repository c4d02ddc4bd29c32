package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultRAMBudgetMB, cfg.RAMBudgetMB)
	assert.Equal(t, "/opt/stacks", cfg.StacksDir)
	assert.Equal(t, "home.lan", cfg.Domain)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yml := []byte("stacks_dir: /srv/stacks\nram_budget_mb: 8192\nhost_ip: 10.0.0.2\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jeeves.yml"), yml, 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/stacks", cfg.StacksDir)
	assert.Equal(t, 8192, cfg.RAMBudgetMB)
	assert.Equal(t, "10.0.0.2", cfg.HostIP)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("JEEVES_RAM_BUDGET_MB", "4096")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.RAMBudgetMB)
}

func TestStackDir(t *testing.T) {
	cfg := &Config{StacksDir: "/opt/stacks"}
	assert.Equal(t, filepath.Join("/opt/stacks", "gitea"), cfg.StackDir("gitea"))
}
