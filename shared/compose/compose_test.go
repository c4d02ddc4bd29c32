package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"jeeves/shared/registry"
)

func TestGenerate(t *testing.T) {
	def := registry.ServiceDefinition{
		Name:       "jellyfin",
		Image:      "jellyfin/jellyfin:latest",
		Ports:      []int{8096},
		RAMLimitMB: 2048,
		Devices:    []string{"/dev/dri/renderD128"},
		DependsOn:  []registry.ServiceName{"postgres"},
		Volumes:    []string{"jellyfin_config:/config", "/mnt/media:/media:ro"},
	}

	file, err := Generate(def, map[string]string{"caddy": "jellyfin.home.lan"}, t.TempDir())
	require.NoError(t, err)

	svc, ok := file.Services["jellyfin"]
	require.True(t, ok)
	assert.Equal(t, "jellyfin/jellyfin:latest", svc.Image)
	assert.Equal(t, "jellyfin", svc.ContainerName)
	assert.Equal(t, "unless-stopped", svc.Restart)
	assert.Equal(t, []string{"8096:8096"}, svc.Ports)
	assert.Equal(t, "2048m", svc.MemLimit)
	assert.Equal(t, []string{"postgres"}, svc.DependsOn)
	assert.Equal(t, "jellyfin.home.lan", svc.Labels["caddy"])
	assert.Empty(t, svc.NetworkMode)

	// only the named volume is declared top-level, not the bind mount
	assert.Contains(t, file.Volumes, "jellyfin_config")
	assert.NotContains(t, file.Volumes, "/mnt/media")
	assert.Len(t, file.Volumes, 1)
}

func TestGenerateHostNetwork(t *testing.T) {
	def := registry.ServiceDefinition{
		Name:        "homeassistant",
		Image:       "ghcr.io/home-assistant/home-assistant:stable",
		Ports:       []int{8123},
		HostNetwork: true,
	}

	file, err := Generate(def, nil, t.TempDir())
	require.NoError(t, err)

	svc := file.Services["homeassistant"]
	assert.Equal(t, "host", svc.NetworkMode)
	assert.Empty(t, svc.Ports, "host-network services publish no ports")
}

func TestEnvMerge(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("TZ=Europe/Berlin\nPOSTGRES_USER=override-me\n"), 0644))

	def := registry.ServiceDefinition{
		Name:  "postgres",
		Image: "postgres:16-alpine",
		Env:   map[string]string{"POSTGRES_USER": "jeeves"},
	}

	file, err := Generate(def, nil, dir)
	require.NoError(t, err)

	env := file.Services["postgres"].Environment
	assert.Equal(t, "Europe/Berlin", env["TZ"])
	assert.Equal(t, "jeeves", env["POSTGRES_USER"], "catalog wins over .env")
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	def := registry.ServiceDefinition{
		Name:       "redis",
		Image:      "redis:7-alpine",
		Ports:      []int{6379},
		RAMLimitMB: 512,
		Volumes:    []string{"redis_data:/data"},
	}

	file, err := Generate(def, nil, dir)
	require.NoError(t, err)
	require.NoError(t, Write(file, dir))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	var parsed File
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, "redis:7-alpine", parsed.Services["redis"].Image)
	assert.Equal(t, "512m", parsed.Services["redis"].MemLimit)
}
