package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"jeeves/shared/registry"
)

// FileName is the generated descriptor name inside each stack directory.
const FileName = "compose.yml"

// Service is one service block of a generated compose file.
type Service struct {
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name"`
	Restart       string            `yaml:"restart"`
	NetworkMode   string            `yaml:"network_mode,omitempty"`
	Ports         []string          `yaml:"ports,omitempty"`
	MemLimit      string            `yaml:"mem_limit,omitempty"`
	Devices       []string          `yaml:"devices,omitempty"`
	DependsOn     []string          `yaml:"depends_on,omitempty"`
	Labels        map[string]string `yaml:"labels,omitempty"`
	Environment   map[string]string `yaml:"environment,omitempty"`
	Volumes       []string          `yaml:"volumes,omitempty"`
}

// File is a whole generated compose descriptor.
type File struct {
	Services map[string]Service  `yaml:"services"`
	Volumes  map[string]struct{} `yaml:"volumes,omitempty"`
}

// Generate builds the descriptor for one service definition. Labels come
// from the reverse proxy helper. A .env file in the stack directory, when
// present, is merged into the environment under the definition's own
// entries (catalog wins on conflict).
func Generate(def registry.ServiceDefinition, labels map[string]string, stackDir string) (File, error) {
	svc := Service{
		Image:         def.Image,
		ContainerName: def.Name.String(),
		Restart:       "unless-stopped",
		Devices:       def.Devices,
		Labels:        labels,
		Volumes:       def.Volumes,
	}

	if def.RAMLimitMB > 0 {
		svc.MemLimit = fmt.Sprintf("%dm", def.RAMLimitMB)
	}

	if def.HostNetwork {
		svc.NetworkMode = "host"
	} else {
		for _, port := range def.Ports {
			svc.Ports = append(svc.Ports, fmt.Sprintf("%d:%d", port, port))
		}
	}

	for _, dep := range def.DependsOn {
		svc.DependsOn = append(svc.DependsOn, dep.String())
	}

	env, err := mergedEnv(def, stackDir)
	if err != nil {
		return File{}, err
	}
	svc.Environment = env

	file := File{
		Services: map[string]Service{def.Name.String(): svc},
	}

	for _, vol := range def.Volumes {
		name, _, found := strings.Cut(vol, ":")
		if found && !strings.Contains(name, "/") {
			if file.Volumes == nil {
				file.Volumes = make(map[string]struct{})
			}
			file.Volumes[name] = struct{}{}
		}
	}

	return file, nil
}

// mergedEnv layers the stack-local .env under the catalog environment.
func mergedEnv(def registry.ServiceDefinition, stackDir string) (map[string]string, error) {
	envPath := filepath.Join(stackDir, ".env")

	var fileEnv map[string]string
	if _, err := os.Stat(envPath); err == nil {
		fileEnv, err = godotenv.Read(envPath)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", envPath, err)
		}
	}

	if len(fileEnv) == 0 && len(def.Env) == 0 {
		return nil, nil
	}

	merged := make(map[string]string, len(fileEnv)+len(def.Env))
	for k, v := range fileEnv {
		merged[k] = v
	}
	for k, v := range def.Env {
		merged[k] = v
	}
	return merged, nil
}

// Write persists the descriptor into the stack directory.
func Write(file File, stackDir string) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}
	return os.WriteFile(filepath.Join(stackDir, FileName), data, 0644)
}
