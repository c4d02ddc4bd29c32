package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"jeeves/shared"
	"jeeves/shared/runner"
)

const (
	// CLI timeouts. Compose up and image pulls are network-bound and get
	// long deadlines; everything else is local and fast.
	DeployTimeout  = 60 * time.Second
	PullTimeout    = 120 * time.Second
	commandTimeout = 30 * time.Second
)

var (
	ErrComposeFailed = errors.New("docker compose failed")
	ErrPullFailed    = errors.New("docker pull failed")
	ErrRestartFailed = errors.New("docker restart failed")
)

var elog = shared.PackageLogger("engine", "🐳 ENGINE")

// ContainerInfo is the slice of container state jeeves cares about.
type ContainerInfo struct {
	Name  string
	Image string
	State string
}

// HealthInfo is the result of inspecting one container.
type HealthInfo struct {
	Running        bool
	HasHealthcheck bool
	// Status is the engine's health status when a healthcheck is
	// configured: healthy, unhealthy or starting.
	Status string
}

// dockerAPI is the subset of the docker SDK client the engine uses.
// Narrow on purpose so tests can fake it.
type dockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
}

// Client wraps the docker SDK for inspection and the docker CLI (via the
// bounded runner) for compose, pull and restart, which have no clean SDK
// equivalent.
type Client struct {
	api dockerAPI
}

// NewClient connects to the local docker daemon.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Client{api: cli}, nil
}

// NewClientWithAPI builds a client around an existing API implementation.
// Used by tests.
func NewClientWithAPI(api dockerAPI) *Client {
	return &Client{api: api}
}

// ListActive returns the currently running containers.
func (c *Client) ListActive(ctx context.Context) ([]ContainerInfo, error) {
	summaries, err := c.api.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("container list failed: %w", err)
	}

	infos := make([]ContainerInfo, 0, len(summaries))
	for _, s := range summaries {
		name := ""
		if len(s.Names) > 0 {
			name = strings.TrimPrefix(s.Names[0], "/")
		}
		infos = append(infos, ContainerInfo{
			Name:  name,
			Image: s.Image,
			State: s.State,
		})
	}
	return infos, nil
}

// IsActive reports whether a running container with the given name exists.
func (c *Client) IsActive(ctx context.Context, name string) (bool, error) {
	infos, err := c.ListActive(ctx)
	if err != nil {
		return false, err
	}
	for _, info := range infos {
		if info.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Inspect returns running state and engine health for a container.
func (c *Client) Inspect(ctx context.Context, name string) (HealthInfo, error) {
	resp, err := c.api.ContainerInspect(ctx, name)
	if err != nil {
		return HealthInfo{}, fmt.Errorf("inspect %s failed: %w", name, err)
	}

	info := HealthInfo{}
	if resp.State != nil {
		info.Running = resp.State.Running
		if resp.State.Health != nil {
			info.HasHealthcheck = true
			info.Status = string(resp.State.Health.Status)
		}
	}
	return info, nil
}

// ComposeUp brings up the stack defined in dir/compose.yml.
func (c *Client) ComposeUp(ctx context.Context, dir string) error {
	res := runner.Run(ctx, DeployTimeout, "docker", "compose", "-f", composePath(dir), "up", "-d")
	if !res.OK() {
		elog.Error("compose up in %s: %s", dir, strings.TrimSpace(res.Stderr))
		return fmt.Errorf("%w: %s", ErrComposeFailed, firstLine(res.Stderr))
	}
	return nil
}

// ComposeDown tears down the stack in dir. Named volumes are kept, so a
// later reinstall picks the data back up.
func (c *Client) ComposeDown(ctx context.Context, dir string) error {
	res := runner.Run(ctx, DeployTimeout, "docker", "compose", "-f", composePath(dir), "down")
	if !res.OK() {
		return fmt.Errorf("%w: %s", ErrComposeFailed, firstLine(res.Stderr))
	}
	return nil
}

// Recreate forces the stack in dir to be recreated from its current
// images. Used by the rolling update after a pull.
func (c *Client) Recreate(ctx context.Context, dir string) error {
	res := runner.Run(ctx, DeployTimeout, "docker", "compose", "-f", composePath(dir), "up", "-d", "--force-recreate")
	if !res.OK() {
		return fmt.Errorf("%w: %s", ErrComposeFailed, firstLine(res.Stderr))
	}
	return nil
}

// Restart restarts a single container in place. This is the update
// rollback action: no version downgrade, just a fresh start.
func (c *Client) Restart(ctx context.Context, name string) error {
	res := runner.Run(ctx, commandTimeout, "docker", "restart", name)
	if !res.OK() {
		return fmt.Errorf("%w: %s", ErrRestartFailed, firstLine(res.Stderr))
	}
	return nil
}

// Pull fetches the latest image.
func (c *Client) Pull(ctx context.Context, image string) error {
	res := runner.Run(ctx, PullTimeout, "docker", "pull", image)
	if !res.OK() {
		if res.TimedOut {
			return fmt.Errorf("%w: timed out after %s", ErrPullFailed, PullTimeout)
		}
		return fmt.Errorf("%w: %s", ErrPullFailed, firstLine(res.Stderr))
	}
	return nil
}

func composePath(dir string) string {
	return filepath.Join(dir, "compose.yml")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
