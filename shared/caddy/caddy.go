package caddy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Manager talks to the Caddy admin API and generates the routing labels
// embedded in deployment descriptors.
type Manager struct {
	adminAPI string
	client   *http.Client
}

// New creates a Manager for the given admin API endpoint
// (e.g. "http://localhost:2019").
func New(adminAPI string) *Manager {
	return &Manager{
		adminAPI: strings.TrimSuffix(adminAPI, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Labels returns the caddy-docker-proxy labels that route
// <service>.<domain> to the service's first published port. Host-network
// services bypass the proxy and get no labels; callers skip them.
func Labels(service, domain string, port int) map[string]string {
	return map[string]string{
		"caddy":               fmt.Sprintf("%s.%s", service, domain),
		"caddy.reverse_proxy": fmt.Sprintf("{{upstreams %d}}", port),
	}
}

// route is the admin API shape for one reverse-proxy route.
type route struct {
	ID     string `json:"@id"`
	Match  []any  `json:"match"`
	Handle []any  `json:"handle"`
}

// AddRoute registers a route with the running Caddy instance so the
// service is reachable before the proxy container next reloads its
// labels. Returns a short human message on success.
func (m *Manager) AddRoute(ctx context.Context, service, domain string, port int) (string, error) {
	host := fmt.Sprintf("%s.%s", service, domain)
	r := route{
		ID:    "jeeves-" + service,
		Match: []any{map[string]any{"host": []string{host}}},
		Handle: []any{map[string]any{
			"handler": "reverse_proxy",
			"upstreams": []map[string]string{
				{"dial": fmt.Sprintf("localhost:%d", port)},
			},
		}},
	}

	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal route: %w", err)
	}

	url := m.adminAPI + "/config/apps/http/servers/srv0/routes"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach caddy admin API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("caddy rejected route: %d %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return fmt.Sprintf("route %s -> localhost:%d registered", host, port), nil
}

// RemoveRoute deletes a previously registered route. Unknown routes are
// not an error; uninstall must stay idempotent.
func (m *Manager) RemoveRoute(ctx context.Context, service string) (string, error) {
	url := m.adminAPI + "/id/jeeves-" + service
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach caddy admin API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("caddy rejected delete: %d %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return fmt.Sprintf("route for %s removed", service), nil
}
