package dns

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

// Registrar manages local DNS rewrites so services resolve as
// <name>.<domain> on the LAN. It speaks the AdGuard Home rewrite API.
type Registrar struct {
	adminAPI string
	client   *http.Client
}

// New creates a Registrar for the given DNS admin endpoint.
func New(adminAPI string) *Registrar {
	return &Registrar{
		adminAPI: strings.TrimSuffix(adminAPI, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type rewrite struct {
	Domain string `json:"domain"`
	Answer string `json:"answer"`
}

// Register points <service>.<domain> at the host IP. Returns a short
// human message on success.
func (r *Registrar) Register(ctx context.Context, service, domain, hostIP string) (string, error) {
	name := fmt.Sprintf("%s.%s", service, domain)
	if err := r.post(ctx, "/control/rewrite/add", rewrite{Domain: name, Answer: hostIP}); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s -> %s", name, hostIP), nil
}

// Deregister removes the rewrite for a service.
func (r *Registrar) Deregister(ctx context.Context, service, domain, hostIP string) (string, error) {
	name := fmt.Sprintf("%s.%s", service, domain)
	if err := r.post(ctx, "/control/rewrite/delete", rewrite{Domain: name, Answer: hostIP}); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s removed", name), nil
}

func (r *Registrar) post(ctx context.Context, path string, body rewrite) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal rewrite: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.adminAPI+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach DNS admin API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("DNS server rejected rewrite: %d %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
