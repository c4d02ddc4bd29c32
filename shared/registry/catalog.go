package registry

// Catalog is the static fleet definition for the host. It is the single
// source of truth for topology: the registry is rebuilt from this table
// on every process start, so declared state and runtime state cannot
// drift apart. Edit this table, restart, done.
func Catalog() []ServiceDefinition {
	return []ServiceDefinition{
		// --- core infrastructure ---
		{
			Name:       "caddy",
			Tier:       TierCore,
			Image:      "caddy:2.9-alpine",
			Ports:      []int{80, 443},
			RAMLimitMB: 256,
			Priority:   PriorityCritical,
			Volumes:    []string{"caddy_data:/data", "caddy_config:/config"},
		},
		{
			Name:       "adguard",
			Tier:       TierCore,
			Image:      "adguard/adguardhome:latest",
			Ports:      []int{53, 3053},
			RAMLimitMB: 512,
			Priority:   PriorityCritical,
			Volumes:    []string{"adguard_work:/opt/adguardhome/work", "adguard_conf:/opt/adguardhome/conf"},
		},

		// --- databases ---
		{
			Name:       "postgres",
			Tier:       TierDatabases,
			Image:      "postgres:16-alpine",
			Ports:      []int{5432},
			RAMLimitMB: 1024,
			Priority:   PriorityCritical,
			Env:        map[string]string{"POSTGRES_USER": "jeeves"},
			Volumes:    []string{"pg_data:/var/lib/postgresql/data"},
		},
		{
			Name:       "redis",
			Tier:       TierDatabases,
			Image:      "redis:7-alpine",
			Ports:      []int{6379},
			RAMLimitMB: 512,
			Priority:   PriorityCritical,
			Volumes:    []string{"redis_data:/data"},
		},

		// --- media ---
		{
			Name:       "jellyfin",
			Tier:       TierMedia,
			Image:      "jellyfin/jellyfin:latest",
			Ports:      []int{8096},
			RAMLimitMB: 2048,
			Priority:   PriorityHigh,
			Devices:    []string{"/dev/dri/renderD128"},
			Volumes:    []string{"jellyfin_config:/config", "/mnt/media:/media:ro"},
		},
		{
			Name:       "immich",
			Tier:       TierMedia,
			Image:      "ghcr.io/immich-app/immich-server:release",
			Ports:      []int{2283},
			RAMLimitMB: 2048,
			Priority:   PriorityHigh,
			DependsOn:  []ServiceName{"postgres", "redis"},
			Volumes:    []string{"/mnt/photos:/usr/src/app/upload"},
		},
		{
			Name:       "navidrome",
			Tier:       TierMedia,
			Image:      "deluan/navidrome:latest",
			Ports:      []int{4533},
			RAMLimitMB: 512,
			Priority:   PriorityMedium,
			Volumes:    []string{"navidrome_data:/data", "/mnt/music:/music:ro"},
		},

		// --- general services ---
		{
			Name:        "homeassistant",
			Tier:        TierServices,
			Image:       "ghcr.io/home-assistant/home-assistant:stable",
			Ports:       []int{8123},
			RAMLimitMB:  1024,
			Priority:    PriorityHigh,
			HostNetwork: true,
			Volumes:     []string{"ha_config:/config"},
		},
		{
			Name:       "vaultwarden",
			Tier:       TierServices,
			Image:      "vaultwarden/server:latest",
			Ports:      []int{8222},
			RAMLimitMB: 256,
			Priority:   PriorityMedium,
			DependsOn:  []ServiceName{"postgres"},
			Volumes:    []string{"vw_data:/data"},
		},
		{
			Name:       "gitea",
			Tier:       TierServices,
			Image:      "gitea/gitea:1.23",
			Ports:      []int{3001},
			RAMLimitMB: 512,
			Priority:   PriorityMedium,
			DependsOn:  []ServiceName{"postgres"},
			Volumes:    []string{"gitea_data:/data"},
		},
		{
			Name:       "paperless",
			Tier:       TierServices,
			Image:      "ghcr.io/paperless-ngx/paperless-ngx:latest",
			Ports:      []int{8000},
			RAMLimitMB: 1024,
			Priority:   PriorityLow,
			DependsOn:  []ServiceName{"postgres", "redis"},
			Volumes:    []string{"paperless_data:/usr/src/paperless/data", "/mnt/documents:/usr/src/paperless/media"},
		},

		// --- monitoring ---
		{
			Name:       "prometheus",
			Tier:       TierMonitoring,
			Image:      "prom/prometheus:latest",
			Ports:      []int{9090},
			RAMLimitMB: 512,
			Priority:   PriorityHigh,
			Volumes:    []string{"prom_data:/prometheus"},
		},
		{
			Name:       "grafana",
			Tier:       TierMonitoring,
			Image:      "grafana/grafana:latest",
			Ports:      []int{3000},
			RAMLimitMB: 512,
			Priority:   PriorityMedium,
			DependsOn:  []ServiceName{"prometheus"},
			Volumes:    []string{"grafana_data:/var/lib/grafana"},
		},
		{
			Name:       "uptime-kuma",
			Tier:       TierMonitoring,
			Image:      "louislam/uptime-kuma:1",
			Ports:      []int{3002},
			RAMLimitMB: 256,
			Priority:   PriorityLow,
			Volumes:    []string{"kuma_data:/app/data"},
		},

		// --- host daemons (informational, not container-managed) ---
		{
			Name:          "sshd",
			Tier:          TierCore,
			Priority:      PriorityCritical,
			SystemService: true,
		},
		{
			Name:          "tailscaled",
			Tier:          TierCore,
			Priority:      PriorityCritical,
			SystemService: true,
		},
	}
}
