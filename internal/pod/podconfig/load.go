package podconfig

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/prose-pod/pod/internal/pod/apperror"
)

// Load reads prose.toml from path, applies PROSE_*-prefixed environment
// overrides, resolves dynamic defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("podconfig: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("podconfig: parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	applyDynamicDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Server.Domain == "" {
		return apperror.New(apperror.CodeBadRequest, "server.domain is required")
	}
	if cfg.Pod.Address.Domain == "" && cfg.Pod.Address.IPv4 == "" && cfg.Pod.Address.IPv6 == "" {
		return apperror.New(apperror.CodeBadRequest, "pod.address requires at least one of domain, ipv4, ipv6")
	}
	return nil
}

// applyDynamicDefaults resolves the defaults that depend on another
// field's final value, in the order the spec lists them: pod address
// domain, dashboard URL, email pod address, then the read/write
// database pools inheriting from "main".
func applyDynamicDefaults(cfg *Config) {
	if cfg.Pod.Address.Domain == "" {
		cfg.Pod.Address.Domain = "prose." + cfg.Server.Domain
	}
	if cfg.Dashboard.URL == "" {
		cfg.Dashboard.URL = "https://" + cfg.Pod.Address.Domain
	}
	if cfg.Notifiers.Email.From == "" {
		cfg.Notifiers.Email.From = "prose@" + cfg.Server.Domain
	}

	cfg.API.Databases.MainRead = inheritDatabase(cfg.API.Databases.MainRead, cfg.API.Databases.Main)
	cfg.API.Databases.MainWrite = inheritDatabase(cfg.API.Databases.MainWrite, cfg.API.Databases.Main)
	if cfg.API.Databases.MainRead.MaxConnections == 0 {
		cfg.API.Databases.MainRead.MaxConnections = 4 * runtime.NumCPU()
	}
	if cfg.API.Databases.MainWrite.MaxConnections == 0 {
		cfg.API.Databases.MainWrite.MaxConnections = 1
	}
}

// inheritDatabase fills any zero-valued field of pool from main, except
// MaxConnections which each pool defaults independently.
func inheritDatabase(pool, main DatabaseConfig) DatabaseConfig {
	if pool.Path == "" {
		pool.Path = main.Path
	}
	return pool
}
