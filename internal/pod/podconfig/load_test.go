package podconfig_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/prose-pod/pod/internal/pod/podconfig"
)

const minimalTOML = `
[server]
domain = "example.com"

[api.databases.main]
path = "/data/pod.sqlite3"
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "prose.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestLoad_DynamicDefaults(t *testing.T) {
	path := writeConfig(t, minimalTOML)

	cfg, err := podconfig.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Pod.Address.Domain != "prose.example.com" {
		t.Errorf("expected pod.address.domain to default to prose.example.com, got %q", cfg.Pod.Address.Domain)
	}
	if cfg.Dashboard.URL != "https://prose.example.com" {
		t.Errorf("expected dashboard.url to default from pod address, got %q", cfg.Dashboard.URL)
	}
	if cfg.Notifiers.Email.From != "prose@example.com" {
		t.Errorf("expected notifiers.email.from to default to prose@example.com, got %q", cfg.Notifiers.Email.From)
	}
	if cfg.API.Databases.MainRead.Path != "/data/pod.sqlite3" {
		t.Errorf("expected main_read to inherit path from main, got %q", cfg.API.Databases.MainRead.Path)
	}
	if cfg.API.Databases.MainRead.MaxConnections != 4*runtime.NumCPU() {
		t.Errorf("expected main_read max_connections to default to 4x CPU count, got %d", cfg.API.Databases.MainRead.MaxConnections)
	}
	if cfg.API.Databases.MainWrite.MaxConnections != 1 {
		t.Errorf("expected main_write max_connections to default to 1, got %d", cfg.API.Databases.MainWrite.MaxConnections)
	}
}

func TestLoad_ExplicitPodAddressSkipsDefault(t *testing.T) {
	path := writeConfig(t, minimalTOML+"\n[pod.address]\ndomain = \"custom.example.com\"\n")

	cfg, err := podconfig.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pod.Address.Domain != "custom.example.com" {
		t.Errorf("expected explicit pod.address.domain to be kept, got %q", cfg.Pod.Address.Domain)
	}
}

func TestLoad_MissingServerDomainFails(t *testing.T) {
	path := writeConfig(t, "[api.databases.main]\npath = \"/data/pod.sqlite3\"\n")

	if _, err := podconfig.Load(path); err == nil {
		t.Fatalf("expected Load to fail without server.domain")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, minimalTOML)

	t.Setenv("PROSE_SERVER__DOMAIN", "override.example.com")
	t.Setenv("PROSE_API__PORT", "9090")

	cfg, err := podconfig.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Domain != "override.example.com" {
		t.Errorf("expected env override of server.domain, got %q", cfg.Server.Domain)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("expected env override of api.port, got %d", cfg.API.Port)
	}
	if cfg.Pod.Address.Domain != "prose.override.example.com" {
		t.Errorf("expected dynamic default to use the overridden domain, got %q", cfg.Pod.Address.Domain)
	}
}
