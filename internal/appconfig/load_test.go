package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":27490" || cfg.Maintenance.ReapSchedule != "*/5 * * * *" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 3
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":9000"
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version required error, got %v", err)
	}
}

func TestLoadMergesOverrides(t *testing.T) {
	t.Setenv("CODEYARD_PORT", "9100")
	path := writeConfig(t, `
config_version: 1
service:
  list_limit: 10
  stage_delays:
    build_ms: 1
  providers:
    pages:
      name: Pages
      url_pattern: "https://{project}.pages.dev"
      build_timeout_minutes: 3
http:
  addr: ":${CODEYARD_PORT}"
maintenance:
  reap_schedule: ""
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Service.ListLimit != 10 {
		t.Fatalf("expected list limit 10, got %d", cfg.Service.ListLimit)
	}
	if cfg.Service.StageDelays.BuildMS != 1 || cfg.Service.StageDelays.PrepareMS != 2000 {
		t.Fatalf("expected merged stage delays, got %+v", cfg.Service.StageDelays)
	}
	if cfg.HTTP.Addr != ":9100" {
		t.Fatalf("expected expanded addr, got %q", cfg.HTTP.Addr)
	}
	if cfg.Maintenance.ReapSchedule != "" {
		t.Fatalf("expected disabled schedule, got %q", cfg.Maintenance.ReapSchedule)
	}
	pages, ok := cfg.Service.Providers["pages"]
	if !ok || pages.URLPattern != "https://{project}.pages.dev" || pages.BuildTimeoutMinutes != 3 {
		t.Fatalf("unexpected providers: %+v", cfg.Service.Providers)
	}
}

func TestLoadRejectsNegativeDelays(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
service:
  stage_delays:
    deploy_ms: -5
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "stage_delays") {
		t.Fatalf("expected stage delay error, got %v", err)
	}
}

func TestLoadTrustedProxy(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
http:
  trusted_proxy: "10.0.0.0/8"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.TrustedProxy != "10.0.0.0/8" {
		t.Fatalf("expected trusted proxy, got %q", cfg.HTTP.TrustedProxy)
	}

	bad := writeConfig(t, `
config_version: 1
http:
  trusted_proxy: "everyone"
`)
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "trusted_proxy") {
		t.Fatalf("expected trusted_proxy error, got %v", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load written default: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("expected config version %d, got %d", CurrentConfigVersion, cfg.ConfigVersion)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
