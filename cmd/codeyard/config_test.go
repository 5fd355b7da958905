package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if _, err := runRoot(t, "config", "init", "--path", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "config_version: 1") {
		t.Fatalf("unexpected config:\n%s", data)
	}
	if _, err := runRoot(t, "config", "init", "--path", path); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := runRoot(t, "config", "init", "--path", path, "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}
