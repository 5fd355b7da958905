package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func missingConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.yaml")
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"serve": false, "script": false, "providers": false, "config": false, "version": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected %q subcommand", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runRoot(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatalf("unexpected version output %q", out)
	}
	out, err = runRoot(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	if !strings.Contains(out, `"go_version"`) {
		t.Fatalf("expected JSON output, got %q", out)
	}
}

func TestProvidersCommand(t *testing.T) {
	out, err := runRoot(t, "providers", "-c", missingConfig(t))
	if err != nil {
		t.Fatalf("providers: %v", err)
	}
	for _, id := range []string{"vercel", "netlify", "aws", "heroku", "digitalocean", "firebase"} {
		if !strings.Contains(out, id) {
			t.Fatalf("expected provider %q in output:\n%s", id, out)
		}
	}
}
