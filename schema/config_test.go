package schema

import (
	"strings"
	"testing"
	"time"
)

func TestNormalizeServiceConfigDefaults(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.DefaultLanguage != DefaultLanguage {
		t.Fatalf("expected default language, got %q", cfg.DefaultLanguage)
	}
	if cfg.ListLimit != DefaultListLimit {
		t.Fatalf("expected default list limit, got %d", cfg.ListLimit)
	}
	if cfg.StageDelays != DefaultStageDelays {
		t.Fatalf("expected default delays, got %+v", cfg.StageDelays)
	}
	if len(cfg.Providers) != 6 {
		t.Fatalf("expected 6 providers, got %d", len(cfg.Providers))
	}
	if cfg.Providers["aws"].BuildTimeout != 20*time.Minute {
		t.Fatalf("unexpected aws timeout %v", cfg.Providers["aws"].BuildTimeout)
	}
}

func TestNormalizeServiceConfigMergesProviderOverrides(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{
		Providers: map[ProviderID]ProviderConfig{
			"Vercel": {BuildTimeout: time.Minute},
			"render": {Name: "Render", URLPattern: "https://{project}.onrender.com", BuildTimeout: time.Minute},
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	vercel := cfg.Providers["vercel"]
	if vercel.BuildTimeout != time.Minute || vercel.URLPattern != "https://{project}.vercel.app" {
		t.Fatalf("unexpected merged vercel entry %+v", vercel)
	}
	if _, ok := cfg.Providers["render"]; !ok {
		t.Fatalf("expected render provider to be added")
	}
}

func TestNormalizeServiceConfigRejectsPatternWithoutPlaceholder(t *testing.T) {
	_, err := NormalizeServiceConfig(ServiceConfig{
		Providers: map[ProviderID]ProviderConfig{
			"static": {URLPattern: "https://static.example.com", BuildTimeout: time.Minute},
		},
	})
	if err == nil || !strings.Contains(err.Error(), "{project}") {
		t.Fatalf("expected placeholder error, got %v", err)
	}
}
