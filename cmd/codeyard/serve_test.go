package main

import (
	"testing"
	"time"

	"pkt.systems/codeyard/internal/appconfig"
)

func TestServerConfigFromAppConfig(t *testing.T) {
	cfg := appconfig.DefaultConfig()
	cfg.HTTP.Addr = "127.0.0.1:9999"
	cfg.HTTP.RateLimitPerSecond = 3
	cfg.HTTP.TrustedProxy = "10.0.0.0/8"
	cfg.Maintenance.SessionIdleMinutes = 15
	cfg.Maintenance.DeploymentRetentionHours = 2

	got := serverConfig(cfg)
	if got.HTTP.Addr != "127.0.0.1:9999" || got.HTTP.RateLimitPerSecond != 3 || got.HTTP.TrustedProxy != "10.0.0.0/8" {
		t.Fatalf("unexpected http config %+v", got.HTTP)
	}
	if got.Maintenance.Schedule != cfg.Maintenance.ReapSchedule {
		t.Fatalf("expected schedule %q, got %q", cfg.Maintenance.ReapSchedule, got.Maintenance.Schedule)
	}
	if got.Maintenance.SessionIdle != 15*time.Minute || got.Maintenance.DeploymentRetention != 2*time.Hour {
		t.Fatalf("unexpected maintenance config %+v", got.Maintenance)
	}
	if got.Service.StageDelays.Build != 3*time.Second {
		t.Fatalf("expected build delay carried over, got %s", got.Service.StageDelays.Build)
	}
}
