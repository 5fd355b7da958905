package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("service.default_language", cfg.Service.DefaultLanguage)
	v.SetDefault("service.list_limit", cfg.Service.ListLimit)
	v.SetDefault("service.participant_idle_minutes", cfg.Service.ParticipantIdleMinutes)
	v.SetDefault("service.stage_delays.prepare_ms", cfg.Service.StageDelays.PrepareMS)
	v.SetDefault("service.stage_delays.build_ms", cfg.Service.StageDelays.BuildMS)
	v.SetDefault("service.stage_delays.deploy_ms", cfg.Service.StageDelays.DeployMS)
	v.SetDefault("service.stage_delays.finalize_ms", cfg.Service.StageDelays.FinalizeMS)
	v.SetDefault("service.providers", cfg.Service.Providers)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.rate_limit_per_second", cfg.HTTP.RateLimitPerSecond)
	v.SetDefault("http.rate_limit_burst", cfg.HTTP.RateLimitBurst)
	v.SetDefault("http.trusted_proxy", cfg.HTTP.TrustedProxy)
	v.SetDefault("http.hub_history", cfg.HTTP.HubHistory)
	v.SetDefault("maintenance.reap_schedule", cfg.Maintenance.ReapSchedule)
	v.SetDefault("maintenance.session_idle_minutes", cfg.Maintenance.SessionIdleMinutes)
	v.SetDefault("maintenance.deployment_retention_hours", cfg.Maintenance.DeploymentRetentionHours)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return errors.New("http.addr is required")
	}
	if cfg.HTTP.RateLimitPerSecond < 0 {
		return errors.New("http.rate_limit_per_second must not be negative")
	}
	if cfg.HTTP.RateLimitPerSecond > 0 && cfg.HTTP.RateLimitBurst <= 0 {
		return errors.New("http.rate_limit_burst must be positive when rate limiting is enabled")
	}
	if proxy := strings.TrimSpace(cfg.HTTP.TrustedProxy); proxy != "" {
		if _, _, err := net.ParseCIDR(proxy); err != nil && net.ParseIP(proxy) == nil {
			return fmt.Errorf("http.trusted_proxy %q is not an IP or CIDR", proxy)
		}
	}
	delays := cfg.Service.StageDelays
	if delays.PrepareMS < 0 || delays.BuildMS < 0 || delays.DeployMS < 0 || delays.FinalizeMS < 0 {
		return errors.New("service.stage_delays must not be negative")
	}
	if cfg.Service.ParticipantIdleMinutes < 0 {
		return errors.New("service.participant_idle_minutes must not be negative")
	}
	if cfg.Maintenance.SessionIdleMinutes < 0 {
		return errors.New("maintenance.session_idle_minutes must not be negative")
	}
	if cfg.Maintenance.DeploymentRetentionHours < 0 {
		return errors.New("maintenance.deployment_retention_hours must not be negative")
	}
	for id, provider := range cfg.Service.Providers {
		if provider.BuildTimeoutMinutes < 0 {
			return fmt.Errorf("service.providers.%s.build_timeout_minutes must not be negative", id)
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.HTTP.Addr = expandEnv(cfg.HTTP.Addr)
	for id, provider := range cfg.Service.Providers {
		provider.URLPattern = expandEnv(provider.URLPattern)
		cfg.Service.Providers[id] = provider
	}
}

// expandEnv keeps unknown variables and the {project} placeholder intact.
func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
