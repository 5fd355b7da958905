package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/codeyard/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int               `mapstructure:"config_version" yaml:"config_version"`
	Service       ServiceConfig     `mapstructure:"service" yaml:"service"`
	HTTP          HTTPConfig        `mapstructure:"http" yaml:"http"`
	Maintenance   MaintenanceConfig `mapstructure:"maintenance" yaml:"maintenance"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ServiceConfig controls core service behavior.
type ServiceConfig struct {
	DefaultLanguage        string                    `mapstructure:"default_language" yaml:"default_language"`
	ListLimit              int                       `mapstructure:"list_limit" yaml:"list_limit"`
	ParticipantIdleMinutes int                       `mapstructure:"participant_idle_minutes" yaml:"participant_idle_minutes"`
	StageDelays            StageDelaysConfig         `mapstructure:"stage_delays" yaml:"stage_delays"`
	Providers              map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
}

// StageDelaysConfig sets the simulated stage latencies in milliseconds.
type StageDelaysConfig struct {
	PrepareMS  int `mapstructure:"prepare_ms" yaml:"prepare_ms"`
	BuildMS    int `mapstructure:"build_ms" yaml:"build_ms"`
	DeployMS   int `mapstructure:"deploy_ms" yaml:"deploy_ms"`
	FinalizeMS int `mapstructure:"finalize_ms" yaml:"finalize_ms"`
}

// ProviderConfig overrides or adds one hosting provider.
type ProviderConfig struct {
	Name                string `mapstructure:"name" yaml:"name"`
	URLPattern          string `mapstructure:"url_pattern" yaml:"url_pattern"`
	BuildTimeoutMinutes int    `mapstructure:"build_timeout_minutes" yaml:"build_timeout_minutes"`
	SupportsDomains     bool   `mapstructure:"supports_domains" yaml:"supports_domains"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr               string  `mapstructure:"addr" yaml:"addr"`
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second" yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	HubHistory         int     `mapstructure:"hub_history" yaml:"hub_history"`
	// TrustedProxy is an IP or CIDR allowed to set X-Forwarded-For; empty trusts nobody.
	TrustedProxy string `mapstructure:"trusted_proxy" yaml:"trusted_proxy"`
}

// MaintenanceConfig controls scheduled reaping and pruning.
type MaintenanceConfig struct {
	ReapSchedule             string `mapstructure:"reap_schedule" yaml:"reap_schedule"`
	SessionIdleMinutes       int    `mapstructure:"session_idle_minutes" yaml:"session_idle_minutes"`
	DeploymentRetentionHours int    `mapstructure:"deployment_retention_hours" yaml:"deployment_retention_hours"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Service: ServiceConfig{
			DefaultLanguage:        string(schema.DefaultLanguage),
			ListLimit:              schema.DefaultListLimit,
			ParticipantIdleMinutes: int(schema.DefaultParticipantIdleAfter / time.Minute),
			StageDelays: StageDelaysConfig{
				PrepareMS:  int(schema.DefaultStageDelays.Prepare.Milliseconds()),
				BuildMS:    int(schema.DefaultStageDelays.Build.Milliseconds()),
				DeployMS:   int(schema.DefaultStageDelays.Deploy.Milliseconds()),
				FinalizeMS: int(schema.DefaultStageDelays.Finalize.Milliseconds()),
			},
			Providers: map[string]ProviderConfig{},
		},
		HTTP: HTTPConfig{
			Addr:               ":27490",
			RateLimitPerSecond: 20,
			RateLimitBurst:     40,
			HubHistory:         1000,
		},
		Maintenance: MaintenanceConfig{
			ReapSchedule:             "*/5 * * * *",
			SessionIdleMinutes:       30,
			DeploymentRetentionHours: 24,
		},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".codeyard", "config.yaml"), nil
}

// CoreConfig converts the service section into the core service config.
func (c Config) CoreConfig() schema.ServiceConfig {
	providers := make(map[schema.ProviderID]schema.ProviderConfig, len(c.Service.Providers))
	for id, provider := range c.Service.Providers {
		providers[schema.ProviderID(id)] = schema.ProviderConfig{
			Name:            provider.Name,
			URLPattern:      provider.URLPattern,
			BuildTimeout:    time.Duration(provider.BuildTimeoutMinutes) * time.Minute,
			SupportsDomains: provider.SupportsDomains,
		}
	}
	return schema.ServiceConfig{
		DefaultLanguage:      schema.Language(c.Service.DefaultLanguage),
		ListLimit:            c.Service.ListLimit,
		ParticipantIdleAfter: time.Duration(c.Service.ParticipantIdleMinutes) * time.Minute,
		StageDelays: schema.StageDelays{
			Prepare:  millis(c.Service.StageDelays.PrepareMS),
			Build:    millis(c.Service.StageDelays.BuildMS),
			Deploy:   millis(c.Service.StageDelays.DeployMS),
			Finalize: millis(c.Service.StageDelays.FinalizeMS),
		},
		Providers: providers,
	}
}

// SessionIdleThreshold is the idle time after which sessions are reaped.
func (c MaintenanceConfig) SessionIdleThreshold() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// DeploymentRetention is how long terminal deployments are kept.
func (c MaintenanceConfig) DeploymentRetention() time.Duration {
	return time.Duration(c.DeploymentRetentionHours) * time.Hour
}

func millis(value int) time.Duration {
	return time.Duration(value) * time.Millisecond
}
