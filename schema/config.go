package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceConfig defines defaults and limits for the core service.
type ServiceConfig struct {
	DefaultLanguage Language
	// ListLimit caps ListDeployments when the caller passes no limit.
	ListLimit int
	// ParticipantIdleAfter is how long a participant may go without an edit
	// or cursor move before it stops counting as active.
	ParticipantIdleAfter time.Duration
	StageDelays          StageDelays
	// Providers overrides or extends the default provider table.
	Providers map[ProviderID]ProviderConfig
}

// StageDelays are the simulated latencies of the pipeline stages.
type StageDelays struct {
	Prepare  time.Duration
	Build    time.Duration
	Deploy   time.Duration
	Finalize time.Duration
}

// ProviderConfig is one entry of the provider table.
type ProviderConfig struct {
	Name            string
	URLPattern      string
	BuildTimeout    time.Duration
	SupportsDomains bool
}

const (
	// DefaultLanguage tags sessions created without a language.
	DefaultLanguage Language = "python"
	// DefaultListLimit is the default ListDeployments page size.
	DefaultListLimit = 50
	// DefaultParticipantIdleAfter is the default presence window.
	DefaultParticipantIdleAfter = 5 * time.Minute
	// ProjectPlaceholder is substituted with the project slug in URL patterns.
	ProjectPlaceholder = "{project}"
)

// DefaultStageDelays mirrors the latency of the hosted providers.
var DefaultStageDelays = StageDelays{
	Prepare:  2 * time.Second,
	Build:    3 * time.Second,
	Deploy:   4 * time.Second,
	Finalize: 2 * time.Second,
}

// DefaultProviders returns the built-in provider table.
func DefaultProviders() map[ProviderID]ProviderConfig {
	return map[ProviderID]ProviderConfig{
		"vercel": {
			Name:            "Vercel",
			URLPattern:      "https://{project}.vercel.app",
			BuildTimeout:    10 * time.Minute,
			SupportsDomains: true,
		},
		"netlify": {
			Name:            "Netlify",
			URLPattern:      "https://{project}.netlify.app",
			BuildTimeout:    15 * time.Minute,
			SupportsDomains: true,
		},
		"aws": {
			Name:            "AWS S3",
			URLPattern:      "https://{project}.s3-website.amazonaws.com",
			BuildTimeout:    20 * time.Minute,
			SupportsDomains: true,
		},
		"heroku": {
			Name:            "Heroku",
			URLPattern:      "https://{project}.herokuapp.com",
			BuildTimeout:    15 * time.Minute,
			SupportsDomains: true,
		},
		"digitalocean": {
			Name:            "DigitalOcean",
			URLPattern:      "https://{project}.ondigitalocean.app",
			BuildTimeout:    10 * time.Minute,
			SupportsDomains: true,
		},
		"firebase": {
			Name:            "Firebase",
			URLPattern:      "https://{project}.web.app",
			BuildTimeout:    10 * time.Minute,
			SupportsDomains: true,
		},
	}
}

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if strings.TrimSpace(string(cfg.DefaultLanguage)) == "" {
		cfg.DefaultLanguage = DefaultLanguage
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = DefaultListLimit
	}
	if cfg.ParticipantIdleAfter <= 0 {
		cfg.ParticipantIdleAfter = DefaultParticipantIdleAfter
	}
	if cfg.StageDelays.Prepare <= 0 {
		cfg.StageDelays.Prepare = DefaultStageDelays.Prepare
	}
	if cfg.StageDelays.Build <= 0 {
		cfg.StageDelays.Build = DefaultStageDelays.Build
	}
	if cfg.StageDelays.Deploy <= 0 {
		cfg.StageDelays.Deploy = DefaultStageDelays.Deploy
	}
	if cfg.StageDelays.Finalize <= 0 {
		cfg.StageDelays.Finalize = DefaultStageDelays.Finalize
	}

	providers := DefaultProviders()
	for rawID, override := range cfg.Providers {
		id, err := NormalizeProviderID(string(rawID))
		if err != nil {
			return ServiceConfig{}, err
		}
		merged := providers[id]
		if override.Name != "" {
			merged.Name = override.Name
		}
		if override.URLPattern != "" {
			merged.URLPattern = override.URLPattern
		}
		if override.BuildTimeout > 0 {
			merged.BuildTimeout = override.BuildTimeout
		}
		if override.SupportsDomains {
			merged.SupportsDomains = true
		}
		providers[id] = merged
	}
	for id, provider := range providers {
		if provider.Name == "" {
			provider.Name = string(id)
		}
		if !strings.Contains(provider.URLPattern, ProjectPlaceholder) {
			return ServiceConfig{}, fmt.Errorf("provider %s: url pattern must contain %s", id, ProjectPlaceholder)
		}
		if provider.BuildTimeout <= 0 {
			return ServiceConfig{}, fmt.Errorf("provider %s: build timeout must be positive", id)
		}
		providers[id] = provider
	}
	if len(providers) == 0 {
		return ServiceConfig{}, errors.New("provider table is empty")
	}
	cfg.Providers = providers
	return cfg, nil
}
