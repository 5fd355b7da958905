package core

import (
	"context"
	"fmt"
	"maps"
	"time"

	"pkt.systems/codeyard/schema"
)

// BuildRequest is the input of the build stage.
type BuildRequest struct {
	DeploymentID schema.DeploymentID
	Provider     schema.ProviderID
	ProjectName  string
	Files        map[string]string
	Config       schema.DeployConfig
}

// BuildResult carries the artifact set consumed by the deploy stage.
type BuildResult struct {
	Artifacts map[string]string
	Logs      []string
}

// Builder turns project files into deployable artifacts.
type Builder interface {
	Build(ctx context.Context, req BuildRequest) (BuildResult, error)
}

// PublishRequest is the input of the deploy stage.
type PublishRequest struct {
	DeploymentID schema.DeploymentID
	Provider     schema.ProviderID
	ProviderName string
	ProjectName  string
	Artifacts    map[string]string
	Config       schema.DeployConfig
}

// PublishResult reports provider-side log lines.
type PublishResult struct {
	Logs []string
}

// Publisher uploads artifacts to a hosting provider.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (PublishResult, error)
}

const (
	placeholderHTML = "<html><body><h1>Hello World</h1></body></html>"
	placeholderCSS  = "body { font-family: Arial, sans-serif; }"
	placeholderJS   = "console.log('App loaded');"
)

type staticBuilder struct {
	delay time.Duration
}

// NewStaticBuilder returns a builder that simulates a build taking delay and
// emits a static HTML/CSS/JS bundle.
func NewStaticBuilder(delay time.Duration) Builder {
	return staticBuilder{delay: delay}
}

func (b staticBuilder) Build(ctx context.Context, req BuildRequest) (BuildResult, error) {
	if err := sleepContext(ctx, b.delay); err != nil {
		return BuildResult{}, err
	}
	var logs []string
	if req.Config.BuildCommand != "" {
		logs = []string{
			fmt.Sprintf("Running: %s", req.Config.BuildCommand),
			"Installing dependencies...",
			"Compiling assets...",
			"Optimizing for production...",
			"Build completed successfully!",
		}
	} else {
		logs = []string{
			"No build command specified, using static files",
			"Preparing static assets...",
			"Static build completed!",
		}
	}
	artifacts := map[string]string{
		"index.html": placeholderHTML,
		"style.css":  placeholderCSS,
		"script.js":  placeholderJS,
	}
	if html, ok := req.Files["index.html"]; ok {
		artifacts["index.html"] = html
	}
	return BuildResult{Artifacts: artifacts, Logs: logs}, nil
}

type simulatedPublisher struct {
	delay time.Duration
}

// NewSimulatedPublisher returns a publisher that pretends to upload the
// artifacts, taking delay.
func NewSimulatedPublisher(delay time.Duration) Publisher {
	return simulatedPublisher{delay: delay}
}

func (p simulatedPublisher) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	if err := sleepContext(ctx, p.delay); err != nil {
		return PublishResult{}, err
	}
	return PublishResult{Logs: []string{
		fmt.Sprintf("Connecting to %s...", req.ProviderName),
		"Uploading files...",
		fmt.Sprintf("Uploaded %d files", len(req.Artifacts)),
		"Configuring CDN...",
		"Setting up SSL certificate...",
		fmt.Sprintf("Deployment to %s completed!", req.ProviderName),
	}}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func cloneConfig(cfg schema.DeployConfig) schema.DeployConfig {
	cfg.EnvironmentVariables = maps.Clone(cfg.EnvironmentVariables)
	return cfg
}
