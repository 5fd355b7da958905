package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"pkt.systems/codeyard/schema"
)

var fastDelays = schema.StageDelays{
	Prepare:  time.Millisecond,
	Build:    time.Millisecond,
	Deploy:   time.Millisecond,
	Finalize: time.Millisecond,
}

func newTestService(t *testing.T, cfg schema.ServiceConfig, deps ServiceDeps) Service {
	t.Helper()
	if cfg.StageDelays == (schema.StageDelays{}) {
		cfg.StageDelays = fastDelays
	}
	svc, err := NewService(cfg, deps)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := svc.Close(ctx); err != nil {
			t.Errorf("close service: %v", err)
		}
	})
	return svc
}

func waitForTerminal(t *testing.T, svc Service, id schema.DeploymentID) schema.DeploymentSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := svc.GetDeploymentStatus(context.Background(), schema.GetDeploymentRequest{DeploymentID: id})
		if err != nil {
			t.Fatalf("deployment status: %v", err)
		}
		if resp.Deployment.Status.Terminal() {
			return resp.Deployment
		}
		time.Sleep(5 * time.Millisecond)
	}
	resp, _ := svc.GetDeploymentStatus(context.Background(), schema.GetDeploymentRequest{DeploymentID: id})
	t.Fatalf("timed out waiting for terminal deployment: %+v", resp.Deployment)
	return schema.DeploymentSnapshot{}
}

// manualClock is a settable clock for idle and retention tests.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	mu          sync.Mutex
	sessions    []schema.SessionEvent
	deployments []schema.DeploymentEvent
}

func (s *recordingSink) OnSessionEvent(event schema.SessionEvent) {
	s.mu.Lock()
	s.sessions = append(s.sessions, event)
	s.mu.Unlock()
}

func (s *recordingSink) OnDeploymentEvent(event schema.DeploymentEvent) {
	s.mu.Lock()
	s.deployments = append(s.deployments, event)
	s.mu.Unlock()
}

func (s *recordingSink) sessionTypes() []schema.SessionEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.SessionEventType, 0, len(s.sessions))
	for _, event := range s.sessions {
		out = append(out, event.Type)
	}
	return out
}

func (s *recordingSink) deploymentEvents() []schema.DeploymentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.DeploymentEvent(nil), s.deployments...)
}

type funcBuilder func(ctx context.Context, req BuildRequest) (BuildResult, error)

func (f funcBuilder) Build(ctx context.Context, req BuildRequest) (BuildResult, error) {
	return f(ctx, req)
}

type funcPublisher func(ctx context.Context, req PublishRequest) (PublishResult, error)

func (f funcPublisher) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	return f(ctx, req)
}

func webFiles() map[string]string {
	return map[string]string{"index.html": "<h1>hi</h1>"}
}
