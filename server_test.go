package codeyard

import (
	"context"
	"sync"
	"testing"
	"time"

	"pkt.systems/codeyard/core"
	"pkt.systems/codeyard/httpapi"
	"pkt.systems/codeyard/internal/maintenance"
	"pkt.systems/codeyard/schema"
)

var fastDelays = schema.StageDelays{
	Prepare:  time.Millisecond,
	Build:    time.Millisecond,
	Deploy:   time.Millisecond,
	Finalize: time.Millisecond,
}

type countingSink struct {
	mu          sync.Mutex
	sessions    int
	deployments int
}

func (c *countingSink) OnSessionEvent(schema.SessionEvent) {
	c.mu.Lock()
	c.sessions++
	c.mu.Unlock()
}

func (c *countingSink) OnDeploymentEvent(schema.DeploymentEvent) {
	c.mu.Lock()
	c.deployments++
	c.mu.Unlock()
}

func TestNewRequiresAComponent(t *testing.T) {
	if _, err := New(ServerConfig{}, ServerDeps{}); err == nil {
		t.Fatalf("expected error when nothing is enabled")
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(ServerConfig{Maintenance: maintenance.Config{Schedule: "not cron"}}, ServerDeps{}, WithMaintenance())
	if err == nil {
		t.Fatalf("expected schedule validation error")
	}
}

func TestCombineSinks(t *testing.T) {
	if combineSinks(nil, nil) != nil {
		t.Fatalf("expected nil sink when none configured")
	}
	one := &countingSink{}
	if combineSinks(nil, one) != core.EventSink(one) {
		t.Fatalf("expected single sink returned as-is")
	}
	two := &countingSink{}
	fan := combineSinks(one, nil, two)
	fan.OnSessionEvent(schema.SessionEvent{})
	fan.OnDeploymentEvent(schema.DeploymentEvent{})
	if one.sessions != 1 || two.sessions != 1 || one.deployments != 1 || two.deployments != 1 {
		t.Fatalf("expected both sinks notified")
	}
}

func TestServerForwardsEventsToCallerSink(t *testing.T) {
	sink := &countingSink{}
	srv, err := New(ServerConfig{
		Service: schema.ServiceConfig{StageDelays: fastDelays},
		HTTP:    httpapi.Config{Addr: "127.0.0.1:0"},
	}, ServerDeps{ServiceDeps: core.ServiceDeps{EventSink: sink}}, WithHTTP())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	if _, err := srv.Service().CreateSession(context.Background(), schema.CreateSessionRequest{Name: "demo"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.sessions != 1 {
		t.Fatalf("expected caller sink to see the created event, got %d", sink.sessions)
	}
}

func TestMaintenancePruneReleasesHubHistory(t *testing.T) {
	svc, err := core.NewService(schema.ServiceConfig{StageDelays: fastDelays}, core.ServiceDeps{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	hub := httpapi.NewHub(10)

	started, err := svc.StartDeployment(context.Background(), schema.StartDeploymentRequest{
		Provider: "netlify",
		Files:    map[string]string{"index.html": "<html></html>"},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := svc.GetDeploymentStatus(context.Background(), schema.GetDeploymentRequest{DeploymentID: started.DeploymentID})
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if resp.Deployment.Status.Terminal() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("deployment did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	hub.OnDeploymentEvent(schema.DeploymentEvent{DeploymentID: started.DeploymentID, Type: schema.DeploymentEventFinished})

	runner, err := maintenance.New(maintenance.Config{DeploymentRetention: time.Minute}, hubReleasingTarget{Service: svc, hub: hub},
		maintenance.WithClock(func() time.Time { return time.Now().Add(time.Hour) }))
	if err != nil {
		t.Fatalf("maintenance: %v", err)
	}
	result, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(result.PrunedDeployments) != 1 || result.PrunedDeployments[0] != started.DeploymentID {
		t.Fatalf("unexpected prune result %+v", result)
	}
	if got := hub.Replay(started.DeploymentID, 0); got != nil {
		t.Fatalf("expected hub history released, got %d events", len(got))
	}
}

func TestStartStop(t *testing.T) {
	srv, err := New(ServerConfig{
		Service: schema.ServiceConfig{StageDelays: fastDelays},
		HTTP:    httpapi.Config{Addr: "127.0.0.1:0"},
	}, ServerDeps{}, WithHTTP(), WithMaintenance())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Fatalf("expected second Start to fail")
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := srv.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, err := srv.Service().StartDeployment(context.Background(), schema.StartDeploymentRequest{
		Provider: "vercel",
		Files:    map[string]string{"index.html": "x"},
	}); err == nil {
		t.Fatalf("expected start after stop to fail")
	}
}
