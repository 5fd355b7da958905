package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/codeyard/schema"
)

type fakeTarget struct {
	reapThreshold time.Duration
	pruneCutoff   time.Time
	reapErr       error
	reapCalls     int
	pruneCalls    int
}

func (f *fakeTarget) ReapIdleSessions(_ context.Context, req schema.ReapIdleSessionsRequest) (schema.ReapIdleSessionsResponse, error) {
	f.reapCalls++
	f.reapThreshold = req.IdleThreshold
	if f.reapErr != nil {
		return schema.ReapIdleSessionsResponse{}, f.reapErr
	}
	return schema.ReapIdleSessionsResponse{Reaped: []schema.SessionID{"s1"}}, nil
}

func (f *fakeTarget) PruneDeployments(_ context.Context, req schema.PruneDeploymentsRequest) (schema.PruneDeploymentsResponse, error) {
	f.pruneCalls++
	f.pruneCutoff = req.OlderThan
	return schema.PruneDeploymentsResponse{Removed: []schema.DeploymentID{"d1", "d2"}}, nil
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	if _, err := New(Config{Schedule: "every tuesday"}, &fakeTarget{}); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
	runner, err := New(Config{}, &fakeTarget{})
	if err != nil {
		t.Fatalf("empty schedule: %v", err)
	}
	if runner.Enabled() {
		t.Fatalf("expected empty schedule to disable the runner")
	}
}

func TestRunOnceReapsAndPrunes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	target := &fakeTarget{}
	runner, err := New(Config{
		Schedule:            "*/5 * * * *",
		SessionIdle:         30 * time.Minute,
		DeploymentRetention: 24 * time.Hour,
	}, target, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	result, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if target.reapThreshold != 30*time.Minute {
		t.Fatalf("unexpected reap threshold %s", target.reapThreshold)
	}
	if !target.pruneCutoff.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected prune cutoff %s", target.pruneCutoff)
	}
	if len(result.ReapedSessions) != 1 || len(result.PrunedDeployments) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunOnceSkipsDisabledTasksAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	target := &fakeTarget{reapErr: boom}
	runner, err := New(Config{SessionIdle: time.Minute}, target)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := runner.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected reap error, got %v", err)
	}
	if target.pruneCalls != 0 {
		t.Fatalf("expected pruning skipped when retention is zero")
	}
}

func TestNextFollowsSchedule(t *testing.T) {
	runner, err := New(Config{Schedule: "*/5 * * * *"}, &fakeTarget{})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	after := time.Date(2026, 3, 1, 12, 2, 0, 0, time.UTC)
	next, err := runner.Next(after)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if want := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("expected %s, got %s", want, next)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	runner, err := New(Config{Schedule: "0 0 1 1 *", SessionIdle: time.Minute}, &fakeTarget{})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("runner did not stop")
	}
}
