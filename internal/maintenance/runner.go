// Package maintenance runs idle-session reaping and deployment pruning on a
// cron schedule.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"pkt.systems/codeyard/schema"
	"pkt.systems/pslog"
)

// Target is the part of the core service maintenance drives.
type Target interface {
	ReapIdleSessions(ctx context.Context, req schema.ReapIdleSessionsRequest) (schema.ReapIdleSessionsResponse, error)
	PruneDeployments(ctx context.Context, req schema.PruneDeploymentsRequest) (schema.PruneDeploymentsResponse, error)
}

// Config controls what a maintenance pass does and when it runs.
type Config struct {
	// Schedule is a cron expression; empty disables the scheduled loop.
	Schedule string
	// SessionIdle is the reap threshold; zero skips reaping.
	SessionIdle time.Duration
	// DeploymentRetention is how long terminal deployments are kept; zero skips pruning.
	DeploymentRetention time.Duration
}

// Result summarizes one maintenance pass.
type Result struct {
	ReapedSessions    []schema.SessionID
	PrunedDeployments []schema.DeploymentID
}

// Runner executes maintenance passes.
type Runner struct {
	cfg    Config
	target Target
	now    func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New validates the schedule and constructs a Runner.
func New(cfg Config, target Target, opts ...Option) (*Runner, error) {
	if target == nil {
		return nil, errors.New("maintenance target is required")
	}
	cfg.Schedule = strings.TrimSpace(cfg.Schedule)
	if cfg.Schedule != "" && !gronx.New().IsValid(cfg.Schedule) {
		return nil, fmt.Errorf("invalid maintenance schedule %q", cfg.Schedule)
	}
	if cfg.SessionIdle < 0 || cfg.DeploymentRetention < 0 {
		return nil, errors.New("maintenance thresholds must not be negative")
	}
	r := &Runner{cfg: cfg, target: target, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Enabled reports whether a schedule is configured.
func (r *Runner) Enabled() bool {
	return r != nil && r.cfg.Schedule != ""
}

// Next returns the first scheduled tick after the given time.
func (r *Runner) Next(after time.Time) (time.Time, error) {
	if !r.Enabled() {
		return time.Time{}, errors.New("maintenance schedule disabled")
	}
	return gronx.NextTickAfter(r.cfg.Schedule, after, false)
}

// RunOnce performs a single maintenance pass.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	log := pslog.Ctx(ctx)
	var result Result
	var errs []error
	if r.cfg.SessionIdle > 0 {
		resp, err := r.target.ReapIdleSessions(ctx, schema.ReapIdleSessionsRequest{IdleThreshold: r.cfg.SessionIdle})
		if err != nil {
			errs = append(errs, fmt.Errorf("reap sessions: %w", err))
		}
		result.ReapedSessions = resp.Reaped
	}
	if r.cfg.DeploymentRetention > 0 {
		cutoff := r.now().Add(-r.cfg.DeploymentRetention)
		resp, err := r.target.PruneDeployments(ctx, schema.PruneDeploymentsRequest{OlderThan: cutoff})
		if err != nil {
			errs = append(errs, fmt.Errorf("prune deployments: %w", err))
		}
		result.PrunedDeployments = resp.Removed
	}
	log.Debug("maintenance pass", "reaped", len(result.ReapedSessions), "pruned", len(result.PrunedDeployments))
	return result, errors.Join(errs...)
}

// Run executes passes on the schedule until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if !r.Enabled() {
		<-ctx.Done()
		return nil
	}
	log := pslog.Ctx(ctx).With("schedule", r.cfg.Schedule)
	log.Info("maintenance scheduler started")
	for {
		next, err := r.Next(r.now())
		if err != nil {
			return fmt.Errorf("maintenance schedule: %w", err)
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("maintenance scheduler stopped")
			return nil
		case <-timer.C:
		}
		if _, err := r.RunOnce(ctx); err != nil {
			log.Warn("maintenance pass failed", "err", err)
		}
	}
}
