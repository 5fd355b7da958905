package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"pkt.systems/codeyard/internal/logx"
	"pkt.systems/codeyard/schema"
	"pkt.systems/pslog"
)

// errServiceClosed is returned by StartDeployment after Close.
var errServiceClosed = errors.New("service closed")

// orchestrator owns the deployment index and the pipeline goroutines. mu
// guards only the index; each record is published through its own pointer.
type orchestrator struct {
	cfg       schema.ServiceConfig
	builder   Builder
	publisher Publisher
	sink      EventSink
	logger    pslog.Logger
	now       func() time.Time

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
	seq        atomic.Uint64

	mu          sync.RWMutex
	closed      bool
	deployments map[schema.DeploymentID]*deployment
}

func newOrchestrator(cfg schema.ServiceConfig, deps ServiceDeps, logger pslog.Logger, clock func() time.Time) *orchestrator {
	baseCtx, cancel := context.WithCancel(pslog.ContextWithLogger(context.Background(), logger))
	return &orchestrator{
		cfg:         cfg,
		builder:     deps.Builder,
		publisher:   deps.Publisher,
		sink:        deps.EventSink,
		logger:      logger,
		now:         clock,
		baseCtx:     baseCtx,
		baseCancel:  cancel,
		deployments: make(map[schema.DeploymentID]*deployment),
	}
}

func (o *orchestrator) StartDeployment(ctx context.Context, req schema.StartDeploymentRequest) (schema.StartDeploymentResponse, error) {
	log := logx.WithProvider(pslog.Ctx(o.context(ctx)), req.Provider, req.ProjectName)
	providerID, provider, err := o.provider(req.Provider)
	if err != nil {
		log.Warn("deployment start rejected", "err", err)
		return schema.StartDeploymentResponse{}, err
	}

	now := o.now()
	d := &deployment{
		id:       schema.DeploymentID(newID()),
		seq:      o.seq.Add(1),
		provider: providerID,
		project:  req.ProjectName,
	}
	d.record.Store(&deploymentRecord{
		status:    schema.DeploymentPending,
		logs:      []string{},
		startedAt: now,
	})
	runCtx, cancel := context.WithCancel(o.baseCtx)
	d.cancel = cancel
	job := pipelineJob{
		provider: providerID,
		info:     provider,
		project:  req.ProjectName,
		files:    maps.Clone(req.Files),
		config:   cloneConfig(req.Config),
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		cancel()
		log.Warn("deployment start rejected", "err", errServiceClosed)
		return schema.StartDeploymentResponse{}, errServiceClosed
	}
	o.deployments[d.id] = d
	o.wg.Add(1)
	o.mu.Unlock()

	log = log.With("deployment", d.id)
	runCtx = logx.ContextWithDeploymentLogger(runCtx, log, d.id)
	o.emitDeployment(d, schema.DeploymentEventStarted, *d.record.Load(), nil)
	go o.run(runCtx, d, job)

	log.Info("deployment started", "files", len(job.files))
	return schema.StartDeploymentResponse{DeploymentID: d.id}, nil
}

func (o *orchestrator) GetDeploymentStatus(ctx context.Context, req schema.GetDeploymentRequest) (schema.GetDeploymentStatusResponse, error) {
	d := o.lookup(req.DeploymentID)
	if d == nil {
		return schema.GetDeploymentStatusResponse{}, schema.ErrDeploymentNotFound
	}
	return schema.GetDeploymentStatusResponse{Deployment: d.snapshot()}, nil
}

func (o *orchestrator) GetDeploymentLogs(ctx context.Context, req schema.GetDeploymentRequest) (schema.GetDeploymentLogsResponse, error) {
	d := o.lookup(req.DeploymentID)
	if d == nil {
		return schema.GetDeploymentLogsResponse{}, schema.ErrDeploymentNotFound
	}
	rec := d.record.Load()
	return schema.GetDeploymentLogsResponse{Logs: append([]string{}, rec.logs...)}, nil
}

func (o *orchestrator) CancelDeployment(ctx context.Context, req schema.GetDeploymentRequest) (schema.CancelDeploymentResponse, error) {
	log := logx.WithDeployment(o.context(ctx), req.DeploymentID)
	d := o.lookup(req.DeploymentID)
	if d == nil {
		log.Debug("deployment cancel ignored", "reason", "unknown deployment")
		return schema.CancelDeploymentResponse{Cancelled: false}, nil
	}
	const line = "Deployment cancelled by user"
	rec, ok := d.commit(func(next *deploymentRecord) {
		next.status = schema.DeploymentCancelled
		next.completedAt = o.now()
		next.logs = append(next.logs, line)
	})
	if !ok {
		log.Debug("deployment cancel ignored", "reason", "terminal", "status", rec.status)
		return schema.CancelDeploymentResponse{Cancelled: false}, nil
	}
	d.cancel()
	o.emitDeployment(d, schema.DeploymentEventFinished, rec, []string{line})
	log.Info("deployment cancelled", "progress", rec.progress)
	return schema.CancelDeploymentResponse{Cancelled: true}, nil
}

func (o *orchestrator) ListDeployments(ctx context.Context, req schema.ListDeploymentsRequest) (schema.ListDeploymentsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = o.cfg.ListLimit
	}
	o.mu.RLock()
	all := make([]*deployment, 0, len(o.deployments))
	for _, d := range o.deployments {
		all = append(all, d)
	}
	o.mu.RUnlock()

	snapshots := make([]schema.DeploymentSnapshot, 0, len(all))
	seqs := make(map[schema.DeploymentID]uint64, len(all))
	for _, d := range all {
		snapshots = append(snapshots, d.snapshot())
		seqs[d.id] = d.seq
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].StartedAt.Equal(snapshots[j].StartedAt) {
			return snapshots[i].StartedAt.After(snapshots[j].StartedAt)
		}
		return seqs[snapshots[i].ID] > seqs[snapshots[j].ID]
	})
	if len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}
	return schema.ListDeploymentsResponse{Deployments: snapshots}, nil
}

func (o *orchestrator) PruneDeployments(ctx context.Context, req schema.PruneDeploymentsRequest) (schema.PruneDeploymentsResponse, error) {
	if req.OlderThan.IsZero() {
		return schema.PruneDeploymentsResponse{}, fmt.Errorf("%w: cutoff is required", schema.ErrInvalidRequest)
	}
	removed := make([]schema.DeploymentID, 0)
	o.mu.Lock()
	for id, d := range o.deployments {
		rec := d.record.Load()
		if !rec.status.Terminal() || !rec.completedAt.Before(req.OlderThan) {
			continue
		}
		delete(o.deployments, id)
		removed = append(removed, id)
	}
	remaining := len(o.deployments)
	o.mu.Unlock()
	if len(removed) > 0 {
		pslog.Ctx(o.context(ctx)).Info("deployments pruned", "count", len(removed), "remaining", remaining)
	}
	return schema.PruneDeploymentsResponse{Removed: removed}, nil
}

func (o *orchestrator) ListProviders(ctx context.Context) (schema.ListProvidersResponse, error) {
	providers := make([]schema.ProviderInfo, 0, len(o.cfg.Providers))
	for id, provider := range o.cfg.Providers {
		providers = append(providers, schema.ProviderInfo{
			ID:                  id,
			Name:                provider.Name,
			URLPattern:          provider.URLPattern,
			BuildTimeoutSeconds: int64(provider.BuildTimeout / time.Second),
			SupportsDomains:     provider.SupportsDomains,
		})
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].ID < providers[j].ID })
	return schema.ListProvidersResponse{Providers: providers}, nil
}

func (o *orchestrator) GenerateDeploymentScript(ctx context.Context, req schema.GenerateScriptRequest) (schema.GenerateScriptResponse, error) {
	providerID, _, err := o.provider(req.Provider)
	if err != nil {
		return schema.GenerateScriptResponse{}, err
	}
	script, err := RenderDeploymentScript(providerID, req.Config)
	if err != nil {
		return schema.GenerateScriptResponse{}, err
	}
	return schema.GenerateScriptResponse{Script: script}, nil
}

func (o *orchestrator) close(ctx context.Context) error {
	o.mu.Lock()
	alreadyClosed := o.closed
	o.closed = true
	o.mu.Unlock()
	o.baseCancel()
	if !alreadyClosed {
		o.logger.Info("deployment orchestrator closing")
	}
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	if ctx == nil {
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		o.logger.Warn("deployment orchestrator close timed out", "err", ctx.Err())
		return ctx.Err()
	}
}

func (o *orchestrator) provider(raw schema.ProviderID) (schema.ProviderID, schema.ProviderConfig, error) {
	id, err := schema.NormalizeProviderID(string(raw))
	if err != nil {
		return "", schema.ProviderConfig{}, fmt.Errorf("%w: %q", schema.ErrUnsupportedProvider, raw)
	}
	provider, ok := o.cfg.Providers[id]
	if !ok {
		return "", schema.ProviderConfig{}, fmt.Errorf("%w: %q", schema.ErrUnsupportedProvider, raw)
	}
	return id, provider, nil
}

func (o *orchestrator) lookup(id schema.DeploymentID) *deployment {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.deployments[id]
}

func (o *orchestrator) emitDeployment(d *deployment, eventType schema.DeploymentEventType, rec deploymentRecord, lines []string) {
	if o.sink == nil {
		return
	}
	o.sink.OnDeploymentEvent(schema.DeploymentEvent{
		Type:         eventType,
		DeploymentID: d.id,
		Status:       rec.status,
		Progress:     rec.progress,
		Lines:        append([]string(nil), lines...),
		Timestamp:    o.now(),
	})
}

func (o *orchestrator) context(ctx context.Context) context.Context {
	if ctx == nil {
		return o.baseCtx
	}
	return ctx
}
