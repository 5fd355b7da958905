// Package codeyard composes the orchestration core with its HTTP API and
// background maintenance.
package codeyard

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/codeyard/core"
	"pkt.systems/codeyard/httpapi"
	"pkt.systems/codeyard/internal/eventbus"
	"pkt.systems/codeyard/internal/maintenance"
	"pkt.systems/codeyard/schema"
	"pkt.systems/pslog"
)

// Server composes the HTTP API and the maintenance scheduler around one
// core service.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
	// Service exposes the composed core service.
	Service() core.Service
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service     schema.ServiceConfig
	HTTP        httpapi.Config
	Maintenance maintenance.Config
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	ServiceDeps core.ServiceDeps
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP        bool
	enableMaintenance bool
}

// WithHTTP enables the HTTP API server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithMaintenance enables the scheduled reap and prune loop.
func WithMaintenance() ServerOption {
	return func(o *serverOptions) { o.enableMaintenance = true }
}

// New constructs a composable codeyard server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableMaintenance {
		return nil, errors.New("no services enabled")
	}

	serviceDeps := deps.ServiceDeps
	var hub *httpapi.Hub
	var bus *eventbus.Bus
	sinks := []core.EventSink{serviceDeps.EventSink}
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HTTP.HubHistory)
		bus = eventbus.New(serviceDeps.Logger)
		sinks = append(sinks, hub, bus)
	}
	serviceDeps.EventSink = combineSinks(sinks...)

	service, err := core.NewService(cfg.Service, serviceDeps)
	if err != nil {
		return nil, err
	}

	srv := &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
	}
	if options.enableHTTP {
		httpSrv, err := httpapi.NewServer(cfg.HTTP, service, hub, bus)
		if err != nil {
			_ = service.Close(context.Background())
			return nil, err
		}
		srv.httpSrv = httpSrv
	}
	if options.enableMaintenance {
		runner, err := maintenance.New(cfg.Maintenance, hubReleasingTarget{Service: service, hub: hub})
		if err != nil {
			_ = service.Close(context.Background())
			return nil, err
		}
		srv.maintenance = runner
	}
	return srv, nil
}

// hubReleasingTarget drops SSE history for deployments removed by pruning.
type hubReleasingTarget struct {
	core.Service
	hub *httpapi.Hub
}

func (t hubReleasingTarget) PruneDeployments(ctx context.Context, req schema.PruneDeploymentsRequest) (schema.PruneDeploymentsResponse, error) {
	resp, err := t.Service.PruneDeployments(ctx, req)
	if err == nil && t.hub != nil && len(resp.Removed) > 0 {
		t.hub.Forget(resp.Removed...)
	}
	return resp, err
}

type compositeServer struct {
	cfg         ServerConfig
	options     serverOptions
	service     core.Service
	httpSrv     *httpapi.Server
	maintenance *maintenance.Runner
	logger      pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	wg      sync.WaitGroup
	started bool
}

func (s *compositeServer) Service() core.Service {
	return s.service
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"maintenance", s.options.enableMaintenance,
		"http_addr", s.cfg.HTTP.Addr,
		"maintenance_schedule", s.cfg.Maintenance.Schedule,
	)
	if s.httpSrv != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.maintenance != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.maintenance.Run(s.ctx); err != nil {
				log.Error("maintenance failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if err := s.service.Close(ctx); err != nil {
		log.Warn("server service close failed", "err", err)
		return err
	}
	if !started {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-done:
		log.Info("server stopped")
		return nil
	}
}
