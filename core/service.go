package core

import (
	"context"
	"time"

	"pkt.systems/codeyard/schema"
	"pkt.systems/pslog"
)

// service implements the core service behavior by composing the session
// registry and the deployment orchestrator. Each instance owns its own state.
type service struct {
	*sessionRegistry
	*orchestrator
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	if deps.Builder == nil {
		deps.Builder = NewStaticBuilder(cfg.StageDelays.Build)
	}
	if deps.Publisher == nil {
		deps.Publisher = NewSimulatedPublisher(cfg.StageDelays.Deploy)
	}
	return &service{
		sessionRegistry: newSessionRegistry(cfg, deps.EventSink, logger, clock),
		orchestrator:    newOrchestrator(cfg, deps, logger, clock),
	}, nil
}

func (s *service) Close(ctx context.Context) error {
	return s.orchestrator.close(ctx)
}
