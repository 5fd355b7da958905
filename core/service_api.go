package core

import (
	"context"

	"pkt.systems/codeyard/schema"
)

// SessionRegistry manages collaboration sessions and their participants.
type SessionRegistry interface {
	CreateSession(ctx context.Context, req schema.CreateSessionRequest) (schema.CreateSessionResponse, error)
	JoinSession(ctx context.Context, req schema.JoinSessionRequest) (schema.JoinSessionResponse, error)
	LeaveSession(ctx context.Context, req schema.LeaveSessionRequest) (schema.LeaveSessionResponse, error)
	UpdateCode(ctx context.Context, req schema.UpdateCodeRequest) (schema.UpdateCodeResponse, error)
	UpdateCursor(ctx context.Context, req schema.UpdateCursorRequest) (schema.UpdateCursorResponse, error)
	GetSessionState(ctx context.Context, req schema.GetSessionStateRequest) (schema.GetSessionStateResponse, error)
	GetSessionHistory(ctx context.Context, req schema.GetSessionHistoryRequest) (schema.GetSessionHistoryResponse, error)
	ListActiveSessions(ctx context.Context) (schema.ListActiveSessionsResponse, error)
	ReapIdleSessions(ctx context.Context, req schema.ReapIdleSessionsRequest) (schema.ReapIdleSessionsResponse, error)
}

// DeploymentOrchestrator runs deployment pipelines and reports on them.
type DeploymentOrchestrator interface {
	StartDeployment(ctx context.Context, req schema.StartDeploymentRequest) (schema.StartDeploymentResponse, error)
	GetDeploymentStatus(ctx context.Context, req schema.GetDeploymentRequest) (schema.GetDeploymentStatusResponse, error)
	GetDeploymentLogs(ctx context.Context, req schema.GetDeploymentRequest) (schema.GetDeploymentLogsResponse, error)
	CancelDeployment(ctx context.Context, req schema.GetDeploymentRequest) (schema.CancelDeploymentResponse, error)
	ListDeployments(ctx context.Context, req schema.ListDeploymentsRequest) (schema.ListDeploymentsResponse, error)
	PruneDeployments(ctx context.Context, req schema.PruneDeploymentsRequest) (schema.PruneDeploymentsResponse, error)
	ListProviders(ctx context.Context) (schema.ListProvidersResponse, error)
	GenerateDeploymentScript(ctx context.Context, req schema.GenerateScriptRequest) (schema.GenerateScriptResponse, error)
}

// Service is the transport-agnostic API of the orchestration core.
type Service interface {
	SessionRegistry
	DeploymentOrchestrator
	// Close cancels running pipelines and waits for them to exit.
	Close(ctx context.Context) error
}
