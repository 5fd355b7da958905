package logx

import (
	"context"

	"pkt.systems/codeyard/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	sessionKey contextKey = iota
	deploymentKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSession annotates the logger with the session id if present.
func WithSession(ctx context.Context, sessionID schema.SessionID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if sessionID != "" {
		if current, ok := ctx.Value(sessionKey).(schema.SessionID); ok && current == sessionID {
			return log
		}
		log = log.With("session", sessionID)
	}
	return log
}

// WithParticipant annotates the logger with session and participant identifiers.
func WithParticipant(ctx context.Context, sessionID schema.SessionID, participantID schema.ParticipantID) pslog.Logger {
	log := WithSession(ctx, sessionID)
	if participantID != "" {
		log = log.With("participant", participantID)
	}
	return log
}

// WithDeployment annotates the logger with the deployment id if present.
func WithDeployment(ctx context.Context, deploymentID schema.DeploymentID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if deploymentID != "" {
		if current, ok := ctx.Value(deploymentKey).(schema.DeploymentID); ok && current == deploymentID {
			return log
		}
		log = log.With("deployment", deploymentID)
	}
	return log
}

// WithProvider annotates the logger with provider metadata when available.
func WithProvider(log pslog.Logger, id schema.ProviderID, project string) pslog.Logger {
	if id != "" {
		log = log.With("provider", id)
	}
	if project != "" {
		log = log.With("project", project)
	}
	return log
}

// ContextWithSession stores the session marker on the context for log de-duplication.
func ContextWithSession(ctx context.Context, sessionID schema.SessionID) context.Context {
	if ctx == nil || sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// ContextWithDeployment stores the deployment marker on the context for log de-duplication.
func ContextWithDeployment(ctx context.Context, deploymentID schema.DeploymentID) context.Context {
	if ctx == nil || deploymentID == "" {
		return ctx
	}
	return context.WithValue(ctx, deploymentKey, deploymentID)
}

// ContextWithDeploymentLogger attaches the logger and deployment marker to the context.
func ContextWithDeploymentLogger(ctx context.Context, log pslog.Logger, deploymentID schema.DeploymentID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithDeployment(ctx, deploymentID)
}

// ContextWithSessionLogger attaches the logger and session marker to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, sessionID schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSession(ctx, sessionID)
}
