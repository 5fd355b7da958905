package schema

import "time"

// Session lifecycle.

// CreateSessionRequest describes a request to open a collaboration session.
type CreateSessionRequest struct {
	Name        string   `json:"session_name"`
	InitialCode string   `json:"initial_code"`
	Language    Language `json:"language,omitempty"`
}

// CreateSessionResponse reports the created session.
type CreateSessionResponse struct {
	Session SessionSnapshot `json:"session"`
}

// JoinSessionRequest describes a participant joining a session.
type JoinSessionRequest struct {
	SessionID       SessionID `json:"session_id"`
	ParticipantName string    `json:"participant_name"`
}

// JoinSessionResponse reports the allocated participant and the session after the join.
type JoinSessionResponse struct {
	ParticipantID ParticipantID `json:"participant_id"`
	State         SessionState  `json:"state"`
}

// LeaveSessionRequest describes a participant leaving a session.
type LeaveSessionRequest struct {
	SessionID     SessionID     `json:"session_id"`
	ParticipantID ParticipantID `json:"participant_id"`
}

// LeaveSessionResponse reports whether a participant was removed.
type LeaveSessionResponse struct {
	Left bool `json:"left"`
}

// UpdateCodeRequest replaces a session's code buffer.
type UpdateCodeRequest struct {
	SessionID     SessionID     `json:"session_id"`
	ParticipantID ParticipantID `json:"participant_id"`
	Code          string        `json:"code"`
}

// UpdateCodeResponse acknowledges the write.
type UpdateCodeResponse struct {
	Ack UpdateAck `json:"ack"`
}

// UpdateCursorRequest moves a participant cursor.
type UpdateCursorRequest struct {
	SessionID     SessionID      `json:"session_id"`
	ParticipantID ParticipantID  `json:"participant_id"`
	Position      CursorPosition `json:"position"`
}

// UpdateCursorResponse reports whether the cursor was recorded.
type UpdateCursorResponse struct {
	Updated bool `json:"updated"`
}

// GetSessionStateRequest asks for a session snapshot.
type GetSessionStateRequest struct {
	SessionID SessionID `json:"session_id"`
}

// GetSessionStateResponse carries the session snapshot.
type GetSessionStateResponse struct {
	State SessionState `json:"state"`
}

// GetSessionHistoryRequest asks for session statistics.
type GetSessionHistoryRequest struct {
	SessionID SessionID `json:"session_id"`
}

// GetSessionHistoryResponse carries session statistics.
type GetSessionHistoryResponse struct {
	History SessionHistory `json:"history"`
}

// ListActiveSessionsResponse lists active sessions.
type ListActiveSessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// ReapIdleSessionsRequest removes sessions idle longer than IdleThreshold.
type ReapIdleSessionsRequest struct {
	IdleThreshold time.Duration `json:"idle_threshold"`
}

// ReapIdleSessionsResponse lists the removed sessions.
type ReapIdleSessionsResponse struct {
	Reaped []SessionID `json:"reaped"`
}

// Deployments.

// DeployConfig carries per-deployment build and publish settings.
type DeployConfig struct {
	BuildCommand         string            `json:"build_command,omitempty" yaml:"build_command"`
	OutputDirectory      string            `json:"output_directory,omitempty" yaml:"output_directory"`
	EnvironmentVariables map[string]string `json:"environment_variables,omitempty" yaml:"environment_variables"`
	CustomDomain         string            `json:"custom_domain,omitempty" yaml:"custom_domain"`
	ProjectName          string            `json:"project_name,omitempty" yaml:"project_name"`
}

// StartDeploymentRequest asks for a new deployment.
type StartDeploymentRequest struct {
	Provider    ProviderID        `json:"provider"`
	ProjectName string            `json:"project_name"`
	Files       map[string]string `json:"files"`
	Config      DeployConfig      `json:"config"`
}

// StartDeploymentResponse reports the id of the scheduled deployment.
type StartDeploymentResponse struct {
	DeploymentID DeploymentID `json:"deployment_id"`
}

// GetDeploymentRequest addresses one deployment.
type GetDeploymentRequest struct {
	DeploymentID DeploymentID `json:"deployment_id"`
}

// GetDeploymentStatusResponse carries a deployment snapshot.
type GetDeploymentStatusResponse struct {
	Deployment DeploymentSnapshot `json:"deployment"`
}

// GetDeploymentLogsResponse carries accumulated log lines.
type GetDeploymentLogsResponse struct {
	Logs []string `json:"logs"`
}

// CancelDeploymentResponse reports whether the deployment was cancelled.
type CancelDeploymentResponse struct {
	Cancelled bool `json:"cancelled"`
}

// ListDeploymentsRequest asks for the most recent deployments.
type ListDeploymentsRequest struct {
	Limit int `json:"limit"`
}

// ListDeploymentsResponse lists deployments newest first.
type ListDeploymentsResponse struct {
	Deployments []DeploymentSnapshot `json:"deployments"`
}

// PruneDeploymentsRequest drops terminal deployments completed before OlderThan.
type PruneDeploymentsRequest struct {
	OlderThan time.Time `json:"older_than"`
}

// PruneDeploymentsResponse lists the removed deployments.
type PruneDeploymentsResponse struct {
	Removed []DeploymentID `json:"removed"`
}

// ListProvidersResponse lists the provider table.
type ListProvidersResponse struct {
	Providers []ProviderInfo `json:"providers"`
}

// GenerateScriptRequest asks for a manual deployment script.
type GenerateScriptRequest struct {
	Provider ProviderID   `json:"provider"`
	Config   DeployConfig `json:"config"`
}

// GenerateScriptResponse carries the rendered script.
type GenerateScriptResponse struct {
	Script string `json:"script"`
}
