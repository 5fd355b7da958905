package schema

import "time"

// SessionSnapshot is a read-only view of a session for transports.
type SessionSnapshot struct {
	ID           SessionID       `json:"id"`
	Name         string          `json:"name"`
	Code         string          `json:"code"`
	Language     Language        `json:"language"`
	Participants []ParticipantID `json:"participants"`
	CreatedAt    time.Time       `json:"created_at"`
	LastActivity time.Time       `json:"last_activity"`
	Active       bool            `json:"is_active"`
	Revision     uint64          `json:"revision"`
	LastEditor   ParticipantID   `json:"last_editor,omitempty"`
}

// ParticipantSnapshot is a read-only view of one participant.
type ParticipantSnapshot struct {
	ID       ParticipantID  `json:"id"`
	Name     string         `json:"name"`
	Cursor   CursorPosition `json:"cursor_position"`
	LastSeen time.Time      `json:"last_seen"`
	Active   bool           `json:"is_active"`
}

// SessionState bundles a session with its participants.
type SessionState struct {
	Session            SessionSnapshot       `json:"session"`
	Participants       []ParticipantSnapshot `json:"participants"`
	ActiveParticipants int                   `json:"active_participants"`
}

// SessionSummary is the list view of an active session.
type SessionSummary struct {
	ID                 SessionID `json:"session_id"`
	Name               string    `json:"name"`
	ParticipantCount   int       `json:"participant_count"`
	ActiveParticipants int       `json:"active_participants"`
	LastActivity       time.Time `json:"last_activity"`
	CreatedAt          time.Time `json:"created_at"`
}

// SessionHistory reports lifetime statistics for a session.
type SessionHistory struct {
	ID                 SessionID `json:"session_id"`
	Name               string    `json:"name"`
	CreatedAt          time.Time `json:"created_at"`
	LastActivity       time.Time `json:"last_activity"`
	DurationMinutes    float64   `json:"duration_minutes"`
	TotalParticipants  int       `json:"total_participants"`
	ActiveParticipants int       `json:"active_participants"`
	CodeLength         int       `json:"code_length"`
	Language           Language  `json:"language"`
}

// UpdateAck acknowledges an accepted code write.
type UpdateAck struct {
	SessionID SessionID     `json:"session_id"`
	Code      string        `json:"updated_code"`
	UpdatedBy ParticipantID `json:"updated_by"`
	Timestamp time.Time     `json:"timestamp"`
	Revision  uint64        `json:"revision"`
}

// DeploymentSnapshot is an immutable copy of a deployment record.
type DeploymentSnapshot struct {
	ID           DeploymentID     `json:"deployment_id"`
	Provider     ProviderID       `json:"provider"`
	ProjectName  string           `json:"project_name"`
	Status       DeploymentStatus `json:"status"`
	Progress     int              `json:"progress"`
	Logs         []string         `json:"logs"`
	URL          string           `json:"url,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at"`
}

// ProviderInfo describes a hosting provider entry.
type ProviderInfo struct {
	ID                  ProviderID `json:"id"`
	Name                string     `json:"name"`
	URLPattern          string     `json:"url_pattern"`
	BuildTimeoutSeconds int64      `json:"build_timeout_seconds"`
	SupportsDomains     bool       `json:"supports_domains"`
}
