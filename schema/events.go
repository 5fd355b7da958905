package schema

import "time"

// SessionEventType identifies session lifecycle notifications.
type SessionEventType string

const (
	// SessionEventCreated indicates a session was created.
	SessionEventCreated SessionEventType = "created"
	// SessionEventJoined indicates a participant joined.
	SessionEventJoined SessionEventType = "joined"
	// SessionEventLeft indicates a participant left.
	SessionEventLeft SessionEventType = "left"
	// SessionEventCodeUpdated indicates the code buffer was replaced.
	SessionEventCodeUpdated SessionEventType = "code_updated"
	// SessionEventCursorMoved indicates a participant cursor moved.
	SessionEventCursorMoved SessionEventType = "cursor_moved"
	// SessionEventDeactivated indicates the last participant left.
	SessionEventDeactivated SessionEventType = "deactivated"
	// SessionEventReaped indicates the session was removed after idling.
	SessionEventReaped SessionEventType = "reaped"
)

// SessionEvent notifies subscribers about a session change.
type SessionEvent struct {
	Type          SessionEventType `json:"type"`
	SessionID     SessionID        `json:"session_id"`
	ParticipantID ParticipantID    `json:"participant_id,omitempty"`
	Code          string           `json:"code,omitempty"`
	Revision      uint64           `json:"revision,omitempty"`
	Cursor        *CursorPosition  `json:"cursor,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// DeploymentEventType identifies deployment notifications.
type DeploymentEventType string

const (
	// DeploymentEventStarted indicates a deployment was recorded.
	DeploymentEventStarted DeploymentEventType = "started"
	// DeploymentEventProgress indicates a status, progress or log change.
	DeploymentEventProgress DeploymentEventType = "progress"
	// DeploymentEventFinished indicates the deployment reached a terminal status.
	DeploymentEventFinished DeploymentEventType = "finished"
)

// DeploymentEvent notifies subscribers about a deployment change.
type DeploymentEvent struct {
	Type         DeploymentEventType `json:"type"`
	DeploymentID DeploymentID        `json:"deployment_id"`
	Status       DeploymentStatus    `json:"status"`
	Progress     int                 `json:"progress"`
	Lines        []string            `json:"lines,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}
