package schema

// SessionID identifies a collaboration session.
type SessionID string

// ParticipantID identifies a participant within one session.
type ParticipantID string

// DeploymentID identifies a deployment job.
type DeploymentID string

// ProviderID identifies a hosting provider (vercel, netlify, ...).
type ProviderID string

// Language tags the code held by a session.
type Language string

// CursorPosition is a 1-based line/column position in a session buffer.
type CursorPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// DefaultCursor is the position assigned to a participant on join.
var DefaultCursor = CursorPosition{Line: 1, Column: 1}

// DeploymentStatus describes where a deployment is in its pipeline.
type DeploymentStatus string

const (
	// DeploymentPending is the state of a freshly recorded deployment.
	DeploymentPending DeploymentStatus = "pending"
	// DeploymentBuilding covers the validate, prepare and build stages.
	DeploymentBuilding DeploymentStatus = "building"
	// DeploymentDeploying covers the deploy and finalize stages.
	DeploymentDeploying DeploymentStatus = "deploying"
	// DeploymentSuccess is terminal: the project is published.
	DeploymentSuccess DeploymentStatus = "success"
	// DeploymentFailed is terminal: a stage failed.
	DeploymentFailed DeploymentStatus = "failed"
	// DeploymentCancelled is terminal: the deployment was cancelled.
	DeploymentCancelled DeploymentStatus = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s DeploymentStatus) Terminal() bool {
	switch s {
	case DeploymentSuccess, DeploymentFailed, DeploymentCancelled:
		return true
	default:
		return false
	}
}

// Stage names one sequential phase of the deployment pipeline.
type Stage string

const (
	StageValidate Stage = "validate"
	StagePrepare  Stage = "prepare"
	StageBuild    Stage = "build"
	StageDeploy   Stage = "deploy"
	StageFinalize Stage = "finalize"
)
