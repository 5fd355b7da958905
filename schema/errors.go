package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is the root of every unknown-id error.
	ErrNotFound = errors.New("not found")
	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	// ErrParticipantNotFound indicates an unknown participant id for a session.
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)
	// ErrDeploymentNotFound indicates an unknown deployment id.
	ErrDeploymentNotFound = fmt.Errorf("deployment %w", ErrNotFound)
	// ErrUnsupportedProvider indicates a deployment target outside the provider table.
	ErrUnsupportedProvider = errors.New("unsupported deployment provider")
	// ErrValidation classifies validate-stage failures.
	ErrValidation = errors.New("validation failed")
	// ErrBuild classifies build-stage failures.
	ErrBuild = errors.New("build failed")
	// ErrDeploy classifies deploy-stage failures.
	ErrDeploy = errors.New("deploy failed")
)
