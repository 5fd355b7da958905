package core

import (
	"fmt"

	"pkt.systems/codeyard/schema"
)

// StageErrorKind classifies pipeline failures.
type StageErrorKind string

const (
	// StageErrorValidation indicates the input files were rejected.
	StageErrorValidation StageErrorKind = "validation"
	// StageErrorBuild indicates the build step failed or timed out.
	StageErrorBuild StageErrorKind = "build"
	// StageErrorDeploy indicates the provider upload failed.
	StageErrorDeploy StageErrorKind = "deploy"
)

// StageError wraps pipeline failures with a stable classification.
type StageError struct {
	Kind    StageErrorKind
	Stage   schema.Stage
	Message string
	Err     error
}

// NewStageError constructs a classified stage error.
func NewStageError(kind StageErrorKind, stage schema.Stage, message string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Message: message, Err: err}
}

func (e *StageError) Error() string {
	if e == nil {
		return "stage error"
	}
	prefix := "Stage failed"
	switch e.Kind {
	case StageErrorValidation:
		prefix = "Validation failed"
	case StageErrorBuild:
		prefix = "Build failed"
	case StageErrorDeploy:
		prefix = "Deploy failed"
	}
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", prefix, e.Err.Error())
	default:
		return prefix
	}
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is maps the kind onto the schema sentinels so callers can use errors.Is.
func (e *StageError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case StageErrorValidation:
		return target == schema.ErrValidation
	case StageErrorBuild:
		return target == schema.ErrBuild
	case StageErrorDeploy:
		return target == schema.ErrDeploy
	}
	return false
}
