package service

import (
	"errors"
	"fmt"

	"invoicevault/internal/model"
)

var (
	ErrNotFound      = errors.New("invoice not found")
	ErrInvalidStatus = errors.New("unrecognized status")
	ErrInvalidToken  = errors.New("malformed token")
)

// Rules named by ConflictError.
const (
	RuleTrashedTerminal      = "status trashed is terminal and has no outgoing transition"
	RuleSameStatus           = "target status equals the current status"
	RuleEraseRequiresTrashed = "erase requires status trashed"
	RuleConcurrentUpdate     = "record was modified concurrently"
)

// ValidationError carries the blocking issues that aborted a unit of work.
type ValidationError struct {
	Outcome model.Outcome
}

func (e *ValidationError) Error() string {
	blocking, _ := e.Outcome.Split()
	switch n := len(blocking.Issues); n {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + blocking.Issues[0].String()
	default:
		return fmt.Sprintf("validation failed: %s (and %d more)", blocking.Issues[0], n-1)
	}
}

func blockingError(sev model.Severity, code, message, location string) *ValidationError {
	var o model.Outcome
	o.Add(sev, code, message, location)
	return &ValidationError{Outcome: o}
}

// ConflictError is a violated state precondition.
type ConflictError struct {
	Rule string
}

func (e *ConflictError) Error() string { return "precondition failed: " + e.Rule }

// InternalError is a store, PDF or crypto failure at a pipeline stage.
type InternalError struct {
	Stage string
	Err   error
}

func (e *InternalError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *InternalError) Unwrap() error { return e.Err }

func internal(stage string, err error) error {
	return &InternalError{Stage: stage, Err: err}
}
