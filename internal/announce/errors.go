// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEligibleTargets is matched by NoEligibleTargetsError.
	ErrNoEligibleTargets = errors.New("no eligible targets")
	// ErrTargetNotFound is matched by TargetNotFoundError.
	ErrTargetNotFound = errors.New("target not found")
	// ErrGroupOperation is matched by GroupOperationError.
	ErrGroupOperation = errors.New("group operation failed")
	// ErrTargetsBusy is returned when another run kept the targets locked
	// for longer than the lock wait timeout. Nothing was mutated.
	ErrTargetsBusy = errors.New("targets busy with another announcement")
	// ErrInvalidRequest is returned for requests rejected before any run.
	ErrInvalidRequest = errors.New("invalid announcement request")
)

// NoEligibleTargetsError reports that selection found nothing to announce on.
type NoEligibleTargetsError struct {
	Policy Policy
}

func (e *NoEligibleTargetsError) Error() string {
	if e.Policy == PolicyAvailable {
		return "no available players"
	}
	return fmt.Sprintf("no eligible targets for policy %s", e.Policy)
}

func (e *NoEligibleTargetsError) Is(target error) bool {
	return target == ErrNoEligibleTargets
}

// TargetNotFoundError reports a room that could not be located.
type TargetNotFoundError struct {
	Room string
	Err  error
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("target %q not found", e.Room)
}

func (e *TargetNotFoundError) Is(target error) bool {
	return target == ErrTargetNotFound
}

func (e *TargetNotFoundError) Unwrap() error {
	return e.Err
}

// GroupOperationError reports a failed isolate or attach.
type GroupOperationError struct {
	Op          string
	Room        string
	Coordinator string
	Err         error
}

func (e *GroupOperationError) Error() string {
	if e.Coordinator != "" {
		return fmt.Sprintf("%s %q to %q: %v", e.Op, e.Room, e.Coordinator, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Room, e.Err)
}

func (e *GroupOperationError) Is(target error) bool {
	return target == ErrGroupOperation
}

func (e *GroupOperationError) Unwrap() error {
	return e.Err
}

// ErrorKind maps an error to a short stable label for logs, metrics and
// HTTP responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoEligibleTargets):
		return "no_eligible_targets"
	case errors.Is(err, ErrTargetsBusy):
		return "targets_busy"
	case errors.Is(err, ErrTargetNotFound):
		return "target_not_found"
	case errors.Is(err, ErrGroupOperation):
		return "group_operation"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal"
	}
}
