// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"fmt"
	"time"
)

// Config tunes run timing.
type Config struct {
	// RestorePadding is added to the expected duration to form the hard
	// ceiling of the completion wait.
	RestorePadding time.Duration
	// ConvergenceTimeout bounds the wait for the regrouped topology.
	ConvergenceTimeout time.Duration
	// LockWaitTimeout bounds how long a run waits for overlapping runs.
	LockWaitTimeout time.Duration
	// LockRetryInterval is the pause between lease attempts.
	LockRetryInterval time.Duration
	// RestoreTimeout bounds the restore pass of a single run.
	RestoreTimeout time.Duration
	// LeaseSlack is added to the computed lease TTL.
	LeaseSlack time.Duration
}

// DefaultConfig returns production timings.
func DefaultConfig() Config {
	return Config{
		RestorePadding:     2000 * time.Millisecond,
		ConvergenceTimeout: 5 * time.Second,
		LockWaitTimeout:    30 * time.Second,
		LockRetryInterval:  250 * time.Millisecond,
		RestoreTimeout:     60 * time.Second,
		LeaseSlack:         10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RestorePadding <= 0 {
		c.RestorePadding = def.RestorePadding
	}
	if c.ConvergenceTimeout <= 0 {
		c.ConvergenceTimeout = def.ConvergenceTimeout
	}
	if c.LockWaitTimeout < 0 {
		c.LockWaitTimeout = 0
	}
	if c.LockRetryInterval <= 0 {
		c.LockRetryInterval = def.LockRetryInterval
	}
	if c.RestoreTimeout <= 0 {
		c.RestoreTimeout = def.RestoreTimeout
	}
	if c.LeaseSlack <= 0 {
		c.LeaseSlack = def.LeaseSlack
	}
	return c
}

// Request describes one announcement.
type Request struct {
	Policy           Policy
	SourceURI        string
	SourceMetadata   string
	Volume           int
	ExpectedDuration time.Duration
	// Requester is the room the request was issued from. Informational.
	Requester string
}

func (r Request) validate() error {
	switch {
	case r.Policy != PolicyAll && r.Policy != PolicyAvailable:
		return fmt.Errorf("%w: unknown policy %q", ErrInvalidRequest, r.Policy)
	case r.SourceURI == "":
		return fmt.Errorf("%w: source uri is required", ErrInvalidRequest)
	case r.Volume < 0 || r.Volume > 100:
		return fmt.Errorf("%w: volume %d out of range 0-100", ErrInvalidRequest, r.Volume)
	case r.ExpectedDuration <= 0:
		return fmt.Errorf("%w: expected duration must be positive", ErrInvalidRequest)
	}
	return nil
}

// Result is returned for every run that got past selection.
type Result struct {
	RunID       string        `json:"runId"`
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	Policy      Policy        `json:"policy,omitempty"`
	Coordinator string        `json:"coordinator,omitempty"`
	Targets     []string      `json:"targets,omitempty"`
	Outcome     WaitOutcome   `json:"outcome,omitempty"`
	Restore     RestoreReport `json:"restore"`
}
