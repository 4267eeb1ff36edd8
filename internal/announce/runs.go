// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Phase names reported for active runs.
const (
	PhaseReconfiguring = "reconfiguring"
	PhaseConverging    = "converging"
	PhasePlaying       = "playing"
	PhaseRestoring     = "restoring"
)

// RunInfo describes an in-flight run.
type RunInfo struct {
	ID          string    `json:"runId"`
	Policy      Policy    `json:"policy"`
	Coordinator string    `json:"coordinator"`
	Targets     []string  `json:"targets"`
	Phase       string    `json:"phase"`
	StartedAt   time.Time `json:"startedAt"`
}

type activeRun struct {
	info   RunInfo
	cancel context.CancelFunc
}

type runRegistry struct {
	mu   sync.Mutex
	runs map[string]*activeRun
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*activeRun)}
}

func (r *runRegistry) add(info RunInfo, cancel context.CancelFunc) {
	r.mu.Lock()
	r.runs[info.ID] = &activeRun{info: info, cancel: cancel}
	r.mu.Unlock()
}

func (r *runRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.runs, id)
	r.mu.Unlock()
}

func (r *runRegistry) setPhase(id, phase string) {
	r.mu.Lock()
	if run, ok := r.runs[id]; ok {
		run.info.Phase = phase
	}
	r.mu.Unlock()
}

func (r *runRegistry) abort(id string) bool {
	r.mu.Lock()
	run, ok := r.runs[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	run.cancel()
	return true
}

func (r *runRegistry) list() []RunInfo {
	r.mu.Lock()
	out := make([]RunInfo, 0, len(r.runs))
	for _, run := range r.runs {
		info := run.info
		info.Targets = append([]string(nil), info.Targets...)
		out = append(out, info)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}
