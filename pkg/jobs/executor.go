// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package jobs

import (
	"sync"
	"time"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/config"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/util/log"
)

// Executor starts and stops job workers, one goroutine per running job.
type Executor struct {
	mu          sync.Mutex
	workers     map[string]*worker
	registry    *Registry
	joinTimeout time.Duration
}

// NewExecutor returns an Executor publishing metrics into registry.
func NewExecutor(registry *Registry) *Executor {
	joinTimeout := 5 * time.Second
	if ms := config.Neuract.GetInt("jobs.join_timeout_ms"); ms > 0 {
		joinTimeout = time.Duration(ms) * time.Millisecond
	}
	return &Executor{
		workers:     make(map[string]*worker),
		registry:    registry,
		joinTimeout: joinTimeout,
	}
}

// StartJob spawns a worker for the snapshot. Metrics for the job are reset.
func (e *Executor) StartJob(snap Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.workers[snap.JobID]; ok {
		return errs.New(errs.Conflict, "job %s is already running", snap.JobID)
	}

	metrics := e.registry.GetOrCreate(snap.JobID)
	metrics.Reset()

	w := newWorker(snap, metrics)
	e.workers[snap.JobID] = w
	go w.run()

	log.Infof("job %s started", snap.JobID)
	return nil
}

// StopJob signals the worker and waits for it to drain. A worker stuck in
// blocking I/O past the join timeout is abandoned.
func (e *Executor) StopJob(jobID string) error {
	e.mu.Lock()
	w, ok := e.workers[jobID]
	if ok {
		delete(e.workers, jobID)
	}
	e.mu.Unlock()

	if !ok {
		return errs.New(errs.NotFound, "job %s is not running", jobID)
	}

	close(w.stop)
	select {
	case <-w.done:
		log.Infof("job %s stopped", jobID)
	case <-time.After(e.joinTimeout):
		log.Warnf("job %s did not stop within %s, abandoning worker", jobID, e.joinTimeout) //nolint:errcheck
	}
	return nil
}

// PauseJob halts the worker like StopJob; the distinction between paused and
// stopped lives in the catalog, and metrics survive either way until the next
// start.
func (e *Executor) PauseJob(jobID string) error {
	return e.StopJob(jobID)
}

// StopAll halts every running worker.
func (e *Executor) StopAll() {
	e.mu.Lock()
	workers := e.workers
	e.workers = make(map[string]*worker)
	e.mu.Unlock()

	for jobID, w := range workers {
		close(w.stop)
		select {
		case <-w.done:
			log.Infof("job %s stopped", jobID)
		case <-time.After(e.joinTimeout):
			log.Warnf("job %s did not stop within %s, abandoning worker", jobID, e.joinTimeout) //nolint:errcheck
		}
	}
}

// IsRunning reports whether a worker exists for the job.
func (e *Executor) IsRunning(jobID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.workers[jobID]
	return ok
}

// Metrics returns the live stats for one job, or nil when none exist.
func (e *Executor) Metrics(jobID string) *Stats {
	m := e.registry.Lookup(jobID)
	if m == nil {
		return nil
	}
	s := m.Snapshot()
	return &s
}

// AllMetrics returns the live stats for every job the registry knows about,
// running or not.
func (e *Executor) AllMetrics() map[string]Stats {
	return e.registry.All()
}

// Running lists the ids of all running jobs.
func (e *Executor) Running() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.workers))
	for id := range e.workers {
		ids = append(ids, id)
	}
	return ids
}
