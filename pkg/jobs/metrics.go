// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package jobs

import (
	"sort"
	"sync"
	"time"
)

const (
	latencyWindowCap = 1000
	errorLogCap      = 100
	// p95 is meaningless on tiny samples.
	p95MinSamples = 20
)

// latencyWindow is a bounded ring of latency samples in milliseconds.
type latencyWindow struct {
	samples []float64
	next    int
	full    bool
}

func (w *latencyWindow) add(ms float64) {
	if w.samples == nil {
		w.samples = make([]float64, 0, latencyWindowCap)
	}
	if len(w.samples) < latencyWindowCap {
		w.samples = append(w.samples, ms)
		return
	}
	w.samples[w.next] = ms
	w.next = (w.next + 1) % latencyWindowCap
	w.full = true
}

func (w *latencyWindow) avg() *float64 {
	if len(w.samples) == 0 {
		return nil
	}
	var sum float64
	for _, s := range w.samples {
		sum += s
	}
	v := sum / float64(len(w.samples))
	return &v
}

func (w *latencyWindow) p95() *float64 {
	n := len(w.samples)
	if n <= p95MinSamples {
		return nil
	}
	sorted := make([]float64, n)
	copy(sorted, w.samples)
	sort.Float64s(sorted)
	v := sorted[int(0.95*float64(n))]
	return &v
}

// ErrorEntry is one recorded job error.
type ErrorEntry struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats is a point-in-time copy of a job's metrics.
type Stats struct {
	StartedAt          time.Time    `json:"started_at"`
	LastReadAt         time.Time    `json:"last_read_at"`
	LastWriteAt        time.Time    `json:"last_write_at"`
	Reads              int64        `json:"reads"`
	ReadErrors         int64        `json:"read_errors"`
	Writes             int64        `json:"writes"`
	WriteErrors        int64        `json:"write_errors"`
	RowsWritten        int64        `json:"rows_written"`
	TriggersEvaluated  int64        `json:"triggers_evaluated"`
	TriggersFired      int64        `json:"triggers_fired"`
	TriggersSuppressed int64        `json:"triggers_suppressed"`
	AvgReadLatencyMS   *float64     `json:"avg_read_latency_ms"`
	P95ReadLatencyMS   *float64     `json:"p95_read_latency_ms"`
	AvgWriteLatencyMS  *float64     `json:"avg_write_latency_ms"`
	P95WriteLatencyMS  *float64     `json:"p95_write_latency_ms"`
	Errors             []ErrorEntry `json:"errors"`
}

// JobMetrics accumulates counters for one job. The owning worker writes,
// readers snapshot under the same lock.
type JobMetrics struct {
	mu sync.Mutex

	startedAt   time.Time
	lastReadAt  time.Time
	lastWriteAt time.Time

	reads              int64
	readErrors         int64
	writes             int64
	writeErrors        int64
	rowsWritten        int64
	triggersEvaluated  int64
	triggersFired      int64
	triggersSuppressed int64

	readLatency  latencyWindow
	writeLatency latencyWindow
	errors       []ErrorEntry
}

// Reset clears everything and stamps a fresh start time.
func (m *JobMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startedAt = time.Now().UTC()
	m.lastReadAt = time.Time{}
	m.lastWriteAt = time.Time{}
	m.reads = 0
	m.readErrors = 0
	m.writes = 0
	m.writeErrors = 0
	m.rowsWritten = 0
	m.triggersEvaluated = 0
	m.triggersFired = 0
	m.triggersSuppressed = 0
	m.readLatency = latencyWindow{}
	m.writeLatency = latencyWindow{}
	m.errors = nil
}

// RecordRead counts one read attempt.
func (m *JobMetrics) RecordRead(latencyMS float64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	m.lastReadAt = time.Now().UTC()
	if ok {
		m.readLatency.add(latencyMS)
	} else {
		m.readErrors++
	}
}

// RecordWrite counts one write attempt of rows rows.
func (m *JobMetrics) RecordWrite(latencyMS float64, rows int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.lastWriteAt = time.Now().UTC()
	if ok {
		m.rowsWritten += int64(rows)
		m.writeLatency.add(latencyMS)
	} else {
		m.writeErrors++
	}
}

// RecordTrigger counts one trigger evaluation.
func (m *JobMetrics) RecordTrigger(fired, suppressed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggersEvaluated++
	if fired {
		m.triggersFired++
	}
	if suppressed {
		m.triggersSuppressed++
	}
}

// RecordError appends to the bounded error log.
func (m *JobMetrics) RecordError(code, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, ErrorEntry{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if len(m.errors) > errorLogCap {
		m.errors = m.errors[len(m.errors)-errorLogCap:]
	}
}

// Snapshot copies the current state.
func (m *JobMetrics) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	errors := make([]ErrorEntry, len(m.errors))
	copy(errors, m.errors)

	return Stats{
		StartedAt:          m.startedAt,
		LastReadAt:         m.lastReadAt,
		LastWriteAt:        m.lastWriteAt,
		Reads:              m.reads,
		ReadErrors:         m.readErrors,
		Writes:             m.writes,
		WriteErrors:        m.writeErrors,
		RowsWritten:        m.rowsWritten,
		TriggersEvaluated:  m.triggersEvaluated,
		TriggersFired:      m.triggersFired,
		TriggersSuppressed: m.triggersSuppressed,
		AvgReadLatencyMS:   m.readLatency.avg(),
		P95ReadLatencyMS:   m.readLatency.p95(),
		AvgWriteLatencyMS:  m.writeLatency.avg(),
		P95WriteLatencyMS:  m.writeLatency.p95(),
		Errors:             errors,
	}
}

// Registry holds per-job metrics.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*JobMetrics
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*JobMetrics)}
}

// GetOrCreate returns the metrics for a job, creating them if absent.
func (r *Registry) GetOrCreate(jobID string) *JobMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.jobs[jobID]
	if !ok {
		m = &JobMetrics{startedAt: time.Now().UTC()}
		r.jobs[jobID] = m
	}
	return m
}

// Lookup returns the metrics for a job, or nil.
func (r *Registry) Lookup(jobID string) *JobMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[jobID]
}

// Remove drops the metrics for a job.
func (r *Registry) Remove(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
}

// All snapshots every job keyed by job id.
func (r *Registry) All() map[string]Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Stats, len(r.jobs))
	for id, m := range r.jobs {
		out[id] = m.Snapshot()
	}
	return out
}
