// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package jobs

import (
	"time"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/util/log"
)

// worker runs one job's poll loop. It owns its buffers and trigger state;
// only the stop channel is shared.
type worker struct {
	snap    Snapshot
	metrics *JobMetrics

	stop chan struct{}
	done chan struct{}

	buffers map[string][]map[string]interface{}
	trig    *triggerState
}

func newWorker(snap Snapshot, metrics *JobMetrics) *worker {
	if snap.BatchSize <= 0 {
		snap.BatchSize = 1
	}
	if snap.IntervalMS <= 0 {
		snap.IntervalMS = 1000
	}
	return &worker{
		snap:    snap,
		metrics: metrics,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		buffers: make(map[string][]map[string]interface{}),
		trig:    newTriggerState(),
	}
}

func (w *worker) run() {
	defer close(w.done)

	interval := time.Duration(w.snap.IntervalMS) * time.Millisecond
	log.Infof("job %s loop started, interval %s, %d tables", w.snap.JobID, interval, len(w.snap.TableIDs))

	for {
		select {
		case <-w.stop:
			w.drain()
			log.Infof("job %s loop ended", w.snap.JobID)
			return
		default:
		}

		t0 := time.Now()
		for _, tableID := range w.snap.TableIDs {
			w.pollTable(tableID)
		}

		// Overruns start the next iteration immediately; there is no
		// makeup sleep.
		wait := interval - time.Since(t0)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-w.stop:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// pollTable reads one table, evaluates triggers and buffers/flushes rows.
func (w *worker) pollTable(tableID string) {
	start := time.Now()
	values, err := w.snap.Read(tableID)
	latency := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		code := string(errs.CodeOf(err))
		if code == "" {
			code = "LOOP_ERROR"
		}
		w.metrics.RecordError(code, err.Error())
		w.metrics.RecordRead(latency, false)
		return
	}
	w.metrics.RecordRead(latency, true)
	if values == nil {
		return
	}

	shouldWrite := true
	if w.snap.Type != TypeContinuous {
		shouldWrite = evaluateTriggers(w.trig, w.metrics, w.snap.Triggers, tableID, values, time.Now())
	}
	if !shouldWrite {
		return
	}

	values["timestamp_utc"] = time.Now().UTC()
	w.buffers[tableID] = append(w.buffers[tableID], values)

	if len(w.buffers[tableID]) >= w.snap.BatchSize {
		w.flush(tableID)
	}
}

// flush writes and clears one table's buffer. A failed write drops the batch;
// rows are at-least-once only up to the batch boundary.
func (w *worker) flush(tableID string) {
	rows := w.buffers[tableID]
	if len(rows) == 0 {
		return
	}
	w.buffers[tableID] = nil

	start := time.Now()
	err := w.snap.Write(tableID, rows)
	latency := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		code := string(errs.CodeOf(err))
		if code == "" {
			code = "LOOP_ERROR"
		}
		w.metrics.RecordError(code, err.Error())
		w.metrics.RecordWrite(latency, len(rows), false)
		log.Warnf("job %s write %s: %v", w.snap.JobID, tableID, err) //nolint:errcheck
		return
	}
	w.metrics.RecordWrite(latency, len(rows), true)
}

// drain flushes every non-empty buffer once on the way out.
func (w *worker) drain() {
	for tableID := range w.buffers {
		w.flush(tableID)
	}
}
