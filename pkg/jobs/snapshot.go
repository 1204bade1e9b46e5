// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

// Package jobs runs logging jobs: each job polls a set of device tables on a
// fixed interval and writes rows to storage, either continuously or when a
// trigger condition fires.
package jobs

// Job types.
const (
	TypeContinuous = "continuous"
	TypeTrigger    = "trigger"
)

// Trigger operators.
const (
	OpChange  = "change"
	OpRising  = "rising"
	OpFalling = "falling"
	OpGT      = ">"
	OpGTE     = ">="
	OpLT      = "<"
	OpLTE     = "<="
	OpEQ      = "=="
	OpNEQ     = "!="
)

// TriggerSpec is one trigger condition evaluated against every polled table.
type TriggerSpec struct {
	Field      string
	Operator   string
	Value      *float64 // threshold; nil is invalid for relational and edge operators
	Deadband   float64  // change only: minimum numeric delta that counts
	CooldownMS int      // suppress refires within this window
}

// ReadFunc polls one table and returns its field values keyed by schema key.
// A nil map with nil error means the table is not readable right now and the
// cycle should skip it.
type ReadFunc func(tableID string) (map[string]interface{}, error)

// WriteFunc persists buffered rows for one table.
type WriteFunc func(tableID string, rows []map[string]interface{}) error

// Snapshot is the frozen definition a worker runs. It is built once at start
// so catalog edits never race a running job.
type Snapshot struct {
	JobID      string
	Type       string
	IntervalMS int
	TableIDs   []string
	Triggers   []TriggerSpec
	BatchSize  int
	Read       ReadFunc
	Write      WriteFunc
}
