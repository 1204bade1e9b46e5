// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package jobs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/telemetry"
)

func fptr(v float64) *float64 { return &v }

func evalSeq(t *testing.T, spec TriggerSpec, values []interface{}, spacing time.Duration) (writes []bool, stats Stats) {
	t.Helper()
	state := newTriggerState()
	metrics := &JobMetrics{}
	now := time.Unix(1756000000, 0)

	for _, v := range values {
		vals := map[string]interface{}{spec.Field: v}
		writes = append(writes, evaluateTriggers(state, metrics, []TriggerSpec{spec}, "t1", vals, now))
		now = now.Add(spacing)
	}
	return writes, metrics.Snapshot()
}

func TestUnsuppressedFiresCountedInProcessMetrics(t *testing.T) {
	spec := TriggerSpec{Field: "temp", Operator: OpGT, Value: fptr(50), CooldownMS: 1500}
	before := testutil.ToFloat64(telemetry.TriggersFiredTotal)

	// Two unsuppressed fires; the middle one lands inside the cooldown.
	writes, stats := evalSeq(t, spec, []interface{}{49.0, 51.0, 52.0, 53.0}, time.Second)
	assert.Equal(t, []bool{false, true, false, true}, writes)
	assert.Equal(t, int64(3), stats.TriggersFired)
	assert.Equal(t, int64(1), stats.TriggersSuppressed)
	assert.Equal(t, before+2, testutil.ToFloat64(telemetry.TriggersFiredTotal))
}

func TestChangeDeadbandStrict(t *testing.T) {
	spec := TriggerSpec{Field: "temp", Operator: OpChange, Deadband: 0.5}

	// A delta of exactly the deadband does not fire.
	writes, stats := evalSeq(t, spec, []interface{}{10.0, 10.5, 11.1}, time.Second)
	assert.Equal(t, []bool{false, false, true}, writes)
	assert.Equal(t, int64(3), stats.TriggersEvaluated)
	assert.Equal(t, int64(1), stats.TriggersFired)
}

func TestChangeComparesAdjacentValues(t *testing.T) {
	spec := TriggerSpec{Field: "temp", Operator: OpChange, Deadband: 0.5}

	// Slow drift below the deadband never fires, no matter how far it goes.
	writes, stats := evalSeq(t, spec, []interface{}{10.0, 10.4, 10.8, 11.2, 11.6}, time.Second)
	assert.Equal(t, []bool{false, false, false, false, false}, writes)
	assert.Equal(t, int64(0), stats.TriggersFired)
}

func TestChangeNonNumericIgnoresDeadband(t *testing.T) {
	spec := TriggerSpec{Field: "state", Operator: OpChange, Deadband: 100}

	writes, stats := evalSeq(t, spec, []interface{}{"run", "run", "trip"}, time.Second)
	assert.Equal(t, []bool{false, false, true}, writes)
	assert.Equal(t, int64(1), stats.TriggersFired)
}

func TestChangeNeedsPriorObservation(t *testing.T) {
	spec := TriggerSpec{Field: "temp", Operator: OpChange}

	writes, _ := evalSeq(t, spec, []interface{}{99.0}, time.Second)
	assert.Equal(t, []bool{false}, writes)
}

func TestRisingEdge(t *testing.T) {
	spec := TriggerSpec{Field: "temp", Operator: OpRising, Value: fptr(50)}

	writes, _ := evalSeq(t, spec, []interface{}{48.0, 49.0, 51.0, 52.0, 49.0, 51.0}, time.Second)
	// Fires only on the crossings, not while above.
	assert.Equal(t, []bool{false, false, true, false, false, true}, writes)
}

func TestFallingEdge(t *testing.T) {
	spec := TriggerSpec{Field: "temp", Operator: OpFalling, Value: fptr(50)}

	writes, _ := evalSeq(t, spec, []interface{}{52.0, 51.0, 49.0, 48.0, 51.0, 49.0}, time.Second)
	assert.Equal(t, []bool{false, false, true, false, false, true}, writes)
}

func TestRelationalOperators(t *testing.T) {
	tests := []struct {
		op     string
		values []interface{}
		want   []bool
	}{
		{OpGT, []interface{}{49.0, 50.0, 51.0}, []bool{false, false, true}},
		{OpGTE, []interface{}{49.0, 50.0, 51.0}, []bool{false, true, true}},
		{OpLT, []interface{}{51.0, 50.0, 49.0}, []bool{false, false, true}},
		{OpLTE, []interface{}{51.0, 50.0, 49.0}, []bool{false, true, true}},
		{OpEQ, []interface{}{49.0, 50.0, 51.0}, []bool{false, true, false}},
		{OpNEQ, []interface{}{49.0, 50.0, 51.0}, []bool{true, false, true}},
	}
	for _, tt := range tests {
		spec := TriggerSpec{Field: "v", Operator: tt.op, Value: fptr(50)}
		writes, _ := evalSeq(t, spec, tt.values, time.Second)
		assert.Equal(t, tt.want, writes, "operator %s", tt.op)
	}
}

func TestNilThresholdNeverFires(t *testing.T) {
	for _, op := range []string{OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNEQ, OpRising, OpFalling} {
		spec := TriggerSpec{Field: "v", Operator: op}
		writes, _ := evalSeq(t, spec, []interface{}{1.0, 100.0}, time.Second)
		assert.Equal(t, []bool{false, false}, writes, "operator %s", op)
	}
}

func TestCooldownSuppression(t *testing.T) {
	spec := TriggerSpec{Field: "temp", Operator: OpChange, Deadband: 0.5, CooldownMS: 1000}

	// Fires at step 2 (delta 0.7); fires again at step 4 (delta 0.8) but only
	// 400 ms after the previous fire, so it is suppressed and nothing is
	// written.
	writes, stats := evalSeq(t, spec, []interface{}{10.0, 10.2, 10.9, 11.0, 11.8}, 200*time.Millisecond)
	assert.Equal(t, []bool{false, false, true, false, false}, writes)
	assert.Equal(t, int64(5), stats.TriggersEvaluated)
	assert.Equal(t, int64(2), stats.TriggersFired)
	assert.Equal(t, int64(1), stats.TriggersSuppressed)
}

func TestCooldownExpires(t *testing.T) {
	spec := TriggerSpec{Field: "temp", Operator: OpChange, Deadband: 0.5, CooldownMS: 1000}

	writes, stats := evalSeq(t, spec, []interface{}{10.0, 11.0, 12.0, 13.0}, 1100*time.Millisecond)
	assert.Equal(t, []bool{false, true, true, true}, writes)
	assert.Equal(t, int64(0), stats.TriggersSuppressed)
}

func TestSuppressedFireDoesNotResetCooldown(t *testing.T) {
	spec := TriggerSpec{Field: "temp", Operator: OpChange, Deadband: 0, CooldownMS: 500}

	// Every step changes; fires at step 1, suppressed at step 2, fires again
	// at step 3 once 600 ms have elapsed since the step-1 fire.
	writes, stats := evalSeq(t, spec, []interface{}{1.0, 2.0, 3.0, 4.0}, 300*time.Millisecond)
	assert.Equal(t, []bool{false, true, false, true}, writes)
	assert.Equal(t, int64(3), stats.TriggersFired)
	assert.Equal(t, int64(1), stats.TriggersSuppressed)
}

func TestMissingFieldSkipsTrigger(t *testing.T) {
	state := newTriggerState()
	metrics := &JobMetrics{}
	spec := TriggerSpec{Field: "temp", Operator: OpChange}

	write := evaluateTriggers(state, metrics, []TriggerSpec{spec}, "t1",
		map[string]interface{}{"other": 1.0}, time.Now())
	assert.False(t, write)
	assert.Equal(t, int64(0), metrics.Snapshot().TriggersEvaluated)
}

func TestAnyUnsuppressedFireWrites(t *testing.T) {
	state := newTriggerState()
	metrics := &JobMetrics{}
	triggers := []TriggerSpec{
		{Field: "a", Operator: OpGT, Value: fptr(100)}, // never fires
		{Field: "b", Operator: OpGT, Value: fptr(0)},   // always fires
	}

	write := evaluateTriggers(state, metrics, triggers, "t1",
		map[string]interface{}{"a": 1.0, "b": 1.0}, time.Now())
	assert.True(t, write)
	assert.Equal(t, int64(2), metrics.Snapshot().TriggersEvaluated)
	assert.Equal(t, int64(1), metrics.Snapshot().TriggersFired)
}

func TestTriggerStateIsolatedPerTable(t *testing.T) {
	state := newTriggerState()
	metrics := &JobMetrics{}
	spec := []TriggerSpec{{Field: "v", Operator: OpChange}}
	now := time.Now()

	evaluateTriggers(state, metrics, spec, "t1", map[string]interface{}{"v": 1.0}, now)
	// First observation on t2 must not see t1's history.
	write := evaluateTriggers(state, metrics, spec, "t2", map[string]interface{}{"v": 2.0}, now)
	assert.False(t, write)
}
