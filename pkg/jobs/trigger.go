// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package jobs

import (
	"fmt"
	"math"
	"time"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/telemetry"
)

// triggerState carries per-(job,table) history between iterations. Owned by a
// single worker, no locking.
type triggerState struct {
	// last observed values per table.
	lastValues map[string]map[string]interface{}
	// last unsuppressed fire per (table,field).
	lastFired map[string]time.Time
}

func newTriggerState() *triggerState {
	return &triggerState{
		lastValues: make(map[string]map[string]interface{}),
		lastFired:  make(map[string]time.Time),
	}
}

func cooldownKey(tableID, field string) string {
	return tableID + "|" + field
}

// asFloat widens any numeric value to float64.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// conditionHolds decides whether one trigger's condition is met, ignoring
// cooldown. hasOld distinguishes "no prior observation" from a nil old value.
func conditionHolds(spec TriggerSpec, old interface{}, hasOld bool, newVal interface{}) bool {
	switch spec.Operator {
	case OpChange:
		if !hasOld {
			return false
		}
		nf, nok := asFloat(newVal)
		of, ook := asFloat(old)
		if nok && ook {
			return math.Abs(nf-of) > spec.Deadband
		}
		// Deadband does not apply to non-numeric values.
		return fmt.Sprint(newVal) != fmt.Sprint(old)

	case OpRising, OpFalling:
		if !hasOld || spec.Value == nil {
			return false
		}
		nf, nok := asFloat(newVal)
		of, ook := asFloat(old)
		if !nok || !ook {
			return false
		}
		t := *spec.Value
		if spec.Operator == OpRising {
			return of <= t && nf > t
		}
		return of >= t && nf < t

	case OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNEQ:
		if spec.Value == nil {
			return false
		}
		nf, ok := asFloat(newVal)
		if !ok {
			return false
		}
		t := *spec.Value
		switch spec.Operator {
		case OpGT:
			return nf > t
		case OpGTE:
			return nf >= t
		case OpLT:
			return nf < t
		case OpLTE:
			return nf <= t
		case OpEQ:
			return nf == t
		default:
			return nf != t
		}

	default:
		return false
	}
}

// evaluateTriggers runs every trigger against one table's fresh values and
// returns whether the table should be written. Fires within a trigger's
// cooldown window are suppressed and do not contribute to the decision.
// last_values is updated unconditionally afterwards.
func evaluateTriggers(state *triggerState, metrics *JobMetrics, triggers []TriggerSpec, tableID string, values map[string]interface{}, now time.Time) bool {
	last := state.lastValues[tableID]
	shouldWrite := false

	for _, spec := range triggers {
		newVal, ok := values[spec.Field]
		if !ok {
			continue
		}
		var (
			old    interface{}
			hasOld bool
		)
		if last != nil {
			old, hasOld = last[spec.Field]
		}

		if !conditionHolds(spec, old, hasOld, newVal) {
			metrics.RecordTrigger(false, false)
			continue
		}

		suppressed := false
		if spec.CooldownMS > 0 {
			key := cooldownKey(tableID, spec.Field)
			if fired, ok := state.lastFired[key]; ok {
				suppressed = now.Sub(fired) < time.Duration(spec.CooldownMS)*time.Millisecond
			}
			if !suppressed {
				state.lastFired[key] = now
			}
		}
		metrics.RecordTrigger(true, suppressed)
		if !suppressed {
			shouldWrite = true
			telemetry.TriggersFiredTotal.Inc()
		}
	}

	// Remember everything observed this cycle, fired or not.
	if last == nil {
		last = make(map[string]interface{}, len(values))
		state.lastValues[tableID] = last
	}
	for k, v := range values {
		last[k] = v
	}
	return shouldWrite
}
