// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package jobs

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
)

// sink collects write calls.
type sink struct {
	mu     sync.Mutex
	calls  [][]map[string]interface{}
	tables []string
}

func (s *sink) write(tableID string, rows []map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]map[string]interface{}, len(rows))
	copy(copied, rows)
	s.calls = append(s.calls, copied)
	s.tables = append(s.tables, tableID)
	return nil
}

func (s *sink) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *sink) totalRows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += len(c)
	}
	return n
}

func constRead(values map[string]interface{}) ReadFunc {
	return func(string) (map[string]interface{}, error) {
		out := make(map[string]interface{}, len(values))
		for k, v := range values {
			out[k] = v
		}
		return out, nil
	}
}

func TestContinuousBatching(t *testing.T) {
	s := &sink{}
	reg := NewRegistry()
	ex := NewExecutor(reg)

	snap := Snapshot{
		JobID:      "job-1",
		Type:       TypeContinuous,
		IntervalMS: 10,
		TableIDs:   []string{"t1"},
		BatchSize:  3,
		Read:       constRead(map[string]interface{}{"power": 230.5, "status": true}),
		Write:      s.write,
	}
	require.NoError(t, ex.StartJob(snap))

	require.Eventually(t, func() bool { return s.writeCount() >= 2 },
		2*time.Second, 5*time.Millisecond)
	require.NoError(t, ex.StopJob("job-1"))

	s.mu.Lock()
	defer s.mu.Unlock()
	// All flushes before the drain are exactly batch-sized.
	for i, call := range s.calls[:2] {
		assert.Len(t, call, 3, "call %d", i)
		for _, row := range call {
			assert.Equal(t, 230.5, row["power"])
			assert.Equal(t, true, row["status"])
			assert.IsType(t, time.Time{}, row["timestamp_utc"])
		}
	}

	stats := reg.Lookup("job-1").Snapshot()
	assert.GreaterOrEqual(t, stats.Reads, int64(6))
	assert.Equal(t, int64(0), stats.ReadErrors)
	assert.GreaterOrEqual(t, stats.RowsWritten, int64(6))
}

func TestStopDrainsBuffer(t *testing.T) {
	s := &sink{}
	reg := NewRegistry()
	ex := NewExecutor(reg)

	reads := make(chan struct{}, 100)
	snap := Snapshot{
		JobID:      "job-1",
		Type:       TypeContinuous,
		IntervalMS: 5,
		TableIDs:   []string{"t1"},
		BatchSize:  1000, // never reached before stop
		Read: func(string) (map[string]interface{}, error) {
			reads <- struct{}{}
			return map[string]interface{}{"v": 1.0}, nil
		},
		Write: s.write,
	}
	require.NoError(t, ex.StartJob(snap))

	for i := 0; i < 7; i++ {
		<-reads
	}
	require.NoError(t, ex.StopJob("job-1"))

	require.Equal(t, 1, s.writeCount(), "stop flushes pending rows exactly once")
	assert.GreaterOrEqual(t, s.totalRows(), 7)
	assert.Equal(t, int64(s.totalRows()), reg.Lookup("job-1").Snapshot().RowsWritten)
}

func TestTriggerJobWritesOnlyOnFires(t *testing.T) {
	s := &sink{}
	reg := NewRegistry()
	ex := NewExecutor(reg)

	stream := []float64{10.0, 10.2, 10.9, 10.9, 10.9}
	var mu sync.Mutex
	i := 0
	snap := Snapshot{
		JobID:      "job-1",
		Type:       TypeTrigger,
		IntervalMS: 5,
		TableIDs:   []string{"t1"},
		BatchSize:  1,
		Triggers:   []TriggerSpec{{Field: "temp", Operator: OpChange, Deadband: 0.5}},
		Read: func(string) (map[string]interface{}, error) {
			mu.Lock()
			defer mu.Unlock()
			v := stream[i]
			if i < len(stream)-1 {
				i++
			}
			return map[string]interface{}{"temp": v}, nil
		},
		Write: s.write,
	}
	require.NoError(t, ex.StartJob(snap))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return i == len(stream)-1
	}, 2*time.Second, 2*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, ex.StopJob("job-1"))

	// Only the 10.2 -> 10.9 step crosses the deadband.
	assert.Equal(t, 1, s.writeCount())
	assert.Equal(t, 1, s.totalRows())
	stats := reg.Lookup("job-1").Snapshot()
	assert.Equal(t, int64(1), stats.TriggersFired)
}

func TestReadErrorsAreCountedAndLoopContinues(t *testing.T) {
	s := &sink{}
	reg := NewRegistry()
	ex := NewExecutor(reg)

	var mu sync.Mutex
	calls := 0
	snap := Snapshot{
		JobID:      "job-1",
		Type:       TypeContinuous,
		IntervalMS: 5,
		TableIDs:   []string{"t1"},
		BatchSize:  1,
		Read: func(string) (map[string]interface{}, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return nil, errs.New(errs.TransportError, "connection reset")
			}
			return map[string]interface{}{"v": 1.0}, nil
		},
		Write: s.write,
	}
	require.NoError(t, ex.StartJob(snap))

	require.Eventually(t, func() bool { return s.writeCount() >= 1 },
		2*time.Second, 2*time.Millisecond)
	require.NoError(t, ex.StopJob("job-1"))

	stats := reg.Lookup("job-1").Snapshot()
	assert.Equal(t, int64(1), stats.ReadErrors)
	require.NotEmpty(t, stats.Errors)
	assert.Equal(t, "TRANSPORT_ERROR", stats.Errors[0].Code)
}

func TestNilValuesSkipTable(t *testing.T) {
	s := &sink{}
	reg := NewRegistry()
	ex := NewExecutor(reg)

	reads := make(chan struct{}, 100)
	snap := Snapshot{
		JobID:      "job-1",
		Type:       TypeContinuous,
		IntervalMS: 5,
		TableIDs:   []string{"t1"},
		BatchSize:  1,
		Read: func(string) (map[string]interface{}, error) {
			reads <- struct{}{}
			return nil, nil
		},
		Write: s.write,
	}
	require.NoError(t, ex.StartJob(snap))
	for i := 0; i < 3; i++ {
		<-reads
	}
	require.NoError(t, ex.StopJob("job-1"))

	assert.Equal(t, 0, s.writeCount())
	stats := reg.Lookup("job-1").Snapshot()
	assert.GreaterOrEqual(t, stats.Reads, int64(3))
	assert.Equal(t, int64(0), stats.ReadErrors)
}

func TestWriteErrorDropsBatch(t *testing.T) {
	reg := NewRegistry()
	ex := NewExecutor(reg)

	var mu sync.Mutex
	writes := 0
	snap := Snapshot{
		JobID:      "job-1",
		Type:       TypeContinuous,
		IntervalMS: 5,
		TableIDs:   []string{"t1"},
		BatchSize:  1,
		Read:       constRead(map[string]interface{}{"v": 1.0}),
		Write: func(string, []map[string]interface{}) error {
			mu.Lock()
			defer mu.Unlock()
			writes++
			return errors.New("disk full")
		},
	}
	require.NoError(t, ex.StartJob(snap))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return writes >= 2
	}, 2*time.Second, 2*time.Millisecond)
	require.NoError(t, ex.StopJob("job-1"))

	stats := reg.Lookup("job-1").Snapshot()
	assert.Equal(t, int64(0), stats.RowsWritten)
	assert.GreaterOrEqual(t, stats.WriteErrors, int64(2))
	require.NotEmpty(t, stats.Errors)
	assert.Equal(t, "LOOP_ERROR", stats.Errors[0].Code)
}

func TestStartConflict(t *testing.T) {
	reg := NewRegistry()
	ex := NewExecutor(reg)

	snap := Snapshot{
		JobID:      "job-1",
		Type:       TypeContinuous,
		IntervalMS: 50,
		Read:       constRead(map[string]interface{}{"v": 1.0}),
		Write:      (&sink{}).write,
	}
	require.NoError(t, ex.StartJob(snap))
	defer ex.StopAll()

	err := ex.StartJob(snap)
	require.Error(t, err)
	assert.Equal(t, errs.Conflict, errs.CodeOf(err))
	assert.True(t, ex.IsRunning("job-1"))
}

func TestStopUnknownJob(t *testing.T) {
	ex := NewExecutor(NewRegistry())

	err := ex.StopJob("nope")
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestStartResetsMetrics(t *testing.T) {
	reg := NewRegistry()
	ex := NewExecutor(reg)

	reg.GetOrCreate("job-1").RecordRead(1, true)

	snap := Snapshot{
		JobID:      "job-1",
		Type:       TypeContinuous,
		IntervalMS: 1000, // first read happens immediately, then sleeps
		Read:       constRead(nil),
		Write:      (&sink{}).write,
	}
	require.NoError(t, ex.StartJob(snap))
	defer ex.StopAll()

	// The stale read count from before the start is gone.
	assert.LessOrEqual(t, reg.Lookup("job-1").Snapshot().Reads, int64(1))
}

func TestStopAll(t *testing.T) {
	reg := NewRegistry()
	ex := NewExecutor(reg)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, ex.StartJob(Snapshot{
			JobID:      id,
			Type:       TypeContinuous,
			IntervalMS: 10,
			Read:       constRead(map[string]interface{}{"v": 1.0}),
			Write:      (&sink{}).write,
		}))
	}
	assert.Len(t, ex.Running(), 3)

	ex.StopAll()
	assert.Empty(t, ex.Running())
	assert.False(t, ex.IsRunning("a"))
}

func TestPacingSleepsRemainder(t *testing.T) {
	reg := NewRegistry()
	ex := NewExecutor(reg)

	var mu sync.Mutex
	var stamps []time.Time
	snap := Snapshot{
		JobID:      "job-1",
		Type:       TypeContinuous,
		IntervalMS: 50,
		TableIDs:   []string{"t1"},
		BatchSize:  1000,
		Read: func(string) (map[string]interface{}, error) {
			mu.Lock()
			defer mu.Unlock()
			stamps = append(stamps, time.Now())
			return nil, nil
		},
		Write: (&sink{}).write,
	}
	require.NoError(t, ex.StartJob(snap))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(stamps) >= 4
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, ex.StopJob("job-1"))

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < 4; i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, 45*time.Millisecond, "iteration %d", i)
	}
}
