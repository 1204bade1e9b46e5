// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("sqlite3", filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func TestSchemaRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sc := &Schema{Name: "power_panel", Description: "LT panel electricals"}
	require.NoError(t, s.CreateSchema(ctx, sc))
	require.NotEmpty(t, sc.ID)

	require.NoError(t, s.AddSchemaField(ctx, &SchemaField{
		SchemaID: sc.ID, Key: "voltage", FieldType: "float", Unit: "V",
	}))
	require.NoError(t, s.AddSchemaField(ctx, &SchemaField{
		SchemaID: sc.ID, Key: "current", FieldType: "float", Unit: "A", Scale: 0.1,
	}))

	got, err := s.GetSchema(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "power_panel", got.Name)

	fields, err := s.SchemaFields(ctx, sc.ID)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "current", fields[0].Key)
	assert.Equal(t, 0.1, fields[0].Scale)
	assert.Equal(t, 1.0, fields[1].Scale, "scale defaults to 1.0")

	_, err = s.GetSchema(ctx, "missing")
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestStorageTargetSingleDefault(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := &StorageTarget{Name: "local", Provider: "sqlite", ConnectionString: "a.db", IsDefault: true}
	b := &StorageTarget{Name: "plant", Provider: "postgres", ConnectionString: "pg://x", IsDefault: true}
	require.NoError(t, s.SaveStorageTarget(ctx, a))
	require.NoError(t, s.SaveStorageTarget(ctx, b))

	def, err := s.DefaultStorageTarget(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, def.ID)

	targets, err := s.ListStorageTargets(ctx)
	require.NoError(t, err)
	defaults := 0
	for _, tt := range targets {
		if tt.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)

	// Update path keeps the same row.
	b.Name = "plant-renamed"
	require.NoError(t, s.SaveStorageTarget(ctx, b))
	got, err := s.GetStorageTarget(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "plant-renamed", got.Name)
}

func TestProtectedDeletes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sc := &Schema{Name: "s"}
	require.NoError(t, s.CreateSchema(ctx, sc))
	target := &StorageTarget{Name: "t", Provider: "sqlite", ConnectionString: "x.db"}
	require.NoError(t, s.SaveStorageTarget(ctx, target))
	table := &DeviceTable{Name: "tab", SchemaID: sc.ID, StorageTargetID: target.ID}
	require.NoError(t, s.CreateDeviceTable(ctx, table))

	err := s.DeleteSchema(ctx, sc.ID)
	assert.Equal(t, errs.Conflict, errs.CodeOf(err))
	err = s.DeleteStorageTarget(ctx, target.ID)
	assert.Equal(t, errs.Conflict, errs.CodeOf(err))
}

func TestDeleteDeviceUnlinksTables(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sc := &Schema{Name: "s"}
	require.NoError(t, s.CreateSchema(ctx, sc))
	target := &StorageTarget{Name: "t", Provider: "sqlite", ConnectionString: "x.db"}
	require.NoError(t, s.SaveStorageTarget(ctx, target))

	d := &Device{Name: "plc-1", Protocol: ProtocolModbus}
	require.NoError(t, s.CreateDevice(ctx, d))
	require.NoError(t, s.SetModbusConfig(ctx, &ModbusConfig{DeviceID: d.ID, Host: "10.0.0.5"}))

	table := &DeviceTable{Name: "tab", SchemaID: sc.ID, StorageTargetID: target.ID, DeviceID: &d.ID}
	require.NoError(t, s.CreateDeviceTable(ctx, table))

	require.NoError(t, s.DeleteDevice(ctx, d.ID))

	got, err := s.GetDeviceTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeviceID, "device delete sets device_id null")

	_, err = s.ModbusConfigForDevice(ctx, d.ID)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err))
}

func TestModbusConfigDefaultsAndUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	d := &Device{Name: "plc-1", Protocol: ProtocolModbus}
	require.NoError(t, s.CreateDevice(ctx, d))
	require.NoError(t, s.SetModbusConfig(ctx, &ModbusConfig{DeviceID: d.ID, Host: "10.0.0.5"}))

	cfg, err := s.ModbusConfigForDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 502, cfg.Port)
	assert.Equal(t, 1, cfg.UnitID)
	assert.Equal(t, 3000, cfg.TimeoutMS)

	require.NoError(t, s.SetModbusConfig(ctx, &ModbusConfig{DeviceID: d.ID, Host: "10.0.0.6", Port: 1502}))
	cfg, err = s.ModbusConfigForDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.6", cfg.Host)
	assert.Equal(t, 1502, cfg.Port)
}

func TestFieldMappingUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sc := &Schema{Name: "s"}
	require.NoError(t, s.CreateSchema(ctx, sc))
	target := &StorageTarget{Name: "t", Provider: "sqlite", ConnectionString: "x.db"}
	require.NoError(t, s.SaveStorageTarget(ctx, target))
	table := &DeviceTable{Name: "tab", SchemaID: sc.ID, StorageTargetID: target.ID}
	require.NoError(t, s.CreateDeviceTable(ctx, table))

	m := &FieldMapping{DeviceTableID: table.ID, FieldKey: "voltage", Protocol: ProtocolModbus,
		Address: "40001", DataType: "float"}
	require.NoError(t, s.UpsertFieldMapping(ctx, m))

	mappings, err := s.FieldMappings(ctx, table.ID)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "ABCD", mappings[0].ByteOrder)
	assert.Equal(t, 1.0, mappings[0].Scale)

	m.Address = "40010"
	require.NoError(t, s.UpsertFieldMapping(ctx, m))
	mappings, err = s.FieldMappings(ctx, table.ID)
	require.NoError(t, err)
	require.Len(t, mappings, 1, "same field key replaces, not duplicates")
	assert.Equal(t, "40010", mappings[0].Address)

	require.NoError(t, s.DeleteFieldMapping(ctx, table.ID, "voltage"))
	mappings, err = s.FieldMappings(ctx, table.ID)
	require.NoError(t, err)
	assert.Empty(t, mappings)
}

func TestJobRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	j := &Job{Name: "logger"}
	require.NoError(t, s.CreateJob(ctx, j))
	assert.Equal(t, 1000, j.IntervalMS)
	assert.Equal(t, 1, j.BatchSize)
	assert.Equal(t, JobStopped, j.Status)

	run := &JobRun{JobID: j.ID}
	require.NoError(t, s.CreateJobRun(ctx, run))

	open, err := s.LatestOpenRun(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, open.ID)

	stopped := time.Now().UTC()
	duration := int64(4200)
	open.StoppedAt = &stopped
	open.DurationMS = &duration
	open.RowsWritten = 42
	open.ReadsCount = 100
	require.NoError(t, s.FinalizeJobRun(ctx, open))

	_, err = s.LatestOpenRun(ctx, j.ID)
	assert.Equal(t, errs.NotFound, errs.CodeOf(err), "finalized run is no longer open")

	runs, err := s.JobRuns(ctx, j.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(42), runs[0].RowsWritten)
	require.NotNil(t, runs[0].DurationMS)
	assert.Equal(t, int64(4200), *runs[0].DurationMS)
}

func TestComputeMappingHealth(t *testing.T) {
	tests := []struct {
		schema []string
		mapped []string
		want   string
	}{
		{[]string{"a", "b"}, []string{"a", "b"}, HealthMapped},
		{[]string{"a", "b"}, []string{"a", "b", "extra"}, HealthMapped},
		{[]string{"a", "b"}, []string{"a"}, HealthPartial},
		{[]string{"a", "b"}, nil, HealthUnmapped},
		{nil, []string{"a"}, HealthUnmapped},
		{nil, nil, HealthUnmapped},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeMappingHealth(tt.schema, tt.mapped),
			"schema %v mapped %v", tt.schema, tt.mapped)
	}
}
