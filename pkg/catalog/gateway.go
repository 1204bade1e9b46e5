// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/jobs"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/plc/modbus"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/plc/opcua"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/storage"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/telemetry"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/util/log"
)

// finalErrorLogCap bounds the error excerpt copied onto a JobRun.
const finalErrorLogCap = 10

// Gateway translates catalog records into executor snapshots and keeps job
// status and run history in sync with the executor.
type Gateway struct {
	store    *Store
	modbus   *modbus.Service
	opcua    *opcua.Service
	storage  *storage.Service
	executor *jobs.Executor
	registry *jobs.Registry
}

// NewGateway wires the gateway to its collaborators.
func NewGateway(store *Store, mb *modbus.Service, ua *opcua.Service, st *storage.Service, ex *jobs.Executor, reg *jobs.Registry) *Gateway {
	return &Gateway{
		store:    store,
		modbus:   mb,
		opcua:    ua,
		storage:  st,
		executor: ex,
		registry: reg,
	}
}

// fieldRead is one resolved mapping, ready to execute.
type fieldRead struct {
	key  string
	read func(ctx context.Context) (interface{}, error)
}

// tablePlan is the resolved read/write plan for one device table.
type tablePlan struct {
	table    DeviceTable
	protocol string
	reads    []fieldRead
	target   storage.Target
}

// buildTablePlan resolves a table's device, mappings and target into
// executable closures. Incoherent configuration fails with ConfigError.
func (g *Gateway) buildTablePlan(ctx context.Context, table DeviceTable) (*tablePlan, error) {
	target, err := g.store.GetStorageTarget(ctx, table.StorageTargetID)
	if err != nil {
		return nil, err
	}
	plan := &tablePlan{
		table:  table,
		target: storage.Target{Provider: storage.Provider(target.Provider), DSN: target.ConnectionString},
	}

	// A table without a device is skipped at read time, not rejected.
	if table.DeviceID == nil {
		return plan, nil
	}

	device, err := g.store.GetDevice(ctx, *table.DeviceID)
	if err != nil {
		return nil, err
	}
	mappings, err := g.store.FieldMappings(ctx, table.ID)
	if err != nil {
		return nil, err
	}
	plan.protocol = device.Protocol

	switch device.Protocol {
	case ProtocolModbus:
		cfg, err := g.store.ModbusConfigForDevice(ctx, device.ID)
		if err != nil {
			if errs.IsCode(err, errs.NotFound) {
				return nil, errs.New(errs.ConfigError, "device %s has no modbus config", device.Name)
			}
			return nil, err
		}
		timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
		for _, m := range mappings {
			addr, err := modbus.ParseAddressString(m.Address)
			if err != nil {
				return nil, errs.New(errs.ConfigError,
					"table %s field %s: bad modbus address %q", table.Name, m.FieldKey, m.Address)
			}
			req := modbus.ReadRequest{
				Host:      cfg.Host,
				Port:      cfg.Port,
				Address:   addr,
				DataType:  m.DataType,
				UnitID:    uint8(cfg.UnitID),
				ByteOrder: modbus.ByteOrder(m.ByteOrder),
				Scale:     m.Scale,
				Timeout:   timeout,
			}
			plan.reads = append(plan.reads, fieldRead{
				key: m.FieldKey,
				read: func(ctx context.Context) (interface{}, error) {
					return g.modbus.ReadValue(ctx, req)
				},
			})
		}

	case ProtocolOpcua:
		cfg, err := g.store.OpcuaConfigForDevice(ctx, device.ID)
		if err != nil {
			if errs.IsCode(err, errs.NotFound) {
				return nil, errs.New(errs.ConfigError, "device %s has no opcua config", device.Name)
			}
			return nil, err
		}
		params := opcua.ConnParams{
			Endpoint:       cfg.Endpoint,
			SecurityPolicy: cfg.SecurityPolicy,
			SecurityMode:   cfg.SecurityMode,
		}
		if cfg.AuthType == AuthUserPassword {
			params.Username = cfg.Username
			params.Password = cfg.Password
		}
		for _, m := range mappings {
			nodeID, dataType, scale := m.Address, m.DataType, m.Scale
			plan.reads = append(plan.reads, fieldRead{
				key: m.FieldKey,
				read: func(ctx context.Context) (interface{}, error) {
					return g.opcua.ReadValue(ctx, params, nodeID, dataType, scale)
				},
			})
		}

	default:
		return nil, errs.New(errs.ConfigError, "device %s: unknown protocol %q", device.Name, device.Protocol)
	}

	return plan, nil
}

// readTable executes a plan once. Transport failures abort the whole table;
// decode failures null the field and let the rest of the row through.
func (g *Gateway) readTable(ctx context.Context, plan *tablePlan) (map[string]interface{}, error) {
	if plan.protocol == "" || len(plan.reads) == 0 {
		return nil, nil
	}

	start := time.Now()
	values := make(map[string]interface{}, len(plan.reads))
	for _, fr := range plan.reads {
		v, err := fr.read(ctx)
		if err != nil {
			if errs.IsCode(err, errs.DecodeError) {
				log.Warnf("table %s field %s: %v", plan.table.Name, fr.key, err) //nolint:errcheck
				values[fr.key] = nil
				continue
			}
			telemetry.ObserveRead(plan.protocol, time.Since(start), false)
			return nil, err
		}
		values[fr.key] = v
	}
	telemetry.ObserveRead(plan.protocol, time.Since(start), true)
	return values, nil
}

// BuildSnapshot freezes a job's definition into an executor snapshot.
func (g *Gateway) BuildSnapshot(ctx context.Context, jobID string) (jobs.Snapshot, error) {
	job, err := g.store.GetJob(ctx, jobID)
	if err != nil {
		return jobs.Snapshot{}, err
	}
	tables, err := g.store.JobTables(ctx, jobID)
	if err != nil {
		return jobs.Snapshot{}, err
	}
	triggers, err := g.store.Triggers(ctx, jobID)
	if err != nil {
		return jobs.Snapshot{}, err
	}

	plans := make(map[string]*tablePlan, len(tables))
	tableIDs := make([]string, 0, len(tables))
	for _, t := range tables {
		plan, err := g.buildTablePlan(ctx, t)
		if err != nil {
			return jobs.Snapshot{}, err
		}
		plans[t.ID] = plan
		tableIDs = append(tableIDs, t.ID)
	}

	specs := make([]jobs.TriggerSpec, 0, len(triggers))
	for _, t := range triggers {
		specs = append(specs, jobs.TriggerSpec{
			Field:      t.Field,
			Operator:   t.Operator,
			Value:      t.Value,
			Deadband:   t.Deadband,
			CooldownMS: t.CooldownMS,
		})
	}

	snap := jobs.Snapshot{
		JobID:      job.ID,
		Type:       job.JobType,
		IntervalMS: job.IntervalMS,
		TableIDs:   tableIDs,
		Triggers:   specs,
		BatchSize:  job.BatchSize,
		Read: func(tableID string) (map[string]interface{}, error) {
			plan, ok := plans[tableID]
			if !ok {
				return nil, errs.New(errs.NotFound, "table %s not in snapshot", tableID)
			}
			return g.readTable(context.Background(), plan)
		},
		Write: func(tableID string, rows []map[string]interface{}) error {
			plan := plans[tableID]
			start := time.Now()
			if err := g.storage.InsertBatch(context.Background(), plan.target, plan.table.Name, rows); err != nil {
				return err
			}
			telemetry.ObserveWrite(string(plan.target.Provider), time.Since(start), len(rows))
			return nil
		},
	}
	return snap, nil
}

// Start builds the snapshot, spawns the worker and opens a JobRun.
func (g *Gateway) Start(ctx context.Context, jobID string) error {
	job, err := g.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Enabled {
		return errs.New(errs.ConfigError, "job %s is disabled", job.Name)
	}
	if g.executor.IsRunning(jobID) {
		return errs.New(errs.Conflict, "job %s is already running", job.Name)
	}

	snap, err := g.BuildSnapshot(ctx, jobID)
	if err != nil {
		return err
	}
	if err := g.executor.StartJob(snap); err != nil {
		return err
	}

	if err := g.store.CreateJobRun(ctx, &JobRun{JobID: jobID}); err != nil {
		log.Errorf("job %s: record run start: %v", jobID, err) //nolint:errcheck
	}
	if err := g.store.UpdateJobStatus(ctx, jobID, JobRunning); err != nil {
		log.Errorf("job %s: record status: %v", jobID, err) //nolint:errcheck
	}
	telemetry.JobsRunning.Inc()
	return nil
}

// Stop halts the worker and finalizes the open JobRun.
func (g *Gateway) Stop(ctx context.Context, jobID string) error {
	return g.halt(ctx, jobID, JobStopped)
}

// Pause halts the worker like Stop but leaves the job in the paused state.
// Metrics survive until the next start.
func (g *Gateway) Pause(ctx context.Context, jobID string) error {
	return g.halt(ctx, jobID, JobPaused)
}

func (g *Gateway) halt(ctx context.Context, jobID, status string) error {
	if err := g.executor.StopJob(jobID); err != nil {
		return err
	}
	telemetry.JobsRunning.Dec()

	if err := g.finalizeRun(ctx, jobID); err != nil {
		log.Errorf("job %s: finalize run: %v", jobID, err) //nolint:errcheck
	}
	if err := g.store.UpdateJobStatus(ctx, jobID, status); err != nil {
		log.Errorf("job %s: record status: %v", jobID, err) //nolint:errcheck
	}
	return nil
}

// finalizeRun copies closing metrics onto the latest open run.
func (g *Gateway) finalizeRun(ctx context.Context, jobID string) error {
	run, err := g.store.LatestOpenRun(ctx, jobID)
	if err != nil {
		return err
	}

	stopped := time.Now().UTC()
	run.StoppedAt = &stopped
	duration := stopped.Sub(run.StartedAt).Milliseconds()
	run.DurationMS = &duration

	if m := g.registry.Lookup(jobID); m != nil {
		stats := m.Snapshot()
		run.RowsWritten = stats.RowsWritten
		run.ReadsCount = stats.Reads
		run.ReadErrors = stats.ReadErrors
		run.WriteErrors = stats.WriteErrors
		run.AvgLatencyMS = stats.AvgReadLatencyMS
		run.P95LatencyMS = stats.P95ReadLatencyMS

		tail := stats.Errors
		if len(tail) > finalErrorLogCap {
			tail = tail[len(tail)-finalErrorLogCap:]
		}
		if raw, err := json.Marshal(tail); err == nil {
			run.ErrorLog = string(raw)
		}
	}
	return g.store.FinalizeJobRun(ctx, run)
}

// StopAll halts every running job, finalizing each run.
func (g *Gateway) StopAll(ctx context.Context) {
	for _, jobID := range g.executor.Running() {
		if err := g.Stop(ctx, jobID); err != nil {
			log.Warnf("stop job %s: %v", jobID, err) //nolint:errcheck
		}
	}
}

// Metrics returns the live stats for a job.
func (g *Gateway) Metrics(jobID string) (jobs.Stats, error) {
	m := g.registry.Lookup(jobID)
	if m == nil {
		return jobs.Stats{}, errs.New(errs.NotFound, "no metrics for job %s", jobID)
	}
	return m.Snapshot(), nil
}

// FieldResult is one field's outcome in a dry run.
type FieldResult struct {
	Value interface{} `json:"value"`
	Error string      `json:"error,omitempty"`
}

// DryRun reads every table of a job once without writing anything.
func (g *Gateway) DryRun(ctx context.Context, jobID string) (map[string]map[string]FieldResult, error) {
	tables, err := g.store.JobTables(ctx, jobID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]FieldResult, len(tables))
	for _, t := range tables {
		plan, err := g.buildTablePlan(ctx, t)
		if err != nil {
			return nil, err
		}
		results := make(map[string]FieldResult, len(plan.reads))
		for _, fr := range plan.reads {
			v, err := fr.read(ctx)
			if err != nil {
				results[fr.key] = FieldResult{Error: err.Error()}
				continue
			}
			results[fr.key] = FieldResult{Value: v}
		}
		out[t.Name] = results
	}
	return out, nil
}

// MigrateTable creates the physical table for a DeviceTable and records the
// outcome on the catalog row.
func (g *Gateway) MigrateTable(ctx context.Context, tableID string) error {
	table, err := g.store.GetDeviceTable(ctx, tableID)
	if err != nil {
		return err
	}
	target, err := g.store.GetStorageTarget(ctx, table.StorageTargetID)
	if err != nil {
		return err
	}
	fields, err := g.store.SchemaFields(ctx, table.SchemaID)
	if err != nil {
		return err
	}

	cols := make(map[string]string, len(fields))
	for _, f := range fields {
		cols[f.Key] = f.FieldType
	}

	st := storage.Target{Provider: storage.Provider(target.Provider), DSN: target.ConnectionString}
	if err := g.storage.CreateTable(ctx, st, table.Name, cols); err != nil {
		migrated := (*time.Time)(nil)
		if uerr := g.store.UpdateTableStatus(ctx, tableID, TableError, migrated, err.Error()); uerr != nil {
			log.Errorf("table %s: record migration error: %v", tableID, uerr) //nolint:errcheck
		}
		return err
	}

	nowUTC := time.Now().UTC()
	return g.store.UpdateTableStatus(ctx, tableID, TableMigrated, &nowUTC, "")
}

// RecomputeMappingHealth refreshes a table's mapping_health from its current
// mappings and schema.
func (g *Gateway) RecomputeMappingHealth(ctx context.Context, tableID string) (string, error) {
	table, err := g.store.GetDeviceTable(ctx, tableID)
	if err != nil {
		return "", err
	}
	fields, err := g.store.SchemaFields(ctx, table.SchemaID)
	if err != nil {
		return "", err
	}
	mappings, err := g.store.FieldMappings(ctx, tableID)
	if err != nil {
		return "", err
	}

	schemaKeys := make([]string, 0, len(fields))
	for _, f := range fields {
		schemaKeys = append(schemaKeys, f.Key)
	}
	mappedKeys := make([]string, 0, len(mappings))
	for _, m := range mappings {
		mappedKeys = append(mappedKeys, m.FieldKey)
	}

	health := ComputeMappingHealth(schemaKeys, mappedKeys)
	if err := g.store.SetMappingHealth(ctx, tableID, health); err != nil {
		return "", err
	}
	return health, nil
}

// TestDevice probes a device's connectivity and records the outcome.
func (g *Gateway) TestDevice(ctx context.Context, deviceID string) (bool, int64, string, error) {
	device, err := g.store.GetDevice(ctx, deviceID)
	if err != nil {
		return false, 0, "", err
	}

	var (
		ok      bool
		latency int64
		msg     string
	)
	switch device.Protocol {
	case ProtocolModbus:
		cfg, err := g.store.ModbusConfigForDevice(ctx, deviceID)
		if err != nil {
			return false, 0, "", err
		}
		ok, latency, msg = g.modbus.TestConnection(ctx, cfg.Host, cfg.Port,
			uint8(cfg.UnitID), time.Duration(cfg.TimeoutMS)*time.Millisecond)

	case ProtocolOpcua:
		cfg, err := g.store.OpcuaConfigForDevice(ctx, deviceID)
		if err != nil {
			return false, 0, "", err
		}
		params := opcua.ConnParams{
			Endpoint:       cfg.Endpoint,
			SecurityPolicy: cfg.SecurityPolicy,
			SecurityMode:   cfg.SecurityMode,
		}
		if cfg.AuthType == AuthUserPassword {
			params.Username = cfg.Username
			params.Password = cfg.Password
		}
		ok, latency, msg, _ = g.opcua.TestConnection(ctx, params)

	default:
		return false, 0, "", errs.New(errs.ConfigError, "device %s: unknown protocol %q", device.Name, device.Protocol)
	}

	status := DeviceConnected
	if !ok {
		status = DeviceError
	}
	if err := g.store.UpdateDeviceStatus(ctx, deviceID, status, &latency, msg); err != nil {
		log.Errorf("device %s: record status: %v", deviceID, err) //nolint:errcheck
	}
	return ok, latency, msg, nil
}
