// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package catalog

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/util/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the sqlx-backed catalog. It owns the agent's configuration
// records and run history; the REST façade and the Gateway both go through
// it.
type Store struct {
	db *sqlx.DB
}

// NewStore opens the catalog database and applies pending migrations.
func NewStore(driver, dsn string) (*Store, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open catalog")
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, pkgerrors.Wrap(err, "ping catalog")
	}
	// The catalog is low-traffic metadata; a single writer avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	log.Infof("catalog ready (%s)", driver)
	return &Store{db: db}, nil
}

func runMigrations(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return pkgerrors.Wrap(err, "load migrations")
	}
	drv, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return pkgerrors.Wrap(err, "init migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", drv)
	if err != nil {
		return pkgerrors.Wrap(err, "init migrations")
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return pkgerrors.Wrap(err, "apply migrations")
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func now() time.Time {
	return time.Now().UTC()
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func notFoundOr(err error, what, id string) error {
	if err == sql.ErrNoRows {
		return errs.New(errs.NotFound, "%s %s not found", what, id)
	}
	return pkgerrors.Wrapf(err, "load %s %s", what, id)
}

// --- Schemas ---

func (s *Store) CreateSchema(ctx context.Context, sc *Schema) error {
	ensureID(&sc.ID)
	sc.CreatedAt, sc.UpdatedAt = now(), now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_schemas (id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sc.ID, sc.Name, sc.Description, sc.CreatedAt, sc.UpdatedAt)
	return pkgerrors.Wrap(err, "create schema")
}

func (s *Store) GetSchema(ctx context.Context, id string) (*Schema, error) {
	var sc Schema
	if err := s.db.GetContext(ctx, &sc, `SELECT * FROM app_schemas WHERE id = ?`, id); err != nil {
		return nil, notFoundOr(err, "schema", id)
	}
	return &sc, nil
}

func (s *Store) ListSchemas(ctx context.Context) ([]Schema, error) {
	var out []Schema
	err := s.db.SelectContext(ctx, &out, `SELECT * FROM app_schemas ORDER BY name`)
	return out, pkgerrors.Wrap(err, "list schemas")
}

// DeleteSchema refuses while any device table references the schema.
func (s *Store) DeleteSchema(ctx context.Context, id string) error {
	var refs int
	if err := s.db.GetContext(ctx, &refs,
		`SELECT COUNT(*) FROM app_device_tables WHERE schema_id = ?`, id); err != nil {
		return pkgerrors.Wrap(err, "count schema references")
	}
	if refs > 0 {
		return errs.New(errs.Conflict, "schema %s is referenced by %d tables", id, refs)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM app_schemas WHERE id = ?`, id)
	return pkgerrors.Wrap(err, "delete schema")
}

func (s *Store) AddSchemaField(ctx context.Context, f *SchemaField) error {
	ensureID(&f.ID)
	if f.Scale == 0 {
		f.Scale = 1.0
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_schema_fields (id, schema_id, key, field_type, unit, scale, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.SchemaID, f.Key, f.FieldType, f.Unit, f.Scale, f.Description)
	return pkgerrors.Wrap(err, "add schema field")
}

func (s *Store) SchemaFields(ctx context.Context, schemaID string) ([]SchemaField, error) {
	var out []SchemaField
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM app_schema_fields WHERE schema_id = ? ORDER BY key`, schemaID)
	return out, pkgerrors.Wrap(err, "list schema fields")
}

// --- Storage targets ---

// SaveStorageTarget inserts or updates a target. Setting is_default clears
// the flag on every other target in the same transaction.
func (s *Store) SaveStorageTarget(ctx context.Context, t *StorageTarget) error {
	ensureID(&t.ID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	t.UpdatedAt = now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if t.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE app_storage_targets SET is_default = FALSE WHERE id != ?`, t.ID); err != nil {
			return pkgerrors.Wrap(err, "clear default flags")
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO app_storage_targets
		   (id, name, provider, connection_string, is_default, status, last_error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   provider = excluded.provider,
		   connection_string = excluded.connection_string,
		   is_default = excluded.is_default,
		   status = excluded.status,
		   last_error = excluded.last_error,
		   updated_at = excluded.updated_at`,
		t.ID, t.Name, t.Provider, t.ConnectionString, t.IsDefault, t.Status, t.LastError,
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return pkgerrors.Wrap(err, "save storage target")
	}
	return pkgerrors.Wrap(tx.Commit(), "commit")
}

func (s *Store) GetStorageTarget(ctx context.Context, id string) (*StorageTarget, error) {
	var t StorageTarget
	if err := s.db.GetContext(ctx, &t, `SELECT * FROM app_storage_targets WHERE id = ?`, id); err != nil {
		return nil, notFoundOr(err, "storage target", id)
	}
	return &t, nil
}

func (s *Store) DefaultStorageTarget(ctx context.Context) (*StorageTarget, error) {
	var t StorageTarget
	if err := s.db.GetContext(ctx, &t,
		`SELECT * FROM app_storage_targets WHERE is_default = TRUE LIMIT 1`); err != nil {
		return nil, notFoundOr(err, "default storage target", "")
	}
	return &t, nil
}

func (s *Store) ListStorageTargets(ctx context.Context) ([]StorageTarget, error) {
	var out []StorageTarget
	err := s.db.SelectContext(ctx, &out, `SELECT * FROM app_storage_targets ORDER BY name`)
	return out, pkgerrors.Wrap(err, "list storage targets")
}

// DeleteStorageTarget refuses while any device table references the target.
func (s *Store) DeleteStorageTarget(ctx context.Context, id string) error {
	var refs int
	if err := s.db.GetContext(ctx, &refs,
		`SELECT COUNT(*) FROM app_device_tables WHERE storage_target_id = ?`, id); err != nil {
		return pkgerrors.Wrap(err, "count target references")
	}
	if refs > 0 {
		return errs.New(errs.Conflict, "storage target %s is referenced by %d tables", id, refs)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM app_storage_targets WHERE id = ?`, id)
	return pkgerrors.Wrap(err, "delete storage target")
}

// --- Devices ---

func (s *Store) CreateDevice(ctx context.Context, d *Device) error {
	ensureID(&d.ID)
	if d.Status == "" {
		d.Status = DeviceDisconnected
	}
	d.CreatedAt, d.UpdatedAt = now(), now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_devices (id, name, protocol, status, latency_ms, last_error, auto_reconnect, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Protocol, d.Status, d.LatencyMS, d.LastError, d.AutoReconnect,
		d.CreatedAt, d.UpdatedAt)
	return pkgerrors.Wrap(err, "create device")
}

func (s *Store) GetDevice(ctx context.Context, id string) (*Device, error) {
	var d Device
	if err := s.db.GetContext(ctx, &d, `SELECT * FROM app_devices WHERE id = ?`, id); err != nil {
		return nil, notFoundOr(err, "device", id)
	}
	return &d, nil
}

func (s *Store) ListDevices(ctx context.Context) ([]Device, error) {
	var out []Device
	err := s.db.SelectContext(ctx, &out, `SELECT * FROM app_devices ORDER BY name`)
	return out, pkgerrors.Wrap(err, "list devices")
}

// DeleteDevice clears device_id on referencing tables, then removes the
// device and its protocol config.
func (s *Store) DeleteDevice(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(err, "begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE app_device_tables SET device_id = NULL WHERE device_id = ?`, id); err != nil {
		return pkgerrors.Wrap(err, "unlink device tables")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM app_modbus_configs WHERE device_id = ?`, id); err != nil {
		return pkgerrors.Wrap(err, "delete modbus config")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM app_opcua_configs WHERE device_id = ?`, id); err != nil {
		return pkgerrors.Wrap(err, "delete opcua config")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM app_devices WHERE id = ?`, id); err != nil {
		return pkgerrors.Wrap(err, "delete device")
	}
	return pkgerrors.Wrap(tx.Commit(), "commit")
}

// UpdateDeviceStatus records the outcome of a connectivity check.
func (s *Store) UpdateDeviceStatus(ctx context.Context, id, status string, latencyMS *int64, lastError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE app_devices SET status = ?, latency_ms = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		status, latencyMS, lastError, now(), id)
	return pkgerrors.Wrap(err, "update device status")
}

func (s *Store) SetModbusConfig(ctx context.Context, c *ModbusConfig) error {
	ensureID(&c.ID)
	if c.Port == 0 {
		c.Port = 502
	}
	if c.UnitID == 0 {
		c.UnitID = 1
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 3000
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_modbus_configs (id, device_id, host, port, unit_id, timeout_ms, retries)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET
		   host = excluded.host, port = excluded.port, unit_id = excluded.unit_id,
		   timeout_ms = excluded.timeout_ms, retries = excluded.retries`,
		c.ID, c.DeviceID, c.Host, c.Port, c.UnitID, c.TimeoutMS, c.Retries)
	return pkgerrors.Wrap(err, "set modbus config")
}

func (s *Store) ModbusConfigForDevice(ctx context.Context, deviceID string) (*ModbusConfig, error) {
	var c ModbusConfig
	if err := s.db.GetContext(ctx, &c,
		`SELECT * FROM app_modbus_configs WHERE device_id = ?`, deviceID); err != nil {
		return nil, notFoundOr(err, "modbus config for device", deviceID)
	}
	return &c, nil
}

func (s *Store) SetOpcuaConfig(ctx context.Context, c *OpcuaConfig) error {
	ensureID(&c.ID)
	if c.AuthType == "" {
		c.AuthType = AuthAnonymous
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_opcua_configs (id, device_id, endpoint, auth_type, username, password, security_policy, security_mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET
		   endpoint = excluded.endpoint, auth_type = excluded.auth_type,
		   username = excluded.username, password = excluded.password,
		   security_policy = excluded.security_policy, security_mode = excluded.security_mode`,
		c.ID, c.DeviceID, c.Endpoint, c.AuthType, c.Username, c.Password,
		c.SecurityPolicy, c.SecurityMode)
	return pkgerrors.Wrap(err, "set opcua config")
}

func (s *Store) OpcuaConfigForDevice(ctx context.Context, deviceID string) (*OpcuaConfig, error) {
	var c OpcuaConfig
	if err := s.db.GetContext(ctx, &c,
		`SELECT * FROM app_opcua_configs WHERE device_id = ?`, deviceID); err != nil {
		return nil, notFoundOr(err, "opcua config for device", deviceID)
	}
	return &c, nil
}

// --- Device tables & mappings ---

func (s *Store) CreateDeviceTable(ctx context.Context, t *DeviceTable) error {
	ensureID(&t.ID)
	if t.Status == "" {
		t.Status = TablePending
	}
	if t.MappingHealth == "" {
		t.MappingHealth = HealthUnmapped
	}
	t.CreatedAt, t.UpdatedAt = now(), now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_device_tables
		   (id, name, schema_id, storage_target_id, device_id, status, mapping_health,
		    last_migrated_at, last_error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.SchemaID, t.StorageTargetID, t.DeviceID, t.Status, t.MappingHealth,
		t.LastMigratedAt, t.LastError, t.CreatedAt, t.UpdatedAt)
	return pkgerrors.Wrap(err, "create device table")
}

func (s *Store) GetDeviceTable(ctx context.Context, id string) (*DeviceTable, error) {
	var t DeviceTable
	if err := s.db.GetContext(ctx, &t, `SELECT * FROM app_device_tables WHERE id = ?`, id); err != nil {
		return nil, notFoundOr(err, "device table", id)
	}
	return &t, nil
}

func (s *Store) ListDeviceTables(ctx context.Context) ([]DeviceTable, error) {
	var out []DeviceTable
	err := s.db.SelectContext(ctx, &out, `SELECT * FROM app_device_tables ORDER BY name`)
	return out, pkgerrors.Wrap(err, "list device tables")
}

// UpdateTableStatus records the outcome of a migration attempt.
func (s *Store) UpdateTableStatus(ctx context.Context, id, status string, migratedAt *time.Time, lastError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE app_device_tables SET status = ?, last_migrated_at = COALESCE(?, last_migrated_at),
		   last_error = ?, updated_at = ? WHERE id = ?`,
		status, migratedAt, lastError, now(), id)
	return pkgerrors.Wrap(err, "update table status")
}

func (s *Store) SetMappingHealth(ctx context.Context, id, health string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE app_device_tables SET mapping_health = ?, updated_at = ? WHERE id = ?`,
		health, now(), id)
	return pkgerrors.Wrap(err, "set mapping health")
}

func (s *Store) UpsertFieldMapping(ctx context.Context, m *FieldMapping) error {
	ensureID(&m.ID)
	if m.Scale == 0 {
		m.Scale = 1.0
	}
	if m.ByteOrder == "" {
		m.ByteOrder = "ABCD"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_field_mappings
		   (id, device_table_id, field_key, protocol, address, data_type, scale, deadband, byte_order, poll_interval_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(device_table_id, field_key) DO UPDATE SET
		   protocol = excluded.protocol, address = excluded.address,
		   data_type = excluded.data_type, scale = excluded.scale,
		   deadband = excluded.deadband, byte_order = excluded.byte_order,
		   poll_interval_ms = excluded.poll_interval_ms`,
		m.ID, m.DeviceTableID, m.FieldKey, m.Protocol, m.Address, m.DataType,
		m.Scale, m.Deadband, m.ByteOrder, m.PollIntervalMS)
	return pkgerrors.Wrap(err, "upsert field mapping")
}

func (s *Store) DeleteFieldMapping(ctx context.Context, tableID, fieldKey string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM app_field_mappings WHERE device_table_id = ? AND field_key = ?`,
		tableID, fieldKey)
	return pkgerrors.Wrap(err, "delete field mapping")
}

func (s *Store) FieldMappings(ctx context.Context, tableID string) ([]FieldMapping, error) {
	var out []FieldMapping
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM app_field_mappings WHERE device_table_id = ? ORDER BY field_key`, tableID)
	return out, pkgerrors.Wrap(err, "list field mappings")
}

// --- Jobs ---

func (s *Store) CreateJob(ctx context.Context, j *Job) error {
	ensureID(&j.ID)
	if j.JobType == "" {
		j.JobType = "continuous"
	}
	if j.IntervalMS == 0 {
		j.IntervalMS = 1000
	}
	if j.BatchSize == 0 {
		j.BatchSize = 1
	}
	if j.Status == "" {
		j.Status = JobStopped
	}
	j.CreatedAt, j.UpdatedAt = now(), now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_jobs (id, name, job_type, interval_ms, enabled, status, batch_size, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Name, j.JobType, j.IntervalMS, j.Enabled, j.Status, j.BatchSize,
		j.CreatedAt, j.UpdatedAt)
	return pkgerrors.Wrap(err, "create job")
}

func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := s.db.GetContext(ctx, &j, `SELECT * FROM app_jobs WHERE id = ?`, id); err != nil {
		return nil, notFoundOr(err, "job", id)
	}
	return &j, nil
}

func (s *Store) ListJobs(ctx context.Context) ([]Job, error) {
	var out []Job
	err := s.db.SelectContext(ctx, &out, `SELECT * FROM app_jobs ORDER BY name`)
	return out, pkgerrors.Wrap(err, "list jobs")
}

func (s *Store) UpdateJobStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE app_jobs SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id)
	return pkgerrors.Wrap(err, "update job status")
}

func (s *Store) SetJobEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE app_jobs SET enabled = ?, updated_at = ? WHERE id = ?`, enabled, now(), id)
	return pkgerrors.Wrap(err, "set job enabled")
}

func (s *Store) AddJobTable(ctx context.Context, jobID, tableID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_job_tables (job_id, device_table_id) VALUES (?, ?)`, jobID, tableID)
	return pkgerrors.Wrap(err, "add job table")
}

func (s *Store) JobTables(ctx context.Context, jobID string) ([]DeviceTable, error) {
	var out []DeviceTable
	err := s.db.SelectContext(ctx, &out,
		`SELECT t.* FROM app_device_tables t
		 JOIN app_job_tables jt ON jt.device_table_id = t.id
		 WHERE jt.job_id = ? ORDER BY t.name`, jobID)
	return out, pkgerrors.Wrap(err, "list job tables")
}

func (s *Store) AddTrigger(ctx context.Context, t *JobTrigger) error {
	ensureID(&t.ID)
	if t.Operator == "" {
		t.Operator = "change"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_job_triggers (id, job_id, field, operator, value, deadband, cooldown_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.JobID, t.Field, t.Operator, t.Value, t.Deadband, t.CooldownMS)
	return pkgerrors.Wrap(err, "add trigger")
}

func (s *Store) Triggers(ctx context.Context, jobID string) ([]JobTrigger, error) {
	var out []JobTrigger
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM app_job_triggers WHERE job_id = ? ORDER BY field`, jobID)
	return out, pkgerrors.Wrap(err, "list triggers")
}

// --- Job runs ---

func (s *Store) CreateJobRun(ctx context.Context, r *JobRun) error {
	ensureID(&r.ID)
	if r.StartedAt.IsZero() {
		r.StartedAt = now()
	}
	if r.ErrorLog == "" {
		r.ErrorLog = "[]"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_job_runs (id, job_id, started_at, error_log) VALUES (?, ?, ?, ?)`,
		r.ID, r.JobID, r.StartedAt, r.ErrorLog)
	return pkgerrors.Wrap(err, "create job run")
}

// LatestOpenRun returns the newest run without a stopped_at, or NotFound.
func (s *Store) LatestOpenRun(ctx context.Context, jobID string) (*JobRun, error) {
	var r JobRun
	if err := s.db.GetContext(ctx, &r,
		`SELECT * FROM app_job_runs WHERE job_id = ? AND stopped_at IS NULL
		 ORDER BY started_at DESC LIMIT 1`, jobID); err != nil {
		return nil, notFoundOr(err, "open run for job", jobID)
	}
	return &r, nil
}

// FinalizeJobRun writes the closing counters onto an existing run.
func (s *Store) FinalizeJobRun(ctx context.Context, r *JobRun) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE app_job_runs SET stopped_at = ?, duration_ms = ?, rows_written = ?,
		   reads_count = ?, read_errors = ?, write_errors = ?,
		   avg_latency_ms = ?, p95_latency_ms = ?, error_log = ?
		 WHERE id = ?`,
		r.StoppedAt, r.DurationMS, r.RowsWritten, r.ReadsCount, r.ReadErrors,
		r.WriteErrors, r.AvgLatencyMS, r.P95LatencyMS, r.ErrorLog, r.ID)
	return pkgerrors.Wrap(err, "finalize job run")
}

// JobRuns lists history for a job, newest first.
func (s *Store) JobRuns(ctx context.Context, jobID string, limit int) ([]JobRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []JobRun
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM app_job_runs WHERE job_id = ? ORDER BY started_at DESC LIMIT ?`,
		jobID, limit)
	return out, pkgerrors.Wrap(err, "list job runs")
}
