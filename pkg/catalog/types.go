// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

// Package catalog persists the agent's configuration records and translates
// them into runnable job snapshots.
package catalog

import (
	"time"
)

// Device protocols.
const (
	ProtocolModbus = "modbus"
	ProtocolOpcua  = "opcua"
)

// Device statuses.
const (
	DeviceDisconnected = "disconnected"
	DeviceConnected    = "connected"
	DeviceError        = "error"
)

// DeviceTable statuses.
const (
	TablePending  = "pending"
	TableMigrated = "migrated"
	TableError    = "error"
)

// Mapping health values.
const (
	HealthUnmapped = "unmapped"
	HealthPartial  = "partial"
	HealthMapped   = "mapped"
)

// Job statuses.
const (
	JobStopped = "stopped"
	JobRunning = "running"
	JobPaused  = "paused"
)

// OPC UA auth types.
const (
	AuthAnonymous    = "Anonymous"
	AuthUserPassword = "UserPassword"
)

// Schema is a named set of typed field definitions.
type Schema struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SchemaField is one column definition within a Schema.
type SchemaField struct {
	ID          string  `db:"id" json:"id"`
	SchemaID    string  `db:"schema_id" json:"schema_id"`
	Key         string  `db:"key" json:"key"`
	FieldType   string  `db:"field_type" json:"field_type"` // bool, int, float, string
	Unit        string  `db:"unit" json:"unit"`
	Scale       float64 `db:"scale" json:"scale"`
	Description string  `db:"description" json:"description"`
}

// StorageTarget is a configured external database.
type StorageTarget struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Provider         string    `db:"provider" json:"provider"`
	ConnectionString string    `db:"connection_string" json:"connection_string"`
	IsDefault        bool      `db:"is_default" json:"is_default"`
	Status           string    `db:"status" json:"status"`
	LastError        string    `db:"last_error" json:"last_error"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Device is a PLC endpoint.
type Device struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Protocol      string    `db:"protocol" json:"protocol"`
	Status        string    `db:"status" json:"status"`
	LatencyMS     *int64    `db:"latency_ms" json:"latency_ms"`
	LastError     string    `db:"last_error" json:"last_error"`
	AutoReconnect bool      `db:"auto_reconnect" json:"auto_reconnect"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ModbusConfig is the Modbus side of a Device.
type ModbusConfig struct {
	ID        string `db:"id" json:"id"`
	DeviceID  string `db:"device_id" json:"device_id"`
	Host      string `db:"host" json:"host"`
	Port      int    `db:"port" json:"port"`
	UnitID    int    `db:"unit_id" json:"unit_id"`
	TimeoutMS int    `db:"timeout_ms" json:"timeout_ms"`
	Retries   int    `db:"retries" json:"retries"`
}

// OpcuaConfig is the OPC UA side of a Device.
type OpcuaConfig struct {
	ID             string `db:"id" json:"id"`
	DeviceID       string `db:"device_id" json:"device_id"`
	Endpoint       string `db:"endpoint" json:"endpoint"`
	AuthType       string `db:"auth_type" json:"auth_type"`
	Username       string `db:"username" json:"username"`
	Password       string `db:"password" json:"password"`
	SecurityPolicy string `db:"security_policy" json:"security_policy"`
	SecurityMode   string `db:"security_mode" json:"security_mode"`
}

// DeviceTable binds a Schema to a StorageTarget and optionally a Device.
type DeviceTable struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	SchemaID        string     `db:"schema_id" json:"schema_id"`
	StorageTargetID string     `db:"storage_target_id" json:"storage_target_id"`
	DeviceID        *string    `db:"device_id" json:"device_id"`
	Status          string     `db:"status" json:"status"`
	MappingHealth   string     `db:"mapping_health" json:"mapping_health"`
	LastMigratedAt  *time.Time `db:"last_migrated_at" json:"last_migrated_at"`
	LastError       string     `db:"last_error" json:"last_error"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// FieldMapping binds a schema field to a physical PLC address.
type FieldMapping struct {
	ID             string  `db:"id" json:"id"`
	DeviceTableID  string  `db:"device_table_id" json:"device_table_id"`
	FieldKey       string  `db:"field_key" json:"field_key"`
	Protocol       string  `db:"protocol" json:"protocol"`
	Address        string  `db:"address" json:"address"`
	DataType       string  `db:"data_type" json:"data_type"`
	Scale          float64 `db:"scale" json:"scale"`
	Deadband       float64 `db:"deadband" json:"deadband"`
	ByteOrder      string  `db:"byte_order" json:"byte_order"`
	PollIntervalMS *int    `db:"poll_interval_ms" json:"poll_interval_ms"`
}

// Job is a logging job.
type Job struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	JobType    string    `db:"job_type" json:"job_type"` // continuous, trigger
	IntervalMS int       `db:"interval_ms" json:"interval_ms"`
	Enabled    bool      `db:"enabled" json:"enabled"`
	Status     string    `db:"status" json:"status"`
	BatchSize  int       `db:"batch_size" json:"batch_size"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// JobTrigger is one trigger condition on a Job.
type JobTrigger struct {
	ID         string   `db:"id" json:"id"`
	JobID      string   `db:"job_id" json:"job_id"`
	Field      string   `db:"field" json:"field"`
	Operator   string   `db:"operator" json:"operator"`
	Value      *float64 `db:"value" json:"value"`
	Deadband   float64  `db:"deadband" json:"deadband"`
	CooldownMS int      `db:"cooldown_ms" json:"cooldown_ms"`
}

// JobRun is a historical execution record.
type JobRun struct {
	ID           string     `db:"id" json:"id"`
	JobID        string     `db:"job_id" json:"job_id"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	StoppedAt    *time.Time `db:"stopped_at" json:"stopped_at"`
	DurationMS   *int64     `db:"duration_ms" json:"duration_ms"`
	RowsWritten  int64      `db:"rows_written" json:"rows_written"`
	ReadsCount   int64      `db:"reads_count" json:"reads_count"`
	ReadErrors   int64      `db:"read_errors" json:"read_errors"`
	WriteErrors  int64      `db:"write_errors" json:"write_errors"`
	AvgLatencyMS *float64   `db:"avg_latency_ms" json:"avg_latency_ms"`
	P95LatencyMS *float64   `db:"p95_latency_ms" json:"p95_latency_ms"`
	ErrorLog     string     `db:"error_log" json:"error_log"` // JSON array
}

// ComputeMappingHealth classifies a table's mapping coverage against its
// schema keys.
func ComputeMappingHealth(schemaKeys, mappedKeys []string) string {
	if len(schemaKeys) == 0 || len(mappedKeys) == 0 {
		return HealthUnmapped
	}
	mapped := make(map[string]bool, len(mappedKeys))
	for _, k := range mappedKeys {
		mapped[k] = true
	}
	for _, k := range schemaKeys {
		if !mapped[k] {
			return HealthPartial
		}
	}
	return HealthMapped
}
