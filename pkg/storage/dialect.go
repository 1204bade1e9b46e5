// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/util/log"
)

// Namespace isolates logger tables from whatever else lives in the target
// database. Backends with schemas get a schema; the rest get a name prefix.
const Namespace = "neuract"

// PhysicalTable maps a logical table name to its namespaced physical name.
func PhysicalTable(p Provider, table string) string {
	switch p {
	case Postgres, MSSQL:
		return Namespace + "." + table
	default:
		return Namespace + "__" + table
	}
}

// LogicalTable is the inverse of PhysicalTable; ok is false when the physical
// name is outside the namespace.
func LogicalTable(p Provider, physical string) (string, bool) {
	switch p {
	case Postgres, MSSQL:
		return physical, true // schema queries already scope to the namespace
	default:
		if strings.HasPrefix(physical, Namespace+"__") {
			return strings.TrimPrefix(physical, Namespace+"__"), true
		}
		return "", false
	}
}

// placeholder returns the squirrel placeholder format for a provider.
func placeholder(p Provider) sq.PlaceholderFormat {
	switch p {
	case Postgres:
		return sq.Dollar
	case MSSQL:
		return sq.AtP
	default:
		return sq.Question
	}
}

// columnType maps a schema field type to the provider's column type.
func columnType(p Provider, fieldType string) string {
	switch fieldType {
	case "bool":
		if p == MSSQL {
			return "BIT"
		}
		return "BOOLEAN"
	case "int":
		return "INTEGER"
	case "float":
		return "FLOAT"
	case "string":
		return "VARCHAR(255)"
	default:
		return "FLOAT"
	}
}

// timestampType is the column type for timestamp_utc.
func timestampType(p Provider) string {
	switch p {
	case MySQL:
		return "DATETIME"
	case MSSQL:
		return "DATETIME2"
	default:
		return "TIMESTAMP"
	}
}

// idColumn is the auto-incrementing primary key definition.
func idColumn(p Provider) string {
	switch p {
	case SQLite:
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	case Postgres:
		return "id BIGSERIAL PRIMARY KEY"
	case MySQL:
		return "id BIGINT AUTO_INCREMENT PRIMARY KEY"
	case MSSQL:
		return "id BIGINT IDENTITY(1,1) PRIMARY KEY"
	default:
		return "id INTEGER PRIMARY KEY"
	}
}

// quoteIdent quotes an identifier per dialect. Names come from user-defined
// schemas, never from query input, but quoting keeps reserved words working.
func quoteIdent(p Provider, name string) string {
	switch p {
	case MySQL:
		return "`" + name + "`"
	case MSSQL:
		return "[" + name + "]"
	default:
		return `"` + name + `"`
	}
}

// EnsureNamespace creates the namespace schema on backends that have one.
func (s *Service) EnsureNamespace(ctx context.Context, target Target) error {
	db, err := s.db(ctx, target)
	if err != nil {
		return err
	}

	switch target.Provider {
	case Postgres:
		_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", Namespace))
	case MSSQL:
		_, err = db.ExecContext(ctx, fmt.Sprintf(
			"IF NOT EXISTS (SELECT 1 FROM sys.schemas WHERE name = '%s') EXEC('CREATE SCHEMA %s')",
			Namespace, Namespace))
	default:
		return nil
	}
	if err != nil {
		s.dispose(target)
		return errs.Wrap(errs.StorageError, err, "ensure namespace on %s", target.Provider)
	}
	return nil
}

// TableExists reports whether the logical table exists in the namespace.
func (s *Service) TableExists(ctx context.Context, target Target, table string) (bool, error) {
	db, err := s.db(ctx, target)
	if err != nil {
		return false, err
	}

	var (
		query string
		args  []interface{}
	)
	switch target.Provider {
	case SQLite:
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
		args = []interface{}{PhysicalTable(SQLite, table)}
	case Postgres:
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2"
		args = []interface{}{Namespace, table}
	case MySQL:
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
		args = []interface{}{PhysicalTable(MySQL, table)}
	case MSSQL:
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = @p1 AND table_name = @p2"
		args = []interface{}{Namespace, table}
	default:
		return false, errs.New(errs.ConfigError, "unknown storage provider %q", target.Provider)
	}

	var count int
	if err := db.GetContext(ctx, &count, query, args...); err != nil {
		s.dispose(target)
		return false, errs.Wrap(errs.StorageError, err, "check table %s on %s", table, target.Provider)
	}
	return count > 0, nil
}

// CreateTable creates the logical table with an id primary key, a
// timestamp_utc column and one column per schema field. Existing tables are
// left untouched.
func (s *Service) CreateTable(ctx context.Context, target Target, table string, fields map[string]string) error {
	exists, err := s.TableExists(ctx, target, table)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.EnsureNamespace(ctx, target); err != nil {
		return err
	}

	p := target.Provider
	cols := []string{
		idColumn(p),
		fmt.Sprintf("%s %s NOT NULL", quoteIdent(p, "timestamp_utc"), timestampType(p)),
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cols = append(cols, fmt.Sprintf("%s %s NULL", quoteIdent(p, name), columnType(p, fields[name])))
	}

	db, err := s.db(ctx, target)
	if err != nil {
		return err
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", PhysicalTable(p, table), strings.Join(cols, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		s.dispose(target)
		return errs.Wrap(errs.StorageError, err, "create table %s on %s", table, p)
	}

	log.Infof("storage created table %s on %s", table, p)
	return nil
}

// DropTable removes the logical table. Missing tables are a no-op.
func (s *Service) DropTable(ctx context.Context, target Target, table string) error {
	exists, err := s.TableExists(ctx, target, table)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	db, err := s.db(ctx, target)
	if err != nil {
		return err
	}
	ddl := fmt.Sprintf("DROP TABLE %s", PhysicalTable(target.Provider, table))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		s.dispose(target)
		return errs.Wrap(errs.StorageError, err, "drop table %s on %s", table, target.Provider)
	}
	return nil
}

// DiscoverTables lists the logical tables present in the namespace.
func (s *Service) DiscoverTables(ctx context.Context, target Target) ([]string, error) {
	db, err := s.db(ctx, target)
	if err != nil {
		return nil, err
	}

	var (
		query string
		args  []interface{}
	)
	switch target.Provider {
	case SQLite:
		query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE ? ORDER BY name"
		args = []interface{}{Namespace + "__%"}
	case Postgres:
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name"
		args = []interface{}{Namespace}
	case MySQL:
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name LIKE ? ORDER BY table_name"
		args = []interface{}{Namespace + "__%"}
	case MSSQL:
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = @p1 ORDER BY table_name"
		args = []interface{}{Namespace}
	default:
		return nil, errs.New(errs.ConfigError, "unknown storage provider %q", target.Provider)
	}

	var physical []string
	if err := sqlx.SelectContext(ctx, db, &physical, query, args...); err != nil {
		s.dispose(target)
		return nil, errs.Wrap(errs.StorageError, err, "discover tables on %s", target.Provider)
	}

	tables := make([]string, 0, len(physical))
	for _, name := range physical {
		if logical, ok := LogicalTable(target.Provider, name); ok {
			tables = append(tables, logical)
		}
	}
	return tables, nil
}
