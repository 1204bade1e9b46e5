// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package storage

import (
	"context"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
)

// InsertRow persists a single row.
func (s *Service) InsertRow(ctx context.Context, target Target, table string, row map[string]interface{}) error {
	return s.InsertBatch(ctx, target, table, []map[string]interface{}{row})
}

// InsertBatch persists rows in one multi-row INSERT. The column set comes
// from the first row; a timestamp_utc is stamped on rows that lack one.
// An empty batch is a no-op.
func (s *Service) InsertBatch(ctx context.Context, target Target, table string, rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	cols := make([]string, 0, len(rows[0])+1)
	hasTimestamp := false
	for name := range rows[0] {
		if name == "timestamp_utc" {
			hasTimestamp = true
		}
		cols = append(cols, name)
	}
	if !hasTimestamp {
		cols = append(cols, "timestamp_utc")
	}
	sort.Strings(cols)

	p := target.Provider
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(p, c)
	}

	builder := sq.Insert(PhysicalTable(p, table)).
		Columns(quoted...).
		PlaceholderFormat(placeholder(p))

	now := time.Now().UTC()
	for _, row := range rows {
		vals := make([]interface{}, len(cols))
		for i, c := range cols {
			if v, ok := row[c]; ok {
				vals[i] = v
			} else if c == "timestamp_utc" {
				vals[i] = now
			} else {
				vals[i] = nil
			}
		}
		builder = builder.Values(vals...)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return errs.Wrap(errs.StorageError, err, "build insert into %s", table)
	}

	db, err := s.db(ctx, target)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		s.dispose(target)
		return errs.Wrap(errs.StorageError, err, "insert %d rows into %s on %s", len(rows), table, p)
	}
	return nil
}
