// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

// Package storage persists logged rows into external SQL databases. One
// Service handles every configured target; connection pools are keyed by
// (provider, dsn) and disposed on failure so the next call reconnects.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	// Drivers for the supported providers.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/util/log"
)

const (
	maxIdleConns = 5
	maxOpenConns = 10
)

// Target identifies one external database.
type Target struct {
	Provider Provider
	DSN      string
}

func (t Target) key() string {
	return fmt.Sprintf("%s|%s", t.Provider, t.DSN)
}

// Service is the process-wide storage pool.
type Service struct {
	mu    sync.Mutex
	pools map[string]*sqlx.DB
	open  func(driver, dsn string) (*sqlx.DB, error)
}

// NewService returns a Service opening real database connections.
func NewService() *Service {
	return &Service{
		pools: make(map[string]*sqlx.DB),
		open:  sqlx.Open,
	}
}

// db returns the pool for a target, opening and pinging it if absent.
func (s *Service) db(ctx context.Context, target Target) (*sqlx.DB, error) {
	key := target.key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.pools[key]; ok {
		return db, nil
	}

	driver, err := driverName(target.Provider)
	if err != nil {
		return nil, err
	}
	dsn, err := BuildDSN(target.Provider, target.DSN)
	if err != nil {
		return nil, err
	}

	db, err := s.open(driver, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.StorageError, err, "open %s", target.Provider)
	}
	db.SetMaxIdleConns(maxIdleConns)
	db.SetMaxOpenConns(maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, errs.Wrap(errs.StorageError, err, "ping %s", target.Provider)
	}

	s.pools[key] = db
	log.Infof("storage connected to %s", target.Provider)
	return db, nil
}

// dispose closes and removes the pool for a target so the next call
// reconnects.
func (s *Service) dispose(target Target) {
	key := target.key()

	s.mu.Lock()
	db, ok := s.pools[key]
	if ok {
		delete(s.pools, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := db.Close(); err != nil {
		log.Warnf("storage close %s: %v", target.Provider, err) //nolint:errcheck
	}
}

// Dispose explicitly drops the pool for a target.
func (s *Service) Dispose(target Target) {
	s.dispose(target)
}

// DisposeAll closes every pool.
func (s *Service) DisposeAll() {
	s.mu.Lock()
	pools := s.pools
	s.pools = make(map[string]*sqlx.DB)
	s.mu.Unlock()

	for key, db := range pools {
		if err := db.Close(); err != nil {
			log.Warnf("storage close %s: %v", key, err) //nolint:errcheck
		}
	}
}

// TestConnection opens (or reuses) the pool, pings it and reports
// (ok, latency in ms, error message).
func (s *Service) TestConnection(ctx context.Context, target Target) (bool, int64, string) {
	start := time.Now()

	db, err := s.db(ctx, target)
	if err != nil {
		return false, time.Since(start).Milliseconds(), err.Error()
	}
	if err := db.PingContext(ctx); err != nil {
		s.dispose(target)
		return false, time.Since(start).Milliseconds(), err.Error()
	}
	return true, time.Since(start).Milliseconds(), ""
}
