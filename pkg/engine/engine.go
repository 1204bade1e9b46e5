// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

// Package engine assembles the agent's services and brackets their lifecycle.
package engine

import (
	"context"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/catalog"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/config"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/jobs"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/plc/modbus"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/plc/opcua"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/storage"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/util/log"
)

// Engine owns every long-lived service of the agent. One Engine exists per
// process; callers reach the pools and the gateway through it.
type Engine struct {
	Modbus   *modbus.Service
	Opcua    *opcua.Service
	Storage  *storage.Service
	Registry *jobs.Registry
	Executor *jobs.Executor
	Store    *catalog.Store
	Gateway  *catalog.Gateway
}

// New opens the catalog and wires the services together.
func New() (*Engine, error) {
	store, err := catalog.NewStore(
		config.Neuract.GetString("catalog.driver"),
		config.Neuract.GetString("catalog.dsn"),
	)
	if err != nil {
		return nil, err
	}

	mb := modbus.NewService()
	ua := opcua.NewService()
	st := storage.NewService()
	registry := jobs.NewRegistry()
	executor := jobs.NewExecutor(registry)

	return &Engine{
		Modbus:   mb,
		Opcua:    ua,
		Storage:  st,
		Registry: registry,
		Executor: executor,
		Store:    store,
		Gateway:  catalog.NewGateway(store, mb, ua, st, executor, registry),
	}, nil
}

// ResumeJobs restarts every job the catalog believes should be running.
// Called once at boot so an agent restart picks up where it left off.
func (e *Engine) ResumeJobs(ctx context.Context) {
	jobList, err := e.Store.ListJobs(ctx)
	if err != nil {
		log.Errorf("resume jobs: %v", err) //nolint:errcheck
		return
	}
	for _, j := range jobList {
		if j.Status != catalog.JobRunning || !j.Enabled {
			continue
		}
		if err := e.Gateway.Start(ctx, j.ID); err != nil {
			log.Warnf("resume job %s: %v", j.Name, err) //nolint:errcheck
		}
	}
}

// Stop drains every job, closes every pool and flushes the logs.
func (e *Engine) Stop(ctx context.Context) {
	e.Gateway.StopAll(ctx)
	e.Storage.DisposeAll()
	e.Modbus.DisconnectAll()
	e.Opcua.DisconnectAll()
	if err := e.Store.Close(); err != nil {
		log.Warnf("close catalog: %v", err) //nolint:errcheck
	}
	log.Flush()
}
