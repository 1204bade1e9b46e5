// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/config"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/engine"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/telemetry"
	"github.com/RohithBalasubramani/LoggerDeploy/pkg/util/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent in the foreground",
	Long:  `Runs the agent until interrupted, resuming any jobs marked running in the catalog.`,
	RunE:  run,
}

func run(_ *cobra.Command, _ []string) error {
	defer log.Flush()

	if err := setupConfig(); err != nil {
		return err
	}
	if err := log.SetupDefaultLogger(config.Neuract.GetString("log_level")); err != nil {
		return err
	}

	log.Infof("starting neuract agent %s", Version)

	eng, err := engine.New()
	if err != nil {
		return log.Errorf("unable to start the agent: %v", err)
	}

	metricsSrv := telemetry.Serve()

	ctx := context.Background()
	eng.ResumeJobs(ctx)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	sig := <-signalCh
	log.Infof("received signal %q, shutting down", sig)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("telemetry shutdown: %v", err) //nolint:errcheck
		}
	}
	eng.Stop(ctx)

	log.Infof("agent stopped")
	return nil
}
