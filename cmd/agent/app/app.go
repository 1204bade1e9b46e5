// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

// Package app implements the agent's command line interface.
package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/config"
)

var (
	// AgentCmd is the root command.
	AgentCmd = &cobra.Command{
		Use:   "neuract-agent [command]",
		Short: "Industrial data-acquisition agent",
		Long: `The Neuract agent polls PLCs over Modbus/TCP and OPC UA and logs
typed rows into external SQL databases according to configured schemas.`,
		SilenceUsage: true,
	}

	confFilePath string
)

func init() {
	AgentCmd.PersistentFlags().StringVarP(&confFilePath, "cfgpath", "c", "", "path to the agent configuration directory")

	AgentCmd.AddCommand(runCmd)
	AgentCmd.AddCommand(versionCmd)
}

// setupConfig loads the optional config file and applies the log level.
func setupConfig() error {
	if confFilePath != "" {
		config.Neuract.AddConfigPath(confFilePath)
	}
	if err := config.Load(); err != nil {
		return fmt.Errorf("unable to load agent config: %w", err)
	}
	return nil
}
