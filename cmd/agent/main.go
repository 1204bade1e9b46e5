// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package main

import (
	"os"

	"github.com/RohithBalasubramani/LoggerDeploy/cmd/agent/app"
)

func main() {
	if err := app.AgentCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
