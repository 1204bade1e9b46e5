// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package log

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cihub/seelog"
)

var logger *agentLogger

// agentLogger is a wrapper structure for seelog
type agentLogger struct {
	inner seelog.LoggerInterface
	level seelog.LogLevel
	l     sync.RWMutex
}

// SetupLogger configures the logger singleton with a seelog interface
func SetupLogger(l seelog.LoggerInterface, level string) {
	lvl, ok := seelog.LogLevelFromString(strings.ToLower(level))
	if !ok {
		lvl = seelog.InfoLvl
	}

	// The exported functions below add one frame to the stack trace that
	// should be skipped to get to the original caller.
	l.SetAdditionalStackDepth(2) //nolint:errcheck

	logger = &agentLogger{
		inner: l,
		level: lvl,
	}
}

// SetupDefaultLogger configures a console logger at the given level. It is the
// entrypoint used by the agent command and by tests that want log output.
func SetupDefaultLogger(level string) error {
	config := `<seelog minlevel="trace">
	<outputs formatid="common"><console/></outputs>
	<formats><format id="common" format="%Date(2006-01-02 15:04:05 MST) | %LEVEL | %Msg%n"/></formats>
</seelog>`
	inner, err := seelog.LoggerFromConfigAsString(config)
	if err != nil {
		return err
	}
	SetupLogger(inner, level)
	return nil
}

func (sw *agentLogger) shouldLog(level seelog.LogLevel) bool {
	sw.l.RLock()
	ok := level >= sw.level
	sw.l.RUnlock()
	return ok
}

// ChangeLogLevel changes the current log level, valid levels are trace, debug,
// info, warn, error and critical.
func ChangeLogLevel(level string) error {
	if logger == nil {
		return errors.New("cannot change loglevel: logger not initialized")
	}
	lvl, ok := seelog.LogLevelFromString(strings.ToLower(level))
	if !ok {
		return errors.New("bad log level")
	}
	logger.l.Lock()
	logger.level = lvl
	logger.l.Unlock()
	return nil
}

// Tracef formats message according to format specifier and logs it with trace
// log level.
func Tracef(format string, params ...interface{}) {
	if logger != nil && logger.inner != nil && logger.shouldLog(seelog.TraceLvl) {
		logger.inner.Tracef(format, params...)
	}
}

// Debugf formats message according to format specifier and logs it with debug
// log level.
func Debugf(format string, params ...interface{}) {
	if logger != nil && logger.inner != nil && logger.shouldLog(seelog.DebugLvl) {
		logger.inner.Debugf(format, params...)
	}
}

// Infof formats message according to format specifier and logs it with info
// log level.
func Infof(format string, params ...interface{}) {
	if logger != nil && logger.inner != nil && logger.shouldLog(seelog.InfoLvl) {
		logger.inner.Infof(format, params...)
	}
}

// Warnf formats message according to format specifier, logs it with warn log
// level and returns the formatted message as an error.
func Warnf(format string, params ...interface{}) error {
	err := fmt.Errorf(format, params...)
	if logger != nil && logger.inner != nil && logger.shouldLog(seelog.WarnLvl) {
		logger.inner.Warnf(format, params...) //nolint:errcheck
	}
	return err
}

// Errorf formats message according to format specifier, logs it with error log
// level and returns the formatted message as an error.
func Errorf(format string, params ...interface{}) error {
	err := fmt.Errorf(format, params...)
	if logger != nil && logger.inner != nil && logger.shouldLog(seelog.ErrorLvl) {
		logger.inner.Errorf(format, params...) //nolint:errcheck
	}
	return err
}

// Flush flushes the underlying inner log
func Flush() {
	if logger != nil && logger.inner != nil {
		logger.inner.Flush()
	}
}
