// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package log implements the process-wide logger used across picker-sync. It
// wraps seelog behind package-level functions so callers never carry a logger
// handle around.
package log

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cihub/seelog"
)

var (
	logger *wrappedLogger

	mu sync.RWMutex

	defaultStackDepth = 2
)

// wrappedLogger wraps a seelog logger together with its current level.
type wrappedLogger struct {
	inner seelog.LoggerInterface
	level seelog.LogLevel
}

// SetupLogger configures the logger singleton with the given seelog interface
// and minimum level. It must be called before any other function in this
// package produces output; calls made earlier fall back to seelog's default
// logger.
func SetupLogger(l seelog.LoggerInterface, level string) {
	lvl, ok := seelog.LogLevelFromString(strings.ToLower(level))
	if !ok {
		lvl = seelog.InfoLvl
	}

	// The exported functions add one stack frame between the caller and
	// seelog, hence the additional depth.
	l.SetAdditionalStackDepth(defaultStackDepth) //nolint:errcheck

	mu.Lock()
	logger = &wrappedLogger{inner: l, level: lvl}
	mu.Unlock()
}

// SetupDefaultLogger points the package at a plain stderr logger at the given
// level. Used by tests and by the CLI before the config is loaded.
func SetupDefaultLogger(level string) {
	l, err := seelog.LoggerFromWriterWithMinLevelAndFormat(
		os.Stderr, seelog.TraceLvl, "%Date(2006-01-02 15:04:05 MST) | %LEVEL | %Msg%n")
	if err != nil {
		return
	}
	SetupLogger(l, level)
}

// ChangeLogLevel changes the minimum level of the configured logger.
func ChangeLogLevel(level string) error {
	lvl, ok := seelog.LogLevelFromString(strings.ToLower(level))
	if !ok {
		return errors.New("bad log level")
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return errors.New("cannot change loglevel: logger not initialized")
	}
	logger.level = lvl
	return nil
}

// GetLogLevel returns the minimum level of the configured logger.
func GetLogLevel() (seelog.LogLevel, error) {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return seelog.InfoLvl, errors.New("logger not initialized")
	}
	return logger.level, nil
}

// Flush flushes any buffered log output.
func Flush() {
	mu.RLock()
	defer mu.RUnlock()
	if logger != nil {
		logger.inner.Flush()
	}
}

func shouldLog(lvl seelog.LogLevel) (seelog.LoggerInterface, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil || lvl < logger.level {
		return nil, false
	}
	return logger.inner, true
}

// Tracef logs with format at the trace level.
func Tracef(format string, params ...interface{}) {
	if l, ok := shouldLog(seelog.TraceLvl); ok {
		l.Trace(fmt.Sprintf(format, params...))
	}
}

// Debugf logs with format at the debug level.
func Debugf(format string, params ...interface{}) {
	if l, ok := shouldLog(seelog.DebugLvl); ok {
		l.Debug(fmt.Sprintf(format, params...))
	}
}

// Debug logs its arguments at the debug level.
func Debug(v ...interface{}) {
	if l, ok := shouldLog(seelog.DebugLvl); ok {
		l.Debug(fmt.Sprint(v...))
	}
}

// Infof logs with format at the info level.
func Infof(format string, params ...interface{}) {
	if l, ok := shouldLog(seelog.InfoLvl); ok {
		l.Info(fmt.Sprintf(format, params...))
	}
}

// Info logs its arguments at the info level.
func Info(v ...interface{}) {
	if l, ok := shouldLog(seelog.InfoLvl); ok {
		l.Info(fmt.Sprint(v...))
	}
}

// Warnf logs with format at the warn level and returns the message as an
// error so call sites can both log and propagate.
func Warnf(format string, params ...interface{}) error {
	err := fmt.Errorf(format, params...)
	if l, ok := shouldLog(seelog.WarnLvl); ok {
		l.Warn(err.Error()) //nolint:errcheck
	}
	return err
}

// Errorf logs with format at the error level and returns the message as an
// error.
func Errorf(format string, params ...interface{}) error {
	err := fmt.Errorf(format, params...)
	if l, ok := shouldLog(seelog.ErrorLvl); ok {
		l.Error(err.Error()) //nolint:errcheck
	}
	return err
}

// Error logs its arguments at the error level.
func Error(v ...interface{}) {
	if l, ok := shouldLog(seelog.ErrorLvl); ok {
		l.Error(fmt.Sprint(v...)) //nolint:errcheck
	}
}
