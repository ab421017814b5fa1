// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package log is the leveled logging facade shared by the prober and the watchdog.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel orders messages from least to most verbose.
type LogLevel int

const (
	LevelError LogLevel = iota + 1
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var levelNames = map[string]LogLevel{
	"error": LevelError,
	"warn":  LevelWarn,
	"info":  LevelInfo,
	"debug": LevelDebug,
	"trace": LevelTrace,
}

func (l LogLevel) String() string {
	for name, lvl := range levelNames {
		if lvl == l {
			return name
		}
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// ParseLogLevel maps a lowercase level name to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	if lvl, ok := levelNames[s]; ok {
		return lvl, nil
	}
	return 0, fmt.Errorf("invalid log level %q (must be error, warn, info, debug or trace)", s)
}

var (
	level atomic.Int32
	std   = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

func init() {
	level.Store(int32(LevelInfo))
}

// SetVerbose turns every message on (trace level) or restores the info level.
func SetVerbose(v bool) {
	if v {
		SetLogLevel(LevelTrace)
	} else {
		SetLogLevel(LevelInfo)
	}
}

func SetLogLevel(l LogLevel) {
	level.Store(int32(l))
}

func GetLogLevel() LogLevel {
	return LogLevel(level.Load())
}

// SetOutput redirects the default logger.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetPrefix sets a prefix on every line of the default logger, used by the
// watchdog process so both processes can share a terminal.
func SetPrefix(prefix string) {
	std.SetPrefix(prefix)
}

type Logger struct {
	Tracef    func(format string, args ...interface{})
	Infof     func(format string, args ...interface{})
	Debugf    func(format string, args ...interface{})
	Warnf     func(format string, args ...interface{}) error
	Errorf    func(format string, args ...interface{}) error
	TraceFunc func(func() string)
}

var logger = Logger{
	Tracef:    defaultTracef,
	Infof:     defaultInfof,
	Debugf:    defaultDebugf,
	Warnf:     defaultWarnf,
	Errorf:    defaultErrorf,
	TraceFunc: defaultTraceFunc,
}

func SetLogger(l Logger) {
	logger = l
}

func Tracef(format string, args ...interface{}) {
	if logger.Tracef != nil {
		logger.Tracef(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if logger.Infof != nil {
		logger.Infof(format, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if logger.Debugf != nil {
		logger.Debugf(format, args...)
	}
}

func Warnf(format string, args ...interface{}) error {
	if logger.Warnf != nil {
		return logger.Warnf(format, args...)
	}
	return nil
}

func Errorf(format string, args ...interface{}) error {
	if logger.Errorf != nil {
		return logger.Errorf(format, args...)
	}
	return nil
}

func TraceFunc(logFunc func() string) {
	if logger.TraceFunc != nil {
		logger.TraceFunc(logFunc)
	}
}

func on(l LogLevel) bool {
	return LogLevel(level.Load()) >= l
}

var (
	defaultTracef = func(format string, args ...interface{}) {
		if on(LevelTrace) {
			std.Printf("[TRACE] "+format, args...)
		}
	}

	defaultInfof = func(format string, args ...interface{}) {
		if on(LevelInfo) {
			std.Printf("[INFO] "+format, args...)
		}
	}

	defaultDebugf = func(format string, args ...interface{}) {
		if on(LevelDebug) {
			std.Printf("[DEBUG] "+format, args...)
		}
	}

	defaultErrorf = func(format string, args ...interface{}) error {
		msg := fmt.Sprintf(format, args...)
		if on(LevelError) {
			std.Print("[ERROR] " + msg)
		}
		return fmt.Errorf("%s", strings.TrimSpace(msg))
	}

	defaultWarnf = func(format string, args ...interface{}) error {
		msg := fmt.Sprintf(format, args...)
		if on(LevelWarn) {
			std.Print("[WARN] " + msg)
		}
		return fmt.Errorf("%s", strings.TrimSpace(msg))
	}

	defaultTraceFunc = func(logFunc func() string) {
		if on(LevelTrace) {
			std.Print("[TRACEFUNC] " + logFunc())
		}
	}
)
