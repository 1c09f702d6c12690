// Copyright (c) zedis contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package log is zedis' leveled logger. Six severities, each with its own
// prefix and caller-location verbosity: routine levels log bare, error
// levels carry the file and line that emitted them. The active level is a
// single gate checked before formatting, set once at boot from the
// -loglevel flag or the ZEDIS_LOGLEVEL environment variable.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

type severity int

const (
	sevDebug severity = iota
	sevInfo
	sevNote
	sevWarn
	sevError
	sevCrit
)

var severityNames = map[string]severity{
	"debug":  sevDebug,
	"info":   sevInfo,
	"notice": sevNote,
	"warn":   sevWarn,
	"err":    sevError,
	"fatal":  sevError,
	"crit":   sevCrit,
}

var loggers = map[severity]*log.Logger{
	sevDebug: log.New(os.Stderr, "[DEBUG]    ", 0),
	sevInfo:  log.New(os.Stderr, "[INFO]     ", 0),
	sevNote:  log.New(os.Stderr, "[NOTICE]   ", log.Lshortfile),
	sevWarn:  log.New(os.Stderr, "[WARNING]  ", log.Lshortfile),
	sevError: log.New(os.Stderr, "[ERROR]    ", log.Llongfile),
	sevCrit:  log.New(os.Stderr, "[CRITICAL] ", log.Llongfile),
}

var minSeverity = sevDebug

// SetLogLevel suppresses all output below the named level. Unknown names
// fall back to debug so that a typo in ZEDIS_LOGLEVEL loses verbosity
// control, never log lines.
func SetLogLevel(lvl string) {
	sev, ok := severityNames[lvl]
	if !ok {
		fmt.Fprintf(os.Stderr, "pkg/log: invalid loglevel %q, using debug\n", lvl)
		sev = sevDebug
	}
	minSeverity = sev
}

// SetLogDateTime adds (or removes) date and time on every line. Off by
// default: under systemd the journal stamps lines already.
func SetLogDateTime(on bool) {
	for sev, l := range loggers {
		flags := l.Flags()
		if on {
			flags |= log.LstdFlags
		} else {
			flags &^= log.LstdFlags
		}
		loggers[sev].SetFlags(flags)
	}
}

// FromEnv applies ZEDIS_LOGLEVEL if it is set. Called by the server before
// flag parsing so the flag wins when both are given.
func FromEnv() {
	if lvl := os.Getenv("ZEDIS_LOGLEVEL"); lvl != "" {
		SetLogLevel(lvl)
	}
}

// SetOutput redirects every level's writer, used by tests to capture or
// silence output.
func SetOutput(w io.Writer) {
	for _, l := range loggers {
		l.SetOutput(w)
	}
}

func emit(sev severity, msg string) {
	if sev < minSeverity {
		return
	}
	// Depth 3: emit <- exported wrapper <- caller.
	loggers[sev].Output(3, msg)
}

func Debug(v ...interface{}) { emit(sevDebug, fmt.Sprint(v...)) }
func Info(v ...interface{})  { emit(sevInfo, fmt.Sprint(v...)) }
func Note(v ...interface{})  { emit(sevNote, fmt.Sprint(v...)) }
func Warn(v ...interface{})  { emit(sevWarn, fmt.Sprint(v...)) }
func Error(v ...interface{}) { emit(sevError, fmt.Sprint(v...)) }
func Crit(v ...interface{})  { emit(sevCrit, fmt.Sprint(v...)) }

func Print(v ...interface{}) { Info(v...) }

func Debugf(format string, v ...interface{}) { emit(sevDebug, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { emit(sevInfo, fmt.Sprintf(format, v...)) }
func Notef(format string, v ...interface{})  { emit(sevNote, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { emit(sevWarn, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { emit(sevError, fmt.Sprintf(format, v...)) }
func Critf(format string, v ...interface{})  { emit(sevCrit, fmt.Sprintf(format, v...)) }

func Printf(format string, v ...interface{}) { Infof(format, v...) }

// Fatal logs at the error level and stops the process.
func Fatal(v ...interface{}) {
	emit(sevError, fmt.Sprint(v...))
	os.Exit(1)
}

func Fatalf(format string, v ...interface{}) {
	emit(sevError, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Panic logs at the error level, then panics so a recover() higher up
// (the per-connection backstop) can keep the process alive.
func Panic(v ...interface{}) {
	emit(sevError, fmt.Sprint(v...))
	panic("panic triggered")
}

func Panicf(format string, v ...interface{}) {
	emit(sevError, fmt.Sprintf(format, v...))
	panic("panic triggered")
}
