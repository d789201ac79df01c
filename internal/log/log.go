// Package log provides the process-wide structured logger used by all
// other packages. It is a thin wrapper over logrus that accepts
// key-value pairs, so call sites stay free of logrus types.
package log

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the logger. When file is non-empty, output goes to a
// size-rotated log file at that path instead of stderr.
func Setup(verbose bool, file string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	if file != "" {
		logrus.SetOutput(io.Writer(&lumberjack.Logger{
			Filename:   filepath.ToSlash(file),
			MaxSize:    5, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}))
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, kv ...any) {
	logrus.WithFields(fields(kv)).Debug(msg)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, kv ...any) {
	logrus.WithFields(fields(kv)).Info(msg)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, kv ...any) {
	logrus.WithFields(fields(kv)).Warn(msg)
}

// Error logs an error message with optional key-value pairs.
func Error(msg string, kv ...any) {
	logrus.WithFields(fields(kv)).Error(msg)
}

// fields converts alternating key-value pairs into logrus fields. A
// trailing key without a value is dropped.
func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		f[key] = kv[i+1]
	}
	return f
}
