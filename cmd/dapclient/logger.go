package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logFile *os.File

// SetupLogger points logrus at logPath in addition to stderr, so a session
// run from a terminal still shows live output while leaving a durable
// trail for post-mortem debugging of a stuck adapter conversation.
func SetupLogger(logPath string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if logPath == "" {
		return
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logrus.Warnf("[main] open log file %s: %v", logPath, err)
		return
	}
	logFile = f
	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
}

// CloseLogger closes the log file opened by SetupLogger, if any.
func CloseLogger() {
	if logFile != nil {
		_ = logFile.Close()
	}
}
