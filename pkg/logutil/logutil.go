// Package logutil manages the debug loggers used by other packages.
//
// Loggers are created with GetLogger, and discard their output until a
// destination is installed with SetOutput or SetOutputFile. This keeps the
// normal terminal output free of debug chatter while still letting the -log
// flag capture everything.
package logutil

import (
	"io"
	"log"
	"os"
)

var (
	loggers []*log.Logger
	logFile *os.File
)

// GetLogger returns a logger with the given prefix. The logger discards all
// output until SetOutput or SetOutputFile is called.
func GetLogger(prefix string) *log.Logger {
	logger := log.New(io.Discard, prefix, log.LstdFlags)
	loggers = append(loggers, logger)
	return logger
}

// SetOutput redirects the output of all loggers obtained from GetLogger,
// current and future, to the given writer.
func SetOutput(out io.Writer) {
	closeLogFile()
	logFile = nil
	for _, logger := range loggers {
		logger.SetOutput(out)
	}
}

// SetOutputFile is like SetOutput, but the destination is a named file opened
// for appending. An empty name suppresses all logging output.
func SetOutputFile(fname string) error {
	if fname == "" {
		SetOutput(io.Discard)
		return nil
	}
	file, err := os.OpenFile(fname, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	closeLogFile()
	logFile = file
	for _, logger := range loggers {
		logger.SetOutput(file)
	}
	return nil
}

func closeLogFile() {
	if logFile != nil {
		logFile.Close()
	}
}
