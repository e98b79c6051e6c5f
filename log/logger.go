package log

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

// Logger is a type alias of logrus.FieldLogger that defines a broad interface
// for logging, so packages don't depend on logrus directly.
type Logger = logrus.FieldLogger

// Fields is a collection of fields to be passed to the Logger.
type Fields = logrus.Fields

// InitLogger sets the internal logger instance to the given level and log
// file. This function should be called exactly once and subsequent calls
// return an error. Logs to stderr if logFile is an empty string.
func InitLogger(levelStr, logFile string) error {
	if logger != nil {
		return errors.New("logger already initialized")
	}

	newLogger := logrus.New()
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return errors.WithStack(err)
	}
	newLogger.SetLevel(level)
	if logFile == "" {
		newLogger.SetOutput(os.Stderr)
	} else {
		f, err := os.OpenFile(filepath.Clean(logFile), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
		if err != nil {
			return errors.WithStack(err)
		}
		newLogger.SetOutput(f)
	}

	newLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		TimestampFormat:        "2006-01-02 15:04:05 Z0700",
		DisableLevelTruncation: true,
	})
	logger = newLogger
	return nil
}

// NewLoggerWithField returns a logger that logs with the given field. It is
// derived from the internal logger instance of this package and uses the same
// log level and output.
//
// If the internal logger instance is not initialized before this call, it is
// initialized to "info" level, logging to stderr.
func NewLoggerWithField(key string, value interface{}) Logger {
	if logger == nil {
		InitLogger("info", "") // nolint: errcheck	// err is always nil here.
	}
	return logger.WithField(key, value)
}
