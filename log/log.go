// Package log provides structured logging with filesystem-based persistence.
//
// Logging is inoperative until Setup enables it; every emission before that is discarded,
// so library consumers that never call Setup get a silent core.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/glasspane/glasspane/filesystem"
	"github.com/glasspane/glasspane/key"
	"github.com/glasspane/glasspane/where"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Fields is a set of structured key/value pairs attached to a log line.
type Fields = logrus.Fields

var (
	enabled bool
	logger  = logrus.New()
)

// Setup initializes the logging subsystem, including file handles, formatting, and severity levels based on global configuration.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	dir := where.Logs()
	if dir == "" {
		return errors.New("log directory path is empty")
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	configure(f)
	return nil
}

// SetOutput enables logging to an arbitrary writer, bypassing the log directory.
// The host application uses it to merge core diagnostics into its own log stream.
func SetOutput(w io.Writer) {
	enabled = true
	configure(w)
}

func configure(w io.Writer) {
	logger.SetOutput(w)

	if viper.GetBool(key.LogsJson) {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}

	parsed, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
}

// Entry is a log line under construction carrying structured fields.
type Entry struct {
	fields Fields
}

// With starts a structured entry. Fields are only materialized when logging is enabled.
func With(fields Fields) Entry {
	return Entry{fields: fields}
}

func (e Entry) entry() *logrus.Entry {
	return logger.WithFields(e.fields)
}

func (e Entry) Errorf(format string, args ...any) {
	if enabled {
		e.entry().Errorf(format, args...)
	}
}

func (e Entry) Warnf(format string, args ...any) {
	if enabled {
		e.entry().Warnf(format, args...)
	}
}

func (e Entry) Infof(format string, args ...any) {
	if enabled {
		e.entry().Infof(format, args...)
	}
}

func (e Entry) Debugf(format string, args ...any) {
	if enabled {
		e.entry().Debugf(format, args...)
	}
}

func Error(args ...any) {
	if enabled {
		logger.Error(args...)
	}
}

func Errorf(format string, args ...any) {
	if enabled {
		logger.Errorf(format, args...)
	}
}

func Warnf(format string, args ...any) {
	if enabled {
		logger.Warnf(format, args...)
	}
}

func Info(args ...any) {
	if enabled {
		logger.Info(args...)
	}
}

func Infof(format string, args ...any) {
	if enabled {
		logger.Infof(format, args...)
	}
}

func Debugf(format string, args ...any) {
	if enabled {
		logger.Debugf(format, args...)
	}
}

func Tracef(format string, args ...any) {
	if enabled {
		logger.Tracef(format, args...)
	}
}
