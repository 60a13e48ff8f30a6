// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	permission = 0o664
)

type LogBuild struct {
	writer io.Writer
	path   string
	level  string
}

type LogData struct {
	LogFile   *os.File
	Logger    zerolog.Logger
	SessionID string
}

func New() *LogBuild {
	return &LogBuild{}
}

// FromPath appends log lines to the file at path
func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

// FromWriter also writes log lines to w
func (build *LogBuild) FromWriter(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

// WithLevel sets the minimum level by name ("debug", "info", ...)
func (build *LogBuild) WithLevel(level string) *LogBuild {
	build.level = level
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	logData = &LogData{SessionID: uuid.New().String()}

	var writers []io.Writer
	if build.writer != nil {
		writers = append(writers, build.writer)
	}
	if build.path != "" {
		if err = os.MkdirAll(filepath.Dir(build.path), 0o750); err != nil {
			return nil, err
		}
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		writers = append(writers, zerolog.SyncWriter(logData.LogFile))
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = zerolog.MultiLevelWriter(writers...)
	}

	level := zerolog.InfoLevel
	if build.level != "" {
		if l, perr := zerolog.ParseLevel(build.level); perr == nil {
			level = l
		}
	}

	logData.Logger = zerolog.New(w).Level(level).With().Timestamp().Str("session", logData.SessionID).Logger()
	return
}

// Close closes the log file, if any
func (d *LogData) Close() error {
	if d.LogFile == nil {
		return nil
	}
	return d.LogFile.Close()
}
