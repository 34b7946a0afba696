package utils

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileSettings configures the rotating file sink of a component logger
type LogFileSettings struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewComponentLogger builds a prefixed logger for one component. Output is
// "stdout", "file", or "both"; file output rotates via lumberjack. A nil file
// settings value forces stdout regardless of the requested output.
func NewComponentLogger(prefix, output string, file *LogFileSettings) *log.Logger {
	var w io.Writer = os.Stdout

	if file != nil && file.Path != "" {
		roller := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
			Compress:   file.Compress,
		}
		switch output {
		case "file":
			w = roller
		case "both":
			w = io.MultiWriter(os.Stdout, roller)
		}
	}

	// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
	return log.New(w, prefix+" ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}
