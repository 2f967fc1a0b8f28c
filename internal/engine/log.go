package engine

import (
	"log"
	"os"
)

// Level is a logger verbosity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is a minimal leveled wrapper around the standard log package,
// in the same register the teacher's cmd/trigo and internal/server use
// log.Printf/log.Fatalf directly — this just adds a level check in
// front of the same calls rather than introducing a structured logging
// dependency nothing else in the pack imports.
type Logger struct {
	level Level
	std   *log.Logger
}

// NewLogger returns a Logger at level, writing to os.Stderr with the
// standard library's default flags.
func NewLogger(level Level) *Logger {
	return &Logger{level: level, std: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l *Logger) log(level Level, prefix, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	l.std.Printf(prefix+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, "DEBUG ", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, "INFO ", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, "WARN ", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, "ERROR ", format, args...) }
