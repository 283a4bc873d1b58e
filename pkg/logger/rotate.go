package logger

import (
	"io"

	"github.com/natefinch/lumberjack"
)

// Rotation limits for file output.
const (
	rotateMaxSizeMB  = 10
	rotateMaxBackups = 5
	rotateMaxAgeDays = 28
)

// RotatingFile returns a writer that appends to path and rotates it by size.
// Close releases the current file.
func RotatingFile(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotateMaxSizeMB,
		MaxBackups: rotateMaxBackups,
		MaxAge:     rotateMaxAgeDays,
		Compress:   true,
	}
}
