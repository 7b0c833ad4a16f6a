// MIT License
//
// # Copyright (c) 2024 sphinx-core
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// go/src/log/logger.go
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel defines the severity level of the log message.
type LogLevel int

const (
	DEBUG LogLevel = iota // Detailed debug information.
	INFO                  // General informational messages.
	WARN                  // Warnings about potential issues.
	ERROR                 // Error messages.
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < DEBUG || l > ERROR {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps a config string to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return LogLevel(i), nil
		}
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// maxBuffered bounds the in-memory log tail.
const maxBuffered = 1 << 20

// LogBuffer is a thread-safe bytes.Buffer keeping the most recent logs.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
func (l *LogBuffer) Write(p []byte) (n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if over := l.buf.Len() + len(p) - maxBuffered; over > 0 {
		l.buf.Next(min(over, l.buf.Len()))
	}
	return l.buf.Write(p)
}

// Sync implements zapcore.WriteSyncer.
func (l *LogBuffer) Sync() error { return nil }

// String returns the current contents of the buffer.
func (l *LogBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

var (
	buffer = &LogBuffer{}
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	mu   sync.RWMutex
	base = build(os.Stdout)
)

// build writes console-encoded entries to out and to the in-memory buffer.
func build(out io.Writer) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	sink := zapcore.NewMultiWriteSyncer(zapcore.AddSync(out), buffer)
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), sink, level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
}

// SetOutput redirects log output (the in-memory buffer is always kept).
func SetOutput(out io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = build(out)
}

// SetLevel sets the global logging level.
func SetLevel(lvl LogLevel) {
	level.SetLevel(lvl.zapLevel())
}

// Zap returns the structured logger behind the package functions, for
// components that take a *zap.Logger.
func Zap() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.WithOptions(zap.AddCallerSkip(-2))
}

// Infof logs a formatted message at INFO level.
func Infof(format string, args ...any) { logf(INFO, format, args...) }

// Errorf logs a formatted message at ERROR level.
func Errorf(format string, args ...any) { logf(ERROR, format, args...) }

// Fatalf logs a formatted message at ERROR level and exits.
func Fatalf(format string, args ...any) {
	logf(ERROR, format, args...)
	_ = Zap().Sync()
	os.Exit(1)
}

// Debugf logs a formatted message at DEBUG level.
func Debugf(format string, args ...any) { logf(DEBUG, format, args...) }

// Warnf logs a formatted message at WARN level.
func Warnf(format string, args ...any) { logf(WARN, format, args...) }

func logf(lvl LogLevel, format string, args ...any) {
	mu.RLock()
	l := base
	mu.RUnlock()
	msg := strings.TrimSuffix(fmt.Sprintf(format, args...), "\n")
	switch lvl {
	case DEBUG:
		l.Debug(msg)
	case WARN:
		l.Warn(msg)
	case ERROR:
		l.Error(msg)
	default:
		l.Info(msg)
	}
}

// Debug logs a DEBUG level message.
func Debug(format string, args ...any) { logf(DEBUG, format, args...) }

// Info logs an INFO level message.
func Info(format string, args ...any) { logf(INFO, format, args...) }

// Warn logs a WARN level message.
func Warn(format string, args ...any) { logf(WARN, format, args...) }

// Error logs an ERROR level message.
func Error(format string, args ...any) { logf(ERROR, format, args...) }

// GetLogs returns everything logged so far.
func GetLogs() string {
	return buffer.String()
}
