package utils

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name ("debug", "info", ...) into a LogLevel.
// Unknown names fall back to INFO.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
)

// Logger provides leveled logging with optional key-value fields
type Logger struct {
	level      LogLevel
	mu         sync.Mutex
	useColor   bool
	timestamps bool
	output     *log.Logger
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      LogLevel
	UseColor   bool
	Timestamps bool
}

// DefaultLoggerConfig returns default logger configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:      INFO,
		UseColor:   true,
		Timestamps: true,
	}
}

// NewLogger creates a new logger with default configuration
func NewLogger() *Logger {
	return NewLoggerWithConfig(DefaultLoggerConfig())
}

// NewLoggerWithConfig creates a new logger with custom configuration
func NewLoggerWithConfig(config *LoggerConfig) *Logger {
	return &Logger{
		level:      config.Level,
		useColor:   config.UseColor,
		timestamps: config.Timestamps,
		output:     log.New(os.Stdout, "", 0),
	}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// log is the internal logging function
func (l *Logger) log(level LogLevel, msg string, fields ...interface{}) {
	if level < l.GetLevel() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var sb strings.Builder

	if l.timestamps {
		timestamp := time.Now().Format("2006-01-02 15:04:05.000")
		if l.useColor {
			sb.WriteString(colorGray)
		}
		sb.WriteString("[")
		sb.WriteString(timestamp)
		sb.WriteString("] ")
		if l.useColor {
			sb.WriteString(colorReset)
		}
	}

	if l.useColor {
		sb.WriteString(l.getLevelColor(level))
	}
	sb.WriteString("[")
	sb.WriteString(level.String())
	sb.WriteString("] ")
	if l.useColor {
		sb.WriteString(colorReset)
	}

	sb.WriteString(msg)

	if len(fields) > 0 {
		sb.WriteString(" ")
		l.formatFields(&sb, fields...)
	}

	l.output.Println(sb.String())

	if level == FATAL {
		os.Exit(1)
	}
}

// formatFields formats key-value pairs for logging
func (l *Logger) formatFields(sb *strings.Builder, fields ...interface{}) {
	if len(fields)%2 != 0 {
		sb.WriteString("INVALID_FIELDS")
		return
	}

	for i := 0; i < len(fields); i += 2 {
		if i > 0 {
			sb.WriteString(" ")
		}

		key := fmt.Sprintf("%v", fields[i])
		value := fields[i+1]

		if l.useColor {
			sb.WriteString(colorCyan)
		}
		sb.WriteString(key)
		if l.useColor {
			sb.WriteString(colorReset)
		}
		sb.WriteString("=")

		switch v := value.(type) {
		case string:
			sb.WriteString(fmt.Sprintf("%q", v))
		case error:
			if l.useColor {
				sb.WriteString(colorRed)
			}
			sb.WriteString(fmt.Sprintf("%q", v.Error()))
			if l.useColor {
				sb.WriteString(colorReset)
			}
		default:
			sb.WriteString(fmt.Sprintf("%v", v))
		}
	}
}

// getLevelColor returns the color for a log level
func (l *Logger) getLevelColor(level LogLevel) string {
	switch level {
	case DEBUG:
		return colorGray
	case INFO:
		return colorGreen
	case WARN:
		return colorYellow
	case ERROR:
		return colorRed
	case FATAL:
		return colorPurple
	default:
		return colorWhite
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.log(DEBUG, msg, fields...)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(INFO, msg, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.log(WARN, msg, fields...)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(ERROR, msg, fields...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, fields ...interface{}) {
	l.log(FATAL, msg, fields...)
}

// defaultLogger backs the package-level helpers below.
var defaultLogger = NewLogger()

// Default returns the shared package-level logger.
func Default() *Logger {
	return defaultLogger
}

// SetDefaultLevel sets the minimum level of the package-level logger.
func SetDefaultLevel(level LogLevel) {
	defaultLogger.SetLevel(level)
}

// Debug logs a formatted debug message to the default logger
func Debug(format string, args ...interface{}) {
	defaultLogger.log(DEBUG, fmt.Sprintf(format, args...))
}

// Info logs a formatted info message to the default logger
func Info(format string, args ...interface{}) {
	defaultLogger.log(INFO, fmt.Sprintf(format, args...))
}

// Warn logs a formatted warning message to the default logger
func Warn(format string, args ...interface{}) {
	defaultLogger.log(WARN, fmt.Sprintf(format, args...))
}

// Error logs a formatted error message to the default logger
func Error(format string, args ...interface{}) {
	defaultLogger.log(ERROR, fmt.Sprintf(format, args...))
}

// Fatal logs a formatted fatal message to the default logger and exits
func Fatal(format string, args ...interface{}) {
	defaultLogger.log(FATAL, fmt.Sprintf(format, args...))
}
