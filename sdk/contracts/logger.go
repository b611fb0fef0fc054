package contracts

import "time"

// LogLevel represents the severity level for logging.
type LogLevel int

const (
	// InfoLevel indicates informational messages that highlight the progress
	// of the application.
	InfoLevel LogLevel = iota
	// DebugLevel indicates debug messages that are useful for developers to
	// troubleshoot issues.
	DebugLevel
	// ErrorLevel indicates error messages that represent serious issues that
	// need attention.
	ErrorLevel
	// WarnLevel indicates potentially harmful situations that should be
	// monitored.
	WarnLevel
)

// Field represents a typed log field.
type Field interface {
	Bool(key string, val bool) Field
	Int(key string, val int) Field
	Float64(key string, val float64) Field
	String(key string, val string) Field
	Time(key string, val time.Time) Field
	Int64(key string, val int64) Field
	Error(key string, val error) Field
	Uint64(key string, val uint64) Field
	Uint8(key string, val uint8) Field
}

// Logger provides leveled, structured logging. It doubles as the reporting
// side channel for driver warnings: nothing logged here ever unwinds through
// a native callback.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)

	Field() Field

	SetLevel(level LogLevel)
}
