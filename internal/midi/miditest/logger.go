// Package miditest provides small helpers shared by the backend test suites.
package miditest

import (
	"sync"

	"github.com/soundbus/midilink/sdk/contracts"
)

// Logger is a contracts.Logger that counts calls per level and records
// messages, safe for use from delivery goroutines.
type Logger struct {
	mu       sync.Mutex
	Infos    []string
	Warnings []string
	Errors   []string
	Debugs   []string
}

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) Info(msg string, _ ...contracts.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *Logger) Warn(msg string, _ ...contracts.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warnings = append(l.Warnings, msg)
}

func (l *Logger) Error(msg string, _ ...contracts.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *Logger) Debug(msg string, _ ...contracts.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *Logger) Field() contracts.Field      { return nil }
func (l *Logger) SetLevel(contracts.LogLevel) {}

// WarnCount returns how many warnings were logged.
func (l *Logger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warnings)
}

// ErrorCount returns how many errors were logged.
func (l *Logger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Errors)
}
