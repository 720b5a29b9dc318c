package core

// Logger is the app-wide logging interface.
// Implementations may extract a user.User from args to attach request identity.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// NewNopLogger returns a Logger that discards everything; used in tests.
func NewNopLogger() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
