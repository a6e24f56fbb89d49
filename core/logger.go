package core

// Logger is any leveled logging service.
// Implementations are expected to accept, among regular args, a user object
// to attach to the log entry and a wrapped error for stack traces.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
