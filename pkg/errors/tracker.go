package errors

import (
	"context"
)

// Tracker defines the interface for defect reporting services (Sentry etc.)
type Tracker interface {
	// CaptureError sends an error to the tracking service
	CaptureError(ctx context.Context, err error, tags map[string]string) error

	// CaptureMessage sends a message to the tracking service
	CaptureMessage(ctx context.Context, message string, level Level, tags map[string]string) error

	// SetUser associates the current scope with an elicitation session
	SetUser(ctx context.Context, sessionID string)

	// AddBreadcrumb records an evaluation step leading up to a captured error
	AddBreadcrumb(ctx context.Context, message string, category string, level Level, data map[string]interface{})

	// Flush waits for all pending events to be sent
	Flush(ctx context.Context) error
}

// Level represents the severity level of an error or message
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

// String returns the string representation of the level
func (l Level) String() string {
	return string(l)
}

// LevelFor maps an evaluation error to the severity it is reported with.
// Missing user input is expected and only warns; everything else is a defect.
func LevelFor(err error) Level {
	switch {
	case err == nil:
		return LevelInfo
	case Is(err, ErrIncompleteElicitation) && !IsDefect(err):
		return LevelWarning
	default:
		return LevelError
	}
}
