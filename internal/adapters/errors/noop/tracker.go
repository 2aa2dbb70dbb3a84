// Package noop discards defect reports. It backs evaluations when error
// tracking is disabled and keeps tests offline.
package noop

import (
	"context"

	"gitarg/pkg/errors"
)

// Tracker drops every captured evaluation defect
type Tracker struct{}

var _ errors.Tracker = (*Tracker)(nil)

func New() *Tracker {
	return &Tracker{}
}

// CaptureError ignores the defect; incomplete elicitation is already logged by the caller
func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	return nil
}

func (t *Tracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	return nil
}

// SetUser ignores the session id
func (t *Tracker) SetUser(ctx context.Context, sessionID string) {}

func (t *Tracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
}

// Flush has nothing buffered
func (t *Tracker) Flush(ctx context.Context) error {
	return nil
}
