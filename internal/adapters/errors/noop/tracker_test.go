package noop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitarg/pkg/errors"
)

func TestTracker_DropsEvaluationDefects(t *testing.T) {
	ctx := context.Background()
	tracker := New()

	tracker.SetUser(ctx, "session-1")
	tracker.AddBreadcrumb(ctx, "evaluate", "decision", errors.LevelInfo, map[string]interface{}{"agent": "UK"})

	defect := &errors.UnresolvedError{Factor: "brokenDeal", Missing: "irishBorder"}
	assert.NoError(t, tracker.CaptureError(ctx, defect, map[string]string{"decision": "brexitApproval"}))
	assert.NoError(t, tracker.CaptureMessage(ctx, "evaluation failed", errors.LevelFor(defect), nil))
	assert.NoError(t, tracker.Flush(ctx))
}
