package advisory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "agri-evidence-workers/internal/common/errors"
)

func TestActivities(t *testing.T) {
	activities := Activities(func(taskType string) bool { return taskType != "record-evidence" })
	assert.Len(t, activities, 6)

	seen := map[string]bool{}
	for _, a := range activities {
		assert.False(t, seen[a.TaskType], "duplicate task type %s", a.TaskType)
		seen[a.TaskType] = true
		assert.Equal(t, a.TaskType != "record-evidence", a.Enabled, a.TaskType)
		assert.Contains(t, a.ErrorCodes, string(apperrors.ErrCodeInputValidationFailed), a.TaskType)
	}
}

func TestActivities_NilFilterEnablesAll(t *testing.T) {
	for _, a := range Activities(nil) {
		assert.True(t, a.Enabled, a.TaskType)
	}
}
