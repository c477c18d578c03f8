package pipeline

import (
	"context"
	"fmt"
	"strings"

	"reconaudit/backend/scope"
)

const skippedSuffix = "' skipped (outside allowed scope)"

// SkippedTask builds the sentinel that replaces an out-of-scope task.
func SkippedTask(task string) string {
	return fmt.Sprintf("Task '%s%s", task, skippedSuffix)
}

// IsSkipped reports whether a task list entry is a scope-rejection sentinel.
func IsSkipped(task string) bool {
	return strings.HasPrefix(task, "Task '") && strings.HasSuffix(task, skippedSuffix)
}

// FilterScope approves or replaces every task in place. Existing sentinels are
// kept as they are, so applying it twice changes nothing.
func FilterScope(_ context.Context, st State) (State, error) {
	allowed, err := scope.New(st.AllowedScope)
	if err != nil {
		st.logf("[Scope Constraints] Invalid scope %s: %v", formatList(st.AllowedScope), err)
		allowed = &scope.Scope{}
	}
	if allowed.Wildcard() {
		st.logf("[Scope Constraints] Wildcard detected. All targets allowed.")
		return st, nil
	}

	target, _ := ExtractTarget(st.Task)
	filtered := make([]string, len(st.TaskList))
	for i, task := range st.TaskList {
		if IsSkipped(task) || allowed.Allows(task, target) {
			filtered[i] = task
			continue
		}
		filtered[i] = SkippedTask(task)
	}
	st.TaskList = filtered
	st.logf("[Scope Constraints] Filtered tasks: %s", formatList(st.TaskList))
	return st, nil
}
