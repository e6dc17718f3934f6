package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TaskType selects the grading strategy for a task.
type TaskType string

const (
	TaskQuiz    TaskType = "QUIZ"
	TaskLecture TaskType = "LECTURE"
	TaskPrompt  TaskType = "PROMPT"
	TaskMatch   TaskType = "MATCH"
)

// AttemptLimited reports whether submissions of this type are bounded by a
// per-task attempt ceiling. Only AI-graded prompt tasks carry one.
func (t TaskType) AttemptLimited() bool {
	return t == TaskPrompt
}

// ParseTaskType converts a stored string into a TaskType.
func ParseTaskType(v string) (TaskType, error) {
	switch strings.ToUpper(v) {
	case "QUIZ":
		return TaskQuiz, nil
	case "LECTURE":
		return TaskLecture, nil
	case "PROMPT":
		return TaskPrompt, nil
	case "MATCH":
		return TaskMatch, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTaskType, v)
	}
}

// TaskShortInfo is the catalog listing entry. Status is the requesting
// user's progress status when known.
type TaskShortInfo struct {
	ID       int64           `json:"id"`
	ModuleID int64           `json:"module_id"`
	Title    string          `json:"title"`
	Type     TaskType        `json:"type"`
	Status   *ProgressStatus `json:"status,omitempty"`
}

// Task is the full catalog entry. Content is the task-type-specific body
// (quiz question and choices, lecture text, match columns, prompt question).
// Status and Score embed the requesting user's own progress when known.
type Task struct {
	ID       int64           `json:"id"`
	ModuleID int64           `json:"module_id"`
	Title    string          `json:"title"`
	Type     TaskType        `json:"type"`
	Content  json.RawMessage `json:"content"`
	Status   *ProgressStatus `json:"status,omitempty"`
	Score    *float64        `json:"score,omitempty"`
}

// AnswerKey is the per-task reference data a grading strategy consumes.
// It is read-only from the grading pipeline's point of view. Exact-match
// tasks carry the canonical answer vector; prompt tasks carry the question
// blob, an optional additional grading hint, and the attempt ceiling.
type AnswerKey struct {
	TaskID           int64
	Type             TaskType
	Answers          []int
	Question         string
	AdditionalPrompt string
	MaxAttempts      int
}

// ParseAnswerVector parses the stored delimiter-separated answer vector
// ("1;0;1") into ordered choice indices. Unparseable elements map to 0,
// matching how keys have always been stored.
func ParseAnswerVector(raw string) []int {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	answers := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			n = 0
		}
		answers[i] = n
	}
	return answers
}

// UserStats is the per-user aggregate summarizing progress across tasks.
type UserStats struct {
	UserID      int64 `json:"user_id"`
	TasksPassed int64 `json:"tasks_passed"`
	TasksTotal  int64 `json:"tasks_total"`
}
