package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProgressStatus tracks where a submission is in its grading lifecycle.
// EVAL is the interim state written as soon as a submission arrives; the
// remaining states are terminal for that submission. A record in a terminal
// state is re-enterable by the next submission.
type ProgressStatus string

const (
	StatusEval        ProgressStatus = "EVAL"
	StatusSuccess     ProgressStatus = "SUCCESS"
	StatusFailed      ProgressStatus = "FAILED"
	StatusMaxAttempts ProgressStatus = "MAX_ATTEMPTS"
)

// Terminal reports whether the status ends the current submission's evaluation.
func (s ProgressStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusMaxAttempts
}

// ParseProgressStatus converts a stored string into a ProgressStatus.
func ParseProgressStatus(v string) (ProgressStatus, error) {
	switch strings.ToUpper(v) {
	case "EVAL":
		return StatusEval, nil
	case "SUCCESS":
		return StatusSuccess, nil
	case "FAILED":
		return StatusFailed, nil
	case "MAX_ATTEMPTS":
		return StatusMaxAttempts, nil
	default:
		return "", fmt.Errorf("unknown progress status %q", v)
	}
}

// Progress is the durable record tracking one user's state for one task.
// Exactly one record exists per (user, task) pair once the user has ever
// submitted; writes overwrite state, only the attempts counter accumulates.
type Progress struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	TaskID     int64           `json:"task_id"`
	Status     ProgressStatus  `json:"status"`
	Submission json.RawMessage `json:"submission"`
	Score      float64         `json:"score"`
	Attempts   int             `json:"attempts"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Outcome is the transient result a grading strategy produces for one
// submission. It is never persisted directly; the progress service turns it
// into a Progress write. AttemptsDelta is derived from Status by the store
// (terminal writes consume an attempt, EVAL writes do not) and is carried
// here for observability only.
type Outcome struct {
	Status        ProgressStatus
	Score         float64
	Submission    json.RawMessage
	AttemptsDelta int
}
