package grading

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

// ExactMatch grades quiz and matching submissions. The canonical answer key
// is an ordered vector of choice indices; the submission must match it
// element-wise and in length. There is no partial credit: any mismatch is
// FAILED with score 0, an exact match is SUCCESS with score 1. Either way
// the attempt is consumed.
type ExactMatch struct{}

// exactMatchSubmission is the structured payload quiz and match clients send.
type exactMatchSubmission struct {
	Answers []int `json:"answers"`
}

func (ExactMatch) Grade(ctx context.Context, submission json.RawMessage, key *domain.AnswerKey) (*domain.Outcome, error) {
	var sub exactMatchSubmission
	if err := json.Unmarshal(submission, &sub); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSubmission, err)
	}

	record, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("serialize submission: %w", err)
	}

	outcome := &domain.Outcome{
		Status:        domain.StatusFailed,
		Score:         0.0,
		Submission:    record,
		AttemptsDelta: 1,
	}
	if vectorsEqual(sub.Answers, key.Answers) {
		outcome.Status = domain.StatusSuccess
		outcome.Score = 1.0
	}
	return outcome, nil
}

func vectorsEqual(got, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// Ensure ExactMatch implements Strategy
var _ Strategy = (*ExactMatch)(nil)
