package grading

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

func quizKey(answers ...int) *domain.AnswerKey {
	return &domain.AnswerKey{TaskID: 5, Type: domain.TaskQuiz, Answers: answers}
}

func TestExactMatch_Grade(t *testing.T) {
	tests := []struct {
		name       string
		submission string
		key        *domain.AnswerKey
		wantStatus domain.ProgressStatus
		wantScore  float64
	}{
		{
			name:       "exact match succeeds",
			submission: `{"answers":[1,0,1]}`,
			key:        quizKey(1, 0, 1),
			wantStatus: domain.StatusSuccess,
			wantScore:  1.0,
		},
		{
			name:       "wrong element fails",
			submission: `{"answers":[1,1,1]}`,
			key:        quizKey(1, 0, 1),
			wantStatus: domain.StatusFailed,
			wantScore:  0.0,
		},
		{
			name:       "short vector fails",
			submission: `{"answers":[1,0]}`,
			key:        quizKey(1, 0, 1),
			wantStatus: domain.StatusFailed,
			wantScore:  0.0,
		},
		{
			name:       "long vector fails",
			submission: `{"answers":[1,0,1,0]}`,
			key:        quizKey(1, 0, 1),
			wantStatus: domain.StatusFailed,
			wantScore:  0.0,
		},
		{
			name:       "empty vector against empty key succeeds",
			submission: `{"answers":[]}`,
			key:        quizKey(),
			wantStatus: domain.StatusSuccess,
			wantScore:  1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := (ExactMatch{}).Grade(context.Background(), json.RawMessage(tt.submission), tt.key)
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if outcome.Status != tt.wantStatus {
				t.Errorf("Status = %s; want %s", outcome.Status, tt.wantStatus)
			}
			if outcome.Score != tt.wantScore {
				t.Errorf("Score = %v; want %v", outcome.Score, tt.wantScore)
			}
			if outcome.AttemptsDelta != 1 {
				t.Errorf("AttemptsDelta = %d; want 1 regardless of outcome", outcome.AttemptsDelta)
			}
		})
	}
}

func TestExactMatch_Grade_RecordsSubmission(t *testing.T) {
	outcome, err := (ExactMatch{}).Grade(context.Background(), json.RawMessage(`{"answers":[1,0,1]}`), quizKey(1, 0, 1))
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}

	var recorded exactMatchSubmission
	if err := json.Unmarshal(outcome.Submission, &recorded); err != nil {
		t.Fatalf("recorded submission is not valid JSON: %v", err)
	}
	if len(recorded.Answers) != 3 {
		t.Errorf("recorded answers = %v; want the submitted vector", recorded.Answers)
	}
}

func TestExactMatch_Grade_InvalidPayload(t *testing.T) {
	_, err := (ExactMatch{}).Grade(context.Background(), json.RawMessage(`"not an object"`), quizKey(1))
	if !errors.Is(err, domain.ErrInvalidSubmission) {
		t.Errorf("Grade() error = %v; want ErrInvalidSubmission", err)
	}
}

func TestPassThrough_Grade(t *testing.T) {
	outcome, err := (PassThrough{}).Grade(context.Background(), nil, &domain.AnswerKey{Type: domain.TaskLecture})
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}
	if outcome.Status != domain.StatusSuccess {
		t.Errorf("Status = %s; want SUCCESS", outcome.Status)
	}
	if outcome.Score != 1.0 {
		t.Errorf("Score = %v; want 1.0", outcome.Score)
	}
	if outcome.AttemptsDelta != 1 {
		t.Errorf("AttemptsDelta = %d; want 1", outcome.AttemptsDelta)
	}
}
