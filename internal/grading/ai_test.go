package grading

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

// fakeGrader returns a canned reply or error.
type fakeGrader struct {
	reply string
	err   error
	calls int
}

func (f *fakeGrader) Send(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func promptKey() *domain.AnswerKey {
	return &domain.AnswerKey{
		TaskID:      9,
		Type:        domain.TaskPrompt,
		Question:    "Составьте промпт для классификации отзывов",
		MaxAttempts: 3,
	}
}

func TestAI_Grade_Thresholds(t *testing.T) {
	tests := []struct {
		name       string
		score      float64
		wantStatus domain.ProgressStatus
	}{
		{"well above threshold", 0.9, domain.StatusSuccess},
		{"exactly at threshold", 0.4, domain.StatusSuccess},
		{"just below threshold", 0.39, domain.StatusFailed},
		{"zero", 0.0, domain.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, _ := json.Marshal(Verdict{Score: tt.score, Reply: "ok", Feedback: "fine"})
			ai := NewAI(&fakeGrader{reply: string(reply)})

			outcome, err := ai.Grade(context.Background(), json.RawMessage(`{"user_prompt":"classify reviews"}`), promptKey())
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if outcome.Status != tt.wantStatus {
				t.Errorf("Status = %s; want %s", outcome.Status, tt.wantStatus)
			}
			if outcome.Score != tt.score {
				t.Errorf("Score = %v; want %v", outcome.Score, tt.score)
			}
		})
	}
}

func TestAI_Grade_RecordsReplyAndFeedback(t *testing.T) {
	ai := NewAI(&fakeGrader{reply: `{"score": 0.7, "reply": "answer", "feedback": "solid"}`})

	outcome, err := ai.Grade(context.Background(), json.RawMessage(`{"user_prompt":"p"}`), promptKey())
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}

	var recorded map[string]string
	if err := json.Unmarshal(outcome.Submission, &recorded); err != nil {
		t.Fatalf("recorded submission is not valid JSON: %v", err)
	}
	if recorded["reply"] != "answer" || recorded["feedback"] != "solid" {
		t.Errorf("recorded = %v; want reply and feedback preserved", recorded)
	}
}

func TestAI_Grade_UpstreamError(t *testing.T) {
	ai := NewAI(&fakeGrader{err: domain.ErrGraderUnavailable})

	_, err := ai.Grade(context.Background(), json.RawMessage(`{"user_prompt":"p"}`), promptKey())
	if !errors.Is(err, domain.ErrGraderUnavailable) {
		t.Errorf("Grade() error = %v; want ErrGraderUnavailable", err)
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantScore float64
		wantErr   bool
	}{
		{"bare json", `{"score": 0.5, "reply": "r", "feedback": "f"}`, 0.5, false},
		{"code fenced", "```json\n{\"score\": 0.5, \"reply\": \"r\", \"feedback\": \"f\"}\n```", 0.5, false},
		{"leading prose", `Вот оценка: {"score": 1.0, "reply": "r", "feedback": "f"}`, 1.0, false},
		{"no json", "the submission was fine", 0, true},
		{"broken json", `{"score": `, 0, true},
		{"score out of range", `{"score": 7.5, "reply": "r", "feedback": "f"}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := ParseVerdict(tt.reply)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrMalformedVerdict) {
					t.Fatalf("ParseVerdict() error = %v; want ErrMalformedVerdict", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVerdict() error = %v", err)
			}
			if verdict.Score != tt.wantScore {
				t.Errorf("Score = %v; want %v", verdict.Score, tt.wantScore)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	key := promptKey()
	key.AdditionalPrompt = "учитывай структуру"

	prompt := BuildPrompt(key, "мой промпт")

	for _, want := range []string{key.Question, "мой промпт", "учитывай структуру"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "{question}") || strings.Contains(prompt, "{user_prompt}") {
		t.Error("prompt still contains unsubstituted placeholders")
	}
}

func TestBuildPrompt_NoAdditionalPrompt(t *testing.T) {
	prompt := BuildPrompt(promptKey(), "p")
	if !strings.Contains(prompt, "Нет доп. промпта") {
		t.Error("prompt should carry the no-additional-context placeholder")
	}
}

func TestSelector_ForType(t *testing.T) {
	sel := NewSelector(&fakeGrader{})

	tests := []struct {
		taskType domain.TaskType
		want     Strategy
	}{
		{domain.TaskQuiz, sel.exactMatch},
		{domain.TaskMatch, sel.exactMatch},
		{domain.TaskLecture, sel.passThrough},
		{domain.TaskPrompt, sel.ai},
	}

	for _, tt := range tests {
		if got := sel.ForType(tt.taskType); got != tt.want {
			t.Errorf("ForType(%s) returned wrong strategy", tt.taskType)
		}
	}

	if got := sel.ForType(domain.TaskType("ESSAY")); got != nil {
		t.Error("ForType(unknown) should return nil")
	}
}
