package domain

import (
	"errors"
	"testing"
)

func TestParseTaskType(t *testing.T) {
	tests := []struct {
		input string
		want  TaskType
	}{
		{"QUIZ", TaskQuiz},
		{"quiz", TaskQuiz},
		{"LECTURE", TaskLecture},
		{"PROMPT", TaskPrompt},
		{"match", TaskMatch},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTaskType(tt.input)
			if err != nil {
				t.Fatalf("ParseTaskType(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTaskType(%q) = %q; want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTaskType_Unknown(t *testing.T) {
	_, err := ParseTaskType("ESSAY")
	if !errors.Is(err, ErrUnknownTaskType) {
		t.Errorf("ParseTaskType(ESSAY) error = %v; want ErrUnknownTaskType", err)
	}
}

func TestTaskType_AttemptLimited(t *testing.T) {
	tests := []struct {
		taskType TaskType
		want     bool
	}{
		{TaskQuiz, false},
		{TaskLecture, false},
		{TaskMatch, false},
		{TaskPrompt, true},
	}

	for _, tt := range tests {
		if got := tt.taskType.AttemptLimited(); got != tt.want {
			t.Errorf("%s.AttemptLimited() = %v; want %v", tt.taskType, got, tt.want)
		}
	}
}
