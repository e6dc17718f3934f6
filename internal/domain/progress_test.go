package domain

import "testing"

func TestParseProgressStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    ProgressStatus
		wantErr bool
	}{
		{"EVAL", StatusEval, false},
		{"eval", StatusEval, false},
		{"SUCCESS", StatusSuccess, false},
		{"FAILED", StatusFailed, false},
		{"MAX_ATTEMPTS", StatusMaxAttempts, false},
		{"max_attempts", StatusMaxAttempts, false},
		{"DONE", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProgressStatus(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProgressStatus(%q) error = %v; wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseProgressStatus(%q) = %q; want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestProgressStatus_Terminal(t *testing.T) {
	tests := []struct {
		status ProgressStatus
		want   bool
	}{
		{StatusEval, false},
		{StatusSuccess, true},
		{StatusFailed, true},
		{StatusMaxAttempts, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v; want %v", tt.status, got, tt.want)
		}
	}
}
