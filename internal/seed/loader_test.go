package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

const samplePack = `modules:
  - module_id: 1
    tasks:
      - title: "Что такое промпт"
        type: LECTURE
        lecture:
          text: "Промпт — это запрос к модели."
      - title: "Проверь себя"
        type: QUIZ
        quiz:
          question: "Выбери верные утверждения"
          possible_answers: ["a", "b", "c"]
          is_multiple: true
          answers: [1, 0, 1]
      - title: "Напиши промпт"
        type: PROMPT
        prompt:
          question: "Составь промпт для пересказа текста"
          max_attempts: 5
  - module_id: 2
    tasks:
      - title: "Сопоставь пары"
        type: MATCH
        match:
          question: "Соотнеси термины"
          left_items: ["x", "y"]
          right_items: ["1", "2"]
          answers: [1, 0]
`

func writePack(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pack.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	return path
}

type createdTask struct {
	moduleID int64
	title    string
	taskType domain.TaskType
}

type fakeStore struct {
	nextID  int64
	tasks   []createdTask
	quizzes map[int64][]int
	prompts map[int64]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		quizzes: make(map[int64][]int),
		prompts: make(map[int64]int),
	}
}

func (f *fakeStore) CreateTask(ctx context.Context, moduleID int64, title string, taskType domain.TaskType) (int64, error) {
	f.nextID++
	f.tasks = append(f.tasks, createdTask{moduleID: moduleID, title: title, taskType: taskType})
	return f.nextID, nil
}

func (f *fakeStore) CreateQuiz(ctx context.Context, taskID int64, question string, possibleAnswers []string, isMultiple bool, answers []int, pictureURL string) error {
	f.quizzes[taskID] = answers
	return nil
}

func (f *fakeStore) CreateMatch(ctx context.Context, taskID int64, question string, leftItems, rightItems []string, answers []int) error {
	return nil
}

func (f *fakeStore) CreateLecture(ctx context.Context, taskID int64, text, pictureURL, videoURL string) error {
	return nil
}

func (f *fakeStore) CreatePrompt(ctx context.Context, taskID int64, question, additionalPrompt string, maxAttempts int) error {
	f.prompts[taskID] = maxAttempts
	return nil
}

func TestLoadValidPack(t *testing.T) {
	pack, err := Load(writePack(t, samplePack))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(pack.Modules) != 2 {
		t.Fatalf("got %d modules, want 2", len(pack.Modules))
	}
	if len(pack.Modules[0].Tasks) != 3 {
		t.Errorf("module 1 has %d tasks, want 3", len(pack.Modules[0].Tasks))
	}
}

func TestLoadRejectsInvalidPacks(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty pack", `modules: []`},
		{"unknown type", "modules:\n  - module_id: 1\n    tasks:\n      - title: t\n        type: ESSAY\n        lecture:\n          text: x\n"},
		{"missing body", "modules:\n  - module_id: 1\n    tasks:\n      - title: t\n        type: QUIZ\n"},
		{"body type mismatch", "modules:\n  - module_id: 1\n    tasks:\n      - title: t\n        type: QUIZ\n        lecture:\n          text: x\n"},
		{"quiz without answers", "modules:\n  - module_id: 1\n    tasks:\n      - title: t\n        type: QUIZ\n        quiz:\n          question: q\n"},
		{"broken yaml", `modules: [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writePack(t, tt.content)); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}

func TestApply(t *testing.T) {
	pack, err := Load(writePack(t, samplePack))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	store := newFakeStore()
	if err := Apply(context.Background(), store, pack, nil); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(store.tasks) != 4 {
		t.Fatalf("created %d tasks, want 4", len(store.tasks))
	}
	if store.tasks[0].taskType != domain.TaskLecture || store.tasks[0].moduleID != 1 {
		t.Errorf("first task = %+v", store.tasks[0])
	}
	if store.tasks[3].moduleID != 2 {
		t.Errorf("last task module = %d, want 2", store.tasks[3].moduleID)
	}

	// Quiz answer vector and prompt ceiling reach their typed bodies.
	if got := store.quizzes[2]; len(got) != 3 || got[0] != 1 {
		t.Errorf("quiz answers = %v, want [1 0 1]", got)
	}
	if got := store.prompts[3]; got != 5 {
		t.Errorf("prompt max attempts = %d, want 5", got)
	}
}

func TestApplyDefaultsPromptCeiling(t *testing.T) {
	content := "modules:\n  - module_id: 1\n    tasks:\n      - title: p\n        type: PROMPT\n        prompt:\n          question: q\n"
	pack, err := Load(writePack(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	store := newFakeStore()
	if err := Apply(context.Background(), store, pack, nil); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := store.prompts[1]; got != 3 {
		t.Errorf("prompt max attempts = %d, want default 3", got)
	}
}
