// Package seed provisions the task catalog from a YAML pack file. Packs are
// operator-authored fixtures: a list of modules, each with typed tasks and
// their grading reference data.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

// Store is the provisioning surface of the relational store.
type Store interface {
	CreateTask(ctx context.Context, moduleID int64, title string, taskType domain.TaskType) (int64, error)
	CreateQuiz(ctx context.Context, taskID int64, question string, possibleAnswers []string, isMultiple bool, answers []int, pictureURL string) error
	CreateMatch(ctx context.Context, taskID int64, question string, leftItems, rightItems []string, answers []int) error
	CreateLecture(ctx context.Context, taskID int64, text, pictureURL, videoURL string) error
	CreatePrompt(ctx context.Context, taskID int64, question, additionalPrompt string, maxAttempts int) error
}

// Pack is one parsed seed file.
type Pack struct {
	Modules []Module `yaml:"modules"`
}

// Module groups tasks under one catalog module.
type Module struct {
	ModuleID int64  `yaml:"module_id"`
	Tasks    []Task `yaml:"tasks"`
}

// Task is one seeded task. Exactly one of the typed bodies must be set, and
// it must match Type.
type Task struct {
	Title string `yaml:"title"`
	Type  string `yaml:"type"`

	Quiz    *Quiz    `yaml:"quiz,omitempty"`
	Match   *Match   `yaml:"match,omitempty"`
	Lecture *Lecture `yaml:"lecture,omitempty"`
	Prompt  *Prompt  `yaml:"prompt,omitempty"`
}

type Quiz struct {
	Question        string   `yaml:"question"`
	PossibleAnswers []string `yaml:"possible_answers"`
	IsMultiple      bool     `yaml:"is_multiple"`
	Answers         []int    `yaml:"answers"`
	PictureURL      string   `yaml:"picture_url,omitempty"`
}

type Match struct {
	Question   string   `yaml:"question"`
	LeftItems  []string `yaml:"left_items"`
	RightItems []string `yaml:"right_items"`
	Answers    []int    `yaml:"answers"`
}

type Lecture struct {
	Text       string `yaml:"text"`
	PictureURL string `yaml:"picture_url,omitempty"`
	VideoURL   string `yaml:"video_url,omitempty"`
}

type Prompt struct {
	Question         string `yaml:"question"`
	AdditionalPrompt string `yaml:"additional_prompt,omitempty"`
	MaxAttempts      int    `yaml:"max_attempts,omitempty"`
}

// Load reads and validates a pack file.
func Load(path string) (*Pack, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pack: %w", err)
	}

	var pack Pack
	if err := yaml.Unmarshal(content, &pack); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := pack.Validate(); err != nil {
		return nil, err
	}
	return &pack, nil
}

// Validate checks every task for a known type and a matching body.
func (p *Pack) Validate() error {
	if len(p.Modules) == 0 {
		return fmt.Errorf("pack has no modules")
	}
	for _, module := range p.Modules {
		if module.ModuleID <= 0 {
			return fmt.Errorf("module_id must be positive, got %d", module.ModuleID)
		}
		for i, task := range module.Tasks {
			if err := task.validate(); err != nil {
				return fmt.Errorf("module %d task %d (%q): %w", module.ModuleID, i, task.Title, err)
			}
		}
	}
	return nil
}

func (t *Task) validate() error {
	taskType, err := domain.ParseTaskType(t.Type)
	if err != nil {
		return err
	}
	if t.Title == "" {
		return fmt.Errorf("title required")
	}

	bodies := 0
	for _, set := range []bool{t.Quiz != nil, t.Match != nil, t.Lecture != nil, t.Prompt != nil} {
		if set {
			bodies++
		}
	}
	if bodies != 1 {
		return fmt.Errorf("exactly one task body required, got %d", bodies)
	}

	var match bool
	switch taskType {
	case domain.TaskQuiz:
		match = t.Quiz != nil
	case domain.TaskMatch:
		match = t.Match != nil
	case domain.TaskLecture:
		match = t.Lecture != nil
	case domain.TaskPrompt:
		match = t.Prompt != nil
	}
	if !match {
		return fmt.Errorf("body does not match type %s", taskType)
	}

	if t.Quiz != nil && len(t.Quiz.Answers) == 0 {
		return fmt.Errorf("quiz requires an answer vector")
	}
	if t.Match != nil && len(t.Match.Answers) == 0 {
		return fmt.Errorf("match requires an answer vector")
	}
	if t.Prompt != nil && t.Prompt.Question == "" {
		return fmt.Errorf("prompt requires a question")
	}
	return nil
}

// Apply writes the pack into the store. Tasks are created in file order so
// reruns against an empty database are deterministic.
func Apply(ctx context.Context, store Store, pack *Pack, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	created := 0
	for _, module := range pack.Modules {
		for _, task := range module.Tasks {
			taskType, err := domain.ParseTaskType(task.Type)
			if err != nil {
				return err
			}

			taskID, err := store.CreateTask(ctx, module.ModuleID, task.Title, taskType)
			if err != nil {
				return fmt.Errorf("create task %q: %w", task.Title, err)
			}

			switch taskType {
			case domain.TaskQuiz:
				err = store.CreateQuiz(ctx, taskID, task.Quiz.Question, task.Quiz.PossibleAnswers, task.Quiz.IsMultiple, task.Quiz.Answers, task.Quiz.PictureURL)
			case domain.TaskMatch:
				err = store.CreateMatch(ctx, taskID, task.Match.Question, task.Match.LeftItems, task.Match.RightItems, task.Match.Answers)
			case domain.TaskLecture:
				err = store.CreateLecture(ctx, taskID, task.Lecture.Text, task.Lecture.PictureURL, task.Lecture.VideoURL)
			case domain.TaskPrompt:
				maxAttempts := task.Prompt.MaxAttempts
				if maxAttempts <= 0 {
					maxAttempts = 3
				}
				err = store.CreatePrompt(ctx, taskID, task.Prompt.Question, task.Prompt.AdditionalPrompt, maxAttempts)
			}
			if err != nil {
				return fmt.Errorf("create %s body for task %q: %w", taskType, task.Title, err)
			}

			created++
			logger.Debug("seeded task", "module_id", module.ModuleID, "task_id", taskID, "type", taskType)
		}
	}

	logger.Info("seed applied", "modules", len(pack.Modules), "tasks", created)
	return nil
}
