package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

// TaskStore serves the task catalog and the grading reference data
// (answer keys, prompt details, attempt ceilings).
type TaskStore struct {
	db *DB
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

// TaskType resolves the grading strategy selector for a task.
func (s *TaskStore) TaskType(ctx context.Context, taskID int64) (domain.TaskType, error) {
	var raw string
	err := s.db.pool.QueryRow(ctx, `SELECT type FROM tasks WHERE id = $1`, taskID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrTaskNotFound
		}
		return "", fmt.Errorf("task type: %w", err)
	}
	return domain.ParseTaskType(raw)
}

// AnswerKey loads the grading reference data for a task. Quiz and match
// tasks carry the canonical answer vector; prompt tasks carry the question,
// the optional grading hint, and the attempt ceiling.
func (s *TaskStore) AnswerKey(ctx context.Context, taskType domain.TaskType, taskID int64) (*domain.AnswerKey, error) {
	key := &domain.AnswerKey{TaskID: taskID, Type: taskType}

	switch taskType {
	case domain.TaskQuiz, domain.TaskMatch:
		table := "quizzes"
		if taskType == domain.TaskMatch {
			table = "matches"
		}
		var raw string
		err := s.db.pool.QueryRow(ctx,
			`SELECT answers FROM `+table+` WHERE task_id = $1`, taskID,
		).Scan(&raw)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrAnswerKeyNotFound
			}
			return nil, fmt.Errorf("answer key: %w", err)
		}
		key.Answers = domain.ParseAnswerVector(raw)

	case domain.TaskPrompt:
		var additional *string
		err := s.db.pool.QueryRow(ctx,
			`SELECT question, additional_prompt, max_attempts FROM prompts WHERE task_id = $1`, taskID,
		).Scan(&key.Question, &additional, &key.MaxAttempts)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrAnswerKeyNotFound
			}
			return nil, fmt.Errorf("prompt details: %w", err)
		}
		if additional != nil {
			key.AdditionalPrompt = *additional
		}

	default:
		return nil, fmt.Errorf("%w: no answer key for %s tasks", domain.ErrAnswerKeyNotFound, taskType)
	}

	return key, nil
}

// TasksForModule lists the module's tasks. When userID is non-nil each entry
// carries that user's progress status.
func (s *TaskStore) TasksForModule(ctx context.Context, moduleID int64, userID *int64) ([]domain.TaskShortInfo, error) {
	var rows pgx.Rows
	var err error
	if userID != nil {
		rows, err = s.db.pool.Query(ctx, `
			SELECT t.id, t.title, t.type, tp.status
			FROM tasks t
			LEFT JOIN task_progress tp ON tp.task_id = t.id AND tp.user_id = $1
			WHERE t.module_id = $2
			ORDER BY t.id`,
			*userID, moduleID,
		)
	} else {
		rows, err = s.db.pool.Query(ctx, `
			SELECT id, title, type, NULL::text
			FROM tasks
			WHERE module_id = $1
			ORDER BY id`,
			moduleID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("tasks for module: %w", err)
	}
	defer rows.Close()

	var result []domain.TaskShortInfo
	for rows.Next() {
		var info domain.TaskShortInfo
		var rawType string
		var rawStatus *string
		if err := rows.Scan(&info.ID, &info.Title, &rawType, &rawStatus); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		info.ModuleID = moduleID
		if info.Type, err = domain.ParseTaskType(rawType); err != nil {
			return nil, err
		}
		if rawStatus != nil {
			status, err := domain.ParseProgressStatus(*rawStatus)
			if err != nil {
				return nil, err
			}
			info.Status = &status
		}
		result = append(result, info)
	}
	return result, rows.Err()
}

// Task loads the full task detail including the type-specific content body.
// Canonical answers never leave the store through this path. When userID is
// non-nil the caller's own status and score are embedded.
func (s *TaskStore) Task(ctx context.Context, moduleID, taskID int64, userID *int64) (*domain.Task, error) {
	task := &domain.Task{ID: taskID, ModuleID: moduleID}

	var rawType string
	err := s.db.pool.QueryRow(ctx,
		`SELECT title, type FROM tasks WHERE id = $1 AND module_id = $2`, taskID, moduleID,
	).Scan(&task.Title, &rawType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.Type, err = domain.ParseTaskType(rawType); err != nil {
		return nil, err
	}

	if task.Content, err = s.taskContent(ctx, task.Type, taskID); err != nil {
		return nil, err
	}

	if userID != nil {
		var rawStatus string
		var score float64
		err := s.db.pool.QueryRow(ctx,
			`SELECT status, score FROM task_progress WHERE user_id = $1 AND task_id = $2`,
			*userID, taskID,
		).Scan(&rawStatus, &score)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// no progress yet, nothing to embed
		case err != nil:
			return nil, fmt.Errorf("task progress embed: %w", err)
		default:
			status, err := domain.ParseProgressStatus(rawStatus)
			if err != nil {
				return nil, err
			}
			task.Status = &status
			task.Score = &score
		}
	}

	return task, nil
}

// taskContent builds the task-type-specific content body.
func (s *TaskStore) taskContent(ctx context.Context, taskType domain.TaskType, taskID int64) (json.RawMessage, error) {
	var content any

	switch taskType {
	case domain.TaskQuiz:
		var question, possible string
		var isMultiple bool
		err := s.db.pool.QueryRow(ctx,
			`SELECT question, possible_answers, is_multiple FROM quizzes WHERE task_id = $1`, taskID,
		).Scan(&question, &possible, &isMultiple)
		if err != nil {
			return nil, fmt.Errorf("quiz content: %w", err)
		}
		content = map[string]any{
			"question":         question,
			"possible_answers": strings.Split(possible, ";"),
			"is_multiple":      isMultiple,
		}

	case domain.TaskLecture:
		var text string
		err := s.db.pool.QueryRow(ctx,
			`SELECT text FROM lectures WHERE task_id = $1`, taskID,
		).Scan(&text)
		if err != nil {
			return nil, fmt.Errorf("lecture content: %w", err)
		}
		content = map[string]any{"text": text}

	case domain.TaskMatch:
		var question, left, right string
		err := s.db.pool.QueryRow(ctx,
			`SELECT question, left_items, right_items FROM matches WHERE task_id = $1`, taskID,
		).Scan(&question, &left, &right)
		if err != nil {
			return nil, fmt.Errorf("match content: %w", err)
		}
		content = map[string]any{
			"question":    question,
			"left_items":  strings.Split(left, ";"),
			"right_items": strings.Split(right, ";"),
		}

	case domain.TaskPrompt:
		var question string
		var maxAttempts int
		err := s.db.pool.QueryRow(ctx,
			`SELECT question, max_attempts FROM prompts WHERE task_id = $1`, taskID,
		).Scan(&question, &maxAttempts)
		if err != nil {
			return nil, fmt.Errorf("prompt content: %w", err)
		}
		content = map[string]any{
			"question":     question,
			"max_attempts": maxAttempts,
		}
	}

	return json.Marshal(content)
}

// UserStats aggregates the user's passed tasks across the whole catalog.
func (s *TaskStore) UserStats(ctx context.Context, userID int64) (*domain.UserStats, error) {
	stats := &domain.UserStats{UserID: userID}

	err := s.db.pool.QueryRow(ctx, `SELECT count(*) FROM tasks`).Scan(&stats.TasksTotal)
	if err != nil {
		return nil, fmt.Errorf("tasks total: %w", err)
	}

	err = s.db.pool.QueryRow(ctx,
		`SELECT count(*) FROM task_progress WHERE user_id = $1 AND status = 'SUCCESS'`, userID,
	).Scan(&stats.TasksPassed)
	if err != nil {
		return nil, fmt.Errorf("tasks passed: %w", err)
	}

	return stats, nil
}

// CreateTask provisions a catalog row; used by the seed loader.
func (s *TaskStore) CreateTask(ctx context.Context, moduleID int64, title string, taskType domain.TaskType) (int64, error) {
	var id int64
	err := s.db.pool.QueryRow(ctx,
		`INSERT INTO tasks (module_id, title, type) VALUES ($1, $2, $3) RETURNING id`,
		moduleID, title, string(taskType),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	return id, nil
}

// CreateQuiz attaches a quiz body and answer key to a task.
func (s *TaskStore) CreateQuiz(ctx context.Context, taskID int64, question string, possibleAnswers []string, isMultiple bool, answers []int, pictureURL string) error {
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO quizzes (task_id, question, possible_answers, is_multiple, answers, picture_url)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		taskID, question, strings.Join(possibleAnswers, ";"), isMultiple, joinAnswers(answers), pictureURL,
	)
	if err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

// CreateMatch attaches a matching body and answer key to a task.
func (s *TaskStore) CreateMatch(ctx context.Context, taskID int64, question string, leftItems, rightItems []string, answers []int) error {
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO matches (task_id, question, left_items, right_items, answers)
		 VALUES ($1, $2, $3, $4, $5)`,
		taskID, question, strings.Join(leftItems, ";"), strings.Join(rightItems, ";"), joinAnswers(answers),
	)
	if err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

// CreateLecture attaches lecture material to a task.
func (s *TaskStore) CreateLecture(ctx context.Context, taskID int64, text, pictureURL, videoURL string) error {
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO lectures (task_id, text, picture_url, video_url) VALUES ($1, $2, $3, $4)`,
		taskID, text, pictureURL, videoURL,
	)
	if err != nil {
		return fmt.Errorf("create lecture: %w", err)
	}
	return nil
}

// CreatePrompt attaches an AI-graded prompt task's question and ceiling.
func (s *TaskStore) CreatePrompt(ctx context.Context, taskID int64, question, additionalPrompt string, maxAttempts int) error {
	var additional *string
	if additionalPrompt != "" {
		additional = &additionalPrompt
	}
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO prompts (task_id, question, additional_prompt, max_attempts) VALUES ($1, $2, $3, $4)`,
		taskID, question, additional, maxAttempts,
	)
	if err != nil {
		return fmt.Errorf("create prompt: %w", err)
	}
	return nil
}

func joinAnswers(answers []int) string {
	parts := make([]string, len(answers))
	for i, a := range answers {
		parts[i] = fmt.Sprintf("%d", a)
	}
	return strings.Join(parts, ";")
}
