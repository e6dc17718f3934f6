// Package grading implements the interchangeable graders that turn a
// submission into a terminal outcome: exact-match for quizzes and matching
// tasks, pass-through for lectures, and AI-delegated for free-text prompts.
package grading

import (
	"context"
	"encoding/json"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
	"github.com/teoneo-site/teoneo-courses/internal/grader"
)

// Strategy grades one submission against the task's answer key and produces
// a terminal outcome. Strategies are stateless; the progress service owns
// the surrounding state transitions.
type Strategy interface {
	Grade(ctx context.Context, submission json.RawMessage, key *domain.AnswerKey) (*domain.Outcome, error)
}

// Selector resolves the strategy for a task type.
type Selector struct {
	exactMatch  *ExactMatch
	passThrough *PassThrough
	ai          *AI
}

// NewSelector creates a selector over the three grader variants.
func NewSelector(client grader.Client) *Selector {
	return &Selector{
		exactMatch:  &ExactMatch{},
		passThrough: &PassThrough{},
		ai:          NewAI(client),
	}
}

// ForType returns the strategy graded tasks of the given type use.
func (s *Selector) ForType(taskType domain.TaskType) Strategy {
	switch taskType {
	case domain.TaskQuiz, domain.TaskMatch:
		return s.exactMatch
	case domain.TaskLecture:
		return s.passThrough
	case domain.TaskPrompt:
		return s.ai
	default:
		return nil
	}
}
