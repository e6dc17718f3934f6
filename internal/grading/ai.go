package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
	"github.com/teoneo-site/teoneo-courses/internal/grader"
)

// PassThreshold is the minimum verdict score that counts as SUCCESS for
// AI-graded prompts. Earlier revisions disagreed between 0.3 and 0.4; 0.4
// is canonical.
const PassThreshold = 0.4

// promptTemplate is the grading instruction sent to the AI service. The
// service must reply with bare JSON carrying score, reply and feedback.
const promptTemplate = `Ты выступаешь как система оценки качества промптов для ИИ. Пользователь должен был написать промпт, соответствующий заданной задаче. Вот описание задачи:

{question}

Вот промпт, написанный пользователем (ТЫ ДОЛЖЕН ОЦЕНИВАТЬ ЕГО):
{user_prompt}

(Дополнительный контекст, который следует учитывать при оценке промпта:
{additional_prompt})

Оцени этот промпт по следующим критериям:
1. Насколько чётко и конкретно сформулирована задача.
2. Соответствует ли промпт цели задания.
3. Содержит ли промпт необходимую структуру, ключевые слова или примеры.
4. Есть ли грамматические или логические ошибки.
5. Насколько он эффективен с точки зрения получения правильного ответа от ИИ.

Верни ответ в формате JSON без лишних символов:
{
  "score": <число от 0.0 до 1.0, где 0 - 0%, 1.0 - 100%>,
  "reply": "<ответ на промпт пользователя>",
  "feedback": "<краткий текстовый отзыв>"
}`

// AI delegates free-text prompt grading to the external AI service and maps
// its verdict onto a terminal outcome.
type AI struct {
	client grader.Client
}

// NewAI creates the AI-delegated strategy over a grading client.
func NewAI(client grader.Client) *AI {
	return &AI{client: client}
}

// aiSubmission is the structured payload prompt-task clients send.
type aiSubmission struct {
	UserPrompt string `json:"user_prompt"`
}

// Verdict is the structured reply expected from the grading service.
type Verdict struct {
	Score    float64 `json:"score"`
	Reply    string  `json:"reply"`
	Feedback string  `json:"feedback"`
}

func (a *AI) Grade(ctx context.Context, submission json.RawMessage, key *domain.AnswerKey) (*domain.Outcome, error) {
	var sub aiSubmission
	if err := json.Unmarshal(submission, &sub); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSubmission, err)
	}

	reply, err := a.client.Send(ctx, BuildPrompt(key, sub.UserPrompt))
	if err != nil {
		return nil, err
	}

	verdict, err := ParseVerdict(reply)
	if err != nil {
		return nil, err
	}

	record, err := json.Marshal(map[string]string{
		"reply":    verdict.Reply,
		"feedback": verdict.Feedback,
	})
	if err != nil {
		return nil, fmt.Errorf("serialize verdict: %w", err)
	}

	status := domain.StatusSuccess
	if verdict.Score < PassThreshold {
		status = domain.StatusFailed
	}

	return &domain.Outcome{
		Status:        status,
		Score:         verdict.Score,
		Submission:    record,
		AttemptsDelta: 1,
	}, nil
}

// BuildPrompt renders the grading instruction for one submission.
func BuildPrompt(key *domain.AnswerKey, userPrompt string) string {
	additional := key.AdditionalPrompt
	if additional == "" {
		additional = "Нет доп. промпта"
	}

	r := strings.NewReplacer(
		"{question}", key.Question,
		"{user_prompt}", userPrompt,
		"{additional_prompt}", additional,
	)
	return r.Replace(promptTemplate)
}

// ParseVerdict extracts the structured verdict from the AI reply. Models
// routinely wrap JSON in code fences or prose despite instructions, so the
// parser cuts to the outermost JSON object before unmarshaling.
func ParseVerdict(reply string) (*Verdict, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in reply", domain.ErrMalformedVerdict)
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(reply[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedVerdict, err)
	}
	if verdict.Score < 0 || verdict.Score > 1 {
		return nil, fmt.Errorf("%w: score %v out of range", domain.ErrMalformedVerdict, verdict.Score)
	}
	return &verdict, nil
}

// Ensure AI implements Strategy
var _ Strategy = (*AI)(nil)
