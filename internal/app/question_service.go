package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quiz-platform/internal/domain"
)

type AnswerInput struct {
	Text      string
	IsCorrect bool
	Order     *int
}

type QuestionInput struct {
	QuizID      string
	Type        domain.QuestionType
	Text        string
	Explanation string
	Points      *int
	TimeLimit   *int
	Order       *int
	IsRequired  *bool
	Answers     []AnswerInput
}

// QuestionPatch updates the non-nil fields. A non-nil Answers replaces the whole answer list.
type QuestionPatch struct {
	Type        *domain.QuestionType
	Text        *string
	Explanation *string
	Points      *int
	TimeLimit   *int
	Order       *int
	IsRequired  *bool
	Answers     *[]AnswerInput
}

type QuestionService struct {
	questions QuestionRepository
	quizzes   QuizRepository
	keys      AnswerKeyStore
	now       func() time.Time
}

func NewQuestionService(questions QuestionRepository, quizzes QuizRepository, keys AnswerKeyStore) *QuestionService {
	return &QuestionService{questions: questions, quizzes: quizzes, keys: keys, now: time.Now}
}

func (s *QuestionService) List(ctx context.Context, quizID string, page domain.Page) (domain.Paginated[domain.Question], error) {
	if quizID == "" {
		return domain.Paginated[domain.Question]{}, domain.Invalid("Quiz ID is required")
	}
	if _, err := s.quizzes.FindByID(ctx, quizID); err != nil {
		return domain.Paginated[domain.Question]{}, err
	}
	page = page.Normalize()
	items, total, err := s.questions.List(ctx, quizID, page)
	if err != nil {
		return domain.Paginated[domain.Question]{}, err
	}
	return domain.NewPaginated(items, total, page), nil
}

// ForQuiz returns every question of a quiz in order.
func (s *QuestionService) ForQuiz(ctx context.Context, quizID string) ([]domain.Question, error) {
	if _, err := s.quizzes.FindByID(ctx, quizID); err != nil {
		return nil, err
	}
	return s.questions.ListByQuiz(ctx, quizID)
}

func (s *QuestionService) Get(ctx context.Context, id string) (domain.Question, error) {
	return s.questions.FindByID(ctx, id)
}

func (s *QuestionService) Create(ctx context.Context, actor Actor, in QuestionInput) (domain.Question, error) {
	if err := s.ensureAuthor(ctx, actor, in.QuizID); err != nil {
		return domain.Question{}, err
	}

	now := s.now().UTC()
	question := domain.Question{
		ID:          uuid.NewString(),
		QuizID:      in.QuizID,
		Type:        in.Type,
		Text:        in.Text,
		Explanation: in.Explanation,
		Points:      1,
		TimeLimit:   in.TimeLimit,
		IsRequired:  true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	question.Answers = buildAnswers(question.ID, in.Answers)
	if err := validateAnswers(question.Type, question.Answers); err != nil {
		return domain.Question{}, err
	}
	if in.Points != nil {
		question.Points = *in.Points
	}
	if in.IsRequired != nil {
		question.IsRequired = *in.IsRequired
	}
	if in.Order != nil {
		question.Order = *in.Order
	} else {
		maxOrder, err := s.questions.MaxOrder(ctx, in.QuizID)
		if err != nil {
			return domain.Question{}, err
		}
		question.Order = maxOrder + 1
	}

	if err := s.questions.Create(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	if err := s.keys.Invalidate(ctx, in.QuizID); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *QuestionService) Update(ctx context.Context, actor Actor, id string, patch QuestionPatch) (domain.Question, error) {
	question, err := s.questions.FindByID(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	if err := s.ensureAuthor(ctx, actor, question.QuizID); err != nil {
		return domain.Question{}, err
	}

	typeChanged := patch.Type != nil && *patch.Type != question.Type
	if patch.Type != nil {
		question.Type = *patch.Type
	}
	if patch.Answers != nil {
		question.Answers = buildAnswers(question.ID, *patch.Answers)
	}
	if patch.Answers != nil || typeChanged {
		if err := validateAnswers(question.Type, question.Answers); err != nil {
			return domain.Question{}, err
		}
	}
	if patch.Text != nil {
		question.Text = *patch.Text
	}
	if patch.Explanation != nil {
		question.Explanation = *patch.Explanation
	}
	if patch.Points != nil {
		question.Points = *patch.Points
	}
	if patch.TimeLimit != nil {
		question.TimeLimit = patch.TimeLimit
	}
	if patch.Order != nil {
		question.Order = *patch.Order
	}
	if patch.IsRequired != nil {
		question.IsRequired = *patch.IsRequired
	}
	question.UpdatedAt = s.now().UTC()

	if err := s.questions.Update(ctx, &question, patch.Answers != nil); err != nil {
		return domain.Question{}, err
	}
	if err := s.keys.Invalidate(ctx, question.QuizID); err != nil {
		return domain.Question{}, err
	}
	return s.questions.FindByID(ctx, id)
}

func (s *QuestionService) Delete(ctx context.Context, actor Actor, id string) (domain.Question, error) {
	question, err := s.questions.FindByID(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	if err := s.ensureAuthor(ctx, actor, question.QuizID); err != nil {
		return domain.Question{}, err
	}
	if err := s.questions.Delete(ctx, question); err != nil {
		return domain.Question{}, err
	}
	if err := s.keys.Invalidate(ctx, question.QuizID); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

// Reorder sets question orders to follow orderedIDs, starting at 1.
func (s *QuestionService) Reorder(ctx context.Context, actor Actor, quizID string, orderedIDs []string) ([]domain.Question, error) {
	if err := s.ensureAuthor(ctx, actor, quizID); err != nil {
		return nil, err
	}
	existing, err := s.questions.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	belongs := make(map[string]bool, len(existing))
	for _, q := range existing {
		belongs[q.ID] = true
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !belongs[id] {
			return nil, domain.Invalidf("Question with ID %s not found in quiz", id)
		}
		if seen[id] {
			return nil, domain.Invalidf("Question with ID %s listed more than once", id)
		}
		seen[id] = true
	}

	if err := s.questions.Reorder(ctx, quizID, orderedIDs); err != nil {
		return nil, err
	}
	if err := s.keys.Invalidate(ctx, quizID); err != nil {
		return nil, err
	}
	return s.questions.ListByQuiz(ctx, quizID)
}

func (s *QuestionService) ensureAuthor(ctx context.Context, actor Actor, quizID string) error {
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		return err
	}
	if !actor.Owns(quiz.AuthorID) {
		return domain.ErrNotQuizAuthor
	}
	return nil
}

func buildAnswers(questionID string, inputs []AnswerInput) []domain.Answer {
	answers := make([]domain.Answer, 0, len(inputs))
	for i, in := range inputs {
		order := i + 1
		if in.Order != nil {
			order = *in.Order
		}
		answers = append(answers, domain.Answer{
			ID:         uuid.NewString(),
			QuestionID: questionID,
			Text:       in.Text,
			IsCorrect:  in.IsCorrect,
			Order:      order,
		})
	}
	return answers
}
