package memory

import (
	"context"
	"sort"

	"quiz-platform/internal/domain"
)

type QuestionRepository struct {
	s *Store
}

func (r *QuestionRepository) Create(_ context.Context, q *domain.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.quizzes[q.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	r.s.questions[q.ID] = cloneQuestion(*q)
	return nil
}

func (r *QuestionRepository) Update(_ context.Context, q *domain.Question, replaceAnswers bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.questions[q.ID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	next := cloneQuestion(*q)
	if !replaceAnswers {
		next.Answers = stored.Answers
	}
	r.s.questions[q.ID] = next
	return nil
}

func (r *QuestionRepository) Delete(_ context.Context, q domain.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.questions[q.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(r.s.questions, q.ID)
	for id, other := range r.s.questions {
		if other.QuizID == q.QuizID && other.Order > q.Order {
			other.Order--
			r.s.questions[id] = other
		}
	}
	for id, ua := range r.s.userAnswers {
		if ua.QuestionID == q.ID {
			delete(r.s.userAnswers, id)
		}
	}
	return nil
}

func (r *QuestionRepository) FindByID(_ context.Context, id string) (domain.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q, ok := r.s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (r *QuestionRepository) ListByQuiz(_ context.Context, quizID string) ([]domain.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.byQuizLocked(quizID), nil
}

func (r *QuestionRepository) List(_ context.Context, quizID string, page domain.Page) ([]domain.Question, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.byQuizLocked(quizID)
	return paginate(all, page), len(all), nil
}

func (r *QuestionRepository) MaxOrder(_ context.Context, quizID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	max := 0
	for _, q := range r.s.questions {
		if q.QuizID == quizID && q.Order > max {
			max = q.Order
		}
	}
	return max, nil
}

func (r *QuestionRepository) Reorder(_ context.Context, quizID string, orderedIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range orderedIDs {
		if q, ok := r.s.questions[id]; !ok || q.QuizID != quizID {
			return domain.ErrQuestionNotFound
		}
	}
	for i, id := range orderedIDs {
		q := r.s.questions[id]
		q.Order = i + 1
		r.s.questions[id] = q
	}
	return nil
}

// LoadAnswerKey assembles the grading view of a quiz from the stored questions.
func (r *QuestionRepository) LoadAnswerKey(_ context.Context, quizID string) (domain.AnswerKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	quiz, ok := r.s.quizzes[quizID]
	if !ok {
		return domain.AnswerKey{}, domain.ErrQuizNotFound
	}
	return domain.AnswerKey{
		QuizID:    quizID,
		TimeLimit: quiz.TimeLimit,
		Questions: r.byQuizLocked(quizID),
	}, nil
}

func (r *QuestionRepository) byQuizLocked(quizID string) []domain.Question {
	out := []domain.Question{}
	for _, q := range r.s.questions {
		if q.QuizID == quizID {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	for i := range out {
		sort.SliceStable(out[i].Answers, func(a, b int) bool {
			return out[i].Answers[a].Order < out[i].Answers[b].Order
		})
	}
	return out
}
