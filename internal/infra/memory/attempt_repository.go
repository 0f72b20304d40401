package memory

import (
	"context"
	"sort"

	"quiz-platform/internal/domain"
)

type AttemptRepository struct {
	s *Store
}

func (r *AttemptRepository) Create(_ context.Context, a *domain.QuizAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.quizzes[a.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	if a.Status == domain.AttemptInProgress {
		for _, other := range r.s.attempts {
			if other.UserID == a.UserID && other.QuizID == a.QuizID && other.Status == domain.AttemptInProgress {
				return domain.ErrAttemptActive
			}
		}
	}
	stored := *a
	stored.UserAnswers = nil
	r.s.attempts[a.ID] = stored
	return nil
}

func (r *AttemptRepository) UpdateInProgress(_ context.Context, a *domain.QuizAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.updateInProgressLocked(a)
}

func (r *AttemptRepository) Finish(_ context.Context, a *domain.QuizAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[a.UserID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if err := r.updateInProgressLocked(a); err != nil {
		return err
	}
	if a.Score != nil {
		u.TotalScore += *a.Score
	}
	r.s.users[a.UserID] = u
	return nil
}

func (r *AttemptRepository) updateInProgressLocked(a *domain.QuizAttempt) error {
	current, ok := r.s.attempts[a.ID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if current.Status != domain.AttemptInProgress {
		return domain.ErrAttemptNotInProgress
	}
	stored := *a
	stored.UserAnswers = nil
	r.s.attempts[a.ID] = stored
	return nil
}

func (r *AttemptRepository) FindByID(_ context.Context, id string) (domain.QuizAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.attempts[id]
	if !ok {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	a.UserAnswers = r.answersLocked(id)
	return a, nil
}

func (r *AttemptRepository) FindInProgress(_ context.Context, userID, quizID string) (domain.QuizAttempt, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var (
		found domain.QuizAttempt
		ok    bool
	)
	for _, a := range r.s.attempts {
		if a.UserID != userID || a.QuizID != quizID || a.Status != domain.AttemptInProgress {
			continue
		}
		if !ok || a.StartedAt.After(found.StartedAt) {
			found, ok = a, true
		}
	}
	if ok {
		found.UserAnswers = r.answersLocked(found.ID)
	}
	return found, ok, nil
}

func (r *AttemptRepository) CountByStatus(_ context.Context, userID, quizID string, statuses []domain.AttemptStatus) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, a := range r.s.attempts {
		if a.UserID == userID && a.QuizID == quizID && hasStatus(statuses, a.Status) {
			n++
		}
	}
	return n, nil
}

func (r *AttemptRepository) List(_ context.Context, f domain.AttemptFilter) ([]domain.QuizAttempt, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := sortedValues(r.s.attempts, func(a, b domain.QuizAttempt) bool {
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.After(b.StartedAt)
		}
		return a.ID < b.ID
	})
	var matched []domain.QuizAttempt
	for _, a := range all {
		if (f.UserID != "" && a.UserID != f.UserID) ||
			(f.QuizID != "" && a.QuizID != f.QuizID) ||
			(f.Status != "" && a.Status != f.Status) {
			continue
		}
		matched = append(matched, a)
	}
	page := paginate(matched, f.Page)
	for i := range page {
		page[i].UserAnswers = r.answersLocked(page[i].ID)
	}
	return page, len(matched), nil
}

func (r *AttemptRepository) SaveAnswer(_ context.Context, ua *domain.UserAnswer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	attempt, ok := r.s.attempts[ua.AttemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.ErrAttemptNotInProgress
	}
	for id, existing := range r.s.userAnswers {
		if existing.AttemptID == ua.AttemptID && existing.QuestionID == ua.QuestionID {
			delete(r.s.userAnswers, id)
		}
	}
	stored := *ua
	stored.AnswerIDs = cloneStrings(ua.AnswerIDs)
	r.s.userAnswers[ua.ID] = stored
	return nil
}

func (r *AttemptRepository) AveragePercentage(_ context.Context, quizID string) (*float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var (
		sum float64
		n   int
	)
	for _, a := range r.s.attempts {
		if a.QuizID == quizID && hasStatus(domain.ScoredAttemptStatuses, a.Status) && a.Percentage != nil {
			sum += *a.Percentage
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := sum / float64(n)
	return &avg, nil
}

func (r *AttemptRepository) CountCompleted(_ context.Context, userID, categoryID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, a := range r.s.attempts {
		if a.UserID != userID || a.Status != domain.AttemptCompleted {
			continue
		}
		if categoryID != "" && r.s.quizzes[a.QuizID].CategoryID != categoryID {
			continue
		}
		n++
	}
	return n, nil
}

func (r *AttemptRepository) QuestionStats(_ context.Context, quizID string) ([]domain.QuestionStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	questions := (&QuestionRepository{s: r.s}).byQuizLocked(quizID)
	stats := make([]domain.QuestionStats, 0, len(questions))
	index := make(map[string]int, len(questions))
	for i, q := range questions {
		index[q.ID] = i
		stats = append(stats, domain.QuestionStats{QuestionID: q.ID, Question: q.Text})
	}
	for _, ua := range r.s.userAnswers {
		i, ok := index[ua.QuestionID]
		if !ok || r.s.attempts[ua.AttemptID].Status != domain.AttemptCompleted {
			continue
		}
		stats[i].TotalAnswers++
		if ua.IsCorrect {
			stats[i].CorrectAnswers++
		}
	}
	return stats, nil
}

func (r *AttemptRepository) answersLocked(attemptID string) []domain.UserAnswer {
	out := []domain.UserAnswer{}
	for _, ua := range r.s.userAnswers {
		if ua.AttemptID == attemptID {
			ua.AnswerIDs = cloneStrings(ua.AnswerIDs)
			out = append(out, ua)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func hasStatus(statuses []domain.AttemptStatus, s domain.AttemptStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}
