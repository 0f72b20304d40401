package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-platform/internal/domain"
)

func seedQuiz(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	if err := s.Categories().Create(ctx, &domain.Category{ID: "cat-1", Name: "Science", CreatedAt: now}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if err := s.Quizzes().Create(ctx, &domain.Quiz{ID: "quiz-1", Title: "Basics", CategoryID: "cat-1", AuthorID: "u1", CreatedAt: now}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i, id := range []string{"q1", "q2", "q3"} {
		q := domain.Question{ID: id, QuizID: "quiz-1", Type: domain.TrueFalse, Points: 1, Order: i + 1}
		if err := s.Questions().Create(ctx, &q); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
}

func TestQuestionDeleteShiftsOrder(t *testing.T) {
	s := NewStore()
	seedQuiz(t, s)
	ctx := context.Background()
	repo := s.Questions()

	q1, err := repo.FindByID(ctx, "q1")
	if err != nil {
		t.Fatalf("find q1: %v", err)
	}
	if err := repo.Delete(ctx, q1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	remaining, err := repo.ListByQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 2 || remaining[0].ID != "q2" || remaining[0].Order != 1 || remaining[1].Order != 2 {
		t.Fatalf("unexpected orders after delete: %+v", remaining)
	}
}

func TestQuizDecoratesCountsAndTags(t *testing.T) {
	s := NewStore()
	seedQuiz(t, s)
	ctx := context.Background()
	if err := s.Tags().Create(ctx, &domain.Tag{ID: "tag-1", Name: "physics"}); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if err := s.Quizzes().AddTags(ctx, "quiz-1", []string{"tag-1"}); err != nil {
		t.Fatalf("add tags: %v", err)
	}

	quiz, err := s.Quizzes().FindByID(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("find quiz: %v", err)
	}
	if quiz.QuestionsCount != 3 || len(quiz.Tags) != 1 || quiz.Category == nil || quiz.Category.Name != "Science" {
		t.Fatalf("unexpected decorated quiz: %+v", quiz)
	}

	cat, err := s.Categories().FindByID(ctx, "cat-1")
	if err != nil {
		t.Fatalf("find category: %v", err)
	}
	if cat.QuizzesCount != 1 {
		t.Fatalf("expected quizzes count 1, got %d", cat.QuizzesCount)
	}

	if err := s.Quizzes().AddTags(ctx, "quiz-1", []string{"missing"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown tag, got %v", err)
	}
}

func TestUserUniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.Users().Create(ctx, &domain.User{ID: "u1", Email: "a@example.com", Username: "alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Users().Create(ctx, &domain.User{ID: "u2", Email: "A@example.com", Username: "other"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestScoreSourceRanksCompletedAttempts(t *testing.T) {
	s := NewStore()
	seedQuiz(t, s)
	ctx := context.Background()
	done := time.Date(2024, 11, 22, 11, 0, 0, 0, time.UTC)
	attempts := []domain.QuizAttempt{
		{ID: "a1", QuizID: "quiz-1", UserID: "u2", Status: domain.AttemptCompleted, Score: intPtr(3), CompletedAt: &done},
		{ID: "a2", QuizID: "quiz-1", UserID: "u1", Status: domain.AttemptCompleted, Score: intPtr(3), CompletedAt: &done},
		{ID: "a3", QuizID: "quiz-1", UserID: "u3", Status: domain.AttemptTimeExpired, Score: intPtr(9), CompletedAt: &done},
	}
	for i := range attempts {
		if err := s.Attempts().Create(ctx, &attempts[i]); err != nil {
			t.Fatalf("create attempt: %v", err)
		}
	}

	scores, err := s.Scores().CategoryScores(ctx, "cat-1", 10)
	if err != nil {
		t.Fatalf("category scores: %v", err)
	}
	if len(scores) != 2 || scores[0].UserID != "u1" || scores[1].UserID != "u2" {
		t.Fatalf("expected tie broken by user id and expired attempt skipped, got %+v", scores)
	}

	since, err := s.Scores().ScoresSince(ctx, done.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("scores since: %v", err)
	}
	if len(since) != 0 {
		t.Fatalf("expected no scores after window, got %+v", since)
	}
}

func intPtr(v int) *int { return &v }
