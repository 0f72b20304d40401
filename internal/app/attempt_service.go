package app

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quiz-platform/internal/domain"
)

var errAttemptNotActive = domain.Invalid("Quiz attempt is not in progress")

// AttemptService runs quiz attempts: starting, grading submissions and finalizing scores.
type AttemptService struct {
	attempts  AttemptRepository
	quizzes   QuizRepository
	questions QuestionRepository
	keys      AnswerKeyStore
	jobs      JobQueue
	log       zerolog.Logger
	now       func() time.Time
}

func NewAttemptService(
	attempts AttemptRepository,
	quizzes QuizRepository,
	questions QuestionRepository,
	keys AnswerKeyStore,
	jobs JobQueue,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		quizzes:   quizzes,
		questions: questions,
		keys:      keys,
		jobs:      jobs,
		log:       log,
		now:       time.Now,
	}
}

// WithClock replaces the time source; used for deterministic expiry in tests.
func (s *AttemptService) WithClock(now func() time.Time) *AttemptService {
	s.now = now
	return s
}

// Start opens an attempt, or returns the caller's attempt that is still in progress.
func (s *AttemptService) Start(ctx context.Context, actor Actor, quizID string) (domain.QuizAttempt, error) {
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}

	if quiz.MaxAttempts != nil && *quiz.MaxAttempts > 0 {
		used, err := s.attempts.CountByStatus(ctx, actor.UserID, quizID, domain.FinishedAttemptStatuses)
		if err != nil {
			return domain.QuizAttempt{}, err
		}
		if used >= *quiz.MaxAttempts {
			return domain.QuizAttempt{}, domain.Invalidf("Maximum attempts (%d) reached for this quiz", *quiz.MaxAttempts)
		}
	}

	active, ok, err := s.attempts.FindInProgress(ctx, actor.UserID, quizID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if ok {
		return active, nil
	}

	key, err := s.keys.GetAnswerKey(ctx, quizID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	maxScore := key.MaxScore()
	now := s.now().UTC()
	attempt := domain.QuizAttempt{
		ID:        uuid.NewString(),
		QuizID:    quizID,
		UserID:    actor.UserID,
		Status:    domain.AttemptInProgress,
		MaxScore:  &maxScore,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.attempts.Create(ctx, &attempt); err != nil {
		if !errors.Is(err, domain.ErrAttemptActive) {
			return domain.QuizAttempt{}, err
		}
		// a concurrent start won; hand back its attempt
		active, ok, ferr := s.attempts.FindInProgress(ctx, actor.UserID, quizID)
		if ferr != nil {
			return domain.QuizAttempt{}, ferr
		}
		if !ok {
			return domain.QuizAttempt{}, err
		}
		return active, nil
	}
	if err := s.quizzes.IncrementAttempts(ctx, quizID); err != nil {
		return domain.QuizAttempt{}, err
	}
	return attempt, nil
}

// Submit grades one answer. A second submission for the same question replaces the first.
func (s *AttemptService) Submit(ctx context.Context, actor Actor, attemptID string, sub domain.AnswerSubmission) (domain.UserAnswer, error) {
	attempt, err := s.owned(ctx, actor, attemptID)
	if err != nil {
		return domain.UserAnswer{}, err
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.UserAnswer{}, domain.ErrAttemptNotInProgress
	}

	key, err := s.keys.GetAnswerKey(ctx, attempt.QuizID)
	if err != nil {
		return domain.UserAnswer{}, err
	}
	if s.expired(attempt, key) {
		if _, err := s.finalize(ctx, attempt, domain.AttemptTimeExpired, nil); err != nil {
			return domain.UserAnswer{}, err
		}
		return domain.UserAnswer{}, domain.ErrAttemptExpired
	}

	question, ok := key.Question(sub.QuestionID)
	if !ok {
		if _, err := s.questions.FindByID(ctx, sub.QuestionID); err != nil {
			return domain.UserAnswer{}, err
		}
		return domain.UserAnswer{}, domain.Invalid("Question does not belong to this quiz")
	}

	grade, err := gradeSubmission(question, sub)
	if err != nil {
		return domain.UserAnswer{}, err
	}

	now := s.now().UTC()
	answer := domain.UserAnswer{
		ID:           uuid.NewString(),
		AttemptID:    attempt.ID,
		QuestionID:   question.ID,
		IsCorrect:    grade.Correct,
		PointsEarned: grade.Points,
		TimeSpent:    sub.TimeSpent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, prev := range attempt.UserAnswers {
		if prev.QuestionID == question.ID {
			answer.ID = prev.ID
			answer.CreatedAt = prev.CreatedAt
			break
		}
	}
	switch {
	case question.Type == domain.MultipleChoice:
		answer.AnswerIDs = dedupe(sub.AnswerIDs)
		answer.AnswerID = &answer.AnswerIDs[0]
	case question.Type.TextGraded():
		text := strings.TrimSpace(sub.TextAnswer)
		answer.TextAnswer = &text
	default:
		id := sub.AnswerID
		answer.AnswerID = &id
	}

	if err := s.attempts.SaveAnswer(ctx, &answer); err != nil {
		return domain.UserAnswer{}, err
	}
	return answer, nil
}

func (s *AttemptService) Complete(ctx context.Context, actor Actor, attemptID string, timeSpent *int) (domain.QuizAttempt, error) {
	return s.finish(ctx, actor, attemptID, domain.AttemptCompleted, timeSpent)
}

// Expire closes an attempt whose time ran out; scoring is the same as Complete.
func (s *AttemptService) Expire(ctx context.Context, actor Actor, attemptID string, timeSpent *int) (domain.QuizAttempt, error) {
	return s.finish(ctx, actor, attemptID, domain.AttemptTimeExpired, timeSpent)
}

func (s *AttemptService) Pause(ctx context.Context, actor Actor, attemptID string, timeSpent int) (domain.QuizAttempt, error) {
	attempt, err := s.owned(ctx, actor, attemptID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.QuizAttempt{}, errAttemptNotActive
	}
	attempt.TimeSpent = &timeSpent
	attempt.UpdatedAt = s.now().UTC()
	if err := s.attempts.UpdateInProgress(ctx, &attempt); err != nil {
		return domain.QuizAttempt{}, notActive(err)
	}
	return attempt, nil
}

func (s *AttemptService) Abandon(ctx context.Context, actor Actor, attemptID string) (domain.QuizAttempt, error) {
	attempt, err := s.owned(ctx, actor, attemptID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.QuizAttempt{}, errAttemptNotActive
	}
	attempt.Status = domain.AttemptAbandoned
	attempt.UpdatedAt = s.now().UTC()
	if err := s.attempts.UpdateInProgress(ctx, &attempt); err != nil {
		return domain.QuizAttempt{}, notActive(err)
	}
	return attempt, nil
}

func (s *AttemptService) Get(ctx context.Context, actor Actor, attemptID string) (domain.QuizAttempt, error) {
	return s.owned(ctx, actor, attemptID)
}

// List returns attempts; non-admin callers only ever see their own.
func (s *AttemptService) List(ctx context.Context, actor Actor, f domain.AttemptFilter) (domain.Paginated[domain.QuizAttempt], error) {
	if !actor.IsAdmin {
		f.UserID = actor.UserID
	}
	f.Page = f.Page.Normalize()
	items, total, err := s.attempts.List(ctx, f)
	if err != nil {
		return domain.Paginated[domain.QuizAttempt]{}, err
	}
	return domain.NewPaginated(items, total, f.Page), nil
}

// QuestionStats reports per-question correctness over completed attempts.
func (s *AttemptService) QuestionStats(ctx context.Context, quizID string) ([]domain.QuestionStats, error) {
	if _, err := s.quizzes.FindByID(ctx, quizID); err != nil {
		return nil, err
	}
	stats, err := s.attempts.QuestionStats(ctx, quizID)
	if err != nil {
		return nil, err
	}
	for i := range stats {
		stats[i].CorrectPercentage = percentage(stats[i].CorrectAnswers, stats[i].TotalAnswers)
	}
	return stats, nil
}

func (s *AttemptService) finish(ctx context.Context, actor Actor, attemptID string, status domain.AttemptStatus, timeSpent *int) (domain.QuizAttempt, error) {
	attempt, err := s.owned(ctx, actor, attemptID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.QuizAttempt{}, errAttemptNotActive
	}
	done, err := s.finalize(ctx, attempt, status, timeSpent)
	if err != nil {
		return domain.QuizAttempt{}, notActive(err)
	}
	return done, nil
}

// finalize scores the attempt, refreshes quiz and user aggregates and queues follow-up work.
// Only the caller whose Finish closes the attempt gets past it; a concurrent loser sees
// domain.ErrAttemptNotInProgress and nothing is credited twice.
func (s *AttemptService) finalize(ctx context.Context, attempt domain.QuizAttempt, status domain.AttemptStatus, timeSpent *int) (domain.QuizAttempt, error) {
	quiz, err := s.quizzes.FindByID(ctx, attempt.QuizID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	key, err := s.keys.GetAnswerKey(ctx, attempt.QuizID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}

	score := 0
	for _, a := range attempt.UserAnswers {
		score += a.PointsEarned
	}
	maxScore := key.MaxScore()
	pct := percentage(score, maxScore)
	now := s.now().UTC()

	attempt.Status = status
	attempt.Score = &score
	attempt.MaxScore = &maxScore
	attempt.Percentage = &pct
	attempt.CompletedAt = &now
	attempt.UpdatedAt = now
	if timeSpent != nil {
		attempt.TimeSpent = timeSpent
	}
	if quiz.PassingScore != nil {
		passed := pct >= float64(*quiz.PassingScore)
		attempt.Passed = &passed
	}
	if err := s.attempts.Finish(ctx, &attempt); err != nil {
		return domain.QuizAttempt{}, err
	}

	avg, err := s.attempts.AveragePercentage(ctx, quiz.ID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if avg != nil {
		rounded := round2(*avg)
		avg = &rounded
	}
	if err := s.quizzes.SetAverageScore(ctx, quiz.ID, avg); err != nil {
		return domain.QuizAttempt{}, err
	}

	if err := s.jobs.AttemptFinished(ctx, attempt.UserID); err != nil {
		s.log.Warn().Err(err).
			Str("attempt_id", attempt.ID).
			Str("user_id", attempt.UserID).
			Msg("failed to enqueue attempt follow-up")
	}
	return attempt, nil
}

func (s *AttemptService) expired(attempt domain.QuizAttempt, key domain.AnswerKey) bool {
	if key.TimeLimit == nil || *key.TimeLimit <= 0 {
		return false
	}
	deadline := attempt.StartedAt.Add(time.Duration(*key.TimeLimit) * time.Second)
	return s.now().After(deadline)
}

func (s *AttemptService) owned(ctx context.Context, actor Actor, attemptID string) (domain.QuizAttempt, error) {
	attempt, err := s.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if !actor.Owns(attempt.UserID) {
		return domain.QuizAttempt{}, domain.ErrNotAttemptOwner
	}
	return attempt, nil
}

// notActive reports a lost close race the same way as closing an already closed attempt.
func notActive(err error) error {
	if errors.Is(err, domain.ErrAttemptNotInProgress) {
		return errAttemptNotActive
	}
	return err
}

func percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
