package app

import (
	"context"
	"time"

	"quiz-platform/internal/domain"
)

// UserRepository persists user profiles. Finders return domain.ErrUserNotFound on a miss.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id string) (domain.User, error)
	FindByKeycloakID(ctx context.Context, keycloakID string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	List(ctx context.Context, page domain.Page) ([]domain.User, int, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (domain.Category, error)
	FindByName(ctx context.Context, name string) (domain.Category, error)
	List(ctx context.Context, f domain.CategoryFilter) ([]domain.Category, int, error)
	All(ctx context.Context) ([]domain.Category, error)
}

type TagRepository interface {
	Create(ctx context.Context, t *domain.Tag) error
	Update(ctx context.Context, t *domain.Tag) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (domain.Tag, error)
	FindByName(ctx context.Context, name string) (domain.Tag, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Tag, error)
	List(ctx context.Context, f domain.TagFilter) ([]domain.Tag, int, error)
	Popular(ctx context.Context, limit int) ([]domain.Tag, error)
}

type QuizRepository interface {
	Create(ctx context.Context, q *domain.Quiz) error
	Update(ctx context.Context, q *domain.Quiz) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (domain.Quiz, error)
	List(ctx context.Context, f domain.QuizFilter) ([]domain.Quiz, int, error)
	// AddTags links tags to a quiz, skipping links that already exist.
	AddTags(ctx context.Context, quizID string, tagIDs []string) error
	RemoveTags(ctx context.Context, quizID string, tagIDs []string) error
	IncrementViews(ctx context.Context, id string) error
	IncrementAttempts(ctx context.Context, id string) error
	SetAverageScore(ctx context.Context, id string, avg *float64) error
}

type QuestionRepository interface {
	// Create stores the question together with its answers.
	Create(ctx context.Context, q *domain.Question) error
	// Update stores question fields; when replaceAnswers is set the answer list is swapped as a whole.
	Update(ctx context.Context, q *domain.Question, replaceAnswers bool) error
	// Delete removes the question and shifts later questions of the quiz up by one.
	Delete(ctx context.Context, q domain.Question) error
	FindByID(ctx context.Context, id string) (domain.Question, error)
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Question, error)
	List(ctx context.Context, quizID string, page domain.Page) ([]domain.Question, int, error)
	MaxOrder(ctx context.Context, quizID string) (int, error)
	// Reorder assigns orders 1..n following orderedIDs.
	Reorder(ctx context.Context, quizID string, orderedIDs []string) error
}

type AttemptRepository interface {
	// Create fails with domain.ErrAttemptActive when the user already has the quiz in progress.
	Create(ctx context.Context, a *domain.QuizAttempt) error
	// UpdateInProgress writes the attempt only while its stored status is still IN_PROGRESS,
	// otherwise it returns domain.ErrAttemptNotInProgress.
	UpdateInProgress(ctx context.Context, a *domain.QuizAttempt) error
	// Finish is UpdateInProgress plus crediting the attempt score to the user, as one unit.
	Finish(ctx context.Context, a *domain.QuizAttempt) error
	// FindByID returns the attempt with its user answers.
	FindByID(ctx context.Context, id string) (domain.QuizAttempt, error)
	FindInProgress(ctx context.Context, userID, quizID string) (domain.QuizAttempt, bool, error)
	CountByStatus(ctx context.Context, userID, quizID string, statuses []domain.AttemptStatus) (int, error)
	List(ctx context.Context, f domain.AttemptFilter) ([]domain.QuizAttempt, int, error)
	// SaveAnswer inserts or replaces the answer for (attempt, question). It returns
	// domain.ErrAttemptNotInProgress when the attempt has been closed.
	SaveAnswer(ctx context.Context, a *domain.UserAnswer) error
	// AveragePercentage averages completed and time-expired attempts; nil when there are none.
	AveragePercentage(ctx context.Context, quizID string) (*float64, error)
	// CountCompleted counts a user's completed attempts, optionally restricted to a category.
	CountCompleted(ctx context.Context, userID, categoryID string) (int, error)
	QuestionStats(ctx context.Context, quizID string) ([]domain.QuestionStats, error)
}

type AchievementRepository interface {
	Create(ctx context.Context, a *domain.Achievement) error
	Update(ctx context.Context, a *domain.Achievement) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (domain.Achievement, error)
	FindByName(ctx context.Context, name string) (domain.Achievement, error)
	List(ctx context.Context, f domain.AchievementFilter) ([]domain.Achievement, int, error)
	ListActive(ctx context.Context) ([]domain.Achievement, error)
	HasUserAchievement(ctx context.Context, userID, achievementID string) (bool, error)
	// Award records the user achievement and credits points to the user's total score.
	Award(ctx context.Context, ua *domain.UserAchievement, points int) error
	ListForUser(ctx context.Context, userID string) ([]domain.UserAchievement, error)
}

type LeaderboardRepository interface {
	Create(ctx context.Context, lb *domain.Leaderboard) error
	Update(ctx context.Context, lb *domain.Leaderboard) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (domain.Leaderboard, error)
	// FindActive returns the first active leaderboard of a type (and category for CATEGORY boards).
	FindActive(ctx context.Context, typ domain.LeaderboardType, categoryID string) (domain.Leaderboard, error)
	List(ctx context.Context, f domain.LeaderboardFilter) ([]domain.Leaderboard, int, error)
	// ReplaceEntries swaps all entries of a leaderboard atomically.
	ReplaceEntries(ctx context.Context, leaderboardID string, entries []domain.LeaderboardEntry) error
	Entries(ctx context.Context, leaderboardID string, limit int) ([]domain.LeaderboardEntry, error)
	EntryForUser(ctx context.Context, leaderboardID, userID string) (domain.LeaderboardEntry, error)
}

// ScoreSource runs the aggregate queries behind leaderboard recomputation.
// Results are ordered by score descending, ties by user id.
type ScoreSource interface {
	TotalScores(ctx context.Context, limit int) ([]domain.UserScore, error)
	CategoryScores(ctx context.Context, categoryID string, limit int) ([]domain.UserScore, error)
	ScoresSince(ctx context.Context, since time.Time, limit int) ([]domain.UserScore, error)
}

// AnswerKeyLoader reads a quiz answer key from the backing store.
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context, quizID string) (domain.AnswerKey, error)
}

// AnswerKeyStore serves answer keys for grading, usually through a cache.
type AnswerKeyStore interface {
	GetAnswerKey(ctx context.Context, quizID string) (domain.AnswerKey, error)
	Invalidate(ctx context.Context, quizID string) error
}

// EntryCache caches the top entries of a leaderboard.
type EntryCache interface {
	Get(ctx context.Context, leaderboardID string) ([]domain.LeaderboardEntry, bool)
	Set(ctx context.Context, leaderboardID string, entries []domain.LeaderboardEntry)
	Invalidate(ctx context.Context, leaderboardID string)
}

// SnapshotPublisher broadcasts recomputed leaderboards to live subscribers,
// possibly on other instances.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snapshot domain.LeaderboardSnapshot) error
}

// JobQueue hands follow-up work to the background worker.
type JobQueue interface {
	AttemptFinished(ctx context.Context, userID string) error
	RecomputeLeaderboards(ctx context.Context) error
}

// Actor is the authenticated caller on whose behalf a use case runs.
type Actor struct {
	UserID  string
	IsAdmin bool
}

func (a Actor) Owns(userID string) bool {
	return a.IsAdmin || (a.UserID != "" && a.UserID == userID)
}
