package memory

import (
	"sort"
	"strings"
	"sync"

	"quiz-platform/internal/domain"
)

// Store keeps every entity in process memory behind one lock.
// It backs the repositories in demo mode and in tests.
type Store struct {
	mu sync.RWMutex

	users            map[string]domain.User
	categories       map[string]domain.Category
	tags             map[string]domain.Tag
	quizzes          map[string]domain.Quiz
	quizTags         map[string]map[string]struct{}
	questions        map[string]domain.Question
	attempts         map[string]domain.QuizAttempt
	userAnswers      map[string]domain.UserAnswer
	achievements     map[string]domain.Achievement
	userAchievements map[string]domain.UserAchievement
	leaderboards     map[string]domain.Leaderboard
	entries          map[string][]domain.LeaderboardEntry
}

func NewStore() *Store {
	return &Store{
		users:            make(map[string]domain.User),
		categories:       make(map[string]domain.Category),
		tags:             make(map[string]domain.Tag),
		quizzes:          make(map[string]domain.Quiz),
		quizTags:         make(map[string]map[string]struct{}),
		questions:        make(map[string]domain.Question),
		attempts:         make(map[string]domain.QuizAttempt),
		userAnswers:      make(map[string]domain.UserAnswer),
		achievements:     make(map[string]domain.Achievement),
		userAchievements: make(map[string]domain.UserAchievement),
		leaderboards:     make(map[string]domain.Leaderboard),
		entries:          make(map[string][]domain.LeaderboardEntry),
	}
}

func (s *Store) Users() *UserRepository               { return &UserRepository{s: s} }
func (s *Store) Categories() *CategoryRepository       { return &CategoryRepository{s: s} }
func (s *Store) Tags() *TagRepository                 { return &TagRepository{s: s} }
func (s *Store) Quizzes() *QuizRepository             { return &QuizRepository{s: s} }
func (s *Store) Questions() *QuestionRepository       { return &QuestionRepository{s: s} }
func (s *Store) Attempts() *AttemptRepository         { return &AttemptRepository{s: s} }
func (s *Store) Achievements() *AchievementRepository { return &AchievementRepository{s: s} }
func (s *Store) Leaderboards() *LeaderboardRepository { return &LeaderboardRepository{s: s} }
func (s *Store) Scores() *ScoreSource                 { return &ScoreSource{s: s} }

func paginate[T any](items []T, page domain.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Answers = append([]domain.Answer(nil), q.Answers...)
	return q
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
