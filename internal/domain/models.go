package domain

import "time"

// User is a local profile linked to a Keycloak identity.
type User struct {
	ID         string    `json:"id"`
	KeycloakID string    `json:"keycloakId"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	TotalScore int       `json:"totalScore"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Category struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	ParentID      *string      `json:"parentId"`
	Parent        *CategoryRef `json:"parent,omitempty"`
	Children      []Category   `json:"children,omitempty"`
	QuizzesCount  int          `json:"quizzesCount"`
	ChildrenCount int          `json:"childrenCount"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

type TagRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	QuizCount int       `json:"quizCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Quiz struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	CategoryID     string       `json:"categoryId"`
	AuthorID       string       `json:"authorId"`
	Difficulty     Difficulty   `json:"difficulty"`
	Status         QuizStatus   `json:"status"`
	Privacy        Privacy      `json:"privacy"`
	TimeLimit      *int         `json:"timeLimit"` // seconds
	PassingScore   *int         `json:"passingScore"`
	MaxAttempts    *int         `json:"maxAttempts"`
	IsShuffled     bool         `json:"isShuffled"`
	ShowAnswers    bool         `json:"showAnswers"`
	AttemptsCount  int          `json:"attemptsCount"`
	AverageScore   *float64     `json:"averageScore"`
	TotalRatings   int          `json:"totalRatings"`
	AverageRating  *float64     `json:"averageRating"`
	ViewsCount     int          `json:"viewsCount"`
	QuestionsCount int          `json:"questionsCount"`
	Category       *CategoryRef `json:"category,omitempty"`
	Tags           []TagRef     `json:"tags"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Answer is one option of a choice question, or one accepted text for text questions.
type Answer struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"isCorrect"`
	Order      int    `json:"order"`
}

type Question struct {
	ID          string       `json:"id"`
	QuizID      string       `json:"quizId"`
	Type        QuestionType `json:"type"`
	Text        string       `json:"question"`
	Explanation string       `json:"explanation,omitempty"`
	Points      int          `json:"points"`
	TimeLimit   *int         `json:"timeLimit"`
	Order       int          `json:"order"`
	IsRequired  bool         `json:"isRequired"`
	Answers     []Answer     `json:"answers"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type QuizAttempt struct {
	ID          string        `json:"id"`
	QuizID      string        `json:"quizId"`
	UserID      string        `json:"userId"`
	Status      AttemptStatus `json:"status"`
	Score       *int          `json:"score"`
	MaxScore    *int          `json:"maxScore"`
	Percentage  *float64      `json:"percentage"`
	Passed      *bool         `json:"passed,omitempty"`
	TimeSpent   *int          `json:"timeSpent"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt"`
	UserAnswers []UserAnswer  `json:"userAnswers,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type UserAnswer struct {
	ID           string    `json:"id"`
	AttemptID    string    `json:"attemptId"`
	QuestionID   string    `json:"questionId"`
	AnswerID     *string   `json:"answerId"`
	AnswerIDs    []string  `json:"answerIds,omitempty"`
	TextAnswer   *string   `json:"textAnswer"`
	IsCorrect    bool      `json:"isCorrect"`
	PointsEarned int       `json:"pointsEarned"`
	TimeSpent    *int      `json:"timeSpent"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// QuestionStats aggregates answers given in completed attempts.
type QuestionStats struct {
	QuestionID        string  `json:"questionId"`
	Question          string  `json:"question"`
	TotalAnswers      int     `json:"totalAnswers"`
	CorrectAnswers    int     `json:"correctAnswers"`
	CorrectPercentage float64 `json:"correctPercentage"`
}

// AchievementRequirement holds the threshold relevant to the achievement type.
type AchievementRequirement struct {
	Count      int    `json:"count,omitempty"`
	Score      int    `json:"score,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
}

type Achievement struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Type        AchievementType        `json:"type"`
	Icon        string                 `json:"icon,omitempty"`
	Points      int                    `json:"points"`
	Requirement AchievementRequirement `json:"requirement"`
	IsActive    bool                   `json:"isActive"`
	EarnedCount int                    `json:"earnedCount"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

type UserAchievement struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	AchievementID string       `json:"achievementId"`
	EarnedAt      time.Time    `json:"earnedAt"`
	Achievement   *Achievement `json:"achievement,omitempty"`
}

type Leaderboard struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         LeaderboardType `json:"type"`
	Period       string          `json:"period,omitempty"`
	CategoryID   *string         `json:"categoryId"`
	IsActive     bool            `json:"isActive"`
	EntriesCount int             `json:"entriesCount"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type LeaderboardEntry struct {
	LeaderboardID string    `json:"leaderboardId"`
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	Avatar        string    `json:"avatar,omitempty"`
	Score         int       `json:"score"`
	Position      int       `json:"position"`
	CreatedAt     time.Time `json:"createdAt"`
}

// LeaderboardSnapshot is what live subscribers receive after each recompute.
type LeaderboardSnapshot struct {
	LeaderboardID string             `json:"leaderboardId"`
	Entries       []LeaderboardEntry `json:"entries"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// UserScore is one row of an aggregate score query.
type UserScore struct {
	UserID string
	Score  int
}

type UserPosition struct {
	LeaderboardID string `json:"leaderboardId"`
	Position      int    `json:"position"`
	Score         int    `json:"score"`
}
