package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quiz-platform/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID         string    `bun:"id,pk"`
	KeycloakID string    `bun:"keycloak_id,nullzero"`
	Email      string    `bun:"email"`
	Username   string    `bun:"username"`
	FirstName  string    `bun:"first_name"`
	LastName   string    `bun:"last_name"`
	Avatar     string    `bun:"avatar"`
	TotalScore int       `bun:"total_score"`
	IsActive   bool      `bun:"is_active"`
	CreatedAt  time.Time `bun:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at"`
}

func newUserRow(u domain.User) *userRow {
	return &userRow{
		ID:         u.ID,
		KeycloakID: u.KeycloakID,
		Email:      u.Email,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Avatar:     u.Avatar,
		TotalScore: u.TotalScore,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:         r.ID,
		KeycloakID: r.KeycloakID,
		Email:      r.Email,
		Username:   r.Username,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Avatar:     r.Avatar,
		TotalScore: r.TotalScore,
		IsActive:   r.IsActive,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type categoryRow struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name"`
	Description string    `bun:"description"`
	ParentID    *string   `bun:"parent_id"`
	CreatedAt   time.Time `bun:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at"`

	ParentName    *string `bun:"parent_name,scanonly"`
	QuizzesCount  int     `bun:"quizzes_count,scanonly"`
	ChildrenCount int     `bun:"children_count,scanonly"`
}

func newCategoryRow(c domain.Category) *categoryRow {
	return &categoryRow{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ParentID:    c.ParentID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (r categoryRow) toDomain() domain.Category {
	c := domain.Category{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		ParentID:      r.ParentID,
		QuizzesCount:  r.QuizzesCount,
		ChildrenCount: r.ChildrenCount,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.ParentID != nil && r.ParentName != nil {
		c.Parent = &domain.CategoryRef{ID: *r.ParentID, Name: *r.ParentName}
	}
	return c
}

type tagRow struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name"`
	Color     string    `bun:"color"`
	CreatedAt time.Time `bun:"created_at"`
	UpdatedAt time.Time `bun:"updated_at"`

	QuizCount int `bun:"quiz_count,scanonly"`
}

func newTagRow(t domain.Tag) *tagRow {
	return &tagRow{ID: t.ID, Name: t.Name, Color: t.Color, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

func (r tagRow) toDomain() domain.Tag {
	return domain.Tag{
		ID:        r.ID,
		Name:      r.Name,
		Color:     r.Color,
		QuizCount: r.QuizCount,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID            string            `bun:"id,pk"`
	Title         string            `bun:"title"`
	Description   string            `bun:"description"`
	CategoryID    string            `bun:"category_id"`
	AuthorID      string            `bun:"author_id"`
	Difficulty    domain.Difficulty `bun:"difficulty"`
	Status        domain.QuizStatus `bun:"status"`
	Privacy       domain.Privacy    `bun:"privacy"`
	TimeLimit     *int              `bun:"time_limit"`
	PassingScore  *int              `bun:"passing_score"`
	MaxAttempts   *int              `bun:"max_attempts"`
	IsShuffled    bool              `bun:"is_shuffled"`
	ShowAnswers   bool              `bun:"show_answers"`
	AttemptsCount int               `bun:"attempts_count"`
	AverageScore  *float64          `bun:"average_score"`
	TotalRatings  int               `bun:"total_ratings"`
	AverageRating *float64          `bun:"average_rating"`
	ViewsCount    int               `bun:"views_count"`
	CreatedAt     time.Time         `bun:"created_at"`
	UpdatedAt     time.Time         `bun:"updated_at"`

	CategoryName   *string `bun:"category_name,scanonly"`
	QuestionsCount int     `bun:"questions_count,scanonly"`
}

func newQuizRow(q domain.Quiz) *quizRow {
	return &quizRow{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		CategoryID:    q.CategoryID,
		AuthorID:      q.AuthorID,
		Difficulty:    q.Difficulty,
		Status:        q.Status,
		Privacy:       q.Privacy,
		TimeLimit:     q.TimeLimit,
		PassingScore:  q.PassingScore,
		MaxAttempts:   q.MaxAttempts,
		IsShuffled:    q.IsShuffled,
		ShowAnswers:   q.ShowAnswers,
		AttemptsCount: q.AttemptsCount,
		AverageScore:  q.AverageScore,
		TotalRatings:  q.TotalRatings,
		AverageRating: q.AverageRating,
		ViewsCount:    q.ViewsCount,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

func (r quizRow) toDomain() domain.Quiz {
	q := domain.Quiz{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		CategoryID:     r.CategoryID,
		AuthorID:       r.AuthorID,
		Difficulty:     r.Difficulty,
		Status:         r.Status,
		Privacy:        r.Privacy,
		TimeLimit:      r.TimeLimit,
		PassingScore:   r.PassingScore,
		MaxAttempts:    r.MaxAttempts,
		IsShuffled:     r.IsShuffled,
		ShowAnswers:    r.ShowAnswers,
		AttemptsCount:  r.AttemptsCount,
		AverageScore:   r.AverageScore,
		TotalRatings:   r.TotalRatings,
		AverageRating:  r.AverageRating,
		ViewsCount:     r.ViewsCount,
		QuestionsCount: r.QuestionsCount,
		Tags:           []domain.TagRef{},
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.CategoryName != nil {
		q.Category = &domain.CategoryRef{ID: r.CategoryID, Name: *r.CategoryName}
	}
	return q
}

type quizTagRow struct {
	bun.BaseModel `bun:"table:quiz_tags,alias:qt"`

	QuizID string `bun:"quiz_id,pk"`
	TagID  string `bun:"tag_id,pk"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID          string              `bun:"id,pk"`
	QuizID      string              `bun:"quiz_id"`
	Type        domain.QuestionType `bun:"type"`
	Question    string              `bun:"question"`
	Explanation string              `bun:"explanation"`
	Points      int                 `bun:"points"`
	TimeLimit   *int                `bun:"time_limit"`
	Order       int                 `bun:"sort_order"`
	IsRequired  bool                `bun:"is_required"`
	CreatedAt   time.Time           `bun:"created_at"`
	UpdatedAt   time.Time           `bun:"updated_at"`
}

func newQuestionRow(q domain.Question) *questionRow {
	return &questionRow{
		ID:          q.ID,
		QuizID:      q.QuizID,
		Type:        q.Type,
		Question:    q.Text,
		Explanation: q.Explanation,
		Points:      q.Points,
		TimeLimit:   q.TimeLimit,
		Order:       q.Order,
		IsRequired:  q.IsRequired,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

func (r questionRow) toDomain(answers []domain.Answer) domain.Question {
	if answers == nil {
		answers = []domain.Answer{}
	}
	return domain.Question{
		ID:          r.ID,
		QuizID:      r.QuizID,
		Type:        r.Type,
		Text:        r.Question,
		Explanation: r.Explanation,
		Points:      r.Points,
		TimeLimit:   r.TimeLimit,
		Order:       r.Order,
		IsRequired:  r.IsRequired,
		Answers:     answers,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers,alias:an"`

	ID         string `bun:"id,pk"`
	QuestionID string `bun:"question_id"`
	Text       string `bun:"text"`
	IsCorrect  bool   `bun:"is_correct"`
	Order      int    `bun:"sort_order"`
}

func newAnswerRows(questionID string, answers []domain.Answer) []answerRow {
	rows := make([]answerRow, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, answerRow{
			ID:         a.ID,
			QuestionID: questionID,
			Text:       a.Text,
			IsCorrect:  a.IsCorrect,
			Order:      a.Order,
		})
	}
	return rows
}

func (r answerRow) toDomain() domain.Answer {
	return domain.Answer{ID: r.ID, QuestionID: r.QuestionID, Text: r.Text, IsCorrect: r.IsCorrect, Order: r.Order}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID          string               `bun:"id,pk"`
	QuizID      string               `bun:"quiz_id"`
	UserID      string               `bun:"user_id"`
	Status      domain.AttemptStatus `bun:"status"`
	Score       *int                 `bun:"score"`
	MaxScore    *int                 `bun:"max_score"`
	Percentage  *float64             `bun:"percentage"`
	Passed      *bool                `bun:"passed"`
	TimeSpent   *int                 `bun:"time_spent"`
	StartedAt   time.Time            `bun:"started_at"`
	CompletedAt *time.Time           `bun:"completed_at"`
	CreatedAt   time.Time            `bun:"created_at"`
	UpdatedAt   time.Time            `bun:"updated_at"`
}

func newAttemptRow(a domain.QuizAttempt) *attemptRow {
	return &attemptRow{
		ID:          a.ID,
		QuizID:      a.QuizID,
		UserID:      a.UserID,
		Status:      a.Status,
		Score:       a.Score,
		MaxScore:    a.MaxScore,
		Percentage:  a.Percentage,
		Passed:      a.Passed,
		TimeSpent:   a.TimeSpent,
		StartedAt:   a.StartedAt,
		CompletedAt: a.CompletedAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (r attemptRow) toDomain(answers []domain.UserAnswer) domain.QuizAttempt {
	if answers == nil {
		answers = []domain.UserAnswer{}
	}
	return domain.QuizAttempt{
		ID:          r.ID,
		QuizID:      r.QuizID,
		UserID:      r.UserID,
		Status:      r.Status,
		Score:       r.Score,
		MaxScore:    r.MaxScore,
		Percentage:  r.Percentage,
		Passed:      r.Passed,
		TimeSpent:   r.TimeSpent,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		UserAnswers: answers,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type userAnswerRow struct {
	bun.BaseModel `bun:"table:user_answers,alias:ua"`

	ID           string    `bun:"id,pk"`
	AttemptID    string    `bun:"attempt_id"`
	QuestionID   string    `bun:"question_id"`
	AnswerID     *string   `bun:"answer_id"`
	AnswerIDs    []string  `bun:"answer_ids,array"`
	TextAnswer   *string   `bun:"text_answer"`
	IsCorrect    bool      `bun:"is_correct"`
	PointsEarned int       `bun:"points_earned"`
	TimeSpent    *int      `bun:"time_spent"`
	CreatedAt    time.Time `bun:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at"`
}

func newUserAnswerRow(a domain.UserAnswer) *userAnswerRow {
	return &userAnswerRow{
		ID:           a.ID,
		AttemptID:    a.AttemptID,
		QuestionID:   a.QuestionID,
		AnswerID:     a.AnswerID,
		AnswerIDs:    a.AnswerIDs,
		TextAnswer:   a.TextAnswer,
		IsCorrect:    a.IsCorrect,
		PointsEarned: a.PointsEarned,
		TimeSpent:    a.TimeSpent,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (r userAnswerRow) toDomain() domain.UserAnswer {
	return domain.UserAnswer{
		ID:           r.ID,
		AttemptID:    r.AttemptID,
		QuestionID:   r.QuestionID,
		AnswerID:     r.AnswerID,
		AnswerIDs:    r.AnswerIDs,
		TextAnswer:   r.TextAnswer,
		IsCorrect:    r.IsCorrect,
		PointsEarned: r.PointsEarned,
		TimeSpent:    r.TimeSpent,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type achievementRow struct {
	bun.BaseModel `bun:"table:achievements,alias:ac"`

	ID          string                        `bun:"id,pk"`
	Name        string                        `bun:"name"`
	Description string                        `bun:"description"`
	Type        domain.AchievementType        `bun:"type"`
	Icon        string                        `bun:"icon"`
	Points      int                           `bun:"points"`
	Requirement domain.AchievementRequirement `bun:"requirement,type:jsonb"`
	IsActive    bool                          `bun:"is_active"`
	CreatedAt   time.Time                     `bun:"created_at"`
	UpdatedAt   time.Time                     `bun:"updated_at"`

	EarnedCount int `bun:"earned_count,scanonly"`
}

func newAchievementRow(a domain.Achievement) *achievementRow {
	return &achievementRow{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Type:        a.Type,
		Icon:        a.Icon,
		Points:      a.Points,
		Requirement: a.Requirement,
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (r achievementRow) toDomain() domain.Achievement {
	return domain.Achievement{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		Icon:        r.Icon,
		Points:      r.Points,
		Requirement: r.Requirement,
		IsActive:    r.IsActive,
		EarnedCount: r.EarnedCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type userAchievementRow struct {
	bun.BaseModel `bun:"table:user_achievements,alias:uac"`

	ID            string    `bun:"id,pk"`
	UserID        string    `bun:"user_id"`
	AchievementID string    `bun:"achievement_id"`
	EarnedAt      time.Time `bun:"earned_at"`
}

type leaderboardRow struct {
	bun.BaseModel `bun:"table:leaderboards,alias:lb"`

	ID         string                 `bun:"id,pk"`
	Name       string                 `bun:"name"`
	Type       domain.LeaderboardType `bun:"type"`
	Period     string                 `bun:"period"`
	CategoryID *string                `bun:"category_id"`
	IsActive   bool                   `bun:"is_active"`
	CreatedAt  time.Time              `bun:"created_at"`
	UpdatedAt  time.Time              `bun:"updated_at"`

	EntriesCount int `bun:"entries_count,scanonly"`
}

func newLeaderboardRow(lb domain.Leaderboard) *leaderboardRow {
	return &leaderboardRow{
		ID:         lb.ID,
		Name:       lb.Name,
		Type:       lb.Type,
		Period:     lb.Period,
		CategoryID: lb.CategoryID,
		IsActive:   lb.IsActive,
		CreatedAt:  lb.CreatedAt,
		UpdatedAt:  lb.UpdatedAt,
	}
}

func (r leaderboardRow) toDomain() domain.Leaderboard {
	return domain.Leaderboard{
		ID:           r.ID,
		Name:         r.Name,
		Type:         r.Type,
		Period:       r.Period,
		CategoryID:   r.CategoryID,
		IsActive:     r.IsActive,
		EntriesCount: r.EntriesCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type entryRow struct {
	bun.BaseModel `bun:"table:leaderboard_entries,alias:le"`

	LeaderboardID string    `bun:"leaderboard_id,pk"`
	UserID        string    `bun:"user_id,pk"`
	Score         int       `bun:"score"`
	Position      int       `bun:"position"`
	CreatedAt     time.Time `bun:"created_at"`

	Username string `bun:"username,scanonly"`
	Avatar   string `bun:"avatar,scanonly"`
}

func (r entryRow) toDomain() domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		LeaderboardID: r.LeaderboardID,
		UserID:        r.UserID,
		Username:      r.Username,
		Avatar:        r.Avatar,
		Score:         r.Score,
		Position:      r.Position,
		CreatedAt:     r.CreatedAt,
	}
}
