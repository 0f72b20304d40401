package domain

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "BEGINNER"
	DifficultyIntermediate Difficulty = "INTERMEDIATE"
	DifficultyAdvanced     Difficulty = "ADVANCED"
	DifficultyExpert       Difficulty = "EXPERT"
)

type QuizStatus string

const (
	QuizDraft     QuizStatus = "DRAFT"
	QuizPublished QuizStatus = "PUBLISHED"
	QuizArchived  QuizStatus = "ARCHIVED"
)

type Privacy string

const (
	PrivacyPublic    Privacy = "PUBLIC"
	PrivacyPrivate   Privacy = "PRIVATE"
	PrivacyGroupOnly Privacy = "GROUP_ONLY"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
	OpenText       QuestionType = "OPEN_TEXT"
	FillBlank      QuestionType = "FILL_BLANK"
)

// TextGraded reports whether answers of this type are free text rather than option IDs.
func (t QuestionType) TextGraded() bool {
	return t == OpenText || t == FillBlank
}

type AttemptStatus string

const (
	AttemptInProgress  AttemptStatus = "IN_PROGRESS"
	AttemptCompleted   AttemptStatus = "COMPLETED"
	AttemptAbandoned   AttemptStatus = "ABANDONED"
	AttemptTimeExpired AttemptStatus = "TIME_EXPIRED"
)

// FinishedAttemptStatuses count toward a quiz's maxAttempts limit.
var FinishedAttemptStatuses = []AttemptStatus{AttemptCompleted, AttemptAbandoned, AttemptTimeExpired}

// ScoredAttemptStatuses are the closed attempts that carry a percentage for the quiz average.
var ScoredAttemptStatuses = []AttemptStatus{AttemptCompleted, AttemptTimeExpired}

type AchievementType string

const (
	AchievementQuizCompletion AchievementType = "QUIZ_COMPLETION"
	AchievementScoreMilestone AchievementType = "SCORE_MILESTONE"
	AchievementCategoryMaster AchievementType = "CATEGORY_MASTER"
)

type LeaderboardType string

const (
	LeaderboardGlobal   LeaderboardType = "GLOBAL"
	LeaderboardCategory LeaderboardType = "CATEGORY"
	LeaderboardWeekly   LeaderboardType = "WEEKLY"
	LeaderboardMonthly  LeaderboardType = "MONTHLY"
)
