package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

// QuizHandler serves quizzes and their questions.
type QuizHandler struct {
	Handler
	quizzes   *app.QuizService
	questions *app.QuestionService
	attempts  *app.AttemptService
}

func NewQuizHandler(h Handler, quizzes *app.QuizService, questions *app.QuestionService, attempts *app.AttemptService) *QuizHandler {
	return &QuizHandler{Handler: h, quizzes: quizzes, questions: questions, attempts: attempts}
}

type listQuizzesRequest struct {
	CategoryID string `query:"categoryId"`
	AuthorID   string `query:"authorId"`
	Difficulty string `query:"difficulty" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"`
	Status     string `query:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	Privacy    string `query:"privacy" validate:"omitempty,oneof=PUBLIC PRIVATE GROUP_ONLY"`
	TagID      string `query:"tag"`
	Search     string `query:"search" validate:"max=255"`
	PageQuery
}

type createQuizRequest struct {
	Title        string   `json:"title" validate:"required,min=1,max=255"`
	Description  string   `json:"description" validate:"max=2000"`
	CategoryID   string   `json:"categoryId" validate:"required"`
	Difficulty   string   `json:"difficulty" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"`
	Status       string   `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	Privacy      string   `json:"privacy" validate:"omitempty,oneof=PUBLIC PRIVATE GROUP_ONLY"`
	TimeLimit    *int     `json:"timeLimit" validate:"omitempty,gt=0"`
	PassingScore *int     `json:"passingScore" validate:"omitempty,gte=0,lte=100"`
	MaxAttempts  *int     `json:"maxAttempts" validate:"omitempty,gt=0"`
	IsShuffled   *bool    `json:"isShuffled"`
	ShowAnswers  *bool    `json:"showAnswers"`
	TagIDs       []string `json:"tagIds" validate:"omitempty,dive,required"`
}

type updateQuizRequest struct {
	ID           string  `param:"id" json:"-" validate:"required"`
	Title        *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	CategoryID   *string `json:"categoryId" validate:"omitempty,min=1"`
	Difficulty   *string `json:"difficulty" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"`
	Status       *string `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	Privacy      *string `json:"privacy" validate:"omitempty,oneof=PUBLIC PRIVATE GROUP_ONLY"`
	TimeLimit    *int    `json:"timeLimit" validate:"omitempty,gt=0"`
	PassingScore *int    `json:"passingScore" validate:"omitempty,gte=0,lte=100"`
	MaxAttempts  *int    `json:"maxAttempts" validate:"omitempty,gt=0"`
	IsShuffled   *bool   `json:"isShuffled"`
	ShowAnswers  *bool   `json:"showAnswers"`
}

type quizTagsRequest struct {
	ID     string   `param:"id" json:"-" validate:"required"`
	TagIDs []string `json:"tagIds" validate:"required,min=1,dive,required"`
}

type reorderQuestionsRequest struct {
	ID          string   `param:"id" json:"-" validate:"required"`
	QuestionIDs []string `json:"questionIds" validate:"required,min=1,dive,required"`
}

func (h *QuizHandler) List(c echo.Context, req *listQuizzesRequest) (domain.Paginated[domain.Quiz], error) {
	return h.quizzes.List(c.Request().Context(), domain.QuizFilter{
		CategoryID: req.CategoryID,
		AuthorID:   req.AuthorID,
		Difficulty: domain.Difficulty(req.Difficulty),
		Status:     domain.QuizStatus(req.Status),
		Privacy:    domain.Privacy(req.Privacy),
		TagID:      req.TagID,
		Search:     req.Search,
		Page:       req.toPage(),
	})
}

func (h *QuizHandler) Get(c echo.Context, req *idRequest) (domain.Quiz, error) {
	return h.quizzes.Get(c.Request().Context(), req.ID)
}

func (h *QuizHandler) Create(c echo.Context, req *createQuizRequest) (domain.Quiz, error) {
	return h.quizzes.Create(c.Request().Context(), h.actor(c), app.QuizInput{
		Title:        req.Title,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		Difficulty:   domain.Difficulty(req.Difficulty),
		Status:       domain.QuizStatus(req.Status),
		Privacy:      domain.Privacy(req.Privacy),
		TimeLimit:    req.TimeLimit,
		PassingScore: req.PassingScore,
		MaxAttempts:  req.MaxAttempts,
		IsShuffled:   req.IsShuffled,
		ShowAnswers:  req.ShowAnswers,
		TagIDs:       req.TagIDs,
	})
}

func (h *QuizHandler) Update(c echo.Context, req *updateQuizRequest) (domain.Quiz, error) {
	patch := app.QuizPatch{
		Title:        req.Title,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		TimeLimit:    req.TimeLimit,
		PassingScore: req.PassingScore,
		MaxAttempts:  req.MaxAttempts,
		IsShuffled:   req.IsShuffled,
		ShowAnswers:  req.ShowAnswers,
	}
	if req.Difficulty != nil {
		d := domain.Difficulty(*req.Difficulty)
		patch.Difficulty = &d
	}
	if req.Status != nil {
		s := domain.QuizStatus(*req.Status)
		patch.Status = &s
	}
	if req.Privacy != nil {
		p := domain.Privacy(*req.Privacy)
		patch.Privacy = &p
	}
	return h.quizzes.Update(c.Request().Context(), h.actor(c), req.ID, patch)
}

func (h *QuizHandler) Delete(c echo.Context, req *idRequest) (map[string]any, error) {
	quiz, err := h.quizzes.Delete(c.Request().Context(), h.actor(c), req.ID)
	if err != nil {
		return nil, err
	}
	return deleted("Quiz", "quiz", quiz), nil
}

func (h *QuizHandler) AddTags(c echo.Context, req *quizTagsRequest) (domain.Quiz, error) {
	return h.quizzes.AddTags(c.Request().Context(), h.actor(c), req.ID, req.TagIDs)
}

func (h *QuizHandler) RemoveTags(c echo.Context, req *quizTagsRequest) (domain.Quiz, error) {
	return h.quizzes.RemoveTags(c.Request().Context(), h.actor(c), req.ID, req.TagIDs)
}

func (h *QuizHandler) Questions(c echo.Context, req *idRequest) ([]domain.Question, error) {
	return h.questions.ForQuiz(c.Request().Context(), req.ID)
}

func (h *QuizHandler) Stats(c echo.Context, req *idRequest) ([]domain.QuestionStats, error) {
	return h.attempts.QuestionStats(c.Request().Context(), req.ID)
}

func (h *QuizHandler) ReorderQuestions(c echo.Context, req *reorderQuestionsRequest) ([]domain.Question, error) {
	return h.questions.Reorder(c.Request().Context(), h.actor(c), req.ID, req.QuestionIDs)
}

func (h *QuizHandler) register(g *echo.Group) {
	g.GET("", Handle(http.StatusOK, h.List))
	g.GET("/:id", Handle(http.StatusOK, h.Get))
	g.GET("/:id/questions", Handle(http.StatusOK, h.Questions))
	g.GET("/:id/stats", Handle(http.StatusOK, h.Stats))

	g.POST("", Handle(http.StatusCreated, h.Create), h.auth.Authenticate)
	g.PUT("/:id", Handle(http.StatusOK, h.Update), h.auth.Authenticate)
	g.DELETE("/:id", Handle(http.StatusOK, h.Delete), h.auth.Authenticate)
	g.POST("/:id/tags", Handle(http.StatusOK, h.AddTags), h.auth.Authenticate)
	g.DELETE("/:id/tags", Handle(http.StatusOK, h.RemoveTags), h.auth.Authenticate)
	g.PUT("/:id/questions/order", Handle(http.StatusOK, h.ReorderQuestions), h.auth.Authenticate)
}

type listQuestionsRequest struct {
	QuizID string `query:"quizId" validate:"required"`
	PageQuery
}

type answerRequest struct {
	Text      string `json:"text" validate:"required,max=1000"`
	IsCorrect bool   `json:"isCorrect"`
	Order     *int   `json:"order" validate:"omitempty,gte=0"`
}

type createQuestionRequest struct {
	QuizID      string          `json:"quizId" validate:"required"`
	Type        string          `json:"type" validate:"required,oneof=SINGLE_CHOICE MULTIPLE_CHOICE TRUE_FALSE OPEN_TEXT FILL_BLANK"`
	Question    string          `json:"question" validate:"required,max=2000"`
	Explanation string          `json:"explanation" validate:"max=2000"`
	Points      *int            `json:"points" validate:"omitempty,gte=0"`
	TimeLimit   *int            `json:"timeLimit" validate:"omitempty,gt=0"`
	Order       *int            `json:"order" validate:"omitempty,gte=0"`
	IsRequired  *bool           `json:"isRequired"`
	Answers     []answerRequest `json:"answers" validate:"required,min=1,dive"`
}

type updateQuestionRequest struct {
	ID          string           `param:"id" json:"-" validate:"required"`
	Type        *string          `json:"type" validate:"omitempty,oneof=SINGLE_CHOICE MULTIPLE_CHOICE TRUE_FALSE OPEN_TEXT FILL_BLANK"`
	Question    *string          `json:"question" validate:"omitempty,min=1,max=2000"`
	Explanation *string          `json:"explanation" validate:"omitempty,max=2000"`
	Points      *int             `json:"points" validate:"omitempty,gte=0"`
	TimeLimit   *int             `json:"timeLimit" validate:"omitempty,gt=0"`
	Order       *int             `json:"order" validate:"omitempty,gte=0"`
	IsRequired  *bool            `json:"isRequired"`
	Answers     *[]answerRequest `json:"answers" validate:"omitempty,min=1,dive"`
}

func toAnswerInputs(in []answerRequest) []app.AnswerInput {
	out := make([]app.AnswerInput, 0, len(in))
	for _, a := range in {
		out = append(out, app.AnswerInput{Text: a.Text, IsCorrect: a.IsCorrect, Order: a.Order})
	}
	return out
}

func (h *QuizHandler) ListQuestions(c echo.Context, req *listQuestionsRequest) (domain.Paginated[domain.Question], error) {
	return h.questions.List(c.Request().Context(), req.QuizID, req.toPage())
}

func (h *QuizHandler) GetQuestion(c echo.Context, req *idRequest) (domain.Question, error) {
	return h.questions.Get(c.Request().Context(), req.ID)
}

func (h *QuizHandler) CreateQuestion(c echo.Context, req *createQuestionRequest) (domain.Question, error) {
	return h.questions.Create(c.Request().Context(), h.actor(c), app.QuestionInput{
		QuizID:      req.QuizID,
		Type:        domain.QuestionType(req.Type),
		Text:        req.Question,
		Explanation: req.Explanation,
		Points:      req.Points,
		TimeLimit:   req.TimeLimit,
		Order:       req.Order,
		IsRequired:  req.IsRequired,
		Answers:     toAnswerInputs(req.Answers),
	})
}

func (h *QuizHandler) UpdateQuestion(c echo.Context, req *updateQuestionRequest) (domain.Question, error) {
	patch := app.QuestionPatch{
		Text:        req.Question,
		Explanation: req.Explanation,
		Points:      req.Points,
		TimeLimit:   req.TimeLimit,
		Order:       req.Order,
		IsRequired:  req.IsRequired,
	}
	if req.Type != nil {
		t := domain.QuestionType(*req.Type)
		patch.Type = &t
	}
	if req.Answers != nil {
		answers := toAnswerInputs(*req.Answers)
		patch.Answers = &answers
	}
	return h.questions.Update(c.Request().Context(), h.actor(c), req.ID, patch)
}

func (h *QuizHandler) DeleteQuestion(c echo.Context, req *idRequest) (map[string]any, error) {
	question, err := h.questions.Delete(c.Request().Context(), h.actor(c), req.ID)
	if err != nil {
		return nil, err
	}
	return deleted("Question", "question", question), nil
}

func (h *QuizHandler) registerQuestions(g *echo.Group) {
	g.GET("", Handle(http.StatusOK, h.ListQuestions))
	g.GET("/:id", Handle(http.StatusOK, h.GetQuestion))
	g.POST("", Handle(http.StatusCreated, h.CreateQuestion), h.auth.Authenticate)
	g.PUT("/:id", Handle(http.StatusOK, h.UpdateQuestion), h.auth.Authenticate)
	g.DELETE("/:id", Handle(http.StatusOK, h.DeleteQuestion), h.auth.Authenticate)
}
