package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

type AttemptHandler struct {
	Handler
	attempts *app.AttemptService
}

func NewAttemptHandler(h Handler, attempts *app.AttemptService) *AttemptHandler {
	return &AttemptHandler{Handler: h, attempts: attempts}
}

type startAttemptRequest struct {
	QuizID string `json:"quizId" validate:"required"`
}

type listAttemptsRequest struct {
	QuizID string `query:"quizId"`
	UserID string `query:"userId"`
	Status string `query:"status" validate:"omitempty,oneof=IN_PROGRESS COMPLETED ABANDONED TIME_EXPIRED"`
	PageQuery
}

type submitAnswerRequest struct {
	ID         string   `param:"id" json:"-" validate:"required"`
	QuestionID string   `json:"questionId" validate:"required"`
	AnswerID   string   `json:"answerId"`
	AnswerIDs  []string `json:"answerIds" validate:"omitempty,dive,required"`
	TextAnswer string   `json:"textAnswer" validate:"max=2000"`
	TimeSpent  *int     `json:"timeSpent" validate:"omitempty,gte=0"`
}

type finishAttemptRequest struct {
	ID        string `param:"id" json:"-" validate:"required"`
	TimeSpent *int   `json:"timeSpent" validate:"omitempty,gte=0"`
}

type pauseAttemptRequest struct {
	ID        string `param:"id" json:"-" validate:"required"`
	TimeSpent *int   `json:"timeSpent" validate:"required,gte=0"`
}

func (h *AttemptHandler) Start(c echo.Context, req *startAttemptRequest) (domain.QuizAttempt, error) {
	return h.attempts.Start(c.Request().Context(), h.actor(c), req.QuizID)
}

func (h *AttemptHandler) List(c echo.Context, req *listAttemptsRequest) (domain.Paginated[domain.QuizAttempt], error) {
	return h.attempts.List(c.Request().Context(), h.actor(c), domain.AttemptFilter{
		QuizID: req.QuizID,
		UserID: req.UserID,
		Status: domain.AttemptStatus(req.Status),
		Page:   req.toPage(),
	})
}

func (h *AttemptHandler) Get(c echo.Context, req *idRequest) (domain.QuizAttempt, error) {
	return h.attempts.Get(c.Request().Context(), h.actor(c), req.ID)
}

func (h *AttemptHandler) Submit(c echo.Context, req *submitAnswerRequest) (domain.UserAnswer, error) {
	return h.attempts.Submit(c.Request().Context(), h.actor(c), req.ID, domain.AnswerSubmission{
		QuestionID: req.QuestionID,
		AnswerID:   req.AnswerID,
		AnswerIDs:  req.AnswerIDs,
		TextAnswer: req.TextAnswer,
		TimeSpent:  req.TimeSpent,
	})
}

func (h *AttemptHandler) Complete(c echo.Context, req *finishAttemptRequest) (domain.QuizAttempt, error) {
	return h.attempts.Complete(c.Request().Context(), h.actor(c), req.ID, req.TimeSpent)
}

func (h *AttemptHandler) Expire(c echo.Context, req *finishAttemptRequest) (domain.QuizAttempt, error) {
	return h.attempts.Expire(c.Request().Context(), h.actor(c), req.ID, req.TimeSpent)
}

func (h *AttemptHandler) Pause(c echo.Context, req *pauseAttemptRequest) (domain.QuizAttempt, error) {
	return h.attempts.Pause(c.Request().Context(), h.actor(c), req.ID, *req.TimeSpent)
}

func (h *AttemptHandler) Abandon(c echo.Context, req *idRequest) (domain.QuizAttempt, error) {
	return h.attempts.Abandon(c.Request().Context(), h.actor(c), req.ID)
}

func (h *AttemptHandler) register(g *echo.Group) {
	g.Use(h.auth.Authenticate)
	g.POST("", Handle(http.StatusCreated, h.Start))
	g.GET("", Handle(http.StatusOK, h.List))
	g.GET("/:id", Handle(http.StatusOK, h.Get))
	g.POST("/:id/answers", Handle(http.StatusOK, h.Submit))
	g.POST("/:id/complete", Handle(http.StatusOK, h.Complete))
	g.POST("/:id/pause", Handle(http.StatusOK, h.Pause))
	g.POST("/:id/abandon", Handle(http.StatusOK, h.Abandon))
	g.POST("/:id/expire", Handle(http.StatusOK, h.Expire))
}
