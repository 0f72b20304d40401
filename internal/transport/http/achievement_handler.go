package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

type AchievementHandler struct {
	Handler
	achievements *app.AchievementService
}

func NewAchievementHandler(h Handler, achievements *app.AchievementService) *AchievementHandler {
	return &AchievementHandler{Handler: h, achievements: achievements}
}

type listAchievementsRequest struct {
	Type     string `query:"type" validate:"omitempty,oneof=QUIZ_COMPLETION SCORE_MILESTONE CATEGORY_MASTER"`
	IsActive string `query:"isActive" validate:"omitempty,oneof=true false"`
	PageQuery
}

type requirementRequest struct {
	Count      int    `json:"count" validate:"gte=0"`
	Score      int    `json:"score" validate:"gte=0"`
	CategoryID string `json:"categoryId"`
}

func (r requirementRequest) toDomain() domain.AchievementRequirement {
	return domain.AchievementRequirement{Count: r.Count, Score: r.Score, CategoryID: r.CategoryID}
}

type createAchievementRequest struct {
	Name        string             `json:"name" validate:"required,min=1,max=255"`
	Description string             `json:"description" validate:"max=1000"`
	Type        string             `json:"type" validate:"required,oneof=QUIZ_COMPLETION SCORE_MILESTONE CATEGORY_MASTER"`
	Icon        string             `json:"icon" validate:"max=255"`
	Points      int                `json:"points" validate:"gte=0"`
	Requirement requirementRequest `json:"requirement"`
	IsActive    *bool              `json:"isActive"`
}

type updateAchievementRequest struct {
	ID          string              `param:"id" json:"-" validate:"required"`
	Name        *string             `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string             `json:"description" validate:"omitempty,max=1000"`
	Type        *string             `json:"type" validate:"omitempty,oneof=QUIZ_COMPLETION SCORE_MILESTONE CATEGORY_MASTER"`
	Icon        *string             `json:"icon" validate:"omitempty,max=255"`
	Points      *int                `json:"points" validate:"omitempty,gte=0"`
	Requirement *requirementRequest `json:"requirement"`
	IsActive    *bool               `json:"isActive"`
}

type userAchievementsRequest struct {
	UserID string `param:"userId" json:"-" validate:"required"`
}

type awardAchievementRequest struct {
	ID     string `param:"id" json:"-" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type checkAchievementsResponse struct {
	Awarded []domain.UserAchievement `json:"awarded"`
}

func (h *AchievementHandler) List(c echo.Context, req *listAchievementsRequest) (domain.Paginated[domain.Achievement], error) {
	return h.achievements.List(c.Request().Context(), domain.AchievementFilter{
		Type:     domain.AchievementType(req.Type),
		IsActive: parseOptionalBool(req.IsActive),
		Page:     req.toPage(),
	})
}

func (h *AchievementHandler) Get(c echo.Context, req *idRequest) (domain.Achievement, error) {
	return h.achievements.Get(c.Request().Context(), req.ID)
}

func (h *AchievementHandler) ForUser(c echo.Context, req *userAchievementsRequest) ([]domain.UserAchievement, error) {
	return h.achievements.ForUser(c.Request().Context(), req.UserID)
}

// Check evaluates the caller's unearned achievements.
func (h *AchievementHandler) Check(c echo.Context, _ *noRequest) (checkAchievementsResponse, error) {
	awarded, err := h.achievements.CheckAndAward(c.Request().Context(), h.actor(c).UserID)
	if err != nil {
		return checkAchievementsResponse{}, err
	}
	if awarded == nil {
		awarded = []domain.UserAchievement{}
	}
	return checkAchievementsResponse{Awarded: awarded}, nil
}

func (h *AchievementHandler) Create(c echo.Context, req *createAchievementRequest) (domain.Achievement, error) {
	return h.achievements.Create(c.Request().Context(), app.AchievementInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        domain.AchievementType(req.Type),
		Icon:        req.Icon,
		Points:      req.Points,
		Requirement: req.Requirement.toDomain(),
		IsActive:    req.IsActive,
	})
}

func (h *AchievementHandler) Update(c echo.Context, req *updateAchievementRequest) (domain.Achievement, error) {
	patch := app.AchievementPatch{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Points:      req.Points,
		IsActive:    req.IsActive,
	}
	if req.Type != nil {
		t := domain.AchievementType(*req.Type)
		patch.Type = &t
	}
	if req.Requirement != nil {
		r := req.Requirement.toDomain()
		patch.Requirement = &r
	}
	return h.achievements.Update(c.Request().Context(), req.ID, patch)
}

func (h *AchievementHandler) Delete(c echo.Context, req *idRequest) (map[string]any, error) {
	a, err := h.achievements.Delete(c.Request().Context(), req.ID)
	if err != nil {
		return nil, err
	}
	return deleted("Achievement", "achievement", a), nil
}

func (h *AchievementHandler) Award(c echo.Context, req *awardAchievementRequest) (domain.UserAchievement, error) {
	return h.achievements.Award(c.Request().Context(), req.UserID, req.ID)
}

func (h *AchievementHandler) register(g *echo.Group) {
	admin := []echo.MiddlewareFunc{h.auth.Authenticate, h.auth.RequireAdmin()}

	g.GET("", Handle(http.StatusOK, h.List))
	g.GET("/:id", Handle(http.StatusOK, h.Get))
	g.GET("/user/:userId", Handle(http.StatusOK, h.ForUser), h.auth.Authenticate)
	g.POST("/check", Handle(http.StatusOK, h.Check), h.auth.Authenticate)

	g.POST("", Handle(http.StatusCreated, h.Create), admin...)
	g.PUT("/:id", Handle(http.StatusOK, h.Update), admin...)
	g.DELETE("/:id", Handle(http.StatusOK, h.Delete), admin...)
	g.POST("/:id/award", Handle(http.StatusCreated, h.Award), admin...)
}
