package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

type LeaderboardHandler struct {
	Handler
	leaderboards *app.LeaderboardService
}

func NewLeaderboardHandler(h Handler, leaderboards *app.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{Handler: h, leaderboards: leaderboards}
}

type listLeaderboardsRequest struct {
	Type       string `query:"type" validate:"omitempty,oneof=GLOBAL CATEGORY WEEKLY MONTHLY"`
	CategoryID string `query:"categoryId"`
	IsActive   string `query:"isActive" validate:"omitempty,oneof=true false"`
	PageQuery
}

type leaderboardEntriesRequest struct {
	ID    string `param:"id" json:"-" validate:"required"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

type userPositionRequest struct {
	UserID     string `param:"userId" json:"-" validate:"required"`
	Type       string `query:"type" validate:"omitempty,oneof=GLOBAL CATEGORY WEEKLY MONTHLY"`
	CategoryID string `query:"categoryId"`
}

type createLeaderboardRequest struct {
	Name       string  `json:"name" validate:"required,min=1,max=255"`
	Type       string  `json:"type" validate:"required,oneof=GLOBAL CATEGORY WEEKLY MONTHLY"`
	Period     string  `json:"period" validate:"max=50"`
	CategoryID *string `json:"categoryId"`
	IsActive   *bool   `json:"isActive"`
}

func (r *createLeaderboardRequest) Validate() error {
	if r.Type == string(domain.LeaderboardCategory) && (r.CategoryID == nil || *r.CategoryID == "") {
		return domain.Invalid("Category ID is required for category leaderboards")
	}
	return nil
}

type updateLeaderboardRequest struct {
	ID         string  `param:"id" json:"-" validate:"required"`
	Name       *string `json:"name" validate:"omitempty,min=1,max=255"`
	Period     *string `json:"period" validate:"omitempty,max=50"`
	CategoryID *string `json:"categoryId"`
	IsActive   *bool   `json:"isActive"`
}

type initializeResponse struct {
	Message      string               `json:"message"`
	Leaderboards []domain.Leaderboard `json:"leaderboards"`
}

func (h *LeaderboardHandler) List(c echo.Context, req *listLeaderboardsRequest) (domain.Paginated[domain.Leaderboard], error) {
	return h.leaderboards.List(c.Request().Context(), domain.LeaderboardFilter{
		Type:       domain.LeaderboardType(req.Type),
		CategoryID: req.CategoryID,
		IsActive:   parseOptionalBool(req.IsActive),
		Page:       req.toPage(),
	})
}

func (h *LeaderboardHandler) Get(c echo.Context, req *idRequest) (domain.Leaderboard, error) {
	return h.leaderboards.Get(c.Request().Context(), req.ID)
}

func (h *LeaderboardHandler) Entries(c echo.Context, req *leaderboardEntriesRequest) ([]domain.LeaderboardEntry, error) {
	entries, err := h.leaderboards.Entries(c.Request().Context(), req.ID, req.Limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	return entries, nil
}

func (h *LeaderboardHandler) UserPosition(c echo.Context, req *userPositionRequest) (domain.UserPosition, error) {
	return h.leaderboards.UserPosition(c.Request().Context(), req.UserID, domain.LeaderboardType(req.Type), req.CategoryID)
}

func (h *LeaderboardHandler) Create(c echo.Context, req *createLeaderboardRequest) (domain.Leaderboard, error) {
	return h.leaderboards.Create(c.Request().Context(), app.LeaderboardInput{
		Name:       req.Name,
		Type:       domain.LeaderboardType(req.Type),
		Period:     req.Period,
		CategoryID: req.CategoryID,
		IsActive:   req.IsActive,
	})
}

func (h *LeaderboardHandler) Update(c echo.Context, req *updateLeaderboardRequest) (domain.Leaderboard, error) {
	return h.leaderboards.Update(c.Request().Context(), req.ID, app.LeaderboardPatch{
		Name:       req.Name,
		Period:     req.Period,
		CategoryID: req.CategoryID,
		IsActive:   req.IsActive,
	})
}

func (h *LeaderboardHandler) Delete(c echo.Context, req *idRequest) (map[string]any, error) {
	lb, err := h.leaderboards.Delete(c.Request().Context(), req.ID)
	if err != nil {
		return nil, err
	}
	return deleted("Leaderboard", "leaderboard", lb), nil
}

func (h *LeaderboardHandler) Recompute(c echo.Context, req *idRequest) (domain.Leaderboard, error) {
	return h.leaderboards.Recompute(c.Request().Context(), req.ID)
}

// Initialize creates the global, weekly, monthly and per-category boards that are missing.
func (h *LeaderboardHandler) Initialize(c echo.Context, _ *noRequest) (initializeResponse, error) {
	boards, err := h.leaderboards.InitializeSystem(c.Request().Context())
	if err != nil {
		return initializeResponse{}, err
	}
	if boards == nil {
		boards = []domain.Leaderboard{}
	}
	return initializeResponse{Message: "System leaderboards initialized", Leaderboards: boards}, nil
}

func (h *LeaderboardHandler) register(g *echo.Group, live *WSHandler) {
	admin := []echo.MiddlewareFunc{h.auth.Authenticate, h.auth.RequireAdmin()}

	g.GET("", Handle(http.StatusOK, h.List))
	g.GET("/:id", Handle(http.StatusOK, h.Get))
	g.GET("/:id/entries", Handle(http.StatusOK, h.Entries))
	g.GET("/:id/live", live.ServeLive)
	g.GET("/user/:userId", Handle(http.StatusOK, h.UserPosition), h.auth.Authenticate)

	g.POST("", Handle(http.StatusCreated, h.Create), admin...)
	g.POST("/initialize", Handle(http.StatusOK, h.Initialize), admin...)
	g.POST("/:id/recompute", Handle(http.StatusOK, h.Recompute), admin...)
	g.PUT("/:id", Handle(http.StatusOK, h.Update), admin...)
	g.DELETE("/:id", Handle(http.StatusOK, h.Delete), admin...)
}
