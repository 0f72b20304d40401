package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

// Handler carries what every resource handler needs to identify the caller.
type Handler struct {
	auth *AuthMiddleware
}

func NewHandler(auth *AuthMiddleware) Handler {
	return Handler{auth: auth}
}

func (h Handler) actor(c echo.Context) app.Actor {
	return h.auth.actorFrom(c)
}

type UserHandler struct {
	Handler
	users *app.UserService
}

func NewUserHandler(h Handler, users *app.UserService) *UserHandler {
	return &UserHandler{Handler: h, users: users}
}

type listUsersRequest struct {
	PageQuery
}

type userQuizzesRequest struct {
	ID string `param:"id" json:"-" validate:"required"`
	PageQuery
}

type createUserRequest struct {
	KeycloakID string `json:"keycloakId" validate:"required,uuid"`
	Email      string `json:"email" validate:"required,email"`
	Username   string `json:"username" validate:"required,min=1,max=255"`
	FirstName  string `json:"firstName" validate:"max=255"`
	LastName   string `json:"lastName" validate:"max=255"`
	Avatar     string `json:"avatar" validate:"omitempty,uri"`
}

type updateUserRequest struct {
	ID        string  `param:"id" json:"-" validate:"required"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Username  *string `json:"username" validate:"omitempty,min=1,max=255"`
	FirstName *string `json:"firstName" validate:"omitempty,max=255"`
	LastName  *string `json:"lastName" validate:"omitempty,max=255"`
	Avatar    *string `json:"avatar" validate:"omitempty,uri"`
}

func (r *updateUserRequest) Validate() error {
	if r.Email == nil && r.Username == nil && r.FirstName == nil && r.LastName == nil && r.Avatar == nil {
		return domain.Invalid("At least one field must be provided for update")
	}
	return nil
}

func (h *UserHandler) List(c echo.Context, req *listUsersRequest) (domain.Paginated[domain.User], error) {
	return h.users.List(c.Request().Context(), req.toPage())
}

func (h *UserHandler) Profile(c echo.Context, _ *noRequest) (domain.User, error) {
	return h.users.Get(c.Request().Context(), h.actor(c).UserID)
}

func (h *UserHandler) Get(c echo.Context, req *idRequest) (domain.User, error) {
	return h.users.Get(c.Request().Context(), req.ID)
}

func (h *UserHandler) Quizzes(c echo.Context, req *userQuizzesRequest) (domain.Paginated[domain.Quiz], error) {
	return h.users.QuizzesBy(c.Request().Context(), req.ID, req.toPage())
}

func (h *UserHandler) Create(c echo.Context, req *createUserRequest) (domain.User, error) {
	return h.users.Create(c.Request().Context(), app.CreateUserInput{
		KeycloakID: req.KeycloakID,
		Email:      req.Email,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Avatar:     req.Avatar,
	})
}

func (h *UserHandler) Update(c echo.Context, req *updateUserRequest) (domain.User, error) {
	return h.users.Update(c.Request().Context(), h.actor(c), req.ID, app.UpdateUserInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
	})
}

func (h *UserHandler) Deactivate(c echo.Context, req *idRequest) (map[string]any, error) {
	user, err := h.users.Deactivate(c.Request().Context(), h.actor(c), req.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"message": "User deactivated successfully", "user": user}, nil
}

func (h *UserHandler) register(g *echo.Group) {
	g.GET("", Handle(http.StatusOK, h.List))
	g.GET("/profile", Handle(http.StatusOK, h.Profile))
	g.GET("/:id", Handle(http.StatusOK, h.Get))
	g.GET("/:id/quizzes", Handle(http.StatusOK, h.Quizzes))
	g.POST("", Handle(http.StatusCreated, h.Create), h.auth.RequireAdmin())
	g.PUT("/:id", Handle(http.StatusOK, h.Update))
	g.DELETE("/:id", Handle(http.StatusOK, h.Deactivate))
}
