package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"quiz-platform/internal/auth"
	"quiz-platform/internal/errs"
	"quiz-platform/internal/feedback"
)

type TokenExchanger interface {
	Configured() bool
	Exchange(ctx context.Context, subjectToken, audience string) (auth.ExchangedToken, error)
}

type FeedbackService interface {
	Create(ctx context.Context, message, callerToken string) (feedback.Feedback, error)
	List(ctx context.Context, callerToken string) ([]feedback.Feedback, error)
}

// AuthHandler serves token exchange and proxies feedback, the two routes that act on the caller's token.
type AuthHandler struct {
	Handler
	exchanger TokenExchanger
	feedback  FeedbackService
}

func NewAuthHandler(h Handler, exchanger TokenExchanger, fb FeedbackService) *AuthHandler {
	return &AuthHandler{Handler: h, exchanger: exchanger, feedback: fb}
}

type tokenExchangeRequest struct {
	Audience string `json:"audience" validate:"max=255"`
}

type createFeedbackRequest struct {
	Message string `json:"message" validate:"required"`
}

func (h *AuthHandler) TokenExchange(c echo.Context, req *tokenExchangeRequest) (auth.ExchangedToken, error) {
	if h.exchanger == nil || !h.exchanger.Configured() {
		return auth.ExchangedToken{}, errs.NewServiceUnavailableError("Token exchange is not configured")
	}
	p, _ := principalFrom(c)
	token, err := h.exchanger.Exchange(c.Request().Context(), p.Token, req.Audience)
	if err != nil {
		GetLogger(c).Error().Err(err).Str("audience", req.Audience).Msg("token exchange failed")
		return auth.ExchangedToken{}, errs.NewBadGatewayError("Token exchange failed")
	}
	return token, nil
}

func (h *AuthHandler) CreateFeedback(c echo.Context, req *createFeedbackRequest) (feedback.Feedback, error) {
	return h.feedback.Create(c.Request().Context(), req.Message, callerToken(c))
}

func (h *AuthHandler) ListFeedback(c echo.Context, _ *noRequest) ([]feedback.Feedback, error) {
	return h.feedback.List(c.Request().Context(), callerToken(c))
}

func callerToken(c echo.Context) string {
	p, _ := principalFrom(c)
	return p.Token
}

func (h *AuthHandler) register(authGroup, feedbackGroup *echo.Group) {
	authGroup.POST("/token-exchange", Handle(http.StatusOK, h.TokenExchange), h.auth.Authenticate)

	feedbackGroup.Use(h.auth.OptionalAuth)
	feedbackGroup.POST("", Handle(http.StatusCreated, h.CreateFeedback))
	feedbackGroup.GET("", Handle(http.StatusOK, h.ListFeedback))
}
