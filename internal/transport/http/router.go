package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"quiz-platform/internal/app"
)

// Services are the application services exposed over HTTP.
type Services struct {
	Users        *app.UserService
	Categories   *app.CategoryService
	Tags         *app.TagService
	Quizzes      *app.QuizService
	Questions    *app.QuestionService
	Attempts     *app.AttemptService
	Achievements *app.AchievementService
	Leaderboards *app.LeaderboardService
	Exchanger    TokenExchanger
	Feedback     FeedbackService
}

type RouterConfig struct {
	CORSOrigins []string
}

// NewRouter builds the echo instance serving the v1 API, the leaderboard live feed and /health.
func NewRouter(cfg RouterConfig, svc Services, authmw *AuthMiddleware, health *HealthHandler, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = GlobalErrorHandler

	e.Use(RequestID())
	e.Use(EnhanceContext(log))
	e.Use(RequestLogger())
	e.Use(middleware.Recover())
	e.Use(CORS(cfg.CORSOrigins))
	e.Use(middleware.Secure())

	if health != nil {
		e.GET("/health", health.Check)
	}

	h := NewHandler(authmw)
	v1 := e.Group("/v1")

	users := v1.Group("/users", authmw.Authenticate)
	NewUserHandler(h, svc.Users).register(users)

	NewAuthHandler(h, svc.Exchanger, svc.Feedback).register(v1.Group("/auth"), v1.Group("/feedback"))

	NewCatalogHandler(h, svc.Categories, svc.Tags).register(v1.Group("/categories"), v1.Group("/tags"))

	quizzes := NewQuizHandler(h, svc.Quizzes, svc.Questions, svc.Attempts)
	quizzes.register(v1.Group("/quizzes"))
	quizzes.registerQuestions(v1.Group("/questions"))

	NewAttemptHandler(h, svc.Attempts).register(v1.Group("/attempts"))
	NewAchievementHandler(h, svc.Achievements).register(v1.Group("/achievements"))

	live := NewWSHandler(svc.Leaderboards, cfg.CORSOrigins)
	NewLeaderboardHandler(h, svc.Leaderboards).register(v1.Group("/leaderboards"), live)

	return e
}
