package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthTimeout = 5 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	env    string
	checks map[string]HealthCheck
	now    func() time.Time
}

// NewHealthHandler reports each named dependency; a nil check is shown as "disabled".
func NewHealthHandler(env string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{env: env, checks: checks, now: time.Now}
}

type healthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks"`
}

func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	res := healthResponse{
		Status:      "ok",
		Timestamp:   h.now().UTC(),
		Environment: h.env,
		Checks:      make(map[string]string, len(h.checks)),
	}
	for name, check := range h.checks {
		if check == nil {
			res.Checks[name] = "disabled"
			continue
		}
		if err := check(ctx); err != nil {
			GetLogger(c).Warn().Err(err).Str("check", name).Msg("health check failed")
			res.Checks[name] = "unhealthy"
			res.Status = "degraded"
			continue
		}
		res.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if res.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, res)
}
