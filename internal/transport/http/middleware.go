package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"quiz-platform/internal/errs"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	loggerKey    = "logger"
	userIDKey    = "user_id"
)

// RequestID reuses the caller's X-Request-ID or generates one.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set(requestIDKey, id)
			c.Response().Header().Set(RequestIDHeader, id)
			return next(c)
		}
	}
}

// EnhanceContext attaches a request-scoped logger to the echo context and the request context.
func EnhanceContext(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := base.With().
				Str("request_id", GetRequestID(c)).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("ip", c.RealIP()).
				Logger()
			setLogger(c, log)
			return next(c)
		}
	}
}

func setLogger(c echo.Context, log zerolog.Logger) {
	c.Set(loggerKey, &log)
	c.SetRequest(c.Request().WithContext(log.WithContext(c.Request().Context())))
}

func GetLogger(c echo.Context) *zerolog.Logger {
	if log, ok := c.Get(loggerKey).(*zerolog.Logger); ok && log != nil {
		return log
	}
	nop := zerolog.Nop()
	return &nop
}

func GetRequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}

func GetUserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// RequestLogger writes one line per request. The level follows the final status, which for
// failed requests is derived from the returned error.
func RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			status := v.Status
			if v.Error != nil {
				status = toHTTPError(v.Error).Status
			}

			log := GetLogger(c)
			var e *zerolog.Event
			switch {
			case status >= 500:
				e = log.Error().Err(v.Error)
			case status >= 400:
				e = log.Warn()
			default:
				e = log.Info()
			}
			if userID := GetUserID(c); userID != "" {
				e = e.Str("user_id", userID)
			}
			e.Dur("latency", v.Latency).
				Int("status", status).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")
			return nil
		},
	})
}

func CORS(origins []string) echo.MiddlewareFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, RequestIDHeader},
	})
}

// GlobalErrorHandler writes every failed request as an errs.HTTPError body.
// Causes of 5xx responses are logged and never returned.
func GlobalErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	httpErr := toHTTPError(err)
	if httpErr.Status >= http.StatusInternalServerError {
		GetLogger(c).Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(httpErr.Status)
	} else {
		writeErr = c.JSON(httpErr.Status, httpErr)
	}
	if writeErr != nil {
		GetLogger(c).Error().Err(writeErr).Msg("failed to write error response")
	}
}

func toHTTPError(err error) *errs.HTTPError {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	if mapped := fromDomain(err); mapped != nil {
		return mapped
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		switch echoErr.Code {
		case http.StatusNotFound:
			return errs.NewNotFoundError("Route not found", false, nil)
		case http.StatusMethodNotAllowed:
			return &errs.HTTPError{
				Code:    errs.MakeUpperCaseWithUnderscores(http.StatusText(http.StatusMethodNotAllowed)),
				Message: http.StatusText(http.StatusMethodNotAllowed),
				Status:  http.StatusMethodNotAllowed,
			}
		case http.StatusBadRequest, http.StatusUnsupportedMediaType:
			return errs.NewBadRequestError(bindMessage(echoErr), false, nil, nil, nil)
		case http.StatusUnauthorized:
			return errs.NewUnauthorizedError(bindMessage(echoErr), false)
		case http.StatusForbidden:
			return errs.NewForbiddenError(bindMessage(echoErr), false)
		}
		if echoErr.Code < http.StatusInternalServerError {
			return &errs.HTTPError{
				Code:    errs.MakeUpperCaseWithUnderscores(http.StatusText(echoErr.Code)),
				Message: bindMessage(echoErr),
				Status:  echoErr.Code,
			}
		}
	}
	return errs.NewInternalServerError()
}

func bindMessage(err *echo.HTTPError) string {
	if msg, ok := err.Message.(string); ok && msg != "" {
		return msg
	}
	return http.StatusText(err.Code)
}
