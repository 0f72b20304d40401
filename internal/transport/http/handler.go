package http

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"quiz-platform/internal/domain"
	"quiz-platform/internal/errs"
)

// HandlerFunc is a typed endpoint. Req is bound and validated before the call.
type HandlerFunc[Req any, Res any] func(c echo.Context, req *Req) (Res, error)

// noRequest is the request type of endpoints that read nothing from the request.
type noRequest struct{}

// Handle wraps fn as an echo handler writing Res as JSON with status.
func Handle[Req any, Res any](status int, fn HandlerFunc[Req, Res]) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(Req)
		if err := bindAndValidate(c, req); err != nil {
			return err
		}
		start := time.Now()
		res, err := fn(c, req)
		if err != nil {
			return err
		}
		GetLogger(c).Debug().Dur("handler_duration", time.Since(start)).Msg("request completed successfully")
		return c.JSON(status, res)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// validatable requests check rules that struct tags cannot express.
type validatable interface {
	Validate() error
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			return errs.NewBadRequestError(bindMessage(echoErr), false, nil, nil, nil)
		}
		return errs.NewBadRequestError("Invalid request", false, nil, nil, nil)
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return errs.NewValidationError("Validation failed", fieldErrors(verrs))
		}
		// non-struct requests carry nothing to validate
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return err
		}
	}
	if v, ok := req.(validatable); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func fieldErrors(verrs validator.ValidationErrors) []errs.FieldError {
	out := make([]errs.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "min":
			if fe.Kind() == reflect.String {
				msg = fmt.Sprintf("must be at least %s characters", fe.Param())
			} else if fe.Kind() == reflect.Slice {
				msg = fmt.Sprintf("must contain at least %s items", fe.Param())
			} else {
				msg = fmt.Sprintf("must be at least %s", fe.Param())
			}
		case "max":
			if fe.Kind() == reflect.String {
				msg = fmt.Sprintf("must not exceed %s characters", fe.Param())
			} else {
				msg = fmt.Sprintf("must not exceed %s", fe.Param())
			}
		case "oneof":
			msg = fmt.Sprintf("must be one of: %s", fe.Param())
		case "email":
			msg = "must be a valid email address"
		case "uuid":
			msg = "must be a valid UUID"
		case "url":
			msg = "must be a valid URL"
		case "hexcolor":
			msg = "must be a hex color"
		case "dive":
			msg = "some items are invalid"
		default:
			if fe.Param() != "" {
				msg = fmt.Sprintf("%s: %s", fe.Tag(), fe.Param())
			} else {
				msg = fe.Tag()
			}
		}
		out = append(out, errs.FieldError{Field: fieldPath(fe), Error: msg})
	}
	return out
}

// fieldPath drops the request struct name and embedded query structs:
// "createQuestionRequest.answers[0].text" -> "answers[0].text".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	i := strings.Index(ns, ".")
	if i < 0 {
		return fe.Field()
	}
	return strings.TrimPrefix(ns[i+1:], "PageQuery.")
}

// PageQuery holds the pagination parameters shared by list endpoints.
// It must stay exported: echo does not bind embedded unexported structs.
type PageQuery struct {
	Page  int `query:"page" validate:"gte=0"`
	Limit int `query:"limit" validate:"gte=0,lte=100"`
}

func (q PageQuery) toPage() domain.Page {
	return domain.Page{Page: q.Page, Limit: q.Limit}
}

// parseOptionalBool reads "true"/"false" query values; anything else is unset.
func parseOptionalBool(s string) *bool {
	switch strings.ToLower(s) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}

// deleted is the body of delete endpoints: {"message": "Quiz deleted successfully", "quiz": {...}}.
func deleted(entity, key string, v any) map[string]any {
	return map[string]any{
		"message": entity + " deleted successfully",
		key:       v,
	}
}

// nullable tells an absent JSON field apart from an explicit null.
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// clearable maps a nullable string onto the services' convention: nil keeps the value,
// an empty string clears it.
func clearable(n nullable[string]) *string {
	if !n.Set {
		return nil
	}
	if n.Value == nil {
		empty := ""
		return &empty
	}
	return n.Value
}
