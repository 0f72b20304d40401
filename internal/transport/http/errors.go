package http

import (
	"github.com/pkg/errors"

	"quiz-platform/internal/domain"
	"quiz-platform/internal/errs"
)

var alreadyExistsCode = errs.CodeAlreadyExists

// fromDomain maps domain error kinds to HTTP errors. It returns nil for anything else.
// Uniqueness conflicts stay at 400 and are told apart by their code.
func fromDomain(err error) *errs.HTTPError {
	msg := err.Error()
	var rule *domain.RuleError
	if errors.As(err, &rule) {
		msg = rule.Message
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return errs.NewNotFoundError(msg, true, nil)
	case errors.Is(err, domain.ErrInvalidInput):
		return errs.NewBadRequestError(msg, true, nil, nil, nil)
	case errors.Is(err, domain.ErrConflict):
		return errs.NewBadRequestError(msg, true, &alreadyExistsCode, nil, nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return errs.NewUnauthorizedError(msg, true)
	case errors.Is(err, domain.ErrForbidden):
		return errs.NewForbiddenError(msg, true)
	}
	return nil
}
