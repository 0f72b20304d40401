package postgres

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/uptrace/bun/driver/pgdriver"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"quiz-platform/internal/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidText         = "22P02"
)

// uniqueMessages overrides the generated message for constraints clients hit routinely.
var uniqueMessages = map[string]string{
	"users_email_key":       "Email already exists",
	"users_username_key":    "Username already exists",
	"users_keycloak_id_key": "Keycloak ID already exists",
	"categories_name_key":   "Category name must be unique",
	"tags_name_key":         "Tag name must be unique",
	"achievements_name_key": "Achievement name must be unique",

	"user_achievements_user_id_achievement_id_key": "User already has this achievement",
}

// uniqueErrors maps constraints to domain sentinels callers branch on.
var uniqueErrors = map[string]error{
	"quiz_attempts_active_idx": domain.ErrAttemptActive,
}

var constraintColumn = regexp.MustCompile(`^[a-z]+_(.+)_key$`)

// mapErr translates driver errors into domain errors. notFound is returned for missing rows
// and for ids that are not valid UUIDs.
func mapErr(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return notFound
	}

	var pgErr pgdriver.Error
	if !stderrors.As(err, &pgErr) {
		return err
	}
	constraint := pgErr.Field('n')
	switch pgErr.Field('C') {
	case codeUniqueViolation:
		if sentinel, ok := uniqueErrors[constraint]; ok {
			return sentinel
		}
		if msg, ok := uniqueMessages[constraint]; ok {
			return domain.Conflict(msg)
		}
		return domain.Conflict(fmt.Sprintf("%s already exists", humanize(constraintField(constraint))))
	case codeForeignKeyViolation:
		return domain.Invalid(fmt.Sprintf("The referenced %s does not exist", strings.ToLower(humanize(referencedEntity(constraint)))))
	case codeCheckViolation:
		return domain.Invalid("One or more values do not meet required conditions")
	case codeInvalidText:
		if notFound != nil {
			return notFound
		}
		return domain.Invalid("Invalid identifier")
	}
	return err
}

func constraintField(constraint string) string {
	if m := constraintColumn.FindStringSubmatch(constraint); len(m) > 1 {
		return m[1]
	}
	return "record"
}

// referencedEntity turns quizzes_category_id_fkey into "category".
func referencedEntity(constraint string) string {
	name := strings.TrimSuffix(constraint, "_fkey")
	if i := strings.Index(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "_id")
	if name == "" {
		return "record"
	}
	return name
}

func humanize(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
