package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiz-platform/internal/domain"
)

type CreateUserInput struct {
	KeycloakID string
	Email      string
	Username   string
	FirstName  string
	LastName   string
	Avatar     string
}

type UpdateUserInput struct {
	Email     *string
	Username  *string
	FirstName *string
	LastName  *string
	Avatar    *string
}

// Identity is the subset of token claims used to provision a local user.
type Identity struct {
	Subject   string
	Email     string
	Username  string
	FirstName string
	LastName  string
}

type UserService struct {
	users   UserRepository
	quizzes QuizRepository
	now     func() time.Time
}

func NewUserService(users UserRepository, quizzes QuizRepository) *UserService {
	return &UserService{users: users, quizzes: quizzes, now: time.Now}
}

func (s *UserService) List(ctx context.Context, page domain.Page) (domain.Paginated[domain.User], error) {
	page = page.Normalize()
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return domain.Paginated[domain.User]{}, err
	}
	return domain.NewPaginated(users, total, page), nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (domain.User, error) {
	if err := s.ensureUnique(ctx, "", in.Email, in.Username, in.KeycloakID); err != nil {
		return domain.User{}, err
	}
	now := s.now().UTC()
	user := domain.User{
		ID:         uuid.NewString(),
		KeycloakID: in.KeycloakID,
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Username:   strings.TrimSpace(in.Username),
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Avatar:     in.Avatar,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, actor Actor, id string, in UpdateUserInput) (domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if !actor.Owns(user.ID) {
		return domain.User{}, domain.Forbidden("You can only update your own profile")
	}

	var email, username string
	if in.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
	}
	if err := s.ensureUnique(ctx, user.ID, email, username, ""); err != nil {
		return domain.User{}, err
	}

	if email != "" {
		user.Email = email
	}
	if username != "" {
		user.Username = username
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Avatar != nil {
		user.Avatar = *in.Avatar
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Deactivate disables the account; historic attempts and entries stay intact.
func (s *UserService) Deactivate(ctx context.Context, actor Actor, id string) (domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if !actor.Owns(user.ID) {
		return domain.User{}, domain.Forbidden("You can only deactivate your own account")
	}
	user.IsActive = false
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) QuizzesBy(ctx context.Context, userID string, page domain.Page) (domain.Paginated[domain.Quiz], error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return domain.Paginated[domain.Quiz]{}, err
	}
	page = page.Normalize()
	quizzes, total, err := s.quizzes.List(ctx, domain.QuizFilter{AuthorID: userID, Page: page})
	if err != nil {
		return domain.Paginated[domain.Quiz]{}, err
	}
	return domain.NewPaginated(quizzes, total, page), nil
}

// EnsureFromIdentity returns the local user for a token subject, creating it on first sight.
func (s *UserService) EnsureFromIdentity(ctx context.Context, id Identity) (domain.User, error) {
	if id.Subject == "" {
		return domain.User{}, domain.ErrUnauthorized
	}
	user, err := s.users.FindByKeycloakID(ctx, id.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		email = id.Subject + "@users.invalid"
	}
	username, err := s.availableUsername(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	user, err = s.Create(ctx, CreateUserInput{
		KeycloakID: id.Subject,
		Email:      email,
		Username:   username,
		FirstName:  id.FirstName,
		LastName:   id.LastName,
	})
	if errors.Is(err, domain.ErrConflict) {
		// a concurrent request may have provisioned the same subject
		if existing, findErr := s.users.FindByKeycloakID(ctx, id.Subject); findErr == nil {
			return existing, nil
		}
	}
	return user, err
}

func (s *UserService) availableUsername(ctx context.Context, id Identity) (string, error) {
	base := strings.TrimSpace(id.Username)
	if base == "" {
		base, _, _ = strings.Cut(id.Email, "@")
	}
	if base == "" {
		base = "user"
	}

	candidate := base
	suffix := strings.ReplaceAll(id.Subject, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	for i := 0; i < 2; i++ {
		_, err := s.users.FindByUsername(ctx, candidate)
		if errors.Is(err, domain.ErrUserNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = base + "-" + suffix
	}
	return base + "-" + uuid.NewString()[:8], nil
}

func (s *UserService) ensureUnique(ctx context.Context, selfID, email, username, keycloakID string) error {
	checks := []struct {
		value string
		find  func(context.Context, string) (domain.User, error)
		msg   string
	}{
		{strings.ToLower(strings.TrimSpace(email)), s.users.FindByEmail, "Email already exists"},
		{strings.TrimSpace(username), s.users.FindByUsername, "Username already exists"},
		{keycloakID, s.users.FindByKeycloakID, "Keycloak ID already exists"},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		existing, err := c.find(ctx, c.value)
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
		case err != nil:
			return err
		case existing.ID != selfID:
			return domain.Conflict(c.msg)
		}
	}
	return nil
}
