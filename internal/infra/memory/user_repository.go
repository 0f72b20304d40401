package memory

import (
	"context"
	"strings"

	"quiz-platform/internal/domain"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.uniqueLocked(*u); err != nil {
		return err
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepository) Update(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if err := r.uniqueLocked(*u); err != nil {
		return err
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *UserRepository) FindByKeycloakID(_ context.Context, keycloakID string) (domain.User, error) {
	return r.findBy(func(u domain.User) bool { return u.KeycloakID == keycloakID })
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (domain.User, error) {
	return r.findBy(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (domain.User, error) {
	return r.findBy(func(u domain.User) bool { return u.Username == username })
}

func (r *UserRepository) List(_ context.Context, page domain.Page) ([]domain.User, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := sortedValues(r.s.users, func(a, b domain.User) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return paginate(all, page), len(all), nil
}

func (r *UserRepository) findBy(match func(domain.User) bool) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *UserRepository) uniqueLocked(u domain.User) error {
	for _, other := range r.s.users {
		if other.ID == u.ID {
			continue
		}
		switch {
		case strings.EqualFold(other.Email, u.Email):
			return domain.Conflict("Email already exists")
		case other.Username == u.Username:
			return domain.Conflict("Username already exists")
		case u.KeycloakID != "" && other.KeycloakID == u.KeycloakID:
			return domain.Conflict("Keycloak ID already exists")
		}
	}
	return nil
}
