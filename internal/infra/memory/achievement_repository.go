package memory

import (
	"context"
	"sort"
	"strings"

	"quiz-platform/internal/domain"
)

type AchievementRepository struct {
	s *Store
}

func (r *AchievementRepository) Create(_ context.Context, a *domain.Achievement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.uniqueLocked(*a); err != nil {
		return err
	}
	stored := *a
	stored.EarnedCount = 0
	r.s.achievements[a.ID] = stored
	return nil
}

func (r *AchievementRepository) Update(_ context.Context, a *domain.Achievement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.achievements[a.ID]; !ok {
		return domain.ErrAchievementNotFound
	}
	if err := r.uniqueLocked(*a); err != nil {
		return err
	}
	stored := *a
	stored.EarnedCount = 0
	r.s.achievements[a.ID] = stored
	return nil
}

func (r *AchievementRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.achievements[id]; !ok {
		return domain.ErrAchievementNotFound
	}
	delete(r.s.achievements, id)
	return nil
}

func (r *AchievementRepository) FindByID(_ context.Context, id string) (domain.Achievement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.achievements[id]
	if !ok {
		return domain.Achievement{}, domain.ErrAchievementNotFound
	}
	return r.decorateLocked(a), nil
}

func (r *AchievementRepository) FindByName(_ context.Context, name string) (domain.Achievement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.achievements {
		if strings.EqualFold(a.Name, name) {
			return r.decorateLocked(a), nil
		}
	}
	return domain.Achievement{}, domain.ErrAchievementNotFound
}

func (r *AchievementRepository) List(_ context.Context, f domain.AchievementFilter) ([]domain.Achievement, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []domain.Achievement
	for _, a := range r.sortedLocked() {
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.IsActive != nil && a.IsActive != *f.IsActive {
			continue
		}
		matched = append(matched, a)
	}
	return paginate(matched, f.Page), len(matched), nil
}

func (r *AchievementRepository) ListActive(_ context.Context) ([]domain.Achievement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Achievement
	for _, a := range r.sortedLocked() {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *AchievementRepository) HasUserAchievement(_ context.Context, userID, achievementID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, ua := range r.s.userAchievements {
		if ua.UserID == userID && ua.AchievementID == achievementID {
			return true, nil
		}
	}
	return false, nil
}

func (r *AchievementRepository) Award(_ context.Context, ua *domain.UserAchievement, points int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[ua.UserID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, existing := range r.s.userAchievements {
		if existing.UserID == ua.UserID && existing.AchievementID == ua.AchievementID {
			return domain.Conflict("User already has this achievement")
		}
	}
	stored := *ua
	stored.Achievement = nil
	r.s.userAchievements[ua.ID] = stored
	user.TotalScore += points
	r.s.users[user.ID] = user
	return nil
}

func (r *AchievementRepository) ListForUser(_ context.Context, userID string) ([]domain.UserAchievement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.UserAchievement{}
	for _, ua := range r.s.userAchievements {
		if ua.UserID != userID {
			continue
		}
		if a, ok := r.s.achievements[ua.AchievementID]; ok {
			a = r.decorateLocked(a)
			ua.Achievement = &a
		}
		out = append(out, ua)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EarnedAt.After(out[j].EarnedAt) })
	return out, nil
}

func (r *AchievementRepository) sortedLocked() []domain.Achievement {
	all := sortedValues(r.s.achievements, func(a, b domain.Achievement) bool {
		if a.Points != b.Points {
			return a.Points < b.Points
		}
		return a.Name < b.Name
	})
	for i := range all {
		all[i] = r.decorateLocked(all[i])
	}
	return all
}

func (r *AchievementRepository) decorateLocked(a domain.Achievement) domain.Achievement {
	for _, ua := range r.s.userAchievements {
		if ua.AchievementID == a.ID {
			a.EarnedCount++
		}
	}
	return a
}

func (r *AchievementRepository) uniqueLocked(a domain.Achievement) error {
	for _, other := range r.s.achievements {
		if other.ID != a.ID && strings.EqualFold(other.Name, a.Name) {
			return domain.Conflict("Achievement name must be unique")
		}
	}
	return nil
}
