package memory

import (
	"context"
	"sort"
	"time"

	"quiz-platform/internal/domain"
)

type LeaderboardRepository struct {
	s *Store
}

func (r *LeaderboardRepository) Create(_ context.Context, lb *domain.Leaderboard) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *lb
	stored.EntriesCount = 0
	r.s.leaderboards[lb.ID] = stored
	return nil
}

func (r *LeaderboardRepository) Update(_ context.Context, lb *domain.Leaderboard) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.leaderboards[lb.ID]; !ok {
		return domain.ErrLeaderboardNotFound
	}
	stored := *lb
	stored.EntriesCount = 0
	r.s.leaderboards[lb.ID] = stored
	return nil
}

func (r *LeaderboardRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.leaderboards[id]; !ok {
		return domain.ErrLeaderboardNotFound
	}
	delete(r.s.leaderboards, id)
	delete(r.s.entries, id)
	return nil
}

func (r *LeaderboardRepository) FindByID(_ context.Context, id string) (domain.Leaderboard, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	lb, ok := r.s.leaderboards[id]
	if !ok {
		return domain.Leaderboard{}, domain.ErrLeaderboardNotFound
	}
	lb.EntriesCount = len(r.s.entries[id])
	return lb, nil
}

func (r *LeaderboardRepository) FindActive(_ context.Context, typ domain.LeaderboardType, categoryID string) (domain.Leaderboard, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, lb := range r.sortedLocked() {
		if !lb.IsActive || lb.Type != typ {
			continue
		}
		if categoryID != "" && (lb.CategoryID == nil || *lb.CategoryID != categoryID) {
			continue
		}
		return lb, nil
	}
	return domain.Leaderboard{}, domain.ErrLeaderboardNotFound
}

func (r *LeaderboardRepository) List(_ context.Context, f domain.LeaderboardFilter) ([]domain.Leaderboard, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []domain.Leaderboard
	for _, lb := range r.sortedLocked() {
		if (f.Type != "" && lb.Type != f.Type) ||
			(f.IsActive != nil && lb.IsActive != *f.IsActive) ||
			(f.CategoryID != "" && (lb.CategoryID == nil || *lb.CategoryID != f.CategoryID)) {
			continue
		}
		matched = append(matched, lb)
	}
	return paginate(matched, f.Page), len(matched), nil
}

func (r *LeaderboardRepository) ReplaceEntries(_ context.Context, leaderboardID string, entries []domain.LeaderboardEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.leaderboards[leaderboardID]; !ok {
		return domain.ErrLeaderboardNotFound
	}
	r.s.entries[leaderboardID] = append([]domain.LeaderboardEntry(nil), entries...)
	return nil
}

func (r *LeaderboardRepository) Entries(_ context.Context, leaderboardID string, limit int) ([]domain.LeaderboardEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored := r.s.entries[leaderboardID]
	out := make([]domain.LeaderboardEntry, 0, len(stored))
	for _, e := range stored {
		out = append(out, r.withUserLocked(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *LeaderboardRepository) EntryForUser(_ context.Context, leaderboardID, userID string) (domain.LeaderboardEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.entries[leaderboardID] {
		if e.UserID == userID {
			return r.withUserLocked(e), nil
		}
	}
	return domain.LeaderboardEntry{}, domain.ErrEntryNotFound
}

func (r *LeaderboardRepository) withUserLocked(e domain.LeaderboardEntry) domain.LeaderboardEntry {
	if u, ok := r.s.users[e.UserID]; ok {
		e.Username = u.Username
		e.Avatar = u.Avatar
	}
	return e
}

func (r *LeaderboardRepository) sortedLocked() []domain.Leaderboard {
	all := sortedValues(r.s.leaderboards, func(a, b domain.Leaderboard) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	for i := range all {
		all[i].EntriesCount = len(r.s.entries[all[i].ID])
	}
	return all
}

// ScoreSource aggregates scores straight from the stored users and attempts.
type ScoreSource struct {
	s *Store
}

func (src *ScoreSource) TotalScores(_ context.Context, limit int) ([]domain.UserScore, error) {
	src.s.mu.RLock()
	defer src.s.mu.RUnlock()
	totals := make(map[string]int)
	for _, u := range src.s.users {
		if u.IsActive {
			totals[u.ID] = u.TotalScore
		}
	}
	return rankScores(totals, limit), nil
}

func (src *ScoreSource) CategoryScores(_ context.Context, categoryID string, limit int) ([]domain.UserScore, error) {
	return src.sumCompleted(limit, func(a domain.QuizAttempt) bool {
		return src.s.quizzes[a.QuizID].CategoryID == categoryID
	}), nil
}

func (src *ScoreSource) ScoresSince(_ context.Context, since time.Time, limit int) ([]domain.UserScore, error) {
	return src.sumCompleted(limit, func(a domain.QuizAttempt) bool {
		return a.CompletedAt != nil && !a.CompletedAt.Before(since)
	}), nil
}

func (src *ScoreSource) sumCompleted(limit int, match func(domain.QuizAttempt) bool) []domain.UserScore {
	src.s.mu.RLock()
	defer src.s.mu.RUnlock()
	totals := make(map[string]int)
	for _, a := range src.s.attempts {
		if a.Status != domain.AttemptCompleted || a.Score == nil || !match(a) {
			continue
		}
		totals[a.UserID] += *a.Score
	}
	return rankScores(totals, limit)
}

func rankScores(totals map[string]int, limit int) []domain.UserScore {
	out := make([]domain.UserScore, 0, len(totals))
	for id, score := range totals {
		out = append(out, domain.UserScore{UserID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
