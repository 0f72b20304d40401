package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"quiz-platform/internal/domain"
)

const (
	DefaultLeaderboardSize = 100
	recomputeParallelism   = 4
)

type LeaderboardInput struct {
	Name       string
	Type       domain.LeaderboardType
	Period     string
	CategoryID *string
	IsActive   *bool
}

type LeaderboardPatch struct {
	Name       *string
	Period     *string
	CategoryID *string
	IsActive   *bool
}

// LeaderboardService maintains ranked leaderboards and streams their updates.
type LeaderboardService struct {
	leaderboards LeaderboardRepository
	categories   CategoryRepository
	scores       ScoreSource
	cache        EntryCache
	hub          *LeaderboardHub
	publisher    SnapshotPublisher
	size         int
	log          zerolog.Logger
	now          func() time.Time
}

func NewLeaderboardService(
	leaderboards LeaderboardRepository,
	categories CategoryRepository,
	scores ScoreSource,
	cache EntryCache,
	hub *LeaderboardHub,
	size int,
	log zerolog.Logger,
) *LeaderboardService {
	if size <= 0 {
		size = DefaultLeaderboardSize
	}
	return &LeaderboardService{
		leaderboards: leaderboards,
		categories:   categories,
		scores:       scores,
		cache:        cache,
		hub:          hub,
		publisher:    localPublisher{hub: hub},
		size:         size,
		log:          log,
		now:          time.Now,
	}
}

// WithPublisher routes recomputed snapshots through p instead of straight into the local hub.
func (s *LeaderboardService) WithPublisher(p SnapshotPublisher) *LeaderboardService {
	s.publisher = p
	return s
}

// WithClock replaces the time source used for weekly and monthly windows.
func (s *LeaderboardService) WithClock(now func() time.Time) *LeaderboardService {
	s.now = now
	return s
}

func (s *LeaderboardService) List(ctx context.Context, f domain.LeaderboardFilter) (domain.Paginated[domain.Leaderboard], error) {
	f.Page = f.Page.Normalize()
	items, total, err := s.leaderboards.List(ctx, f)
	if err != nil {
		return domain.Paginated[domain.Leaderboard]{}, err
	}
	return domain.NewPaginated(items, total, f.Page), nil
}

func (s *LeaderboardService) Get(ctx context.Context, id string) (domain.Leaderboard, error) {
	return s.leaderboards.FindByID(ctx, id)
}

func (s *LeaderboardService) Create(ctx context.Context, in LeaderboardInput) (domain.Leaderboard, error) {
	categoryID, err := s.categoryFor(ctx, in.Type, in.CategoryID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	now := s.now().UTC()
	lb := domain.Leaderboard{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Type:       in.Type,
		Period:     in.Period,
		CategoryID: categoryID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.IsActive != nil {
		lb.IsActive = *in.IsActive
	}
	if err := s.leaderboards.Create(ctx, &lb); err != nil {
		return domain.Leaderboard{}, err
	}
	return lb, nil
}

func (s *LeaderboardService) Update(ctx context.Context, id string, patch LeaderboardPatch) (domain.Leaderboard, error) {
	lb, err := s.leaderboards.FindByID(ctx, id)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if patch.CategoryID != nil {
		categoryID, err := s.categoryFor(ctx, lb.Type, patch.CategoryID)
		if err != nil {
			return domain.Leaderboard{}, err
		}
		lb.CategoryID = categoryID
	}
	if patch.Name != nil {
		lb.Name = *patch.Name
	}
	if patch.Period != nil {
		lb.Period = *patch.Period
	}
	if patch.IsActive != nil {
		lb.IsActive = *patch.IsActive
	}
	lb.UpdatedAt = s.now().UTC()
	if err := s.leaderboards.Update(ctx, &lb); err != nil {
		return domain.Leaderboard{}, err
	}
	return s.leaderboards.FindByID(ctx, id)
}

func (s *LeaderboardService) Delete(ctx context.Context, id string) (domain.Leaderboard, error) {
	lb, err := s.leaderboards.FindByID(ctx, id)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if err := s.leaderboards.Delete(ctx, id); err != nil {
		return domain.Leaderboard{}, err
	}
	s.cache.Invalidate(ctx, id)
	return lb, nil
}

// Recompute rebuilds a leaderboard's entries from current scores. Inactive boards are left untouched.
func (s *LeaderboardService) Recompute(ctx context.Context, id string) (domain.Leaderboard, error) {
	lb, err := s.leaderboards.FindByID(ctx, id)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if !lb.IsActive {
		return lb, nil
	}

	scores, err := s.scoresFor(ctx, lb)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	now := s.now().UTC()
	entries := make([]domain.LeaderboardEntry, 0, len(scores))
	for i, sc := range scores {
		entries = append(entries, domain.LeaderboardEntry{
			LeaderboardID: lb.ID,
			UserID:        sc.UserID,
			Score:         sc.Score,
			Position:      i + 1,
			CreatedAt:     now,
		})
	}
	if err := s.leaderboards.ReplaceEntries(ctx, lb.ID, entries); err != nil {
		return domain.Leaderboard{}, err
	}
	s.cache.Invalidate(ctx, lb.ID)

	ranked, err := s.leaderboards.Entries(ctx, lb.ID, s.size)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	s.cache.Set(ctx, lb.ID, ranked)
	snapshot := domain.LeaderboardSnapshot{LeaderboardID: lb.ID, Entries: ranked, UpdatedAt: now}
	if err := s.publisher.Publish(ctx, snapshot); err != nil {
		s.log.Warn().Err(err).Str("leaderboard_id", lb.ID).Msg("failed to publish leaderboard snapshot")
	}

	s.log.Debug().
		Str("leaderboard_id", lb.ID).
		Str("type", string(lb.Type)).
		Int("entries", len(entries)).
		Msg("leaderboard recomputed")

	lb.EntriesCount = len(entries)
	return lb, nil
}

// RecomputeAll recomputes every active leaderboard.
func (s *LeaderboardService) RecomputeAll(ctx context.Context) error {
	active := true
	var boards []domain.Leaderboard
	for page := 1; ; page++ {
		batch, total, err := s.leaderboards.List(ctx, domain.LeaderboardFilter{
			IsActive: &active,
			Page:     domain.Page{Page: page, Limit: domain.MaxPageSize},
		})
		if err != nil {
			return err
		}
		boards = append(boards, batch...)
		if len(batch) == 0 || len(boards) >= total {
			break
		}
	}
	return s.recomputeMany(ctx, boards)
}

// InitializeSystem makes sure the built-in leaderboards exist, then recomputes them.
func (s *LeaderboardService) InitializeSystem(ctx context.Context) ([]domain.Leaderboard, error) {
	defs := []LeaderboardInput{
		{Name: "Global Rankings", Type: domain.LeaderboardGlobal},
		{Name: "Weekly Challenge", Type: domain.LeaderboardWeekly, Period: "weekly"},
		{Name: "Monthly Stars", Type: domain.LeaderboardMonthly, Period: "monthly"},
	}
	categories, err := s.categories.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		if c.ParentID != nil {
			continue
		}
		id := c.ID
		defs = append(defs, LeaderboardInput{Name: c.Name + " Masters", Type: domain.LeaderboardCategory, CategoryID: &id})
	}

	boards := make([]domain.Leaderboard, 0, len(defs))
	for _, def := range defs {
		f := domain.LeaderboardFilter{Type: def.Type, Page: domain.Page{Page: 1, Limit: 1}}
		if def.CategoryID != nil {
			f.CategoryID = *def.CategoryID
		}
		existing, _, err := s.leaderboards.List(ctx, f)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			boards = append(boards, existing[0])
			continue
		}
		lb, err := s.Create(ctx, def)
		if err != nil {
			return nil, err
		}
		boards = append(boards, lb)
	}

	if err := s.recomputeMany(ctx, boards); err != nil {
		return nil, err
	}
	out := make([]domain.Leaderboard, 0, len(boards))
	for _, lb := range boards {
		fresh, err := s.leaderboards.FindByID(ctx, lb.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, fresh)
	}
	return out, nil
}

// Entries returns the top entries ordered by position.
func (s *LeaderboardService) Entries(ctx context.Context, id string, limit int) ([]domain.LeaderboardEntry, error) {
	if _, err := s.leaderboards.FindByID(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.topEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

// UserPosition looks the user up on the first active leaderboard of the given type.
func (s *LeaderboardService) UserPosition(ctx context.Context, userID string, typ domain.LeaderboardType, categoryID string) (domain.UserPosition, error) {
	if typ == "" {
		typ = domain.LeaderboardGlobal
	}
	if typ == domain.LeaderboardCategory && categoryID == "" {
		return domain.UserPosition{}, domain.Invalid("Category ID is required for category leaderboards")
	}
	lb, err := s.leaderboards.FindActive(ctx, typ, categoryID)
	if err != nil {
		return domain.UserPosition{}, err
	}
	entry, err := s.leaderboards.EntryForUser(ctx, lb.ID, userID)
	if err != nil {
		return domain.UserPosition{}, err
	}
	return domain.UserPosition{LeaderboardID: lb.ID, Position: entry.Position, Score: entry.Score}, nil
}

// Subscribe streams snapshots of a leaderboard, starting with its current entries.
func (s *LeaderboardService) Subscribe(ctx context.Context, id string) (<-chan domain.LeaderboardSnapshot, func(), error) {
	if _, err := s.leaderboards.FindByID(ctx, id); err != nil {
		return nil, nil, err
	}
	entries, err := s.topEntries(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.Subscribe(id, domain.LeaderboardSnapshot{
		LeaderboardID: id,
		Entries:       entries,
		UpdatedAt:     s.now().UTC(),
	})
	return ch, cancel, nil
}

func (s *LeaderboardService) topEntries(ctx context.Context, id string) ([]domain.LeaderboardEntry, error) {
	if cached, ok := s.cache.Get(ctx, id); ok {
		return cached, nil
	}
	entries, err := s.leaderboards.Entries(ctx, id, s.size)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, id, entries)
	return entries, nil
}

func (s *LeaderboardService) recomputeMany(ctx context.Context, boards []domain.Leaderboard) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeParallelism)
	for _, lb := range boards {
		id := lb.ID
		g.Go(func() error {
			_, err := s.Recompute(gctx, id)
			return err
		})
	}
	return g.Wait()
}

func (s *LeaderboardService) scoresFor(ctx context.Context, lb domain.Leaderboard) ([]domain.UserScore, error) {
	switch lb.Type {
	case domain.LeaderboardGlobal:
		return s.scores.TotalScores(ctx, s.size)
	case domain.LeaderboardCategory:
		if lb.CategoryID == nil || *lb.CategoryID == "" {
			return nil, domain.Invalid("Category ID is required for category leaderboards")
		}
		return s.scores.CategoryScores(ctx, *lb.CategoryID, s.size)
	case domain.LeaderboardWeekly:
		return s.scores.ScoresSince(ctx, s.now().UTC().AddDate(0, 0, -7), s.size)
	case domain.LeaderboardMonthly:
		return s.scores.ScoresSince(ctx, s.now().UTC().AddDate(0, 0, -30), s.size)
	}
	return nil, domain.Invalidf("Unsupported leaderboard type %q", lb.Type)
}

// categoryFor validates the category of a CATEGORY board; other types carry none.
func (s *LeaderboardService) categoryFor(ctx context.Context, typ domain.LeaderboardType, categoryID *string) (*string, error) {
	if typ != domain.LeaderboardCategory {
		return nil, nil
	}
	if categoryID == nil || *categoryID == "" {
		return nil, domain.Invalid("Category ID is required for category leaderboards")
	}
	if _, err := s.categories.FindByID(ctx, *categoryID); err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return nil, domain.Invalid("Category not found")
		}
		return nil, err
	}
	id := *categoryID
	return &id, nil
}
