package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"quiz-platform/internal/domain"
)

type LeaderboardRepository struct {
	db *bun.DB
}

func NewLeaderboardRepository(db *bun.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

func (r *LeaderboardRepository) Create(ctx context.Context, lb *domain.Leaderboard) error {
	_, err := r.db.NewInsert().Model(newLeaderboardRow(*lb)).Exec(ctx)
	return mapErr(err, domain.ErrLeaderboardNotFound)
}

func (r *LeaderboardRepository) Update(ctx context.Context, lb *domain.Leaderboard) error {
	res, err := r.db.NewUpdate().
		Model(newLeaderboardRow(*lb)).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrLeaderboardNotFound)
	}
	return requireAffected(res, domain.ErrLeaderboardNotFound)
}

func (r *LeaderboardRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().Model((*leaderboardRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrLeaderboardNotFound)
	}
	return requireAffected(res, domain.ErrLeaderboardNotFound)
}

func (r *LeaderboardRepository) FindByID(ctx context.Context, id string) (domain.Leaderboard, error) {
	var row leaderboardRow
	if err := r.selectLeaderboards(&row).Where("lb.id = ?", id).Scan(ctx); err != nil {
		return domain.Leaderboard{}, mapErr(err, domain.ErrLeaderboardNotFound)
	}
	return row.toDomain(), nil
}

func (r *LeaderboardRepository) FindActive(ctx context.Context, typ domain.LeaderboardType, categoryID string) (domain.Leaderboard, error) {
	var row leaderboardRow
	q := r.selectLeaderboards(&row).
		Where("lb.is_active").
		Where("lb.type = ?", typ)
	if categoryID != "" {
		q = q.Where("lb.category_id = ?", categoryID)
	}
	if err := q.OrderExpr("lb.created_at, lb.id").Limit(1).Scan(ctx); err != nil {
		return domain.Leaderboard{}, mapErr(err, domain.ErrLeaderboardNotFound)
	}
	return row.toDomain(), nil
}

func (r *LeaderboardRepository) List(ctx context.Context, f domain.LeaderboardFilter) ([]domain.Leaderboard, int, error) {
	page := f.Page.Normalize()
	var rows []leaderboardRow
	q := r.selectLeaderboards(&rows)
	if f.Type != "" {
		q = q.Where("lb.type = ?", f.Type)
	}
	if f.CategoryID != "" {
		q = q.Where("lb.category_id = ?", f.CategoryID)
	}
	if f.IsActive != nil {
		q = q.Where("lb.is_active = ?", *f.IsActive)
	}
	total, err := q.OrderExpr("lb.created_at, lb.id").Limit(page.Limit).Offset(page.Offset()).ScanAndCount(ctx)
	if err != nil {
		if mapErr(err, domain.ErrLeaderboardNotFound) == domain.ErrLeaderboardNotFound {
			return []domain.Leaderboard{}, 0, nil
		}
		return nil, 0, err
	}
	out := make([]domain.Leaderboard, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, total, nil
}

// ReplaceEntries deletes and reinserts the entries inside one transaction so readers never
// observe a half-written board.
func (r *LeaderboardRepository) ReplaceEntries(ctx context.Context, leaderboardID string, entries []domain.LeaderboardEntry) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*leaderboardRow)(nil)).Where("lb.id = ?", leaderboardID).Exists(ctx)
		if err != nil {
			return mapErr(err, domain.ErrLeaderboardNotFound)
		}
		if !exists {
			return domain.ErrLeaderboardNotFound
		}
		if _, err := tx.NewDelete().Model((*entryRow)(nil)).Where("leaderboard_id = ?", leaderboardID).Exec(ctx); err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		rows := make([]entryRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, entryRow{
				LeaderboardID: leaderboardID,
				UserID:        e.UserID,
				Score:         e.Score,
				Position:      e.Position,
				CreatedAt:     e.CreatedAt,
			})
		}
		_, err = tx.NewInsert().Model(&rows).Exec(ctx)
		return mapErr(err, domain.ErrLeaderboardNotFound)
	})
}

func (r *LeaderboardRepository) Entries(ctx context.Context, leaderboardID string, limit int) ([]domain.LeaderboardEntry, error) {
	var rows []entryRow
	q := r.selectEntries(&rows).
		Where("le.leaderboard_id = ?", leaderboardID).
		OrderExpr("le.position")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		if mapErr(err, domain.ErrLeaderboardNotFound) == domain.ErrLeaderboardNotFound {
			return []domain.LeaderboardEntry{}, nil
		}
		return nil, err
	}
	out := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *LeaderboardRepository) EntryForUser(ctx context.Context, leaderboardID, userID string) (domain.LeaderboardEntry, error) {
	var row entryRow
	err := r.selectEntries(&row).
		Where("le.leaderboard_id = ?", leaderboardID).
		Where("le.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return domain.LeaderboardEntry{}, mapErr(err, domain.ErrEntryNotFound)
	}
	return row.toDomain(), nil
}

func (r *LeaderboardRepository) selectLeaderboards(model any) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(model).
		ColumnExpr("lb.*").
		ColumnExpr("(SELECT count(*) FROM leaderboard_entries WHERE leaderboard_entries.leaderboard_id = lb.id) AS entries_count")
}

func (r *LeaderboardRepository) selectEntries(model any) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(model).
		ColumnExpr("le.*").
		ColumnExpr("u.username, u.avatar").
		Join("JOIN users AS u ON u.id = le.user_id")
}
