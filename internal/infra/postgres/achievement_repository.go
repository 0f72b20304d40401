package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"quiz-platform/internal/domain"
)

type AchievementRepository struct {
	db *bun.DB
}

func NewAchievementRepository(db *bun.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

func (r *AchievementRepository) Create(ctx context.Context, a *domain.Achievement) error {
	_, err := r.db.NewInsert().Model(newAchievementRow(*a)).Exec(ctx)
	return mapErr(err, domain.ErrAchievementNotFound)
}

func (r *AchievementRepository) Update(ctx context.Context, a *domain.Achievement) error {
	res, err := r.db.NewUpdate().
		Model(newAchievementRow(*a)).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrAchievementNotFound)
	}
	return requireAffected(res, domain.ErrAchievementNotFound)
}

func (r *AchievementRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().Model((*achievementRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrAchievementNotFound)
	}
	return requireAffected(res, domain.ErrAchievementNotFound)
}

func (r *AchievementRepository) FindByID(ctx context.Context, id string) (domain.Achievement, error) {
	var row achievementRow
	if err := r.selectAchievements(&row).Where("ac.id = ?", id).Scan(ctx); err != nil {
		return domain.Achievement{}, mapErr(err, domain.ErrAchievementNotFound)
	}
	return row.toDomain(), nil
}

func (r *AchievementRepository) FindByName(ctx context.Context, name string) (domain.Achievement, error) {
	var row achievementRow
	if err := r.selectAchievements(&row).Where("lower(ac.name) = lower(?)", name).Limit(1).Scan(ctx); err != nil {
		return domain.Achievement{}, mapErr(err, domain.ErrAchievementNotFound)
	}
	return row.toDomain(), nil
}

func (r *AchievementRepository) List(ctx context.Context, f domain.AchievementFilter) ([]domain.Achievement, int, error) {
	page := f.Page.Normalize()
	var rows []achievementRow
	q := r.selectAchievements(&rows)
	if f.Type != "" {
		q = q.Where("ac.type = ?", f.Type)
	}
	if f.IsActive != nil {
		q = q.Where("ac.is_active = ?", *f.IsActive)
	}
	total, err := q.OrderExpr("ac.points, ac.name").Limit(page.Limit).Offset(page.Offset()).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return achievementsToDomain(rows), total, nil
}

func (r *AchievementRepository) ListActive(ctx context.Context) ([]domain.Achievement, error) {
	var rows []achievementRow
	err := r.selectAchievements(&rows).
		Where("ac.is_active").
		OrderExpr("ac.points, ac.name").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return achievementsToDomain(rows), nil
}

func (r *AchievementRepository) HasUserAchievement(ctx context.Context, userID, achievementID string) (bool, error) {
	ok, err := r.db.NewSelect().
		Model((*userAchievementRow)(nil)).
		Where("uac.user_id = ?", userID).
		Where("uac.achievement_id = ?", achievementID).
		Exists(ctx)
	if err != nil {
		if mapErr(err, domain.ErrAchievementNotFound) == domain.ErrAchievementNotFound {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// Award inserts the user achievement and credits the points in one transaction.
func (r *AchievementRepository) Award(ctx context.Context, ua *domain.UserAchievement, points int) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := &userAchievementRow{
			ID:            ua.ID,
			UserID:        ua.UserID,
			AchievementID: ua.AchievementID,
			EarnedAt:      ua.EarnedAt,
		}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return mapErr(err, domain.ErrUserNotFound)
		}
		return addScore(ctx, tx, ua.UserID, points)
	})
}

func (r *AchievementRepository) ListForUser(ctx context.Context, userID string) ([]domain.UserAchievement, error) {
	var rows []userAchievementRow
	err := r.db.NewSelect().
		Model(&rows).
		Where("uac.user_id = ?", userID).
		OrderExpr("uac.earned_at DESC").
		Scan(ctx)
	if err != nil {
		if mapErr(err, domain.ErrUserNotFound) == domain.ErrUserNotFound {
			return []domain.UserAchievement{}, nil
		}
		return nil, err
	}
	out := make([]domain.UserAchievement, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.AchievementID)
	}
	var achievements []achievementRow
	if err := r.selectAchievements(&achievements).Where("ac.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Achievement, len(achievements))
	for _, a := range achievements {
		byID[a.ID] = a.toDomain()
	}

	for _, row := range rows {
		ua := domain.UserAchievement{
			ID:            row.ID,
			UserID:        row.UserID,
			AchievementID: row.AchievementID,
			EarnedAt:      row.EarnedAt,
		}
		if a, ok := byID[row.AchievementID]; ok {
			ua.Achievement = &a
		}
		out = append(out, ua)
	}
	return out, nil
}

func (r *AchievementRepository) selectAchievements(model any) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(model).
		ColumnExpr("ac.*").
		ColumnExpr("(SELECT count(*) FROM user_achievements WHERE user_achievements.achievement_id = ac.id) AS earned_count")
}

func achievementsToDomain(rows []achievementRow) []domain.Achievement {
	out := make([]domain.Achievement, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
