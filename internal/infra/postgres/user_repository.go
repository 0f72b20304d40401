package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"quiz-platform/internal/domain"
)

type UserRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.NewInsert().Model(newUserRow(*u)).Exec(ctx)
	return mapErr(err, domain.ErrUserNotFound)
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	res, err := r.db.NewUpdate().
		Model(newUserRow(*u)).
		ExcludeColumn("created_at", "total_score").
		WherePK().
		Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrUserNotFound)
	}
	return requireAffected(res, domain.ErrUserNotFound)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, "u.id = ?", id)
}

func (r *UserRepository) FindByKeycloakID(ctx context.Context, keycloakID string) (domain.User, error) {
	return r.findOne(ctx, "u.keycloak_id = ?", keycloakID)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, "lower(u.email) = lower(?)", email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findOne(ctx, "u.username = ?", username)
}

func (r *UserRepository) List(ctx context.Context, page domain.Page) ([]domain.User, int, error) {
	page = page.Normalize()
	var rows []userRow
	total, err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("u.created_at DESC, u.id").
		Limit(page.Limit).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, total, nil
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (domain.User, error) {
	var row userRow
	err := r.db.NewSelect().Model(&row).Where(where, arg).Limit(1).Scan(ctx)
	if err != nil {
		return domain.User{}, mapErr(err, domain.ErrUserNotFound)
	}
	return row.toDomain(), nil
}

// addScore runs on either the DB or a transaction; attempt finishes and achievement awards share it.
func addScore(ctx context.Context, db bun.IDB, id string, delta int) error {
	res, err := db.NewUpdate().
		Model((*userRow)(nil)).
		Set("total_score = total_score + ?", delta).
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrUserNotFound)
	}
	return requireAffected(res, domain.ErrUserNotFound)
}
