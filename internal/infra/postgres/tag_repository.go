package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"quiz-platform/internal/domain"
)

type TagRepository struct {
	db *bun.DB
}

func NewTagRepository(db *bun.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) Create(ctx context.Context, t *domain.Tag) error {
	_, err := r.db.NewInsert().Model(newTagRow(*t)).Exec(ctx)
	return mapErr(err, domain.ErrTagNotFound)
}

func (r *TagRepository) Update(ctx context.Context, t *domain.Tag) error {
	res, err := r.db.NewUpdate().
		Model(newTagRow(*t)).
		Column("name", "color", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrTagNotFound)
	}
	return requireAffected(res, domain.ErrTagNotFound)
}

func (r *TagRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().Model((*tagRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrTagNotFound)
	}
	return requireAffected(res, domain.ErrTagNotFound)
}

func (r *TagRepository) FindByID(ctx context.Context, id string) (domain.Tag, error) {
	var row tagRow
	if err := r.selectTags(&row).Where("t.id = ?", id).Scan(ctx); err != nil {
		return domain.Tag{}, mapErr(err, domain.ErrTagNotFound)
	}
	return row.toDomain(), nil
}

func (r *TagRepository) FindByName(ctx context.Context, name string) (domain.Tag, error) {
	var row tagRow
	if err := r.selectTags(&row).Where("lower(t.name) = lower(?)", name).Limit(1).Scan(ctx); err != nil {
		return domain.Tag{}, mapErr(err, domain.ErrTagNotFound)
	}
	return row.toDomain(), nil
}

func (r *TagRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Tag, error) {
	if len(ids) == 0 {
		return []domain.Tag{}, nil
	}
	var rows []tagRow
	if err := r.selectTags(&rows).Where("t.id IN (?)", bun.In(ids)).OrderExpr("t.name").Scan(ctx); err != nil {
		// a malformed id cannot match any tag
		if mapped := mapErr(err, domain.ErrTagNotFound); mapped == domain.ErrTagNotFound {
			return []domain.Tag{}, nil
		}
		return nil, err
	}
	return tagsToDomain(rows), nil
}

func (r *TagRepository) List(ctx context.Context, f domain.TagFilter) ([]domain.Tag, int, error) {
	page := f.Page.Normalize()
	var rows []tagRow
	q := r.selectTags(&rows)
	if f.Search != "" {
		q = q.Where("t.name ILIKE ?", searchPattern(f.Search))
	}
	total, err := q.OrderExpr("t.name").Limit(page.Limit).Offset(page.Offset()).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return tagsToDomain(rows), total, nil
}

func (r *TagRepository) Popular(ctx context.Context, limit int) ([]domain.Tag, error) {
	var rows []tagRow
	err := r.selectTags(&rows).
		OrderExpr("quiz_count DESC, t.name").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tagsToDomain(rows), nil
}

func (r *TagRepository) selectTags(model any) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(model).
		ColumnExpr("t.*").
		ColumnExpr("(SELECT count(*) FROM quiz_tags WHERE quiz_tags.tag_id = t.id) AS quiz_count")
}

func tagsToDomain(rows []tagRow) []domain.Tag {
	out := make([]domain.Tag, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
