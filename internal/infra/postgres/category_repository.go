package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"quiz-platform/internal/domain"
)

type CategoryRepository struct {
	db *bun.DB
}

func NewCategoryRepository(db *bun.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	_, err := r.db.NewInsert().Model(newCategoryRow(*c)).Exec(ctx)
	return mapErr(err, domain.ErrCategoryNotFound)
}

func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	res, err := r.db.NewUpdate().
		Model(newCategoryRow(*c)).
		Column("name", "description", "parent_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrCategoryNotFound)
	}
	return requireAffected(res, domain.ErrCategoryNotFound)
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().Model((*categoryRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrCategoryNotFound)
	}
	return requireAffected(res, domain.ErrCategoryNotFound)
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (domain.Category, error) {
	var row categoryRow
	if err := r.selectCategories(&row).Where("c.id = ?", id).Scan(ctx); err != nil {
		return domain.Category{}, mapErr(err, domain.ErrCategoryNotFound)
	}
	return row.toDomain(), nil
}

func (r *CategoryRepository) FindByName(ctx context.Context, name string) (domain.Category, error) {
	var row categoryRow
	if err := r.selectCategories(&row).Where("lower(c.name) = lower(?)", name).Limit(1).Scan(ctx); err != nil {
		return domain.Category{}, mapErr(err, domain.ErrCategoryNotFound)
	}
	return row.toDomain(), nil
}

func (r *CategoryRepository) List(ctx context.Context, f domain.CategoryFilter) ([]domain.Category, int, error) {
	page := f.Page.Normalize()
	var rows []categoryRow
	q := r.selectCategories(&rows)
	if f.RootsOnly {
		q = q.Where("c.parent_id IS NULL")
	}
	if f.ParentID != "" {
		q = q.Where("c.parent_id = ?", f.ParentID)
	}
	if f.Search != "" {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("c.name ILIKE ?", searchPattern(f.Search)).
				WhereOr("c.description ILIKE ?", searchPattern(f.Search))
		})
	}
	total, err := q.OrderExpr("c.name").Limit(page.Limit).Offset(page.Offset()).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, mapErr(err, nil)
	}
	return categoriesToDomain(rows), total, nil
}

func (r *CategoryRepository) All(ctx context.Context) ([]domain.Category, error) {
	var rows []categoryRow
	if err := r.selectCategories(&rows).OrderExpr("c.name").Scan(ctx); err != nil {
		return nil, err
	}
	return categoriesToDomain(rows), nil
}

func (r *CategoryRepository) selectCategories(model any) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(model).
		ColumnExpr("c.*").
		ColumnExpr("p.name AS parent_name").
		ColumnExpr("(SELECT count(*) FROM quizzes WHERE quizzes.category_id = c.id) AS quizzes_count").
		ColumnExpr("(SELECT count(*) FROM categories ch WHERE ch.parent_id = c.id) AS children_count").
		Join("LEFT JOIN categories AS p ON p.id = c.parent_id")
}

func categoriesToDomain(rows []categoryRow) []domain.Category {
	out := make([]domain.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
