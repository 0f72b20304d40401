package postgres

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"quiz-platform/internal/domain"
)

type QuizRepository struct {
	db *bun.DB
}

func NewQuizRepository(db *bun.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) Create(ctx context.Context, q *domain.Quiz) error {
	_, err := r.db.NewInsert().Model(newQuizRow(*q)).Exec(ctx)
	if err != nil {
		if mapped := mapErr(err, domain.ErrQuizNotFound); errors.Is(mapped, domain.ErrInvalidInput) {
			return domain.Invalid("Category not found")
		}
		return mapErr(err, domain.ErrQuizNotFound)
	}
	return nil
}

// Update writes the editable columns. Counters and the average score are owned by the
// dedicated methods below.
func (r *QuizRepository) Update(ctx context.Context, q *domain.Quiz) error {
	res, err := r.db.NewUpdate().
		Model(newQuizRow(*q)).
		Column("title", "description", "category_id", "difficulty", "status", "privacy",
			"time_limit", "passing_score", "max_attempts", "is_shuffled", "show_answers", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrQuizNotFound)
	}
	return requireAffected(res, domain.ErrQuizNotFound)
}

// Delete relies on ON DELETE CASCADE for questions, attempts and tag links.
func (r *QuizRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().Model((*quizRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrQuizNotFound)
	}
	return requireAffected(res, domain.ErrQuizNotFound)
}

func (r *QuizRepository) FindByID(ctx context.Context, id string) (domain.Quiz, error) {
	var row quizRow
	if err := r.selectQuizzes(&row).Where("q.id = ?", id).Scan(ctx); err != nil {
		return domain.Quiz{}, mapErr(err, domain.ErrQuizNotFound)
	}
	quizzes, err := r.withTags(ctx, []quizRow{row})
	if err != nil {
		return domain.Quiz{}, err
	}
	return quizzes[0], nil
}

func (r *QuizRepository) List(ctx context.Context, f domain.QuizFilter) ([]domain.Quiz, int, error) {
	page := f.Page.Normalize()
	var rows []quizRow
	q := r.selectQuizzes(&rows)
	if f.CategoryID != "" {
		q = q.Where("q.category_id = ?", f.CategoryID)
	}
	if f.AuthorID != "" {
		q = q.Where("q.author_id = ?", f.AuthorID)
	}
	if f.Difficulty != "" {
		q = q.Where("q.difficulty = ?", f.Difficulty)
	}
	if f.Status != "" {
		q = q.Where("q.status = ?", f.Status)
	}
	if f.Privacy != "" {
		q = q.Where("q.privacy = ?", f.Privacy)
	}
	if f.TagID != "" {
		q = q.Where("EXISTS (SELECT 1 FROM quiz_tags WHERE quiz_tags.quiz_id = q.id AND quiz_tags.tag_id = ?)", f.TagID)
	}
	if f.Search != "" {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("q.title ILIKE ?", searchPattern(f.Search)).
				WhereOr("q.description ILIKE ?", searchPattern(f.Search))
		})
	}
	total, err := q.OrderExpr("q.created_at DESC, q.id").Limit(page.Limit).Offset(page.Offset()).ScanAndCount(ctx)
	if err != nil {
		if mapped := mapErr(err, domain.ErrQuizNotFound); mapped == domain.ErrQuizNotFound {
			return []domain.Quiz{}, 0, nil
		}
		return nil, 0, err
	}
	quizzes, err := r.withTags(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return quizzes, total, nil
}

func (r *QuizRepository) AddTags(ctx context.Context, quizID string, tagIDs []string) error {
	if _, err := r.FindByID(ctx, quizID); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]quizTagRow, 0, len(tagIDs))
	for _, id := range tagIDs {
		links = append(links, quizTagRow{QuizID: quizID, TagID: id})
	}
	_, err := r.db.NewInsert().Model(&links).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		mapped := mapErr(err, domain.ErrTagNotFound)
		if mapped == domain.ErrTagNotFound || errors.Is(mapped, domain.ErrInvalidInput) {
			return domain.Invalid("One or more tags not found")
		}
		return mapped
	}
	return nil
}

func (r *QuizRepository) RemoveTags(ctx context.Context, quizID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	_, err := r.db.NewDelete().
		Model((*quizTagRow)(nil)).
		Where("quiz_id = ?", quizID).
		Where("tag_id IN (?)", bun.In(tagIDs)).
		Exec(ctx)
	if err == nil || mapErr(err, domain.ErrTagNotFound) == domain.ErrTagNotFound {
		return nil
	}
	return err
}

func (r *QuizRepository) IncrementViews(ctx context.Context, id string) error {
	return r.set(ctx, id, "views_count = views_count + 1")
}

func (r *QuizRepository) IncrementAttempts(ctx context.Context, id string) error {
	return r.set(ctx, id, "attempts_count = attempts_count + 1")
}

func (r *QuizRepository) SetAverageScore(ctx context.Context, id string, avg *float64) error {
	return r.set(ctx, id, "average_score = ?", avg)
}

func (r *QuizRepository) set(ctx context.Context, id, expr string, args ...any) error {
	res, err := r.db.NewUpdate().
		Model((*quizRow)(nil)).
		Set(expr, args...).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrQuizNotFound)
	}
	return requireAffected(res, domain.ErrQuizNotFound)
}

func (r *QuizRepository) selectQuizzes(model any) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(model).
		ColumnExpr("q.*").
		ColumnExpr("c.name AS category_name").
		ColumnExpr("(SELECT count(*) FROM questions WHERE questions.quiz_id = q.id) AS questions_count").
		Join("LEFT JOIN categories AS c ON c.id = q.category_id")
}

type quizTagRef struct {
	QuizID string `bun:"quiz_id"`
	ID     string `bun:"id"`
	Name   string `bun:"name"`
	Color  string `bun:"color"`
}

// withTags loads the tags of every quiz in rows with a single query.
func (r *QuizRepository) withTags(ctx context.Context, rows []quizRow) ([]domain.Quiz, error) {
	quizzes := make([]domain.Quiz, 0, len(rows))
	if len(rows) == 0 {
		return quizzes, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var refs []quizTagRef
	err := r.db.NewSelect().
		TableExpr("quiz_tags AS qt").
		ColumnExpr("qt.quiz_id, t.id, t.name, t.color").
		Join("JOIN tags AS t ON t.id = qt.tag_id").
		Where("qt.quiz_id IN (?)", bun.In(ids)).
		OrderExpr("t.name").
		Scan(ctx, &refs)
	if err != nil {
		return nil, err
	}
	byQuiz := make(map[string][]domain.TagRef, len(rows))
	for _, ref := range refs {
		byQuiz[ref.QuizID] = append(byQuiz[ref.QuizID], domain.TagRef{ID: ref.ID, Name: ref.Name, Color: ref.Color})
	}
	for _, row := range rows {
		q := row.toDomain()
		if tags, ok := byQuiz[row.ID]; ok {
			q.Tags = tags
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, nil
}
