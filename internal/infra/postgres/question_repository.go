package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"quiz-platform/internal/domain"
)

type QuestionRepository struct {
	db *bun.DB
}

func NewQuestionRepository(db *bun.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) Create(ctx context.Context, q *domain.Question) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(newQuestionRow(*q)).Exec(ctx); err != nil {
			return mapErr(err, domain.ErrQuizNotFound)
		}
		return insertAnswers(ctx, tx, q.ID, q.Answers)
	})
}

func (r *QuestionRepository) Update(ctx context.Context, q *domain.Question, replaceAnswers bool) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(newQuestionRow(*q)).
			Column("type", "question", "explanation", "points", "time_limit", "sort_order", "is_required", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return mapErr(err, domain.ErrQuestionNotFound)
		}
		if err := requireAffected(res, domain.ErrQuestionNotFound); err != nil {
			return err
		}
		if !replaceAnswers {
			return nil
		}
		if _, err := tx.NewDelete().Model((*answerRow)(nil)).Where("question_id = ?", q.ID).Exec(ctx); err != nil {
			return err
		}
		return insertAnswers(ctx, tx, q.ID, q.Answers)
	})
}

func (r *QuestionRepository) Delete(ctx context.Context, q domain.Question) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*questionRow)(nil)).Where("id = ?", q.ID).Exec(ctx)
		if err != nil {
			return mapErr(err, domain.ErrQuestionNotFound)
		}
		if err := requireAffected(res, domain.ErrQuestionNotFound); err != nil {
			return err
		}
		_, err = tx.NewUpdate().
			Model((*questionRow)(nil)).
			Set("sort_order = sort_order - 1").
			Where("quiz_id = ?", q.QuizID).
			Where("sort_order > ?", q.Order).
			Exec(ctx)
		return err
	})
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (domain.Question, error) {
	var row questionRow
	if err := r.db.NewSelect().Model(&row).Where("qn.id = ?", id).Scan(ctx); err != nil {
		return domain.Question{}, mapErr(err, domain.ErrQuestionNotFound)
	}
	questions, err := withAnswers(ctx, r.db, []questionRow{row})
	if err != nil {
		return domain.Question{}, err
	}
	return questions[0], nil
}

func (r *QuestionRepository) ListByQuiz(ctx context.Context, quizID string) ([]domain.Question, error) {
	var rows []questionRow
	err := r.db.NewSelect().
		Model(&rows).
		Where("qn.quiz_id = ?", quizID).
		OrderExpr("qn.sort_order, qn.id").
		Scan(ctx)
	if err != nil {
		if mapErr(err, domain.ErrQuizNotFound) == domain.ErrQuizNotFound {
			return []domain.Question{}, nil
		}
		return nil, err
	}
	return withAnswers(ctx, r.db, rows)
}

func (r *QuestionRepository) List(ctx context.Context, quizID string, page domain.Page) ([]domain.Question, int, error) {
	page = page.Normalize()
	var rows []questionRow
	total, err := r.db.NewSelect().
		Model(&rows).
		Where("qn.quiz_id = ?", quizID).
		OrderExpr("qn.sort_order, qn.id").
		Limit(page.Limit).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		if mapErr(err, domain.ErrQuizNotFound) == domain.ErrQuizNotFound {
			return []domain.Question{}, 0, nil
		}
		return nil, 0, err
	}
	questions, err := withAnswers(ctx, r.db, rows)
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

func (r *QuestionRepository) MaxOrder(ctx context.Context, quizID string) (int, error) {
	var max int
	err := r.db.NewSelect().
		Model((*questionRow)(nil)).
		ColumnExpr("COALESCE(MAX(qn.sort_order), 0)").
		Where("qn.quiz_id = ?", quizID).
		Scan(ctx, &max)
	return max, mapErr(err, domain.ErrQuizNotFound)
}

func (r *QuestionRepository) Reorder(ctx context.Context, quizID string, orderedIDs []string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i, id := range orderedIDs {
			res, err := tx.NewUpdate().
				Model((*questionRow)(nil)).
				Set("sort_order = ?", i+1).
				Set("updated_at = now()").
				Where("id = ?", id).
				Where("quiz_id = ?", quizID).
				Exec(ctx)
			if err != nil {
				return mapErr(err, domain.ErrQuestionNotFound)
			}
			if err := requireAffected(res, domain.ErrQuestionNotFound); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertAnswers(ctx context.Context, db bun.IDB, questionID string, answers []domain.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	rows := newAnswerRows(questionID, answers)
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	return mapErr(err, domain.ErrQuestionNotFound)
}

// withAnswers attaches answers, ordered by sort_order, to each question row.
func withAnswers(ctx context.Context, db bun.IDB, rows []questionRow) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(rows))
	if len(rows) == 0 {
		return questions, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var answers []answerRow
	err := db.NewSelect().
		Model(&answers).
		Where("an.question_id IN (?)", bun.In(ids)).
		OrderExpr("an.sort_order, an.id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[string][]domain.Answer, len(rows))
	for _, a := range answers {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a.toDomain())
	}
	for _, row := range rows {
		questions = append(questions, row.toDomain(byQuestion[row.ID]))
	}
	return questions, nil
}
