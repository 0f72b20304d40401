package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"quiz-platform/internal/domain"
)

type AttemptRepository struct {
	db *bun.DB
}

func NewAttemptRepository(db *bun.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Create(ctx context.Context, a *domain.QuizAttempt) error {
	_, err := r.db.NewInsert().Model(newAttemptRow(*a)).Exec(ctx)
	return mapErr(err, domain.ErrQuizNotFound)
}

func (r *AttemptRepository) UpdateInProgress(ctx context.Context, a *domain.QuizAttempt) error {
	return updateInProgress(ctx, r.db, a)
}

// Finish closes the attempt and credits its score in one transaction; of two concurrent
// finishes only the one whose update still sees IN_PROGRESS commits.
func (r *AttemptRepository) Finish(ctx context.Context, a *domain.QuizAttempt) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := updateInProgress(ctx, tx, a); err != nil {
			return err
		}
		score := 0
		if a.Score != nil {
			score = *a.Score
		}
		return addScore(ctx, tx, a.UserID, score)
	})
}

func updateInProgress(ctx context.Context, db bun.IDB, a *domain.QuizAttempt) error {
	res, err := db.NewUpdate().
		Model(newAttemptRow(*a)).
		Column("status", "score", "max_score", "percentage", "passed", "time_spent", "completed_at", "updated_at").
		WherePK().
		Where("qa.status = ?", domain.AttemptInProgress).
		Exec(ctx)
	if err != nil {
		return mapErr(err, domain.ErrAttemptNotFound)
	}
	return requireAffected(res, domain.ErrAttemptNotInProgress)
}

func (r *AttemptRepository) FindByID(ctx context.Context, id string) (domain.QuizAttempt, error) {
	var row attemptRow
	if err := r.db.NewSelect().Model(&row).Where("qa.id = ?", id).Scan(ctx); err != nil {
		return domain.QuizAttempt{}, mapErr(err, domain.ErrAttemptNotFound)
	}
	attempts, err := r.withAnswers(ctx, []attemptRow{row})
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	return attempts[0], nil
}

func (r *AttemptRepository) FindInProgress(ctx context.Context, userID, quizID string) (domain.QuizAttempt, bool, error) {
	var row attemptRow
	err := r.db.NewSelect().
		Model(&row).
		Where("qa.user_id = ?", userID).
		Where("qa.quiz_id = ?", quizID).
		Where("qa.status = ?", domain.AttemptInProgress).
		OrderExpr("qa.started_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if mapErr(err, domain.ErrAttemptNotFound) == domain.ErrAttemptNotFound {
			return domain.QuizAttempt{}, false, nil
		}
		return domain.QuizAttempt{}, false, err
	}
	attempts, err := r.withAnswers(ctx, []attemptRow{row})
	if err != nil {
		return domain.QuizAttempt{}, false, err
	}
	return attempts[0], true, nil
}

func (r *AttemptRepository) CountByStatus(ctx context.Context, userID, quizID string, statuses []domain.AttemptStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	n, err := r.db.NewSelect().
		Model((*attemptRow)(nil)).
		Where("qa.user_id = ?", userID).
		Where("qa.quiz_id = ?", quizID).
		Where("qa.status IN (?)", bun.In(statuses)).
		Count(ctx)
	if err != nil {
		return 0, mapErr(err, domain.ErrQuizNotFound)
	}
	return n, nil
}

func (r *AttemptRepository) List(ctx context.Context, f domain.AttemptFilter) ([]domain.QuizAttempt, int, error) {
	page := f.Page.Normalize()
	var rows []attemptRow
	q := r.db.NewSelect().Model(&rows)
	if f.UserID != "" {
		q = q.Where("qa.user_id = ?", f.UserID)
	}
	if f.QuizID != "" {
		q = q.Where("qa.quiz_id = ?", f.QuizID)
	}
	if f.Status != "" {
		q = q.Where("qa.status = ?", f.Status)
	}
	total, err := q.OrderExpr("qa.started_at DESC, qa.id").Limit(page.Limit).Offset(page.Offset()).ScanAndCount(ctx)
	if err != nil {
		if mapErr(err, domain.ErrAttemptNotFound) == domain.ErrAttemptNotFound {
			return []domain.QuizAttempt{}, 0, nil
		}
		return nil, 0, err
	}
	attempts, err := r.withAnswers(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// SaveAnswer upserts on (attempt_id, question_id); the stored id wins on conflict and is written back.
// The attempt row stays locked until commit so a concurrent finish cannot slip in between.
func (r *AttemptRepository) SaveAnswer(ctx context.Context, ua *domain.UserAnswer) error {
	row := newUserAnswerRow(*ua)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var status string
		err := tx.NewSelect().
			Model((*attemptRow)(nil)).
			Column("status").
			Where("qa.id = ?", ua.AttemptID).
			For("UPDATE").
			Scan(ctx, &status)
		if err != nil {
			return mapErr(err, domain.ErrAttemptNotFound)
		}
		if domain.AttemptStatus(status) != domain.AttemptInProgress {
			return domain.ErrAttemptNotInProgress
		}
		_, err = tx.NewInsert().
			Model(row).
			On("CONFLICT (attempt_id, question_id) DO UPDATE").
			Set("answer_id = EXCLUDED.answer_id").
			Set("answer_ids = EXCLUDED.answer_ids").
			Set("text_answer = EXCLUDED.text_answer").
			Set("is_correct = EXCLUDED.is_correct").
			Set("points_earned = EXCLUDED.points_earned").
			Set("time_spent = EXCLUDED.time_spent").
			Set("updated_at = EXCLUDED.updated_at").
			Returning("id, created_at").
			Exec(ctx)
		return mapErr(err, domain.ErrAttemptNotFound)
	})
	if err != nil {
		return err
	}
	ua.ID = row.ID
	ua.CreatedAt = row.CreatedAt
	return nil
}

func (r *AttemptRepository) AveragePercentage(ctx context.Context, quizID string) (*float64, error) {
	var avg *float64
	err := r.db.NewSelect().
		Model((*attemptRow)(nil)).
		ColumnExpr("AVG(qa.percentage)").
		Where("qa.quiz_id = ?", quizID).
		Where("qa.status IN (?)", bun.In(domain.ScoredAttemptStatuses)).
		Where("qa.percentage IS NOT NULL").
		Scan(ctx, &avg)
	if err != nil {
		return nil, mapErr(err, domain.ErrQuizNotFound)
	}
	return avg, nil
}

func (r *AttemptRepository) CountCompleted(ctx context.Context, userID, categoryID string) (int, error) {
	q := r.db.NewSelect().
		Model((*attemptRow)(nil)).
		Where("qa.user_id = ?", userID).
		Where("qa.status = ?", domain.AttemptCompleted)
	if categoryID != "" {
		q = q.Join("JOIN quizzes AS q ON q.id = qa.quiz_id").Where("q.category_id = ?", categoryID)
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, mapErr(err, domain.ErrUserNotFound)
	}
	return n, nil
}

// QuestionStats counts answers from completed attempts only, one row per question in quiz order.
func (r *AttemptRepository) QuestionStats(ctx context.Context, quizID string) ([]domain.QuestionStats, error) {
	var rows []struct {
		QuestionID     string `bun:"question_id"`
		Question       string `bun:"question"`
		TotalAnswers   int    `bun:"total_answers"`
		CorrectAnswers int    `bun:"correct_answers"`
	}
	err := r.db.NewSelect().
		TableExpr("questions AS qn").
		ColumnExpr("qn.id AS question_id, qn.question").
		ColumnExpr("count(ua.id) AS total_answers").
		ColumnExpr("count(ua.id) FILTER (WHERE ua.is_correct) AS correct_answers").
		Join("LEFT JOIN user_answers AS ua ON ua.question_id = qn.id AND EXISTS "+
			"(SELECT 1 FROM quiz_attempts WHERE quiz_attempts.id = ua.attempt_id AND quiz_attempts.status = ?)",
			domain.AttemptCompleted).
		Where("qn.quiz_id = ?", quizID).
		GroupExpr("qn.id, qn.question, qn.sort_order").
		OrderExpr("qn.sort_order, qn.id").
		Scan(ctx, &rows)
	if err != nil {
		if mapErr(err, domain.ErrQuizNotFound) == domain.ErrQuizNotFound {
			return []domain.QuestionStats{}, nil
		}
		return nil, err
	}
	stats := make([]domain.QuestionStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, domain.QuestionStats{
			QuestionID:     row.QuestionID,
			Question:       row.Question,
			TotalAnswers:   row.TotalAnswers,
			CorrectAnswers: row.CorrectAnswers,
		})
	}
	return stats, nil
}

func (r *AttemptRepository) withAnswers(ctx context.Context, rows []attemptRow) ([]domain.QuizAttempt, error) {
	attempts := make([]domain.QuizAttempt, 0, len(rows))
	if len(rows) == 0 {
		return attempts, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var answers []userAnswerRow
	err := r.db.NewSelect().
		Model(&answers).
		Where("ua.attempt_id IN (?)", bun.In(ids)).
		OrderExpr("ua.created_at, ua.id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	byAttempt := make(map[string][]domain.UserAnswer, len(rows))
	for _, a := range answers {
		byAttempt[a.AttemptID] = append(byAttempt[a.AttemptID], a.toDomain())
	}
	for _, row := range rows {
		attempts = append(attempts, row.toDomain(byAttempt[row.ID]))
	}
	return attempts, nil
}
