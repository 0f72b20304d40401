package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"quiz-platform/internal/domain"
)

const (
	totalScoresQuery = `
SELECT id, total_score
FROM users
WHERE is_active
ORDER BY total_score DESC, id
LIMIT $1`

	categoryScoresQuery = `
SELECT qa.user_id, SUM(qa.score)::int AS score
FROM quiz_attempts qa
JOIN quizzes q ON q.id = qa.quiz_id
WHERE qa.status = 'COMPLETED' AND q.category_id = $1
GROUP BY qa.user_id
ORDER BY score DESC, qa.user_id
LIMIT $2`

	scoresSinceQuery = `
SELECT qa.user_id, SUM(qa.score)::int AS score
FROM quiz_attempts qa
WHERE qa.status = 'COMPLETED' AND qa.completed_at >= $1
GROUP BY qa.user_id
ORDER BY score DESC, qa.user_id
LIMIT $2`
)

// ScoreSource runs the leaderboard aggregates on the pgx pool.
type ScoreSource struct {
	pool *pgxpool.Pool
}

func NewScoreSource(pool *pgxpool.Pool) *ScoreSource {
	return &ScoreSource{pool: pool}
}

func (s *ScoreSource) TotalScores(ctx context.Context, limit int) ([]domain.UserScore, error) {
	return s.query(ctx, "total scores", totalScoresQuery, limit)
}

func (s *ScoreSource) CategoryScores(ctx context.Context, categoryID string, limit int) ([]domain.UserScore, error) {
	return s.query(ctx, "category scores", categoryScoresQuery, categoryID, limit)
}

func (s *ScoreSource) ScoresSince(ctx context.Context, since time.Time, limit int) ([]domain.UserScore, error) {
	return s.query(ctx, "period scores", scoresSinceQuery, since, limit)
}

func (s *ScoreSource) query(ctx context.Context, name, sql string, args ...any) ([]domain.UserScore, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		if isInvalidText(err) {
			return []domain.UserScore{}, nil
		}
		return nil, errors.Wrapf(err, "query %s", name)
	}
	defer rows.Close()

	scores := []domain.UserScore{}
	for rows.Next() {
		var us domain.UserScore
		if err := rows.Scan(&us.UserID, &us.Score); err != nil {
			return nil, errors.Wrapf(err, "scan %s", name)
		}
		scores = append(scores, us)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return scores, nil
}

// isInvalidText reports a malformed UUID parameter, which simply matches nothing.
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == codeInvalidText
}
