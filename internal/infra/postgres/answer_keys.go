package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"quiz-platform/internal/domain"
)

// answerKeyQuery returns the quiz time limit and its questions with answers as one JSON document,
// keyed the same way domain.Question marshals.
const answerKeyQuery = `
SELECT q.time_limit,
       COALESCE((
           SELECT json_agg(json_build_object(
                      'id', qn.id,
                      'quizId', qn.quiz_id,
                      'type', qn.type,
                      'question', qn.question,
                      'explanation', qn.explanation,
                      'points', qn.points,
                      'timeLimit', qn.time_limit,
                      'order', qn.sort_order,
                      'isRequired', qn.is_required,
                      'answers', COALESCE((
                          SELECT json_agg(json_build_object(
                                     'id', an.id,
                                     'questionId', an.question_id,
                                     'text', an.text,
                                     'isCorrect', an.is_correct,
                                     'order', an.sort_order
                                 ) ORDER BY an.sort_order, an.id)
                          FROM answers an
                          WHERE an.question_id = qn.id
                      ), '[]'::json)
                  ) ORDER BY qn.sort_order, qn.id)
           FROM questions qn
           WHERE qn.quiz_id = q.id
       ), '[]'::json)
FROM quizzes q
WHERE q.id = $1`

// AnswerKeyLoader reads grading data straight from the pgx pool.
type AnswerKeyLoader struct {
	pool *pgxpool.Pool
}

func NewAnswerKeyLoader(pool *pgxpool.Pool) *AnswerKeyLoader {
	return &AnswerKeyLoader{pool: pool}
}

func (l *AnswerKeyLoader) LoadAnswerKey(ctx context.Context, quizID string) (domain.AnswerKey, error) {
	var (
		timeLimit *int
		raw       []byte
	)
	err := l.pool.QueryRow(ctx, answerKeyQuery, quizID).Scan(&timeLimit, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return domain.AnswerKey{}, domain.ErrQuizNotFound
		}
		return domain.AnswerKey{}, errors.Wrap(err, "load answer key")
	}
	key := domain.AnswerKey{QuizID: quizID, TimeLimit: timeLimit}
	if err := json.Unmarshal(raw, &key.Questions); err != nil {
		return domain.AnswerKey{}, errors.Wrap(err, "unmarshal answer key")
	}
	return key, nil
}
