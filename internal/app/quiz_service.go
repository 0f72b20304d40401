package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"quiz-platform/internal/domain"
)

type QuizInput struct {
	Title        string
	Description  string
	CategoryID   string
	Difficulty   domain.Difficulty
	Status       domain.QuizStatus
	Privacy      domain.Privacy
	TimeLimit    *int
	PassingScore *int
	MaxAttempts  *int
	IsShuffled   *bool
	ShowAnswers  *bool
	TagIDs       []string
}

type QuizPatch struct {
	Title        *string
	Description  *string
	CategoryID   *string
	Difficulty   *domain.Difficulty
	Status       *domain.QuizStatus
	Privacy      *domain.Privacy
	TimeLimit    *int
	PassingScore *int
	MaxAttempts  *int
	IsShuffled   *bool
	ShowAnswers  *bool
}

// QuizService manages quiz metadata and tagging.
type QuizService struct {
	quizzes    QuizRepository
	categories CategoryRepository
	tags       TagRepository
	keys       AnswerKeyStore
	now        func() time.Time
}

func NewQuizService(quizzes QuizRepository, categories CategoryRepository, tags TagRepository, keys AnswerKeyStore) *QuizService {
	return &QuizService{quizzes: quizzes, categories: categories, tags: tags, keys: keys, now: time.Now}
}

func (s *QuizService) List(ctx context.Context, f domain.QuizFilter) (domain.Paginated[domain.Quiz], error) {
	f.Page = f.Page.Normalize()
	items, total, err := s.quizzes.List(ctx, f)
	if err != nil {
		return domain.Paginated[domain.Quiz]{}, err
	}
	return domain.NewPaginated(items, total, f.Page), nil
}

// Get returns a quiz and counts the view.
func (s *QuizService) Get(ctx context.Context, id string) (domain.Quiz, error) {
	if err := s.quizzes.IncrementViews(ctx, id); err != nil {
		return domain.Quiz{}, err
	}
	return s.quizzes.FindByID(ctx, id)
}

func (s *QuizService) Create(ctx context.Context, actor Actor, in QuizInput) (domain.Quiz, error) {
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return domain.Quiz{}, err
	}
	if len(in.TagIDs) > 0 {
		if err := s.ensureTags(ctx, in.TagIDs); err != nil {
			return domain.Quiz{}, err
		}
	}

	now := s.now().UTC()
	quiz := domain.Quiz{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		CategoryID:   in.CategoryID,
		AuthorID:     actor.UserID,
		Difficulty:   in.Difficulty,
		Status:       in.Status,
		Privacy:      in.Privacy,
		TimeLimit:    in.TimeLimit,
		PassingScore: in.PassingScore,
		MaxAttempts:  in.MaxAttempts,
		IsShuffled:   false,
		ShowAnswers:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if quiz.Status == "" {
		quiz.Status = domain.QuizDraft
	}
	if quiz.Privacy == "" {
		quiz.Privacy = domain.PrivacyPublic
	}
	if in.IsShuffled != nil {
		quiz.IsShuffled = *in.IsShuffled
	}
	if in.ShowAnswers != nil {
		quiz.ShowAnswers = *in.ShowAnswers
	}

	if err := s.quizzes.Create(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	if len(in.TagIDs) > 0 {
		if err := s.quizzes.AddTags(ctx, quiz.ID, dedupe(in.TagIDs)); err != nil {
			return domain.Quiz{}, err
		}
	}
	return s.quizzes.FindByID(ctx, quiz.ID)
}

func (s *QuizService) Update(ctx context.Context, actor Actor, id string, patch QuizPatch) (domain.Quiz, error) {
	quiz, err := s.authored(ctx, actor, id)
	if err != nil {
		return domain.Quiz{}, err
	}

	if patch.CategoryID != nil && *patch.CategoryID != quiz.CategoryID {
		if err := s.ensureCategory(ctx, *patch.CategoryID); err != nil {
			return domain.Quiz{}, err
		}
		quiz.CategoryID = *patch.CategoryID
	}
	if patch.Title != nil {
		quiz.Title = *patch.Title
	}
	if patch.Description != nil {
		quiz.Description = *patch.Description
	}
	if patch.Difficulty != nil {
		quiz.Difficulty = *patch.Difficulty
	}
	if patch.Status != nil {
		quiz.Status = *patch.Status
	}
	if patch.Privacy != nil {
		quiz.Privacy = *patch.Privacy
	}
	if patch.TimeLimit != nil {
		quiz.TimeLimit = patch.TimeLimit
	}
	if patch.PassingScore != nil {
		quiz.PassingScore = patch.PassingScore
	}
	if patch.MaxAttempts != nil {
		quiz.MaxAttempts = patch.MaxAttempts
	}
	if patch.IsShuffled != nil {
		quiz.IsShuffled = *patch.IsShuffled
	}
	if patch.ShowAnswers != nil {
		quiz.ShowAnswers = *patch.ShowAnswers
	}
	quiz.UpdatedAt = s.now().UTC()

	if err := s.quizzes.Update(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.keys.Invalidate(ctx, id); err != nil {
		return domain.Quiz{}, err
	}
	return s.quizzes.FindByID(ctx, id)
}

func (s *QuizService) Delete(ctx context.Context, actor Actor, id string) (domain.Quiz, error) {
	quiz, err := s.authored(ctx, actor, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.Delete(ctx, id); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.keys.Invalidate(ctx, id); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *QuizService) AddTags(ctx context.Context, actor Actor, id string, tagIDs []string) (domain.Quiz, error) {
	if _, err := s.authored(ctx, actor, id); err != nil {
		return domain.Quiz{}, err
	}
	tagIDs = dedupe(tagIDs)
	if err := s.ensureTags(ctx, tagIDs); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.AddTags(ctx, id, tagIDs); err != nil {
		return domain.Quiz{}, err
	}
	return s.quizzes.FindByID(ctx, id)
}

func (s *QuizService) RemoveTags(ctx context.Context, actor Actor, id string, tagIDs []string) (domain.Quiz, error) {
	if _, err := s.authored(ctx, actor, id); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.RemoveTags(ctx, id, dedupe(tagIDs)); err != nil {
		return domain.Quiz{}, err
	}
	return s.quizzes.FindByID(ctx, id)
}

// authored loads a quiz the actor may modify.
func (s *QuizService) authored(ctx context.Context, actor Actor, id string) (domain.Quiz, error) {
	quiz, err := s.quizzes.FindByID(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !actor.Owns(quiz.AuthorID) {
		return domain.Quiz{}, domain.ErrNotQuizAuthor
	}
	return quiz, nil
}

func (s *QuizService) ensureCategory(ctx context.Context, id string) error {
	_, err := s.categories.FindByID(ctx, id)
	if errors.Is(err, domain.ErrCategoryNotFound) {
		return domain.Invalid("Category not found")
	}
	return err
}

func (s *QuizService) ensureTags(ctx context.Context, ids []string) error {
	ids = dedupe(ids)
	found, err := s.tags.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return domain.Invalid("One or more tags not found")
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
