package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiz-platform/internal/domain"
)

const defaultPopularTags = 10

type TagInput struct {
	Name  string
	Color string
}

type TagPatch struct {
	Name  *string
	Color *string
}

type TagService struct {
	tags TagRepository
	now  func() time.Time
}

func NewTagService(tags TagRepository) *TagService {
	return &TagService{tags: tags, now: time.Now}
}

func (s *TagService) List(ctx context.Context, f domain.TagFilter) (domain.Paginated[domain.Tag], error) {
	f.Page = f.Page.Normalize()
	items, total, err := s.tags.List(ctx, f)
	if err != nil {
		return domain.Paginated[domain.Tag]{}, err
	}
	return domain.NewPaginated(items, total, f.Page), nil
}

func (s *TagService) Get(ctx context.Context, id string) (domain.Tag, error) {
	return s.tags.FindByID(ctx, id)
}

func (s *TagService) Popular(ctx context.Context, limit int) ([]domain.Tag, error) {
	if limit <= 0 {
		limit = defaultPopularTags
	}
	if limit > domain.MaxPageSize {
		limit = domain.MaxPageSize
	}
	return s.tags.Popular(ctx, limit)
}

func (s *TagService) Create(ctx context.Context, in TagInput) (domain.Tag, error) {
	name := strings.TrimSpace(in.Name)
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return domain.Tag{}, err
	}
	now := s.now().UTC()
	tag := domain.Tag{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     in.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tags.Create(ctx, &tag); err != nil {
		return domain.Tag{}, err
	}
	return tag, nil
}

func (s *TagService) Update(ctx context.Context, id string, patch TagPatch) (domain.Tag, error) {
	tag, err := s.tags.FindByID(ctx, id)
	if err != nil {
		return domain.Tag{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := s.ensureNameFree(ctx, name, id); err != nil {
			return domain.Tag{}, err
		}
		tag.Name = name
	}
	if patch.Color != nil {
		tag.Color = *patch.Color
	}
	tag.UpdatedAt = s.now().UTC()
	if err := s.tags.Update(ctx, &tag); err != nil {
		return domain.Tag{}, err
	}
	return tag, nil
}

func (s *TagService) Delete(ctx context.Context, id string) (domain.Tag, error) {
	tag, err := s.tags.FindByID(ctx, id)
	if err != nil {
		return domain.Tag{}, err
	}
	if err := s.tags.Delete(ctx, id); err != nil {
		return domain.Tag{}, err
	}
	return tag, nil
}

func (s *TagService) ensureNameFree(ctx context.Context, name, selfID string) error {
	if name == "" {
		return domain.Invalid("Tag name is required")
	}
	existing, err := s.tags.FindByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrTagNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return domain.Conflict("Tag name must be unique")
	}
	return nil
}
