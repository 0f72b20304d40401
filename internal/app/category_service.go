package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiz-platform/internal/domain"
)

type CategoryInput struct {
	Name        string
	Description string
	ParentID    *string
}

// CategoryPatch updates only the non-nil fields. An empty ParentID moves the category to the root.
type CategoryPatch struct {
	Name        *string
	Description *string
	ParentID    *string
}

type CategoryService struct {
	categories CategoryRepository
	now        func() time.Time
}

func NewCategoryService(categories CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories, now: time.Now}
}

func (s *CategoryService) List(ctx context.Context, f domain.CategoryFilter) (domain.Paginated[domain.Category], error) {
	f.Page = f.Page.Normalize()
	items, total, err := s.categories.List(ctx, f)
	if err != nil {
		return domain.Paginated[domain.Category]{}, err
	}
	return domain.NewPaginated(items, total, f.Page), nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (domain.Category, error) {
	return s.categories.FindByID(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return domain.Category{}, err
	}
	parentID := normalizeParent(in.ParentID)
	if parentID != nil {
		if err := s.ensureParentExists(ctx, *parentID); err != nil {
			return domain.Category{}, err
		}
	}

	now := s.now().UTC()
	category := domain.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Description: in.Description,
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.Create(ctx, &category); err != nil {
		return domain.Category{}, err
	}
	return s.categories.FindByID(ctx, category.ID)
}

func (s *CategoryService) Update(ctx context.Context, id string, patch CategoryPatch) (domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := s.ensureNameFree(ctx, name, id); err != nil {
			return domain.Category{}, err
		}
		category.Name = name
	}
	if patch.Description != nil {
		category.Description = *patch.Description
	}
	if patch.ParentID != nil {
		parentID := normalizeParent(patch.ParentID)
		if parentID != nil {
			if *parentID == id {
				return domain.Category{}, domain.Invalid("Category cannot be its own parent")
			}
			if err := s.ensureParentExists(ctx, *parentID); err != nil {
				return domain.Category{}, err
			}
			circular, err := s.isDescendant(ctx, *parentID, id)
			if err != nil {
				return domain.Category{}, err
			}
			if circular {
				return domain.Category{}, domain.Invalid("Cannot set a descendant category as parent (circular reference)")
			}
		}
		category.ParentID = parentID
	}

	category.UpdatedAt = s.now().UTC()
	if err := s.categories.Update(ctx, &category); err != nil {
		return domain.Category{}, err
	}
	return s.categories.FindByID(ctx, id)
}

func (s *CategoryService) Delete(ctx context.Context, id string) (domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	if category.QuizzesCount > 0 {
		return domain.Category{}, domain.Invalid("Cannot delete category with existing quizzes")
	}
	if category.ChildrenCount > 0 {
		return domain.Category{}, domain.Invalid("Cannot delete category with subcategories")
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

// Hierarchy returns the root categories with their descendants nested under Children.
func (s *CategoryService) Hierarchy(ctx context.Context) ([]domain.Category, error) {
	all, err := s.categories.All(ctx)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]domain.Category)
	var roots []domain.Category
	for _, c := range all {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	var attach func(c domain.Category, depth int) domain.Category
	attach = func(c domain.Category, depth int) domain.Category {
		kids := children[c.ID]
		sortByName(kids)
		c.Children = make([]domain.Category, 0, len(kids))
		if depth > len(all) {
			return c
		}
		for _, k := range kids {
			c.Children = append(c.Children, attach(k, depth+1))
		}
		return c
	}

	sortByName(roots)
	tree := make([]domain.Category, 0, len(roots))
	for _, r := range roots {
		tree = append(tree, attach(r, 0))
	}
	return tree, nil
}

func (s *CategoryService) ensureNameFree(ctx context.Context, name, selfID string) error {
	if name == "" {
		return domain.Invalid("Category name is required")
	}
	existing, err := s.categories.FindByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrCategoryNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return domain.Conflict("Category name must be unique")
	}
	return nil
}

func (s *CategoryService) ensureParentExists(ctx context.Context, parentID string) error {
	_, err := s.categories.FindByID(ctx, parentID)
	if errors.Is(err, domain.ErrCategoryNotFound) {
		return domain.Invalid("Parent category not found")
	}
	return err
}

// isDescendant reports whether candidate sits below ancestor in the tree.
func (s *CategoryService) isDescendant(ctx context.Context, candidate, ancestor string) (bool, error) {
	all, err := s.categories.All(ctx)
	if err != nil {
		return false, err
	}
	parents := make(map[string]string, len(all))
	for _, c := range all {
		if c.ParentID != nil {
			parents[c.ID] = *c.ParentID
		}
	}
	seen := make(map[string]bool)
	for cur := candidate; cur != ""; cur = parents[cur] {
		if cur == ancestor {
			return true, nil
		}
		if seen[cur] {
			break
		}
		seen[cur] = true
	}
	return false, nil
}

func normalizeParent(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return &trimmed
}

func sortByName(categories []domain.Category) {
	sort.Slice(categories, func(i, j int) bool {
		return strings.ToLower(categories[i].Name) < strings.ToLower(categories[j].Name)
	})
}
