package memory

import (
	"context"
	"sort"
	"strings"

	"quiz-platform/internal/domain"
)

type CategoryRepository struct {
	s *Store
}

func (r *CategoryRepository) Create(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.uniqueLocked(*c); err != nil {
		return err
	}
	r.s.categories[c.ID] = stripCategory(*c)
	return nil
}

func (r *CategoryRepository) Update(_ context.Context, c *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[c.ID]; !ok {
		return domain.ErrCategoryNotFound
	}
	if err := r.uniqueLocked(*c); err != nil {
		return err
	}
	r.s.categories[c.ID] = stripCategory(*c)
	return nil
}

func (r *CategoryRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(r.s.categories, id)
	return nil
}

func (r *CategoryRepository) FindByID(_ context.Context, id string) (domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return r.decorateLocked(c), nil
}

func (r *CategoryRepository) FindByName(_ context.Context, name string) (domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.categories {
		if strings.EqualFold(c.Name, name) {
			return r.decorateLocked(c), nil
		}
	}
	return domain.Category{}, domain.ErrCategoryNotFound
}

func (r *CategoryRepository) List(_ context.Context, f domain.CategoryFilter) ([]domain.Category, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []domain.Category
	for _, c := range r.sortedLocked() {
		if f.RootsOnly && c.ParentID != nil {
			continue
		}
		if f.ParentID != "" && (c.ParentID == nil || *c.ParentID != f.ParentID) {
			continue
		}
		if f.Search != "" && !containsFold(c.Name, f.Search) && !containsFold(c.Description, f.Search) {
			continue
		}
		matched = append(matched, c)
	}
	return paginate(matched, f.Page), len(matched), nil
}

func (r *CategoryRepository) All(_ context.Context) ([]domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sortedLocked(), nil
}

func (r *CategoryRepository) sortedLocked() []domain.Category {
	all := sortedValues(r.s.categories, func(a, b domain.Category) bool {
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	for i := range all {
		all[i] = r.decorateLocked(all[i])
	}
	return all
}

func (r *CategoryRepository) decorateLocked(c domain.Category) domain.Category {
	for _, q := range r.s.quizzes {
		if q.CategoryID == c.ID {
			c.QuizzesCount++
		}
	}
	for _, other := range r.s.categories {
		if other.ParentID != nil && *other.ParentID == c.ID {
			c.ChildrenCount++
		}
	}
	if c.ParentID != nil {
		if p, ok := r.s.categories[*c.ParentID]; ok {
			c.Parent = &domain.CategoryRef{ID: p.ID, Name: p.Name}
		}
	}
	return c
}

func (r *CategoryRepository) uniqueLocked(c domain.Category) error {
	for _, other := range r.s.categories {
		if other.ID != c.ID && strings.EqualFold(other.Name, c.Name) {
			return domain.Conflict("Category name must be unique")
		}
	}
	return nil
}

func stripCategory(c domain.Category) domain.Category {
	c.Parent = nil
	c.Children = nil
	c.QuizzesCount = 0
	c.ChildrenCount = 0
	return c
}

type TagRepository struct {
	s *Store
}

func (r *TagRepository) Create(_ context.Context, t *domain.Tag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.uniqueLocked(*t); err != nil {
		return err
	}
	stored := *t
	stored.QuizCount = 0
	r.s.tags[t.ID] = stored
	return nil
}

func (r *TagRepository) Update(_ context.Context, t *domain.Tag) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tags[t.ID]; !ok {
		return domain.ErrTagNotFound
	}
	if err := r.uniqueLocked(*t); err != nil {
		return err
	}
	stored := *t
	stored.QuizCount = 0
	r.s.tags[t.ID] = stored
	return nil
}

func (r *TagRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tags[id]; !ok {
		return domain.ErrTagNotFound
	}
	delete(r.s.tags, id)
	for _, tagIDs := range r.s.quizTags {
		delete(tagIDs, id)
	}
	return nil
}

func (r *TagRepository) FindByID(_ context.Context, id string) (domain.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tags[id]
	if !ok {
		return domain.Tag{}, domain.ErrTagNotFound
	}
	return r.decorateLocked(t), nil
}

func (r *TagRepository) FindByName(_ context.Context, name string) (domain.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.tags {
		if strings.EqualFold(t.Name, name) {
			return r.decorateLocked(t), nil
		}
	}
	return domain.Tag{}, domain.ErrTagNotFound
}

func (r *TagRepository) FindByIDs(_ context.Context, ids []string) ([]domain.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Tag, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.s.tags[id]; ok {
			out = append(out, r.decorateLocked(t))
		}
	}
	return out, nil
}

func (r *TagRepository) List(_ context.Context, f domain.TagFilter) ([]domain.Tag, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []domain.Tag
	for _, t := range r.sortedLocked() {
		if f.Search != "" && !containsFold(t.Name, f.Search) {
			continue
		}
		matched = append(matched, t)
	}
	return paginate(matched, f.Page), len(matched), nil
}

func (r *TagRepository) Popular(_ context.Context, limit int) ([]domain.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.sortedLocked()
	sort.SliceStable(all, func(i, j int) bool { return all[i].QuizCount > all[j].QuizCount })
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *TagRepository) sortedLocked() []domain.Tag {
	all := sortedValues(r.s.tags, func(a, b domain.Tag) bool {
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	for i := range all {
		all[i] = r.decorateLocked(all[i])
	}
	return all
}

func (r *TagRepository) decorateLocked(t domain.Tag) domain.Tag {
	for _, tagIDs := range r.s.quizTags {
		if _, ok := tagIDs[t.ID]; ok {
			t.QuizCount++
		}
	}
	return t
}

func (r *TagRepository) uniqueLocked(t domain.Tag) error {
	for _, other := range r.s.tags {
		if other.ID != t.ID && strings.EqualFold(other.Name, t.Name) {
			return domain.Conflict("Tag name must be unique")
		}
	}
	return nil
}

type QuizRepository struct {
	s *Store
}

func (r *QuizRepository) Create(_ context.Context, q *domain.Quiz) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[q.CategoryID]; !ok {
		return domain.Invalid("Category not found")
	}
	r.s.quizzes[q.ID] = stripQuiz(*q)
	return nil
}

func (r *QuizRepository) Update(_ context.Context, q *domain.Quiz) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.quizzes[q.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	next := stripQuiz(*q)
	// counters are owned by the increment methods
	next.AttemptsCount = stored.AttemptsCount
	next.ViewsCount = stored.ViewsCount
	next.AverageScore = stored.AverageScore
	r.s.quizzes[q.ID] = next
	return nil
}

// Delete removes the quiz with its questions, attempts and tag links.
func (r *QuizRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(r.s.quizzes, id)
	delete(r.s.quizTags, id)
	for qid, q := range r.s.questions {
		if q.QuizID == id {
			delete(r.s.questions, qid)
		}
	}
	for aid, a := range r.s.attempts {
		if a.QuizID != id {
			continue
		}
		delete(r.s.attempts, aid)
		for uaid, ua := range r.s.userAnswers {
			if ua.AttemptID == aid {
				delete(r.s.userAnswers, uaid)
			}
		}
	}
	return nil
}

func (r *QuizRepository) FindByID(_ context.Context, id string) (domain.Quiz, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q, ok := r.s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return r.decorateLocked(q), nil
}

func (r *QuizRepository) List(_ context.Context, f domain.QuizFilter) ([]domain.Quiz, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := sortedValues(r.s.quizzes, func(a, b domain.Quiz) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	var matched []domain.Quiz
	for _, q := range all {
		switch {
		case f.CategoryID != "" && q.CategoryID != f.CategoryID,
			f.AuthorID != "" && q.AuthorID != f.AuthorID,
			f.Difficulty != "" && q.Difficulty != f.Difficulty,
			f.Status != "" && q.Status != f.Status,
			f.Privacy != "" && q.Privacy != f.Privacy,
			f.Search != "" && !containsFold(q.Title, f.Search) && !containsFold(q.Description, f.Search):
			continue
		}
		if f.TagID != "" {
			if _, ok := r.s.quizTags[q.ID][f.TagID]; !ok {
				continue
			}
		}
		matched = append(matched, r.decorateLocked(q))
	}
	return paginate(matched, f.Page), len(matched), nil
}

func (r *QuizRepository) AddTags(_ context.Context, quizID string, tagIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	links, ok := r.s.quizTags[quizID]
	if !ok {
		links = make(map[string]struct{})
		r.s.quizTags[quizID] = links
	}
	for _, id := range tagIDs {
		if _, ok := r.s.tags[id]; !ok {
			return domain.Invalid("One or more tags not found")
		}
		links[id] = struct{}{}
	}
	return nil
}

func (r *QuizRepository) RemoveTags(_ context.Context, quizID string, tagIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range tagIDs {
		delete(r.s.quizTags[quizID], id)
	}
	return nil
}

func (r *QuizRepository) IncrementViews(_ context.Context, id string) error {
	return r.mutate(id, func(q *domain.Quiz) { q.ViewsCount++ })
}

func (r *QuizRepository) IncrementAttempts(_ context.Context, id string) error {
	return r.mutate(id, func(q *domain.Quiz) { q.AttemptsCount++ })
}

func (r *QuizRepository) SetAverageScore(_ context.Context, id string, avg *float64) error {
	return r.mutate(id, func(q *domain.Quiz) { q.AverageScore = avg })
}

func (r *QuizRepository) mutate(id string, fn func(*domain.Quiz)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.quizzes[id]
	if !ok {
		return domain.ErrQuizNotFound
	}
	fn(&q)
	r.s.quizzes[id] = q
	return nil
}

func (r *QuizRepository) decorateLocked(q domain.Quiz) domain.Quiz {
	if c, ok := r.s.categories[q.CategoryID]; ok {
		q.Category = &domain.CategoryRef{ID: c.ID, Name: c.Name}
	}
	q.Tags = []domain.TagRef{}
	for id := range r.s.quizTags[q.ID] {
		if t, ok := r.s.tags[id]; ok {
			q.Tags = append(q.Tags, domain.TagRef{ID: t.ID, Name: t.Name, Color: t.Color})
		}
	}
	sort.Slice(q.Tags, func(i, j int) bool { return q.Tags[i].Name < q.Tags[j].Name })
	for _, question := range r.s.questions {
		if question.QuizID == q.ID {
			q.QuestionsCount++
		}
	}
	return q
}

func stripQuiz(q domain.Quiz) domain.Quiz {
	q.Category = nil
	q.Tags = nil
	q.QuestionsCount = 0
	return q
}
