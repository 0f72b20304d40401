package app_test

import (
	"context"
	"errors"
	"testing"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

func TestCategoryRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.category(t, "Science")

	if _, err := f.categories.Create(ctx, app.CategoryInput{Name: "Science"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate name conflict, got %v", err)
	}
	child, err := f.categories.Create(ctx, app.CategoryInput{Name: "Physics", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	if _, err := f.categories.Update(ctx, root.ID, app.CategoryPatch{ParentID: &child.ID}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected circular parent to be rejected, got %v", err)
	}
	if _, err := f.categories.Delete(ctx, root.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected category with children to be kept, got %v", err)
	}

	tree, err := f.categories.Hierarchy(ctx)
	if err != nil {
		t.Fatalf("hierarchy: %v", err)
	}
	if len(tree) != 1 || len(tree[0].Children) != 1 || tree[0].Children[0].ID != child.ID {
		t.Fatalf("unexpected hierarchy: %+v", tree)
	}

	if _, err := f.categories.Delete(ctx, child.ID); err != nil {
		t.Fatalf("delete child: %v", err)
	}
	if _, err := f.categories.Get(ctx, child.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected deleted category to be gone, got %v", err)
	}

	f.quiz(t, f.user(t, "author"), root.ID, 1, app.QuizInput{})
	if _, err := f.categories.Delete(ctx, root.ID); err == nil || err.Error() != "Cannot delete category with existing quizzes" {
		t.Fatalf("expected category with quizzes to be kept, got %v", err)
	}
}

func TestOnlyAuthorEditsQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author, other := f.user(t, "author"), f.user(t, "other")
	quiz, question, _ := f.quiz(t, author, f.category(t, "Geo").ID, 1, app.QuizInput{})

	title := "Renamed"
	if _, err := f.quizzes.Update(ctx, other, quiz.ID, app.QuizPatch{Title: &title}); !errors.Is(err, domain.ErrNotQuizAuthor) {
		t.Fatalf("expected author check, got %v", err)
	}
	if _, err := f.questions.Delete(ctx, other, question.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	admin := app.Actor{UserID: other.UserID, IsAdmin: true}
	updated, err := f.quizzes.Update(ctx, admin, quiz.ID, app.QuizPatch{Title: &title})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("title not updated: %+v", updated)
	}

	if _, err := f.quizzes.Create(ctx, author, app.QuizInput{Title: "x", CategoryID: "missing", Difficulty: domain.DifficultyBeginner}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected unknown category to be invalid, got %v", err)
	}
}

func TestQuestionDefaultsAndReorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	quiz, first, _ := f.quiz(t, author, f.category(t, "Geo").ID, 1, app.QuizInput{})

	second, err := f.questions.Create(ctx, author, app.QuestionInput{
		QuizID: quiz.ID,
		Type:   domain.TrueFalse,
		Text:   "The Nile is in Africa",
		Answers: []app.AnswerInput{
			{Text: "True", IsCorrect: true},
			{Text: "False"},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.Points != 1 || !second.IsRequired || second.Order != first.Order+1 {
		t.Fatalf("unexpected defaults: %+v", second)
	}

	reordered, err := f.questions.Reorder(ctx, author, quiz.ID, []string{second.ID, first.ID})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if reordered[0].ID != second.ID || reordered[0].Order != 1 || reordered[1].Order != 2 {
		t.Fatalf("unexpected order: %+v", reordered)
	}

	if _, err := f.questions.Reorder(ctx, author, quiz.ID, []string{first.ID, first.ID}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected duplicate ids to be rejected, got %v", err)
	}
	if _, err := f.questions.Reorder(ctx, author, quiz.ID, []string{"stranger"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected foreign ids to be rejected, got %v", err)
	}
}

func TestQuestionEditsRefreshAnswerKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author, p1, p2 := f.user(t, "author"), f.user(t, "p1"), f.user(t, "p2")
	quiz, question, _ := f.quiz(t, author, f.category(t, "Geo").ID, 2, app.QuizInput{})

	before, err := f.attempts.Start(ctx, p1, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if *before.MaxScore != 2 {
		t.Fatalf("unexpected max score %d", *before.MaxScore)
	}

	points := 7
	if _, err := f.questions.Update(ctx, author, question.ID, app.QuestionPatch{Points: &points}); err != nil {
		t.Fatalf("update: %v", err)
	}
	after, err := f.attempts.Start(ctx, p2, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if *after.MaxScore != 7 {
		t.Fatalf("answer key not refreshed, max score %d", *after.MaxScore)
	}

	bad := []app.AnswerInput{{Text: "only one", IsCorrect: true}}
	if _, err := f.questions.Update(ctx, author, question.ID, app.QuestionPatch{Answers: &bad}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid answers to be rejected, got %v", err)
	}
}

func TestQuizTagsAndPopularity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tags := app.NewTagService(f.store.Tags())
	author := f.user(t, "author")
	geo := f.category(t, "Geo")

	easy, err := tags.Create(ctx, app.TagInput{Name: "easy", Color: "#00ff00"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	hard, err := tags.Create(ctx, app.TagInput{Name: "hard"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if _, err := tags.Create(ctx, app.TagInput{Name: " easy "}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate tag conflict, got %v", err)
	}

	q1, _, _ := f.quiz(t, author, geo.ID, 1, app.QuizInput{Title: "One", TagIDs: []string{easy.ID}})
	f.quiz(t, author, geo.ID, 1, app.QuizInput{Title: "Two", TagIDs: []string{easy.ID, easy.ID}})

	tagged, err := f.quizzes.AddTags(ctx, author, q1.ID, []string{hard.ID, easy.ID})
	if err != nil {
		t.Fatalf("add tags: %v", err)
	}
	if len(tagged.Tags) != 2 {
		t.Fatalf("expected two tags, got %+v", tagged.Tags)
	}
	if _, err := f.quizzes.AddTags(ctx, author, q1.ID, []string{"missing"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected unknown tag to be rejected, got %v", err)
	}

	popular, err := tags.Popular(ctx, 1)
	if err != nil {
		t.Fatalf("popular: %v", err)
	}
	if len(popular) != 1 || popular[0].ID != easy.ID {
		t.Fatalf("expected easy to be most popular, got %+v", popular)
	}

	untagged, err := f.quizzes.RemoveTags(ctx, author, q1.ID, []string{hard.ID})
	if err != nil {
		t.Fatalf("remove tags: %v", err)
	}
	if len(untagged.Tags) != 1 || untagged.Tags[0].ID != easy.ID {
		t.Fatalf("unexpected tags after removal: %+v", untagged.Tags)
	}
}
