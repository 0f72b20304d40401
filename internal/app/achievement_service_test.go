package app_test

import (
	"context"
	"errors"
	"testing"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

func TestCheckAndAwardGrantsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author, player := f.user(t, "author"), f.user(t, "player")
	geo := f.category(t, "Geo")
	quiz, question, correct := f.quiz(t, author, geo.ID, 5, app.QuizInput{})

	firstQuiz, err := f.achievements.Create(ctx, app.AchievementInput{
		Name:        "First Steps",
		Type:        domain.AchievementQuizCompletion,
		Points:      10,
		Requirement: domain.AchievementRequirement{Count: 1},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.achievements.Create(ctx, app.AchievementInput{
		Name:        "Centurion",
		Type:        domain.AchievementScoreMilestone,
		Requirement: domain.AchievementRequirement{Score: 100},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.achievements.Create(ctx, app.AchievementInput{
		Name:        "Geographer",
		Type:        domain.AchievementCategoryMaster,
		Requirement: domain.AchievementRequirement{Count: 2, CategoryID: geo.ID},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	f.play(t, player, quiz, question, correct)

	awarded, err := f.achievements.CheckAndAward(ctx, player.UserID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(awarded) != 1 || awarded[0].AchievementID != firstQuiz.ID {
		t.Fatalf("expected only the completion achievement, got %+v", awarded)
	}

	user, err := f.users.Get(ctx, player.UserID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.TotalScore != 15 {
		t.Fatalf("expected attempt score plus achievement points, got %d", user.TotalScore)
	}

	again, err := f.achievements.CheckAndAward(ctx, player.UserID)
	if err != nil {
		t.Fatalf("check again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("achievement awarded twice: %+v", again)
	}

	if _, err := f.achievements.Delete(ctx, firstQuiz.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected earned achievement to be undeletable, got %v", err)
	}
}

func TestAchievementRequirementValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   app.AchievementInput
	}{
		{"zero count", app.AchievementInput{Name: "a", Type: domain.AchievementQuizCompletion}},
		{"zero score", app.AchievementInput{Name: "b", Type: domain.AchievementScoreMilestone}},
		{"missing category", app.AchievementInput{Name: "c", Type: domain.AchievementCategoryMaster, Requirement: domain.AchievementRequirement{Count: 1}}},
		{"unknown category", app.AchievementInput{Name: "d", Type: domain.AchievementCategoryMaster, Requirement: domain.AchievementRequirement{Count: 1, CategoryID: "nope"}}},
		{"unknown type", app.AchievementInput{Name: "e", Type: "STREAK", Requirement: domain.AchievementRequirement{Count: 1}}},
		{"blank name", app.AchievementInput{Name: "  ", Type: domain.AchievementQuizCompletion, Requirement: domain.AchievementRequirement{Count: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.achievements.Create(ctx, tc.in); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestCheckAndAwardCountsPointsFromSamePass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author, player := f.user(t, "author"), f.user(t, "player")
	quiz, question, correct := f.quiz(t, author, f.category(t, "Geo").ID, 5, app.QuizInput{})

	// active achievements are listed by points, so the zero-point milestone is checked
	// before the completion award lands
	milestone, err := f.achievements.Create(ctx, app.AchievementInput{
		Name:        "Twelve",
		Type:        domain.AchievementScoreMilestone,
		Requirement: domain.AchievementRequirement{Score: 12},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.achievements.Create(ctx, app.AchievementInput{
		Name:        "First Steps",
		Type:        domain.AchievementQuizCompletion,
		Points:      10,
		Requirement: domain.AchievementRequirement{Count: 1},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	f.play(t, player, quiz, question, correct)

	awarded, err := f.achievements.CheckAndAward(ctx, player.UserID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(awarded) != 2 {
		t.Fatalf("expected completion and milestone awards, got %+v", awarded)
	}
	found := false
	for _, ua := range awarded {
		found = found || ua.AchievementID == milestone.ID
	}
	if !found {
		t.Fatalf("milestone reached through award points was not granted: %+v", awarded)
	}
}

func TestAwardRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	player := f.user(t, "player")
	inactive := false

	dormant, err := f.achievements.Create(ctx, app.AchievementInput{
		Name:        "Dormant",
		Type:        domain.AchievementQuizCompletion,
		Requirement: domain.AchievementRequirement{Count: 1},
		IsActive:    &inactive,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	open, err := f.achievements.Create(ctx, app.AchievementInput{
		Name:        "Welcome",
		Type:        domain.AchievementQuizCompletion,
		Points:      3,
		Requirement: domain.AchievementRequirement{Count: 1},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.achievements.Award(ctx, player.UserID, dormant.ID); !errors.Is(err, domain.ErrInvalidInput) || err.Error() != "Achievement is not active" {
		t.Fatalf("expected inactive achievement to be rejected, got %v", err)
	}
	if _, err := f.achievements.Award(ctx, "no-such-user", open.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown user to be not found, got %v", err)
	}
	if _, err := f.achievements.Award(ctx, player.UserID, "no-such-achievement"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected unknown achievement to be not found, got %v", err)
	}

	if _, err := f.achievements.Award(ctx, player.UserID, open.ID); err != nil {
		t.Fatalf("award: %v", err)
	}
	if _, err := f.achievements.Award(ctx, player.UserID, open.ID); !errors.Is(err, domain.ErrInvalidInput) || err.Error() != "User already has this achievement" {
		t.Fatalf("expected a second award to be rejected, got %v", err)
	}

	user, err := f.users.Get(ctx, player.UserID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.TotalScore != 3 {
		t.Fatalf("expected points credited once, got %d", user.TotalScore)
	}
}
