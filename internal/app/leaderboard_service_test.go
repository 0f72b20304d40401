package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

func (f *fixture) play(t *testing.T, player app.Actor, quiz domain.Quiz, question domain.Question, answerID string) domain.QuizAttempt {
	t.Helper()
	ctx := context.Background()
	attempt, err := f.attempts.Start(ctx, player, quiz.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.attempts.Submit(ctx, player, attempt.ID, domain.AnswerSubmission{QuestionID: question.ID, AnswerID: answerID}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	done, err := f.attempts.Complete(ctx, player, attempt.ID, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return done
}

func TestInitializeSystemIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	geo := f.category(t, "Geo")
	if _, err := f.categories.Create(ctx, app.CategoryInput{Name: "Rivers", ParentID: &geo.ID}); err != nil {
		t.Fatalf("create child category: %v", err)
	}

	boards, err := f.leaderboards.InitializeSystem(ctx)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	// global, weekly, monthly and one per root category
	if len(boards) != 4 {
		t.Fatalf("expected 4 boards, got %d", len(boards))
	}
	again, err := f.leaderboards.InitializeSystem(ctx)
	if err != nil {
		t.Fatalf("initialize again: %v", err)
	}
	for i := range boards {
		if boards[i].ID != again[i].ID {
			t.Fatalf("board %d was recreated: %s != %s", i, boards[i].ID, again[i].ID)
		}
	}
}

func TestRecomputeRanksPlayers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	geo := f.category(t, "Geo")
	quiz, question, correct := f.quiz(t, author, geo.ID, 5, app.QuizInput{})

	f.play(t, alice, quiz, question, correct)
	f.play(t, bob, quiz, question, wrongAnswer(question))

	if _, err := f.leaderboards.InitializeSystem(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	pos, err := f.leaderboards.UserPosition(ctx, alice.UserID, domain.LeaderboardCategory, geo.ID)
	if err != nil {
		t.Fatalf("alice position: %v", err)
	}
	if pos.Position != 1 || pos.Score != 5 {
		t.Fatalf("unexpected alice position: %+v", pos)
	}
	pos, err = f.leaderboards.UserPosition(ctx, bob.UserID, domain.LeaderboardCategory, geo.ID)
	if err != nil {
		t.Fatalf("bob position: %v", err)
	}
	if pos.Position != 2 || pos.Score != 0 {
		t.Fatalf("unexpected bob position: %+v", pos)
	}

	global, err := f.leaderboards.UserPosition(ctx, alice.UserID, "", "")
	if err != nil {
		t.Fatalf("global position: %v", err)
	}
	entries, err := f.leaderboards.Entries(ctx, global.LeaderboardID, 2)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != alice.UserID || entries[0].Position != 1 {
		t.Fatalf("unexpected top entries: %+v", entries)
	}

	if _, err := f.leaderboards.UserPosition(ctx, alice.UserID, domain.LeaderboardCategory, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected category id to be required, got %v", err)
	}
}

func TestWeeklyBoardOnlyCountsRecentAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	old, recent := f.user(t, "old"), f.user(t, "recent")
	quiz, question, correct := f.quiz(t, author, f.category(t, "Geo").ID, 3, app.QuizInput{})

	now := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	clock := now.AddDate(0, 0, -10)
	f.attempts.WithClock(func() time.Time { return clock })
	f.play(t, old, quiz, question, correct)
	clock = now.Add(-time.Hour)
	f.play(t, recent, quiz, question, correct)

	f.leaderboards.WithClock(func() time.Time { return now })
	weekly, err := f.leaderboards.Create(ctx, app.LeaderboardInput{Name: "This week", Type: domain.LeaderboardWeekly, Period: "weekly"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	lb, err := f.leaderboards.Recompute(ctx, weekly.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if lb.EntriesCount != 1 {
		t.Fatalf("expected only the recent player, got %d entries", lb.EntriesCount)
	}
	entries, err := f.leaderboards.Entries(ctx, weekly.ID, 10)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if entries[0].UserID != recent.UserID || entries[0].Score != 3 {
		t.Fatalf("unexpected weekly entry: %+v", entries[0])
	}
}

func TestCategoryBoardRequiresCategory(t *testing.T) {
	f := newFixture(t)
	_, err := f.leaderboards.Create(context.Background(), app.LeaderboardInput{Name: "Nope", Type: domain.LeaderboardCategory})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSubscribeReceivesRecomputes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author, player := f.user(t, "author"), f.user(t, "player")
	quiz, question, correct := f.quiz(t, author, f.category(t, "Geo").ID, 2, app.QuizInput{})

	lb, err := f.leaderboards.Create(ctx, app.LeaderboardInput{Name: "Everyone", Type: domain.LeaderboardGlobal})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updates, cancel, err := f.leaderboards.Subscribe(ctx, lb.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-updates
	if initial.LeaderboardID != lb.ID || len(initial.Entries) != 0 {
		t.Fatalf("unexpected initial snapshot: %+v", initial)
	}

	f.play(t, player, quiz, question, correct)
	if _, err := f.leaderboards.Recompute(ctx, lb.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	select {
	case snap := <-updates:
		if len(snap.Entries) == 0 || snap.Entries[0].UserID != player.UserID || snap.Entries[0].Score != 2 {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatalf("no snapshot after recompute")
	}

	cancel()
	if n := f.hub.SubscriberCount(lb.ID); n != 0 {
		t.Fatalf("expected no subscribers after cancel, got %d", n)
	}

	if _, _, err := f.leaderboards.Subscribe(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHubDropsOldestForSlowSubscriber(t *testing.T) {
	hub := app.NewLeaderboardHub()
	updates, cancel := hub.Subscribe("lb", domain.LeaderboardSnapshot{LeaderboardID: "lb"})
	defer cancel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 20; i++ {
		hub.Publish(domain.LeaderboardSnapshot{LeaderboardID: "lb", UpdatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	hub.Publish(domain.LeaderboardSnapshot{LeaderboardID: "other"})

	var last domain.LeaderboardSnapshot
	count := 0
	for len(updates) > 0 {
		last = <-updates
		count++
	}
	if count == 0 || count > 8 {
		t.Fatalf("unexpected buffered snapshot count %d", count)
	}
	if !last.UpdatedAt.Equal(base.Add(20 * time.Second)) {
		t.Fatalf("latest snapshot was dropped, last is %v", last.UpdatedAt)
	}
}
