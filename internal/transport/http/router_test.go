package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"

	"quiz-platform/internal/app"
	"quiz-platform/internal/auth"
	"quiz-platform/internal/domain"
	"quiz-platform/internal/errs"
	"quiz-platform/internal/feedback"
	"quiz-platform/internal/infra/memory"
	"quiz-platform/internal/jobs"
)

const testSecret = "router-test-secret"

type stubFeedback struct {
	lastToken string
}

func (f *stubFeedback) Create(_ context.Context, message, callerToken string) (feedback.Feedback, error) {
	f.lastToken = callerToken
	if len(message) < 5 {
		return feedback.Feedback{}, feedback.ErrMessageTooShort
	}
	return feedback.Feedback{ID: "fb-1", Message: message}, nil
}

func (f *stubFeedback) List(_ context.Context, callerToken string) ([]feedback.Feedback, error) {
	f.lastToken = callerToken
	return []feedback.Feedback{{ID: "fb-1", Message: "great quizzes"}}, nil
}

type testAPI struct {
	t            *testing.T
	server       *httptest.Server
	store        *memory.Store
	leaderboards *app.LeaderboardService
	hub          *app.LeaderboardHub
	feedback     *stubFeedback
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := zerolog.Nop()
	store := memory.NewStore()
	keys := memory.NewAnswerKeyCache(store.Questions(), time.Minute)

	users := app.NewUserService(store.Users(), store.Quizzes())
	achievements := app.NewAchievementService(store.Achievements(), store.Users(), store.Attempts(), store.Categories(), log)
	hub := app.NewLeaderboardHub()
	leaderboards := app.NewLeaderboardService(store.Leaderboards(), store.Categories(), store.Scores(), memory.NewEntryCache(), hub, 10, log)
	queue := jobs.NewInlineQueue(jobs.NewProcessor(achievements, leaderboards, log))
	fb := &stubFeedback{}

	verifier, err := auth.NewVerifier(auth.VerifierConfig{HMACSecret: testSecret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	svc := Services{
		Users:        users,
		Categories:   app.NewCategoryService(store.Categories()),
		Tags:         app.NewTagService(store.Tags()),
		Quizzes:      app.NewQuizService(store.Quizzes(), store.Categories(), store.Tags(), keys),
		Questions:    app.NewQuestionService(store.Questions(), store.Quizzes(), keys),
		Attempts:     app.NewAttemptService(store.Attempts(), store.Quizzes(), store.Questions(), keys, queue, log),
		Achievements: achievements,
		Leaderboards: leaderboards,
		Feedback:     fb,
	}
	health := NewHealthHandler("test", map[string]HealthCheck{"database": nil, "redis": nil})
	e := NewRouter(RouterConfig{}, svc, NewAuthMiddleware(verifier, users, "admin"), health, log)

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return &testAPI{t: t, server: server, store: store, leaderboards: leaderboards, hub: hub, feedback: fb}
}

func (a *testAPI) token(subject, username string, roles ...string) string {
	a.t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email:             username + "@example.com",
		PreferredUsername: username,
		RealmAccess:       auth.RealmAccess{Roles: roles},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		a.t.Fatalf("sign: %v", err)
	}
	return raw
}

// call sends body as JSON and decodes the response into out when out is not nil.
func (a *testAPI) call(method, path, token string, body, out any) int {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		a.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := a.server.Client().Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			a.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return res.StatusCode
}

func (a *testAPI) mustCall(status int, method, path, token string, body, out any) {
	a.t.Helper()
	var raw json.RawMessage
	if got := a.call(method, path, token, body, &raw); got != status {
		a.t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, got, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			a.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	var res healthResponse
	api.mustCall(http.StatusOK, http.MethodGet, "/health", "", nil, &res)
	if res.Status != "ok" || res.Environment != "test" {
		t.Fatalf("unexpected health: %+v", res)
	}
	if res.Checks["database"] != "disabled" || res.Checks["redis"] != "disabled" {
		t.Fatalf("unexpected checks: %v", res.Checks)
	}
}

func TestHealthReportsFailingDependency(t *testing.T) {
	h := NewHealthHandler("test", map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return context.DeadlineExceeded },
	})
	e := NewRouter(RouterConfig{}, Services{}, NewAuthMiddleware(nil, nil, "admin"), h, zerolog.Nop())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var res healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Checks["database"] != "healthy" || res.Checks["redis"] != "unhealthy" {
		t.Fatalf("unexpected checks: %v", res.Checks)
	}
}

func TestRouteNotFound(t *testing.T) {
	api := newTestAPI(t)
	var res errs.HTTPError
	if status := api.call(http.MethodGet, "/v1/nothing-here", "", nil, &res); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if res.Message != "Route not found" || res.Code != "NOT_FOUND" {
		t.Fatalf("unexpected body: %+v", res)
	}
}

func TestAuthenticationErrors(t *testing.T) {
	api := newTestAPI(t)

	var res errs.HTTPError
	if status := api.call(http.MethodGet, "/v1/users/profile", "", nil, &res); status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if res.Message != "Access token required" {
		t.Fatalf("unexpected message %q", res.Message)
	}

	res = errs.HTTPError{}
	if status := api.call(http.MethodGet, "/v1/users/profile", "not-a-jwt", nil, &res); status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if res.Message != "Invalid or expired token" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestProfileProvisionsUser(t *testing.T) {
	api := newTestAPI(t)
	token := api.token("kc-ada", "ada")

	var first, second domain.User
	api.mustCall(http.StatusOK, http.MethodGet, "/v1/users/profile", token, nil, &first)
	api.mustCall(http.StatusOK, http.MethodGet, "/v1/users/profile", token, nil, &second)
	if first.ID == "" || first.ID != second.ID {
		t.Fatalf("expected one provisioned user, got %q and %q", first.ID, second.ID)
	}
	if first.Username != "ada" || first.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", first)
	}
}

func TestAdminRoutesRequireRole(t *testing.T) {
	api := newTestAPI(t)
	var res errs.HTTPError
	status := api.call(http.MethodPost, "/v1/categories", api.token("kc-bob", "bob"), map[string]any{"name": "Science"}, &res)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
	if res.Message != "Insufficient permissions" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	admin := api.token("kc-root", "root", "admin")

	var res errs.HTTPError
	status := api.call(http.MethodPost, "/v1/tags", admin, map[string]any{"color": "blue"}, &res)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
	if res.Code != errs.CodeValidation || len(res.Errors) == 0 {
		t.Fatalf("unexpected body: %+v", res)
	}
	fields := map[string]bool{}
	for _, fe := range res.Errors {
		fields[fe.Field] = true
	}
	if !fields["name"] {
		t.Fatalf("expected a name error, got %+v", res.Errors)
	}

	res = errs.HTTPError{}
	if status := api.call(http.MethodGet, "/v1/quizzes?limit=500", "", nil, &res); status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for limit, got %d", status)
	}
	if len(res.Errors) != 1 || res.Errors[0].Field != "limit" {
		t.Fatalf("unexpected field errors: %+v", res.Errors)
	}
}

func TestCategoryConflictAndDelete(t *testing.T) {
	api := newTestAPI(t)
	admin := api.token("kc-root", "root", "admin")

	var cat domain.Category
	api.mustCall(http.StatusCreated, http.MethodPost, "/v1/categories", admin, map[string]any{"name": "History"}, &cat)

	var conflict errs.HTTPError
	if status := api.call(http.MethodPost, "/v1/categories", admin, map[string]any{"name": "History"}, &conflict); status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if conflict.Code != errs.CodeAlreadyExists {
		t.Fatalf("expected %s, got %+v", errs.CodeAlreadyExists, conflict)
	}

	var deletedBody struct {
		Message  string          `json:"message"`
		Category domain.Category `json:"category"`
	}
	api.mustCall(http.StatusOK, http.MethodDelete, "/v1/categories/"+cat.ID, admin, nil, &deletedBody)
	if deletedBody.Message != "Category deleted successfully" || deletedBody.Category.ID != cat.ID {
		t.Fatalf("unexpected delete body: %+v", deletedBody)
	}

	var missing errs.HTTPError
	if status := api.call(http.MethodGet, "/v1/categories/"+cat.ID, "", nil, &missing); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if missing.Message != "Category not found" {
		t.Fatalf("unexpected message %q", missing.Message)
	}
}

func TestListPagination(t *testing.T) {
	api := newTestAPI(t)
	admin := api.token("kc-root", "root", "admin")
	for _, name := range []string{"alpha", "beta", "gamma"} {
		api.mustCall(http.StatusCreated, http.MethodPost, "/v1/tags", admin, map[string]any{"name": name}, nil)
	}

	seen := []string{}
	for page := 1; page <= 3; page++ {
		var res domain.Paginated[domain.Tag]
		api.mustCall(http.StatusOK, http.MethodGet, "/v1/tags?limit=1&page="+strconv.Itoa(page), "", nil, &res)
		want := domain.Pagination{Page: page, Limit: 1, Total: 3, Pages: 3}
		if res.Pagination != want {
			t.Fatalf("page %d: expected %+v, got %+v", page, want, res.Pagination)
		}
		if len(res.Data) != 1 {
			t.Fatalf("page %d: expected one tag, got %d", page, len(res.Data))
		}
		seen = append(seen, res.Data[0].Name)
	}
	if seen[0] != "alpha" || seen[1] != "beta" || seen[2] != "gamma" {
		t.Fatalf("unexpected order across pages: %v", seen)
	}

	var past domain.Paginated[domain.Tag]
	api.mustCall(http.StatusOK, http.MethodGet, "/v1/tags?limit=2&page=5", "", nil, &past)
	if len(past.Data) != 0 || past.Pagination.Total != 3 || past.Pagination.Pages != 2 {
		t.Fatalf("unexpected page past the end: %+v", past)
	}
}

func TestQuizAttemptLeaderboardFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.token("kc-root", "root", "admin")
	author := api.token("kc-author", "author")
	player := api.token("kc-player", "player")

	var cat domain.Category
	api.mustCall(http.StatusCreated, http.MethodPost, "/v1/categories", admin, map[string]any{"name": "Math"}, &cat)

	var boards initializeResponse
	api.mustCall(http.StatusOK, http.MethodPost, "/v1/leaderboards/initialize", admin, nil, &boards)
	if len(boards.Leaderboards) != 4 {
		t.Fatalf("expected global, weekly, monthly and one category board, got %d", len(boards.Leaderboards))
	}

	var quiz domain.Quiz
	api.mustCall(http.StatusCreated, http.MethodPost, "/v1/quizzes", author, map[string]any{
		"title":        "Arithmetic",
		"categoryId":   cat.ID,
		"difficulty":   "BEGINNER",
		"status":       "PUBLISHED",
		"passingScore": 50,
	}, &quiz)

	var question domain.Question
	api.mustCall(http.StatusCreated, http.MethodPost, "/v1/questions", author, map[string]any{
		"quizId":   quiz.ID,
		"type":     "SINGLE_CHOICE",
		"question": "2 + 2 = ?",
		"points":   5,
		"answers": []map[string]any{
			{"text": "3", "isCorrect": false},
			{"text": "4", "isCorrect": true},
		},
	}, &question)
	var correct string
	for _, a := range question.Answers {
		if a.IsCorrect {
			correct = a.ID
		}
	}
	if correct == "" {
		t.Fatalf("no correct answer in %+v", question.Answers)
	}

	var forbidden errs.HTTPError
	if status := api.call(http.MethodPut, "/v1/quizzes/"+quiz.ID, player, map[string]any{"title": "Mine"}, &forbidden); status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-author update, got %d", status)
	}

	var attempt domain.QuizAttempt
	api.mustCall(http.StatusCreated, http.MethodPost, "/v1/attempts", player, map[string]any{"quizId": quiz.ID}, &attempt)
	if attempt.Status != domain.AttemptInProgress {
		t.Fatalf("unexpected status %s", attempt.Status)
	}

	var answer domain.UserAnswer
	api.mustCall(http.StatusOK, http.MethodPost, "/v1/attempts/"+attempt.ID+"/answers", player, map[string]any{
		"questionId": question.ID,
		"answerId":   correct,
	}, &answer)
	if !answer.IsCorrect || answer.PointsEarned != 5 {
		t.Fatalf("unexpected graded answer: %+v", answer)
	}

	var done domain.QuizAttempt
	api.mustCall(http.StatusOK, http.MethodPost, "/v1/attempts/"+attempt.ID+"/complete", player, map[string]any{"timeSpent": 42}, &done)
	if done.Status != domain.AttemptCompleted || done.Score == nil || *done.Score != 5 {
		t.Fatalf("unexpected completed attempt: %+v", done)
	}
	if done.Passed == nil || !*done.Passed {
		t.Fatalf("expected a pass, got %+v", done.Passed)
	}

	var again errs.HTTPError
	if status := api.call(http.MethodPost, "/v1/attempts/"+attempt.ID+"/complete", player, nil, &again); status != http.StatusBadRequest {
		t.Fatalf("expected 400 completing twice, got %d", status)
	}

	var other errs.HTTPError
	if status := api.call(http.MethodGet, "/v1/attempts/"+attempt.ID, author, nil, &other); status != http.StatusForbidden {
		t.Fatalf("expected 403 reading another user's attempt, got %d", status)
	}

	var me domain.User
	api.mustCall(http.StatusOK, http.MethodGet, "/v1/users/profile", player, nil, &me)

	var pos domain.UserPosition
	api.mustCall(http.StatusOK, http.MethodGet, "/v1/leaderboards/user/"+me.ID+"?type=GLOBAL", player, nil, &pos)
	if pos.Position != 1 || pos.Score != 5 {
		t.Fatalf("unexpected position: %+v", pos)
	}

	var catPos domain.UserPosition
	api.mustCall(http.StatusOK, http.MethodGet, "/v1/leaderboards/user/"+me.ID+"?type=CATEGORY&categoryId="+cat.ID, player, nil, &catPos)
	if catPos.Position != 1 {
		t.Fatalf("unexpected category position: %+v", catPos)
	}

	var entries []domain.LeaderboardEntry
	api.mustCall(http.StatusOK, http.MethodGet, "/v1/leaderboards/"+pos.LeaderboardID+"/entries?limit=5", "", nil, &entries)
	// every active user ranks on the global board, the scorer first
	if len(entries) != 3 || entries[0].UserID != me.ID || entries[0].Username != "player" || entries[1].Score != 0 {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	var checked checkAchievementsResponse
	api.mustCall(http.StatusOK, http.MethodPost, "/v1/achievements/check", player, nil, &checked)
	if checked.Awarded == nil {
		t.Fatalf("expected an empty list, not null")
	}
}

func TestCategoryLeaderboardRequiresCategory(t *testing.T) {
	api := newTestAPI(t)
	admin := api.token("kc-root", "root", "admin")

	var res errs.HTTPError
	status := api.call(http.MethodPost, "/v1/leaderboards", admin, map[string]any{"name": "Cat", "type": "CATEGORY"}, &res)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if res.Message != "Category ID is required for category leaderboards" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestFeedbackPassesCallerToken(t *testing.T) {
	api := newTestAPI(t)
	token := api.token("kc-ada", "ada")

	var fb feedback.Feedback
	api.mustCall(http.StatusCreated, http.MethodPost, "/v1/feedback", token, map[string]any{"message": "lovely quizzes"}, &fb)
	if fb.ID != "fb-1" || api.feedback.lastToken != token {
		t.Fatalf("unexpected feedback %+v, token forwarded %q", fb, api.feedback.lastToken)
	}

	var list []feedback.Feedback
	api.mustCall(http.StatusOK, http.MethodGet, "/v1/feedback", "", nil, &list)
	if len(list) != 1 || api.feedback.lastToken != "" {
		t.Fatalf("anonymous list: %+v token %q", list, api.feedback.lastToken)
	}
}

func TestTokenExchangeNotConfigured(t *testing.T) {
	api := newTestAPI(t)
	var res errs.HTTPError
	status := api.call(http.MethodPost, "/v1/auth/token-exchange", api.token("kc-ada", "ada"), map[string]any{}, &res)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
}
