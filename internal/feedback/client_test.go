package feedback_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"quiz-platform/internal/auth"
	"quiz-platform/internal/errs"
	"quiz-platform/internal/feedback"
)

type stubExchanger struct {
	audience string
	err      error
}

func (s *stubExchanger) Configured() bool { return true }

func (s *stubExchanger) Exchange(_ context.Context, subject, audience string) (auth.ExchangedToken, error) {
	s.audience = audience
	if s.err != nil {
		return auth.ExchangedToken{}, s.err
	}
	return auth.ExchangedToken{AccessToken: "svc-" + subject, TokenType: "Bearer"}, nil
}

func newClient(url string, ex feedback.TokenExchanger) *feedback.Client {
	return feedback.NewClient(feedback.Config{BaseURL: url, Timeout: time.Second, Audience: "feedback-service"}, ex, zerolog.Nop())
}

func TestCreateExchangesToken(t *testing.T) {
	var gotAuth, gotMessage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feedback" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotMessage = body["message"]
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(feedback.Feedback{ID: "f1", Message: body["message"], CreatedAt: time.Now()})
	}))
	defer srv.Close()

	ex := &stubExchanger{}
	fb, err := newClient(srv.URL, ex).Create(context.Background(), "  great quiz  ", "user-token")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if fb.ID != "f1" || gotMessage != "great quiz" {
		t.Fatalf("unexpected feedback %+v / %q", fb, gotMessage)
	}
	if gotAuth != "Bearer svc-user-token" || ex.audience != "feedback-service" {
		t.Fatalf("token not exchanged: %q audience=%q", gotAuth, ex.audience)
	}
}

func TestCreateRejectsShortMessage(t *testing.T) {
	_, err := newClient("http://unused", nil).Create(context.Background(), "hey", "")
	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, nil).List(context.Background(), "")
	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %v", err)
	}
}

func TestExchangeFailureIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request must not reach the feedback service")
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, &stubExchanger{err: errors.New("keycloak down")}).List(context.Background(), "tok")
	if !errors.Is(err, feedback.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("anonymous list must not send a token")
		}
		_ = json.NewEncoder(w).Encode([]feedback.Feedback{{ID: "b", Message: "newer"}, {ID: "a", Message: "older"}})
	}))
	defer srv.Close()

	items, err := newClient(srv.URL, nil).List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != "b" {
		t.Fatalf("unexpected items: %+v", items)
	}
}
