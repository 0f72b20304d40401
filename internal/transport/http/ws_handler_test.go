package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

func TestLiveLeaderboardStreamsRecomputes(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	lb, err := api.leaderboards.Create(ctx, app.LeaderboardInput{Name: "Global", Type: domain.LeaderboardGlobal})
	if err != nil {
		t.Fatalf("create leaderboard: %v", err)
	}

	conn := dialLive(t, api.server.URL, lb.ID)
	defer conn.Close()

	msgType, payload := readNext(t, conn)
	if msgType != "subscribed" {
		t.Fatalf("expected subscribed first, got %s", msgType)
	}
	var sub subscribedPayload
	if err := json.Unmarshal(payload, &sub); err != nil || sub.LeaderboardID != lb.ID {
		t.Fatalf("unexpected subscribed payload %s (%v)", payload, err)
	}

	msgType, payload = readNext(t, conn)
	if msgType != "leaderboard" {
		t.Fatalf("expected the current standings, got %s", msgType)
	}
	var initial domain.LeaderboardSnapshot
	if err := json.Unmarshal(payload, &initial); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if initial.LeaderboardID != lb.ID || len(initial.Entries) != 0 {
		t.Fatalf("unexpected initial snapshot: %+v", initial)
	}

	// a user appears on the board after the next recompute
	api.call(http.MethodGet, "/v1/users/profile", api.token("kc-ada", "ada"), nil, nil)
	if _, err := api.leaderboards.Recompute(ctx, lb.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	msgType, payload = readNext(t, conn)
	if msgType != "leaderboard" {
		t.Fatalf("expected a leaderboard update, got %s", msgType)
	}
	var updated domain.LeaderboardSnapshot
	if err := json.Unmarshal(payload, &updated); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(updated.Entries) != 1 || updated.Entries[0].Username != "ada" || updated.Entries[0].Position != 1 {
		t.Fatalf("unexpected update: %+v", updated.Entries)
	}
}

func TestLiveLeaderboardPingAndUnknownMessages(t *testing.T) {
	api := newTestAPI(t)
	lb, err := api.leaderboards.Create(context.Background(), app.LeaderboardInput{Name: "Weekly", Type: domain.LeaderboardWeekly})
	if err != nil {
		t.Fatalf("create leaderboard: %v", err)
	}
	conn := dialLive(t, api.server.URL, lb.ID)
	defer conn.Close()

	readNext(t, conn) // subscribed
	readNext(t, conn) // initial standings

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if msgType, _ := readNext(t, conn); msgType != "pong" {
		t.Fatalf("expected pong, got %s", msgType)
	}

	if err := conn.WriteJSON(map[string]string{"type": "answer"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msgType, payload := readNext(t, conn)
	if msgType != "error" {
		t.Fatalf("expected error, got %s", msgType)
	}
	var e errorPayload
	if err := json.Unmarshal(payload, &e); err != nil || e.Message != "unsupported message type" {
		t.Fatalf("unexpected error payload %s", payload)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msgType, _ := readNext(t, conn); msgType != "error" {
		t.Fatalf("expected error for malformed message, got %s", msgType)
	}
}

func TestLiveLeaderboardUnknownID(t *testing.T) {
	api := newTestAPI(t)
	res, err := http.Get(api.server.URL + "/v1/leaderboards/missing/live")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before upgrading, got %d", res.StatusCode)
	}

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(api.server.URL, "missing"), nil)
	if err == nil {
		t.Fatalf("expected the dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected a 404 handshake response, got %+v", resp)
	}
}

func TestLiveUnsubscribesOnClose(t *testing.T) {
	api := newTestAPI(t)
	lb, err := api.leaderboards.Create(context.Background(), app.LeaderboardInput{Name: "Monthly", Type: domain.LeaderboardMonthly})
	if err != nil {
		t.Fatalf("create leaderboard: %v", err)
	}

	conn := dialLive(t, api.server.URL, lb.ID)
	readNext(t, conn)
	if n := api.hub.SubscriberCount(lb.ID); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for api.hub.SubscriberCount(lb.ID) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not released after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func dialLive(t *testing.T, serverURL, leaderboardID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(serverURL, leaderboardID), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func wsURL(serverURL, leaderboardID string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/v1/leaderboards/" + leaderboardID + "/live"
}

func readNext(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg.Type, msg.Payload
}
