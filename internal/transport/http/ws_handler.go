package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"quiz-platform/internal/domain"
)

// LeaderboardFeed is the live side of the leaderboard service.
type LeaderboardFeed interface {
	Subscribe(ctx context.Context, id string) (<-chan domain.LeaderboardSnapshot, func(), error)
}

type WSHandler struct {
	feed     LeaderboardFeed
	upgrader websocket.Upgrader
}

// NewWSHandler accepts connections from allowedOrigins; "*" or an empty list allows any origin.
func NewWSHandler(feed LeaderboardFeed, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, o := range allowed {
			if strings.EqualFold(strings.TrimSuffix(o, "/"), u.Scheme+"://"+u.Host) {
				return true
			}
		}
		return false
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type subscribedPayload struct {
	LeaderboardID string `json:"leaderboardId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeLive streams a leaderboard's snapshots until the client disconnects.
// The current standings arrive first, then one message per recompute.
func (h *WSHandler) ServeLive(c echo.Context) error {
	log := GetLogger(c)
	leaderboardID := c.Param("id")

	updates, cancel, err := h.feed.Subscribe(c.Request().Context(), leaderboardID)
	if err != nil {
		return err
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return nil
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "subscribed", Payload: subscribedPayload{LeaderboardID: leaderboardID}}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snapshot, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: snapshot}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var inbound inboundMessage
		if err := json.Unmarshal(raw, &inbound); err != nil {
			h.reply(send, closeSignals, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid message"}})
			continue
		}
		switch inbound.Type {
		case "ping":
			h.reply(send, closeSignals, outboundMessage[any]{Type: "pong", Payload: struct{}{}})
		default:
			h.reply(send, closeSignals, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	return nil
}

// reply queues msg unless the writer has stopped.
func (h *WSHandler) reply(send chan<- outboundMessage[any], closed <-chan struct{}, msg outboundMessage[any]) {
	select {
	case send <- msg:
	case <-closed:
	}
}
