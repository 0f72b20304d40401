// Package feedback proxies feedback submissions to the feedback microservice.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"quiz-platform/internal/auth"
	"quiz-platform/internal/errs"
)

const MinMessageLength = 5

var (
	ErrMessageTooShort = errs.NewValidationError("Validation failed", []errs.FieldError{
		{Field: "message", Error: fmt.Sprintf("must be at least %d characters long", MinMessageLength)},
	})
	ErrUnavailable = errs.NewBadGatewayError("Feedback service is unavailable")
)

type Feedback struct {
	ID        string    `json:"_id,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenExchanger swaps the caller's token for one the feedback service accepts.
type TokenExchanger interface {
	Configured() bool
	Exchange(ctx context.Context, subjectToken, audience string) (auth.ExchangedToken, error)
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Audience string
}

type Client struct {
	baseURL   string
	audience  string
	http      *http.Client
	exchanger TokenExchanger
	log       zerolog.Logger
}

func NewClient(cfg Config, exchanger TokenExchanger, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		audience:  cfg.Audience,
		http:      &http.Client{Timeout: cfg.Timeout},
		exchanger: exchanger,
		log:       log.With().Str("component", "feedback_client").Logger(),
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Create submits a message. callerToken may be empty for anonymous feedback.
func (c *Client) Create(ctx context.Context, message, callerToken string) (Feedback, error) {
	message = strings.TrimSpace(message)
	if len([]rune(message)) < MinMessageLength {
		return Feedback{}, ErrMessageTooShort
	}
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return Feedback{}, errors.Wrap(err, "encode feedback")
	}
	var out Feedback
	if err := c.do(ctx, http.MethodPost, body, callerToken, &out); err != nil {
		return Feedback{}, err
	}
	return out, nil
}

// List returns every feedback entry, newest first.
func (c *Client) List(ctx context.Context, callerToken string) ([]Feedback, error) {
	out := []Feedback{}
	if err := c.do(ctx, http.MethodGet, nil, callerToken, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method string, body []byte, callerToken string, out any) error {
	if !c.Configured() {
		return ErrUnavailable
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/feedback", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build feedback request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, err := c.serviceToken(ctx, callerToken); err != nil {
		c.log.Error().Err(err).Msg("token exchange for feedback service failed")
		return ErrUnavailable
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Msg("feedback request failed")
		return ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(snippet)).
			Str("method", method).
			Msg("feedback service returned an error")
		return ErrUnavailable
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Error().Err(err).Msg("decode feedback response")
		return ErrUnavailable
	}
	return nil
}

func (c *Client) serviceToken(ctx context.Context, callerToken string) (string, error) {
	if callerToken == "" || c.exchanger == nil || !c.exchanger.Configured() {
		return "", nil
	}
	tok, err := c.exchanger.Exchange(ctx, callerToken, c.audience)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
