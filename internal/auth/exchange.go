package auth

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	grantTypeTokenExchange = "urn:ietf:params:oauth:grant-type:token-exchange"
	tokenTypeAccessToken   = "urn:ietf:params:oauth:token-type:access_token"
)

// ExchangedToken mirrors the token endpoint response returned to API clients.
type ExchangedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type ExchangerConfig struct {
	TokenURL        string
	ClientID        string
	ClientSecret    string
	DefaultAudience string
	HTTPClient      *http.Client
}

// Exchanger performs RFC 8693 token exchange with the service's client credentials.
type Exchanger struct {
	cfg ExchangerConfig
}

func NewExchanger(cfg ExchangerConfig) *Exchanger {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Exchanger{cfg: cfg}
}

func (e *Exchanger) Configured() bool {
	return e != nil && e.cfg.TokenURL != "" && e.cfg.ClientID != ""
}

// Exchange trades subjectToken for a token whose audience is audience (or the default one).
func (e *Exchanger) Exchange(ctx context.Context, subjectToken, audience string) (ExchangedToken, error) {
	if !e.Configured() {
		return ExchangedToken{}, errors.New("token exchange is not configured")
	}
	if audience == "" {
		audience = e.cfg.DefaultAudience
	}
	params := url.Values{
		"grant_type":         {grantTypeTokenExchange},
		"subject_token":      {subjectToken},
		"subject_token_type": {tokenTypeAccessToken},
	}
	if audience != "" {
		params.Set("audience", audience)
	}
	conf := clientcredentials.Config{
		ClientID:       e.cfg.ClientID,
		ClientSecret:   e.cfg.ClientSecret,
		TokenURL:       e.cfg.TokenURL,
		EndpointParams: params,
		AuthStyle:      oauth2.AuthStyleInParams,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.cfg.HTTPClient)
	tok, err := conf.Token(ctx)
	if err != nil {
		return ExchangedToken{}, errors.Wrap(err, "token exchange")
	}
	out := ExchangedToken{AccessToken: tok.AccessToken, TokenType: tok.TokenType, ExpiresIn: tok.ExpiresIn}
	if out.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		out.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return out, nil
}
