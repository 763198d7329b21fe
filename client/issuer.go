package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// IssuePath is the issuance endpoint relative to the service base URL.
const IssuePath = "/session/token"

const maxIssueBody = 64 << 10

// Token is a session token as returned by the issuance endpoint.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Issuer mints session tokens.
type Issuer interface {
	Issue(ctx context.Context) (Token, error)
}

// IssuerFunc adapts a function to [Issuer].
type IssuerFunc func(ctx context.Context) (Token, error)

func (f IssuerFunc) Issue(ctx context.Context) (Token, error) {
	return f(ctx)
}

// HTTPIssuer calls POST {base}/session/token.
type HTTPIssuer struct {
	url  string
	http *http.Client
}

// NewHTTPIssuer returns an issuer for the service at baseURL. A nil hc uses
// http.DefaultClient.
func NewHTTPIssuer(baseURL string, hc *http.Client) *HTTPIssuer {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPIssuer{
		url:  strings.TrimRight(baseURL, "/") + IssuePath,
		http: hc,
	}
}

// Issue implements [Issuer]. Non-200 answers are returned as *IssueError.
func (i *HTTPIssuer) Issue(ctx context.Context) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.url, nil)
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := i.http.Do(req)
	if err != nil {
		return Token{}, err
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxIssueBody)
	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(body).Decode(&payload)
		return Token{}, &IssueError{
			StatusCode: resp.StatusCode,
			Message:    payload.Error,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var tok Token
	if err := json.NewDecoder(body).Decode(&tok); err != nil {
		return Token{}, fmt.Errorf("decode issuance response: %w", err)
	}
	if tok.Value == "" {
		return Token{}, errors.New("issuance response carried no token")
	}
	return tok, nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
