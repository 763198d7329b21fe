package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// DefaultHeader carries the session token on protected requests.
const DefaultHeader = "x-session-token"

const maxDrain = 4 << 10

// Transport attaches a session token to every request and, on a 401,
// invalidates the cache, obtains a fresh token and sends the request exactly
// once more. It never makes more than two attempts.
type Transport struct {
	Base   http.RoundTripper
	Cache  *TokenCache
	Header string
	Logger zerolog.Logger
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) header() string {
	if t.Header != "" {
		return t.Header
	}
	return DefaultHeader
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Cache == nil {
		return nil, errors.New("client transport has no token cache")
	}
	ctx := req.Context()

	getBody, err := rewindable(req)
	if err != nil {
		return nil, err
	}

	tok, err := t.Cache.Get(ctx)
	if err != nil {
		return nil, err
	}

	first, err := t.attempt(ctx, req, getBody, tok)
	if err != nil {
		return nil, err
	}
	resp, err := t.base().RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	_, _ = io.CopyN(io.Discard, resp.Body, maxDrain)
	_ = resp.Body.Close()

	t.Cache.Invalidate()
	fresh, err := t.Cache.Get(ctx)
	if err != nil {
		t.Logger.Debug().Err(err).Str("path", req.URL.Path).Msg("token refresh after 401 failed")
		return nil, err
	}
	t.Logger.Debug().Str("path", req.URL.Path).Msg("retrying request with fresh session token")

	second, err := t.attempt(ctx, req, getBody, fresh)
	if err != nil {
		return nil, err
	}
	return t.base().RoundTrip(second)
}

func (t *Transport) attempt(ctx context.Context, req *http.Request, getBody func() (io.ReadCloser, error), tok string) (*http.Request, error) {
	out := req.Clone(ctx)
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
		out.GetBody = getBody
	}
	out.Header.Set(t.header(), tok)
	return out, nil
}

// rewindable returns a body factory for req, buffering the body when the
// request cannot rewind it itself. A nil factory means no body.
func rewindable(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		_ = req.Body.Close()
		return req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}
