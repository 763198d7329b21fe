package client

import (
	"fmt"
	"net/http"
	"time"
)

// RefreshError reports that a session token could not be obtained. Every
// caller waiting on the same refresh receives an equivalent RefreshError.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("session token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// IssueError is a non-200 answer from the issuance endpoint.
type IssueError struct {
	StatusCode int
	Message    string
	// RetryAfter is parsed from the Retry-After header on 429 answers.
	RetryAfter time.Duration
}

func (e *IssueError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("session issuance answered %d", e.StatusCode)
	}
	return fmt.Sprintf("session issuance answered %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether the issuance endpoint rejected the call for
// exceeding its budget.
func (e *IssueError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}
