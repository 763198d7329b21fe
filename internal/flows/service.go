package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Issue.Store != nil && s.deps.Validate.Store != nil
}

func (s Service) Issue(ctx context.Context, clientIP string) IssueResult {
	return RunIssue(ctx, clientIP, s.deps.Issue)
}

func (s Service) Validate(ctx context.Context, tok string) ValidateResult {
	return RunValidate(ctx, tok, s.deps.Validate)
}

func (s Service) Revoke(ctx context.Context, tok string) error {
	return RunRevoke(ctx, tok, s.deps.Revoke)
}
