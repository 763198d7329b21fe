package flows

import "context"

type RevokeStore interface {
	Delete(ctx context.Context, tok string) error
}

// RevokeDeps captures revocation dependencies.
type RevokeDeps struct {
	Store RevokeStore
}

// RunRevoke deletes tok. Revoking an unknown token succeeds.
func RunRevoke(ctx context.Context, tok string, deps RevokeDeps) error {
	if tok == "" {
		return nil
	}
	return deps.Store.Delete(ctx, tok)
}
