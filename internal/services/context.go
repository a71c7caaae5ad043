package services

import "context"

type sessionCtxKey struct{}

// WithSession returns a copy of ctx carrying the page session store.
func WithSession(ctx context.Context, s *SessionStore) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFrom returns the page session store carried by ctx.
func SessionFrom(ctx context.Context) (*SessionStore, error) {
	s, ok := ctx.Value(sessionCtxKey{}).(*SessionStore)
	if !ok || s == nil {
		return nil, ErrSessionWithoutProvider
	}
	return s, nil
}
