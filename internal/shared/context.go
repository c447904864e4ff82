package shared

import "context"

type sessionCtxKey struct{}

// ContextWithSession attaches the request session to the context. The
// session middleware is the only writer; handlers read through
// SessionFromContext.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sess)
}

// SessionFromContext returns the request session, or nil when the request
// did not pass through the session middleware.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return sess
}
