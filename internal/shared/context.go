package shared

import "context"

type sessionContextKey struct{}

type shellContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithShell stores the request's shell flags in context.
func ContextWithShell(ctx context.Context, shell Shell) context.Context {
	return context.WithValue(ctx, shellContextKey{}, shell)
}

// ShellFromContext returns the shell flags, zero when absent.
func ShellFromContext(ctx context.Context) Shell {
	shell, _ := ctx.Value(shellContextKey{}).(Shell)
	return shell
}
