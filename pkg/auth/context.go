package auth

import (
	"context"
)

// Context keys for authentication data
type contextKey string

const (
	// ContextKeyIdentity is the context key for the verified token identity
	ContextKeyIdentity contextKey = "identity"
	// ContextKeyAccountID is the context key for the linked account's database ID
	ContextKeyAccountID contextKey = "account_id"
)

// WithIdentity adds the verified identity to the context
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, identity)
}

// IdentityFromContext retrieves the verified identity from the context
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(*Identity)
	return identity, ok
}

// WithAccountID adds the linked account ID to the context
func WithAccountID(ctx context.Context, accountID int64) context.Context {
	return context.WithValue(ctx, ContextKeyAccountID, accountID)
}

// AccountIDFromContext retrieves the linked account ID from the context
func AccountIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextKeyAccountID).(int64)
	return id, ok
}
