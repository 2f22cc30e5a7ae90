package ports

import (
	"context"

	"github.com/bnema/webim-client/internal/domain"
)

// MessageStore persists chat history across process restarts. Both load
// methods return messages oldest first.
type MessageStore interface {
	LoadRecent(ctx context.Context, limit int) ([]domain.Message, error)
	LoadBefore(ctx context.Context, before domain.Message, limit int) ([]domain.Message, error)
	Upsert(ctx context.Context, messages []domain.Message) error
	Delete(ctx context.Context, id domain.MessageID) error

	// Clear drops every stored message. It runs when the server reports a
	// different visitor.
	Clear(ctx context.Context) error
}
