package ports

import (
	"context"

	"github.com/bnema/webim-client/internal/domain"
)

type SessionRepository interface {
	Get(ctx context.Context, location string) (domain.StoredSession, error)
	Save(ctx context.Context, session domain.StoredSession) error
	Delete(ctx context.Context, location string) error
}
