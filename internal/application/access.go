package application

import (
	"context"
	"sync/atomic"

	"github.com/bnema/webim-client/internal/domain"
)

type ownerKey struct{}

// owner identifies the execution context that built a session. It must not
// be zero-sized so that every session gets a distinct address.
type owner struct {
	_ byte
}

type access struct {
	owner     *owner
	destroyed atomic.Bool
}

func newAccess() *access {
	return &access{owner: &owner{}}
}

func (a *access) bind(ctx context.Context) context.Context {
	return context.WithValue(ctx, ownerKey{}, a.owner)
}

// check fails with an invalid_thread error unless ctx derives from the
// session's context, and with invalid_session once the session is destroyed.
// It does not look at which goroutine ctx is used from.
func (a *access) check(ctx context.Context, op string) error {
	if ctx == nil || ctx.Value(ownerKey{}) != a.owner {
		return &domain.AccessError{Kind: domain.AccessErrorInvalidThread, Op: op}
	}
	if a.destroyed.Load() {
		return &domain.AccessError{Kind: domain.AccessErrorInvalidSession, Op: op}
	}
	return nil
}

type notifications []func()

func (n *notifications) add(notify func()) {
	*n = append(*n, notify)
}

func (n notifications) run() {
	for _, notify := range n {
		notify()
	}
}
