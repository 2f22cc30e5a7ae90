package application

import (
	"context"
	"fmt"

	"github.com/bnema/webim-client/internal/domain"
)

// MessageTracker pages backward through history and receives live updates
// for the messages it has already delivered. A stream has at most one live
// tracker.
type MessageTracker struct {
	stream   *MessageStream
	listener MessageListener

	// fetched turns true after the first page. boundary is the oldest message
	// delivered so far; nil after a fetch that found nothing.
	fetched    bool
	boundary   *domain.Message
	inProgress bool
	destroyed  bool
}

// GetNextMessages delivers up to limit messages older than any delivered
// before, oldest first. Fewer than limit means history is exhausted.
// completion runs on the session executor.
func (t *MessageTracker) GetNextMessages(ctx context.Context, limit int, completion func([]domain.Message)) error {
	s := t.stream
	if err := s.access.check(ctx, "get next messages"); err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("get next messages: limit must be positive, got %d", limit)
	}

	s.mu.Lock()
	switch {
	case t.destroyed:
		s.mu.Unlock()
		return domain.ErrTrackerDestroyed
	case t.inProgress:
		s.mu.Unlock()
		return domain.ErrPaginationInProgress
	}
	t.inProgress = true
	s.mu.Unlock()

	s.dispatch(func() { t.fetch(limit, completion) })
	return nil
}

// Destroy detaches the tracker from its stream. Later calls fail with
// domain.ErrTrackerDestroyed.
func (t *MessageTracker) Destroy(ctx context.Context) error {
	if err := t.stream.access.check(ctx, "destroy message tracker"); err != nil {
		return err
	}
	t.stream.mu.Lock()
	defer t.stream.mu.Unlock()
	t.destroyLocked()
	return nil
}

func (t *MessageTracker) destroyLocked() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.listener = nil
	t.boundary = nil
	if t.stream.holder.tracker == t {
		t.stream.holder.tracker = nil
	}
}

func (t *MessageTracker) fetch(limit int, completion func([]domain.Message)) {
	s := t.stream
	s.mu.Lock()
	if t.destroyed {
		s.mu.Unlock()
		return
	}

	page := s.holder.page(t, limit)
	if len(page) < limit && s.canLoadOlderLocked() {
		s.mu.Unlock()
		s.loadOlder(limit-len(page), func() { t.fetch(limit, completion) })
		return
	}

	t.fetched = true
	if len(page) > 0 {
		oldest := page[0]
		t.boundary = &oldest
	}
	t.inProgress = false
	s.mu.Unlock()

	if completion != nil {
		completion(page)
	}
}
