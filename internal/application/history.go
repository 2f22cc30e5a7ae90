package application

import (
	"time"

	"github.com/bnema/webim-client/internal/domain"
)

type historySource string

const (
	historySourceStore  historySource = "store"
	historySourceRemote historySource = "remote"
)

func (s *MessageStream) canLoadOlderLocked() bool {
	if s.store != nil && !s.holder.storeExhausted {
		return true
	}
	return s.remoteHistory && !s.holder.remoteExhausted
}

// loadOlder pulls up to count messages older than the oldest one in memory,
// from the local store first and from the server once the store runs dry.
// then runs on the executor once the result is merged.
func (s *MessageStream) loadOlder(count int, then func()) {
	s.mu.Lock()
	oldest, anchored := s.holder.oldestInMemory()
	fromStore := s.store != nil && !s.holder.storeExhausted
	s.mu.Unlock()

	if fromStore {
		s.persist.Execute(func() {
			var messages []domain.Message
			var err error
			if anchored {
				messages, err = s.store.LoadBefore(s.ctx, oldest, count)
			} else {
				messages, err = s.store.LoadRecent(s.ctx, count)
			}
			s.dispatch(func() {
				s.mergeLoaded(historySourceStore, messages, err, len(messages) >= count)
				then()
			})
		})
		return
	}

	var before time.Time
	if anchored {
		before = oldest.Time
	}
	s.actions.RequestHistoryBefore(before, func(page domain.HistoryPage, err error) {
		added := s.mergeLoaded(historySourceRemote, page.Messages, err, page.HasMore)
		s.persistWrites(storeWrites{upserts: added})
		then()
	})
}

// mergeLoaded adds older messages to the holder and marks the source
// exhausted when it failed, reported no more or added nothing new.
func (s *MessageStream) mergeLoaded(source historySource, messages []domain.Message, err error, more bool) []domain.Message {
	if err != nil {
		s.logger.Warn("load history", "source", source, "error", err)
	}

	var n notifications
	s.mu.Lock()
	var added []domain.Message
	if err == nil {
		added = s.holder.mergeOlder(messages, &n)
	}
	if err != nil || !more || len(added) == 0 {
		switch source {
		case historySourceStore:
			s.holder.storeExhausted = true
		case historySourceRemote:
			s.holder.remoteExhausted = true
		}
	}
	s.mu.Unlock()

	n.run()
	return added
}
