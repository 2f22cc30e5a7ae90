package application

import "github.com/bnema/webim-client/internal/domain"

// storeWrites collects history changes made under the stream lock so they
// can be persisted after it is released.
type storeWrites struct {
	clear   bool
	upserts []domain.Message
	deletes []domain.MessageID
}

func (w storeWrites) empty() bool {
	return !w.clear && len(w.upserts) == 0 && len(w.deletes) == 0
}

// OnFullUpdate replaces the stream state with the server's snapshot. It is
// called by the delta loop and applies the update on the session executor.
func (s *MessageStream) OnFullUpdate(update domain.FullUpdate) {
	s.dispatch(func() { s.applyFullUpdate(update) })
}

// OnDeltas applies deltas on the session executor in the order received.
func (s *MessageStream) OnDeltas(revision int64, deltas []domain.Delta) {
	s.dispatch(func() { s.applyDeltas(revision, deltas) })
}

func (s *MessageStream) applyFullUpdate(update domain.FullUpdate) {
	var n notifications
	var w storeWrites

	s.mu.Lock()
	visitor := update.Session.VisitorJSON
	if visitor != "" && s.visitorJSON != "" && visitor != s.visitorJSON {
		s.logger.Info("visitor changed, dropping history", "revision", update.Revision)
		s.holder.removeAll(&n)
		clear(s.ratings)
		w.clear = true
	}
	if visitor != "" {
		s.visitorJSON = visitor
	}
	s.setLocationSettingsLocked(update.LocationSettings, &n)
	s.applyChatLocked(update.Chat, &n, &w)
	s.mu.Unlock()

	s.persistWrites(w)
	n.run()
}

func (s *MessageStream) applyDeltas(revision int64, deltas []domain.Delta) {
	var n notifications
	var w storeWrites

	s.mu.Lock()
	for _, delta := range deltas {
		s.applyDeltaLocked(delta, &n, &w)
	}
	s.mu.Unlock()

	s.logger.Debug("deltas applied", "revision", revision, "count", len(deltas))
	s.persistWrites(w)
	n.run()
}

func (s *MessageStream) applyDeltaLocked(delta domain.Delta, n *notifications, w *storeWrites) {
	switch delta.ObjectType {
	case domain.DeltaObjectChat:
		s.applyChatLocked(delta.Chat, n, w)
	case domain.DeltaObjectChatMessage:
		if delta.Event == domain.DeltaEventDelete {
			if id, ok := s.holder.resolve(delta.ID); ok {
				s.holder.remove(id, n)
				w.deletes = append(w.deletes, id)
			}
			return
		}
		if delta.Message != nil && s.holder.upsert(*delta.Message, n) {
			w.upserts = append(w.upserts, *delta.Message)
		}
	case domain.DeltaObjectChatState:
		s.applyServerChatStateLocked(delta.ChatState, n)
	case domain.DeltaObjectChatOperator:
		s.setOperatorLocked(delta.Operator, n)
	case domain.DeltaObjectOperatorTyping:
		s.setOperatorTypingLocked(delta.OperatorTyping, n)
	case domain.DeltaObjectLocationSettings:
		if delta.LocationSettings != nil {
			s.setLocationSettingsLocked(*delta.LocationSettings, n)
		}
	}
}

// applyChatLocked applies a chat snapshot. A nil chat means the visitor has
// no chat.
func (s *MessageStream) applyChatLocked(chat *domain.Chat, n *notifications, w *storeWrites) {
	if chat == nil {
		s.setChatStateLocked(domain.ChatStateNone, n)
		s.setOperatorLocked(nil, n)
		s.setOperatorTypingLocked(false, n)
		return
	}

	s.applyServerChatStateLocked(chat.State, n)
	s.setOperatorLocked(chat.Operator, n)
	s.setOperatorTypingLocked(chat.OperatorTyping, n)
	s.setRatingsLocked(chat.Ratings)
	for _, message := range chat.Messages {
		if s.holder.upsert(message, n) {
			w.upserts = append(w.upserts, message)
		}
	}
}

// applyServerChatStateLocked accepts the server's state even when the table
// has no direct edge to it, since intermediate deltas may have been folded
// into a full update.
func (s *MessageStream) applyServerChatStateLocked(state domain.ChatState, n *notifications) {
	if state == "" {
		s.logger.Debug("ignoring unrecognized chat state", "current", s.chatState)
		return
	}
	if s.chatState != domain.ChatStateUnknown && state != s.chatState && !domain.IsChatTransition(s.chatState, state) {
		s.logger.Debug("chat state jump", "from", s.chatState, "to", state)
	}
	s.setChatStateLocked(state, n)
}

func (s *MessageStream) persistWrites(w storeWrites) {
	if s.store == nil || w.empty() {
		return
	}
	s.persist.Execute(func() {
		if w.clear {
			if err := s.store.Clear(s.ctx); err != nil {
				s.logger.Warn("clear stored history", "error", err)
			}
		}
		if len(w.upserts) > 0 {
			if err := s.store.Upsert(s.ctx, w.upserts); err != nil {
				s.logger.Warn("store messages", "count", len(w.upserts), "error", err)
			}
		}
		for _, id := range w.deletes {
			if err := s.store.Delete(s.ctx, id); err != nil {
				s.logger.Warn("delete stored message", "message_id", id, "error", err)
			}
		}
	})
}
