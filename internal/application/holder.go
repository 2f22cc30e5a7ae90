package application

import (
	"slices"
	"sort"

	"github.com/bnema/webim-client/internal/domain"
)

// messageHolder keeps acknowledged history sorted oldest first, followed by
// messages still being sent in the order the visitor sent them.
type messageHolder struct {
	history []domain.Message
	sending []domain.Message
	tracker *MessageTracker

	storeExhausted  bool
	remoteExhausted bool
}

func (h *messageHolder) len() int {
	return len(h.history) + len(h.sending)
}

func (h *messageHolder) at(i int) domain.Message {
	if i < len(h.history) {
		return h.history[i]
	}
	return h.sending[i-len(h.history)]
}

func (h *messageHolder) indexOf(id domain.MessageID) int {
	for i := range h.history {
		if h.history[i].ID == id {
			return i
		}
	}
	for i := range h.sending {
		if h.sending[i].ID == id {
			return len(h.history) + i
		}
	}
	return -1
}

func (h *messageHolder) following(i int) *domain.Message {
	if i+1 >= h.len() {
		return nil
	}
	next := h.at(i + 1)
	return &next
}

func (h *messageHolder) oldestInMemory() (domain.Message, bool) {
	if len(h.history) == 0 {
		return domain.Message{}, false
	}
	return h.history[0], true
}

// windowStart returns the index of the oldest message inside a tracker's
// window. The edge message is found by id, in history or among messages
// still being sent; once it is gone the first message not older than it
// takes its place.
func (h *messageHolder) windowStart(t *MessageTracker) int {
	if t.boundary == nil {
		return 0
	}
	if i := h.indexOf(t.boundary.ID); i >= 0 {
		return i
	}
	boundary := *t.boundary
	return sort.Search(h.len(), func(j int) bool {
		return !h.at(j).Before(boundary)
	})
}

// visible reports whether the message at index i lies inside the active
// tracker's window.
func (h *messageHolder) visible(i int) bool {
	t := h.tracker
	if t == nil || !t.fetched {
		return false
	}
	return i >= h.windowStart(t)
}

func (h *messageHolder) listener() MessageListener {
	if h.tracker == nil {
		return nil
	}
	return h.tracker.listener
}

func (h *messageHolder) insertHistory(message domain.Message) int {
	pos := sort.Search(len(h.history), func(j int) bool {
		return message.Before(h.history[j])
	})
	h.history = slices.Insert(h.history, pos, message)
	return pos
}

func (h *messageHolder) addSending(message domain.Message, n *notifications) {
	h.sending = append(h.sending, message)
	i := h.len() - 1
	if listener := h.listener(); listener != nil && h.visible(i) {
		n.add(func() { listener.Added(nil, message) })
	}
}

// upsert applies a message acknowledged by the server. It reports whether
// history changed.
func (h *messageHolder) upsert(message domain.Message, n *notifications) bool {
	listener := h.listener()

	if i := slices.IndexFunc(h.sending, func(m domain.Message) bool { return m.ID == message.ID }); i >= 0 {
		previous := h.sending[i]
		wasVisible := h.visible(len(h.history) + i)
		h.sending = slices.Delete(h.sending, i, i+1)
		h.insertHistory(message)
		if listener != nil && wasVisible {
			n.add(func() { listener.Changed(previous, message) })
		}
		return true
	}

	if i := slices.IndexFunc(h.history, func(m domain.Message) bool { return m.ID == message.ID }); i >= 0 {
		previous := h.history[i]
		if previous.Equivalent(message) {
			return false
		}
		wasVisible := h.visible(i)
		if previous.Time.Equal(message.Time) {
			h.history[i] = message
		} else {
			h.history = slices.Delete(h.history, i, i+1)
			i = h.insertHistory(message)
		}
		if listener != nil && (wasVisible || h.visible(i)) {
			n.add(func() { listener.Changed(previous, message) })
		}
		return true
	}

	i := h.insertHistory(message)
	if listener != nil && h.visible(i) {
		before := h.following(i)
		n.add(func() { listener.Added(before, message) })
	}
	return true
}

// mergeOlder adds messages loaded from storage or remote history and returns
// the ones that were not already known.
func (h *messageHolder) mergeOlder(messages []domain.Message, n *notifications) []domain.Message {
	var added []domain.Message
	for _, message := range messages {
		if h.indexOf(message.ID) >= 0 {
			continue
		}
		h.upsert(message, n)
		added = append(added, message)
	}
	return added
}

func (h *messageHolder) remove(id domain.MessageID, n *notifications) (domain.Message, bool) {
	i := h.indexOf(id)
	if i < 0 {
		return domain.Message{}, false
	}
	message := h.at(i)
	wasVisible := h.visible(i)

	if i < len(h.history) {
		h.history = slices.Delete(h.history, i, i+1)
	} else {
		j := i - len(h.history)
		h.sending = slices.Delete(h.sending, j, j+1)
	}

	if listener := h.listener(); listener != nil && wasVisible {
		n.add(func() { listener.Removed(message) })
	}
	return message, true
}

func (h *messageHolder) removeAll(n *notifications) {
	h.history = nil
	h.sending = nil
	h.storeExhausted = false
	h.remoteExhausted = false

	t := h.tracker
	if t == nil || !t.fetched {
		return
	}
	t.boundary = nil
	if listener := t.listener; listener != nil {
		n.add(listener.RemovedAll)
	}
}

// page returns up to limit messages immediately older than the tracker's
// window, oldest first. A tracker that has not fetched yet starts from the
// newest message.
func (h *messageHolder) page(t *MessageTracker, limit int) []domain.Message {
	end := h.len()
	if t.fetched {
		end = 0
		if t.boundary != nil {
			end = h.windowStart(t)
		}
	}
	start := max(end-limit, 0)

	page := make([]domain.Message, 0, end-start)
	for i := start; i < end; i++ {
		page = append(page, h.at(i))
	}
	return page
}

// resolve maps an id from a server delete event, which may be either the
// client-side or the server-side id, onto the holder's message id.
func (h *messageHolder) resolve(raw string) (domain.MessageID, bool) {
	if h.indexOf(domain.MessageID(raw)) >= 0 {
		return domain.MessageID(raw), true
	}
	for _, list := range [][]domain.Message{h.history, h.sending} {
		for _, message := range list {
			if message.ServerSideID == raw {
				return message.ID, true
			}
		}
	}
	return "", false
}
