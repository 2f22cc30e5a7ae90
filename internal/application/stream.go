package application

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/bnema/webim-client/internal/client"
	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
	"github.com/google/uuid"
)

type streamConfig struct {
	access        *access
	executor      client.Executor
	actions       *client.Actions
	store         ports.MessageStore
	persist       client.Executor
	remoteHistory bool
	clock         ports.Clock
	logger        *slog.Logger

	// ctx bounds store calls. It is cancelled when the session is destroyed.
	ctx context.Context
}

// MessageStream is the visitor's view of the chat: its state, the current
// operator and the message history. Every method must be called with a
// context derived from Session.Context.
type MessageStream struct {
	access        *access
	executor      client.Executor
	actions       *client.Actions
	store         ports.MessageStore
	persist       client.Executor
	remoteHistory bool
	clock         ports.Clock
	logger        *slog.Logger
	ctx           context.Context

	mu               sync.Mutex
	chatState        domain.ChatState
	operator         *domain.Operator
	operatorTyping   bool
	locationSettings domain.LocationSettings
	ratings          map[domain.OperatorID]int
	visitorJSON      string
	holder           messageHolder

	chatStateListener        ChatStateListener
	operatorListener         CurrentOperatorListener
	operatorTypingListener   OperatorTypingListener
	locationSettingsListener LocationSettingsListener
}

var _ client.DeltaCallback = (*MessageStream)(nil)

func newMessageStream(cfg streamConfig) *MessageStream {
	return &MessageStream{
		access:        cfg.access,
		executor:      cfg.executor,
		actions:       cfg.actions,
		store:         cfg.store,
		persist:       cfg.persist,
		remoteHistory: cfg.remoteHistory,
		clock:         cfg.clock,
		logger:        cfg.logger.With("component", "message_stream"),
		ctx:           cfg.ctx,
		chatState:     domain.ChatStateUnknown,
		ratings:       make(map[domain.OperatorID]int),
	}
}

func (s *MessageStream) dispatch(task func()) {
	s.executor.Execute(task)
}

// deliver runs notifications collected by a caller-side operation on the
// executor, after anything already queued there.
func (s *MessageStream) deliver(n notifications) {
	if len(n) == 0 {
		return
	}
	s.dispatch(n.run)
}

func (s *MessageStream) ChatState(ctx context.Context) (domain.ChatState, error) {
	if err := s.access.check(ctx, "get chat state"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatState, nil
}

func (s *MessageStream) LocationSettings(ctx context.Context) (domain.LocationSettings, error) {
	if err := s.access.check(ctx, "get location settings"); err != nil {
		return domain.LocationSettings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locationSettings, nil
}

// CurrentOperator returns nil when no operator is assigned.
func (s *MessageStream) CurrentOperator(ctx context.Context) (*domain.Operator, error) {
	if err := s.access.check(ctx, "get current operator"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOperator(s.operator), nil
}

func (s *MessageStream) OperatorTyping(ctx context.Context) (bool, error) {
	if err := s.access.check(ctx, "get operator typing"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.operatorTyping, nil
}

// LastRatingOfOperator returns 0 when the visitor has not rated the operator.
func (s *MessageStream) LastRatingOfOperator(ctx context.Context, id domain.OperatorID) (int, error) {
	if err := s.access.check(ctx, "get last rating of operator"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratings[id], nil
}

// StartChat asks for an operator and applies the visitor_started transition
// locally without waiting for the server. completion may be nil.
func (s *MessageStream) StartChat(ctx context.Context, completion func(error)) error {
	if err := s.access.check(ctx, "start chat"); err != nil {
		return err
	}
	var n notifications
	s.mu.Lock()
	s.transitionLocked(domain.ChatEventVisitorStarted, &n)
	s.mu.Unlock()
	s.deliver(n)

	if completion == nil {
		completion = s.logFailure("start chat")
	}
	s.actions.StartChat(domain.MessageID(uuid.NewString()), completion)
	return nil
}

// CloseChat ends the chat on the visitor's side. completion may be nil.
func (s *MessageStream) CloseChat(ctx context.Context, completion func(error)) error {
	if err := s.access.check(ctx, "close chat"); err != nil {
		return err
	}
	var n notifications
	s.mu.Lock()
	s.transitionLocked(domain.ChatEventVisitorClosed, &n)
	s.mu.Unlock()
	s.deliver(n)

	if completion == nil {
		completion = s.logFailure("close chat")
	}
	s.actions.CloseChat(completion)
	return nil
}

// Send queues a text message and returns its client-side id. The message is
// reported to the tracker as SENDING right away and switches to SENT when the
// server acknowledges it. A failed send removes it again.
func (s *MessageStream) Send(ctx context.Context, text string, hintQuestion bool) (domain.MessageID, error) {
	if err := s.access.check(ctx, "send message"); err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("send message: %w", &domain.MissingParameterError{Name: "message"})
	}

	id := domain.MessageID(uuid.NewString())
	s.addSending(domain.Message{
		ID:     id,
		Kind:   domain.MessageKindVisitor,
		Text:   text,
		Time:   s.clock.Now(),
		Status: domain.SendStatusSending,
	})

	s.actions.SendMessage(text, id, hintQuestion, func(err error) {
		if err == nil {
			return
		}
		s.logger.Warn("message send failed", "message_id", id, "error", err)
		s.discardSending(id)
	})
	return id, nil
}

// SendFile uploads a file as a visitor message. completion receives a
// *domain.SendFileError on failure.
func (s *MessageStream) SendFile(ctx context.Context, data []byte, filename, contentType string, completion func(domain.MessageID, error)) (domain.MessageID, error) {
	if err := s.access.check(ctx, "send file"); err != nil {
		return "", err
	}
	if filename == "" {
		return "", fmt.Errorf("send file: %w", &domain.MissingParameterError{Name: "filename"})
	}

	id := domain.MessageID(uuid.NewString())
	s.addSending(domain.Message{
		ID:     id,
		Kind:   domain.MessageKindFileFromVisitor,
		Text:   filename,
		Time:   s.clock.Now(),
		Status: domain.SendStatusSending,
		Attachment: &domain.Attachment{
			Filename:    filename,
			ContentType: contentType,
			Size:        int64(len(data)),
		},
	})

	s.actions.SendFile(data, filename, contentType, id, func(err error) {
		if err != nil {
			s.discardSending(id)
			err = domain.NewSendFileError(id, err)
		}
		if completion != nil {
			completion(id, err)
		}
	})
	return id, nil
}

func (s *MessageStream) addSending(message domain.Message) {
	var n notifications
	s.mu.Lock()
	s.holder.addSending(message, &n)
	s.transitionLocked(domain.ChatEventVisitorMessage, &n)
	s.mu.Unlock()
	s.deliver(n)
}

// discardSending runs on the executor.
func (s *MessageStream) discardSending(id domain.MessageID) {
	var n notifications
	s.mu.Lock()
	if i := s.holder.indexOf(id); i >= 0 && s.holder.at(i).IsSending() {
		s.holder.remove(id, &n)
	}
	s.mu.Unlock()
	n.run()
}

// SetVisitorTyping reports the visitor's current draft. A nil draft means the
// visitor stopped typing and cleared it.
func (s *MessageStream) SetVisitorTyping(ctx context.Context, draft *string) error {
	if err := s.access.check(ctx, "set visitor typing"); err != nil {
		return err
	}
	s.actions.SetVisitorTyping(draft)
	return nil
}

// RateOperator rates an operator from 1 to 5. Ratings out of range fail with
// domain.ErrInvalidRating before anything is sent. completion may be nil.
func (s *MessageStream) RateOperator(ctx context.Context, id domain.OperatorID, rating int, completion func(error)) error {
	if err := s.access.check(ctx, "rate operator"); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("rate operator: %w", &domain.MissingParameterError{Name: "operatorID"})
	}
	if completion == nil {
		completion = s.logFailure("rate operator")
	}

	s.mu.Lock()
	previous, rated := s.ratings[id]
	s.ratings[id] = rating
	s.mu.Unlock()

	// A failed rating leaves the last accepted one in place.
	rollback := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ratings[id] != rating {
			return
		}
		if rated {
			s.ratings[id] = previous
		} else {
			delete(s.ratings, id)
		}
	}

	err := s.actions.RateOperator(id, rating, func(err error) {
		if err != nil {
			rollback()
		}
		completion(err)
	})
	if err != nil {
		rollback()
		return err
	}
	return nil
}

// NewMessageTracker destroys the stream's current tracker, if any, and
// returns a new one reporting to listener.
func (s *MessageStream) NewMessageTracker(ctx context.Context, listener MessageListener) (*MessageTracker, error) {
	if err := s.access.check(ctx, "new message tracker"); err != nil {
		return nil, err
	}
	if listener == nil {
		return nil, fmt.Errorf("new message tracker: %w", &domain.MissingParameterError{Name: "listener"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if previous := s.holder.tracker; previous != nil {
		previous.destroyLocked()
	}
	tracker := &MessageTracker{stream: s, listener: listener}
	s.holder.tracker = tracker
	return tracker, nil
}

func (s *MessageStream) SetChatStateListener(ctx context.Context, listener ChatStateListener) error {
	if err := s.access.check(ctx, "set chat state listener"); err != nil {
		return err
	}
	s.mu.Lock()
	s.chatStateListener = listener
	s.mu.Unlock()
	return nil
}

func (s *MessageStream) SetCurrentOperatorListener(ctx context.Context, listener CurrentOperatorListener) error {
	if err := s.access.check(ctx, "set current operator listener"); err != nil {
		return err
	}
	s.mu.Lock()
	s.operatorListener = listener
	s.mu.Unlock()
	return nil
}

func (s *MessageStream) SetOperatorTypingListener(ctx context.Context, listener OperatorTypingListener) error {
	if err := s.access.check(ctx, "set operator typing listener"); err != nil {
		return err
	}
	s.mu.Lock()
	s.operatorTypingListener = listener
	s.mu.Unlock()
	return nil
}

func (s *MessageStream) SetLocationSettingsListener(ctx context.Context, listener LocationSettingsListener) error {
	if err := s.access.check(ctx, "set location settings listener"); err != nil {
		return err
	}
	s.mu.Lock()
	s.locationSettingsListener = listener
	s.mu.Unlock()
	return nil
}

func (s *MessageStream) logFailure(op string) func(error) {
	return func(err error) {
		if err != nil {
			s.logger.Warn("action failed", "action", op, "error", err)
		}
	}
}

// transitionLocked applies an optimistic local transition. The next server
// update overrides it.
func (s *MessageStream) transitionLocked(event domain.ChatEvent, n *notifications) {
	next, ok := domain.NextChatState(s.chatState, event)
	if !ok {
		return
	}
	s.setChatStateLocked(next, n)
}

func (s *MessageStream) setChatStateLocked(state domain.ChatState, n *notifications) {
	if state == s.chatState {
		return
	}
	previous := s.chatState
	s.chatState = state
	if listener := s.chatStateListener; listener != nil {
		n.add(func() { listener.ChatStateChanged(previous, state) })
	}
}

func (s *MessageStream) setOperatorLocked(operator *domain.Operator, n *notifications) {
	if !domain.OperatorChanged(s.operator, operator) {
		return
	}
	previous := s.operator
	s.operator = copyOperator(operator)
	if listener := s.operatorListener; listener != nil {
		current := copyOperator(operator)
		n.add(func() { listener.CurrentOperatorChanged(previous, current) })
	}
}

func (s *MessageStream) setOperatorTypingLocked(typing bool, n *notifications) {
	if typing == s.operatorTyping {
		return
	}
	s.operatorTyping = typing
	if listener := s.operatorTypingListener; listener != nil {
		n.add(func() { listener.OperatorTypingChanged(typing) })
	}
}

func (s *MessageStream) setLocationSettingsLocked(settings domain.LocationSettings, n *notifications) {
	if settings == s.locationSettings {
		return
	}
	previous := s.locationSettings
	s.locationSettings = settings
	if listener := s.locationSettingsListener; listener != nil {
		n.add(func() { listener.LocationSettingsChanged(previous, settings) })
	}
}

// setRatingsLocked merges server ratings over the ones recorded locally.
func (s *MessageStream) setRatingsLocked(ratings map[domain.OperatorID]int) {
	maps.Copy(s.ratings, ratings)
}

func copyOperator(operator *domain.Operator) *domain.Operator {
	if operator == nil {
		return nil
	}
	copied := *operator
	return &copied
}
