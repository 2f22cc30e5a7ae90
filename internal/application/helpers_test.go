package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bnema/webim-client/internal/client"
	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
)

const testBaseURL = "https://chat.example.com"

var (
	testEpoch  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testLogger = slog.New(slog.DiscardHandler)
	testAuth   = domain.AuthorizationData{PageID: "page-1", AuthToken: "token-1"}
)

var fastRetry = client.RetryPolicy{
	MinBackoff:             time.Millisecond,
	MaxBackoff:             4 * time.Millisecond,
	MaxActionAttempts:      3,
	MaxConsecutiveFailures: 3,
}

// stepClock advances one second on every reading.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: testEpoch.Add(time.Hour)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// serverTransport answers action and history requests with handle and blocks
// every other request until its context is cancelled.
type serverTransport struct {
	requests chan ports.Request
	handle   func(req ports.Request) (ports.Response, error)
}

func newServerTransport(handle func(req ports.Request) (ports.Response, error)) *serverTransport {
	return &serverTransport{requests: make(chan ports.Request, 64), handle: handle}
}

func (s *serverTransport) Do(ctx context.Context, req ports.Request) (ports.Response, error) {
	s.requests <- req
	if s.handle != nil {
		if resp, err := s.handle(req); err != nil || resp.StatusCode != 0 {
			return resp, err
		}
	}
	<-ctx.Done()
	return ports.Response{}, ctx.Err()
}

func okResponse(body string) ports.Response {
	return ports.Response{StatusCode: 200, Body: []byte(body)}
}

type streamOptions struct {
	store     ports.MessageStore
	remote    bool
	transport ports.Transport
}

type testStream struct {
	*MessageStream
	ctx  context.Context
	loop *client.ActionLoop
}

// newTestStream builds a stream that runs every task inline on the calling
// goroutine. Its action loop is not started.
func newTestStream(t *testing.T, opts streamOptions) testStream {
	t.Helper()

	transport := opts.transport
	if transport == nil {
		transport = newServerTransport(nil)
	}
	access := newAccess()
	ctx := access.bind(context.Background())
	loop := client.NewActionLoop(client.ActionLoopConfig{
		Transport:     transport,
		BaseURL:       testBaseURL,
		Authorization: testAuth,
		Policy:        fastRetry,
		Logger:        testLogger,
	})
	t.Cleanup(loop.Stop)

	stream := newMessageStream(streamConfig{
		access:        access,
		executor:      client.InlineExecutor,
		actions:       client.NewActions(loop, client.InlineExecutor),
		store:         opts.store,
		persist:       client.InlineExecutor,
		remoteHistory: opts.remote,
		clock:         newStepClock(),
		logger:        testLogger,
		ctx:           ctx,
	})
	return testStream{MessageStream: stream, ctx: ctx, loop: loop}
}

func serverMessage(i int) domain.Message {
	id := fmt.Sprintf("m%02d", i)
	return domain.Message{
		ID:           domain.MessageID(id),
		ServerSideID: id,
		Kind:         domain.MessageKindOperator,
		Text:         "message " + id,
		Time:         testEpoch.Add(time.Duration(i) * time.Minute),
		Status:       domain.SendStatusSent,
	}
}

func serverMessages(from, to int) []domain.Message {
	messages := make([]domain.Message, 0, to-from)
	for i := from; i < to; i++ {
		messages = append(messages, serverMessage(i))
	}
	return messages
}

func messageIDs(messages []domain.Message) []domain.MessageID {
	ids := make([]domain.MessageID, 0, len(messages))
	for _, message := range messages {
		ids = append(ids, message.ID)
	}
	return ids
}

func messageAdded(message domain.Message) domain.Delta {
	return domain.Delta{
		ObjectType: domain.DeltaObjectChatMessage,
		Event:      domain.DeltaEventAdd,
		ID:         message.ServerSideID,
		Message:    &message,
	}
}

// messageEvents records tracker notifications as short strings.
type messageEvents struct {
	mu     sync.Mutex
	events []string
}

func (e *messageEvents) Added(before *domain.Message, message domain.Message) {
	next := "<nil>"
	if before != nil {
		next = string(before.ID)
	}
	e.record(fmt.Sprintf("added %s %s before %s", message.ID, message.Status, next))
}

func (e *messageEvents) Removed(message domain.Message) {
	e.record(fmt.Sprintf("removed %s", message.ID))
}

func (e *messageEvents) RemovedAll() {
	e.record("removed all")
}

func (e *messageEvents) Changed(previous, current domain.Message) {
	e.record(fmt.Sprintf("changed %s %s->%s", current.ID, previous.Status, current.Status))
}

func (e *messageEvents) record(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *messageEvents) Events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

// nextPage calls GetNextMessages and waits for its completion.
func nextPage(t *testing.T, ctx context.Context, tracker *MessageTracker, limit int) []domain.Message {
	t.Helper()
	pages := make(chan []domain.Message, 1)
	if err := tracker.GetNextMessages(ctx, limit, func(page []domain.Message) { pages <- page }); err != nil {
		t.Fatalf("get next messages: %v", err)
	}
	return receive(t, pages)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case value := <-ch:
		return value
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}
