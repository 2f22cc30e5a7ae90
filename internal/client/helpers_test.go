package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
)

const testBaseURL = "https://chat.example.com"

var fastRetry = RetryPolicy{
	MinBackoff:             time.Millisecond,
	MaxBackoff:             4 * time.Millisecond,
	MaxActionAttempts:      3,
	MaxConsecutiveFailures: 3,
}

type handlerFunc func(ctx context.Context, req ports.Request) (ports.Response, error)

// scriptedTransport answers requests with its handlers in order. Once they
// run out it blocks until the request context is cancelled.
type scriptedTransport struct {
	mu       sync.Mutex
	handlers []handlerFunc
	requests chan ports.Request
}

func newScriptedTransport(handlers ...handlerFunc) *scriptedTransport {
	return &scriptedTransport{handlers: handlers, requests: make(chan ports.Request, 64)}
}

func (s *scriptedTransport) Do(ctx context.Context, req ports.Request) (ports.Response, error) {
	s.requests <- req

	s.mu.Lock()
	var handler handlerFunc
	if len(s.handlers) > 0 {
		handler = s.handlers[0]
		s.handlers = s.handlers[1:]
	}
	s.mu.Unlock()

	if handler == nil {
		<-ctx.Done()
		return ports.Response{}, ctx.Err()
	}
	return handler(ctx, req)
}

// routedTransport answers each request by its URL. Unrouted requests block
// until their context is cancelled.
type routedTransport struct {
	routes   map[string]handlerFunc
	requests chan ports.Request
}

func newRoutedTransport(routes map[string]handlerFunc) *routedTransport {
	return &routedTransport{routes: routes, requests: make(chan ports.Request, 64)}
}

func (r *routedTransport) Do(ctx context.Context, req ports.Request) (ports.Response, error) {
	r.requests <- req
	if handler, ok := r.routes[req.URL]; ok {
		return handler(ctx, req)
	}
	<-ctx.Done()
	return ports.Response{}, ctx.Err()
}

func respond(body string) handlerFunc {
	return func(context.Context, ports.Request) (ports.Response, error) {
		return jsonResponse(body), nil
	}
}

func respondStatus(status int, body string) handlerFunc {
	return func(context.Context, ports.Request) (ports.Response, error) {
		return ports.Response{StatusCode: status, Body: []byte(body)}, nil
	}
}

func jsonResponse(body string) ports.Response {
	return ports.Response{StatusCode: 200, Body: []byte(body)}
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

type recordingCallback struct {
	mu     sync.Mutex
	events []string
	full   chan domain.FullUpdate
	deltas chan int64
}

func newRecordingCallback() *recordingCallback {
	return &recordingCallback{
		full:   make(chan domain.FullUpdate, 16),
		deltas: make(chan int64, 16),
	}
}

func (c *recordingCallback) OnFullUpdate(update domain.FullUpdate) {
	c.record("full_update")
	c.full <- update
}

func (c *recordingCallback) OnDeltas(revision int64, _ []domain.Delta) {
	c.record("deltas")
	c.deltas <- revision
}

func (c *recordingCallback) OnSessionParametersChanged(domain.SessionParameters) {
	c.record("session_parameters")
}

func (c *recordingCallback) record(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *recordingCallback) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

type errorRecorder struct {
	errs chan error
}

func newErrorRecorder() *errorRecorder {
	return &errorRecorder{errs: make(chan error, 4)}
}

func (r *errorRecorder) OnInternalError(err error) {
	r.errs <- err
}
