package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
)

// Action is one queued request to the chat server.
type Action struct {
	// Name is the server action name, sent as the "action" form field for
	// POST requests to the action endpoint.
	Name   string
	Method string
	Path   string
	Params url.Values
	File   *ports.FileUpload

	// Coalesce, when set, replaces a queued and not yet sent action with the
	// same key instead of appending.
	Coalesce string

	// Completion receives the decoded payload or the final error. It runs on
	// the loop goroutine and must not block.
	Completion func(payload wireResponse, err error)
}

func (a *Action) complete(payload wireResponse, err error) {
	if a.Completion != nil {
		a.Completion(payload, err)
	}
}

func (a *Action) request(baseURL string, auth *domain.AuthorizationData) ports.Request {
	params := url.Values{}
	maps.Copy(params, a.Params)
	if a.Name != "" {
		params.Set("action", a.Name)
	}
	if auth != nil {
		params.Set("page-id", auth.PageID)
		params.Set("auth-token", auth.AuthToken)
	}

	method := a.Method
	if method == "" {
		method = http.MethodPost
	}
	path := a.Path
	if path == "" {
		path = actionPath
	}

	req := ports.Request{Method: method, URL: endpoint(baseURL, path), File: a.File}
	if method == http.MethodGet {
		req.Query = params
	} else {
		req.Form = params
	}
	return req
}

// ActionLoop sends queued actions one at a time using the credentials in
// effect at send time.
type ActionLoop struct {
	transport ports.Transport
	baseURL   string
	logger    *slog.Logger
	policy    RetryPolicy

	auth atomic.Pointer[domain.AuthorizationData]

	mu      sync.Mutex
	queue   []*Action
	paused  bool
	running bool
	changed chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

type ActionLoopConfig struct {
	Transport     ports.Transport
	BaseURL       string
	Authorization domain.AuthorizationData
	Policy        RetryPolicy
	Logger        *slog.Logger
}

func NewActionLoop(cfg ActionLoopConfig) *ActionLoop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loop := &ActionLoop{
		transport: cfg.Transport,
		baseURL:   cfg.BaseURL,
		logger:    logger.With("loop", "action"),
		policy:    cfg.Policy.withDefaults(),
		changed:   make(chan struct{}),
	}
	if auth := cfg.Authorization; !auth.IsZero() {
		loop.auth.Store(&auth)
	}
	return loop
}

// SetAuthorizationData replaces the credentials used by every request sent
// after this call returns. A request already on the wire keeps the value it
// was sent with.
func (l *ActionLoop) SetAuthorizationData(auth domain.AuthorizationData) {
	if auth.IsZero() {
		l.auth.Store(nil)
	} else {
		l.auth.Store(&auth)
	}
	l.mu.Lock()
	l.notifyLocked()
	l.mu.Unlock()
}

func (l *ActionLoop) AuthorizationData() (domain.AuthorizationData, bool) {
	auth := l.auth.Load()
	if auth == nil {
		return domain.AuthorizationData{}, false
	}
	return *auth, true
}

func (l *ActionLoop) Enqueue(action *Action) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if action.Coalesce != "" {
		for i, queued := range l.queue {
			if queued.Coalesce == action.Coalesce {
				l.queue[i] = action
				return
			}
		}
	}
	l.queue = append(l.queue, action)
	l.notifyLocked()
}

func (l *ActionLoop) Start() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	previous := l.done
	l.mu.Unlock()

	if previous != nil {
		<-previous
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.running = true
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
}

// Pause stops sending new actions and holds retries. Queued actions are kept.
func (l *ActionLoop) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = true
	l.notifyLocked()
}

func (l *ActionLoop) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = false
	l.notifyLocked()
}

// Stop cancels the request in flight and fails every queued action with
// domain.ErrClientStopped.
func (l *ActionLoop) Stop() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.running = false
	pending := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, action := range pending {
		action.complete(wireResponse{}, domain.ErrClientStopped)
	}
}

func (l *ActionLoop) notifyLocked() {
	close(l.changed)
	l.changed = make(chan struct{})
}

func (l *ActionLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		action, err := l.next(ctx)
		if err != nil {
			return
		}
		l.perform(ctx, action)
	}
}

// next blocks until the loop is resumed, an action is queued and
// credentials are available.
func (l *ActionLoop) next(ctx context.Context) (*Action, error) {
	for {
		l.mu.Lock()
		if err := ctx.Err(); err != nil {
			l.mu.Unlock()
			return nil, err
		}
		if !l.paused && len(l.queue) > 0 && l.auth.Load() != nil {
			action := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()
			return action, nil
		}
		changed := l.changed
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}

// waitReady blocks while the loop is paused or has no credentials.
func (l *ActionLoop) waitReady(ctx context.Context) error {
	for {
		l.mu.Lock()
		if !l.paused && l.auth.Load() != nil {
			l.mu.Unlock()
			return nil
		}
		changed := l.changed
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (l *ActionLoop) perform(ctx context.Context, action *Action) {
	wait := newBackoff(l.policy)
	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			if err := l.waitReady(ctx); err != nil {
				action.complete(wireResponse{}, domain.ErrClientStopped)
				return
			}
		}
		auth := l.auth.Load()
		payload, err := l.send(ctx, action, auth)
		if err == nil {
			action.complete(payload, nil)
			return
		}
		if ctx.Err() != nil {
			action.complete(wireResponse{}, domain.ErrClientStopped)
			return
		}

		logger := l.logger.With("action", action.Name, "attempt", attempt)
		if attempt >= l.policy.MaxActionAttempts {
			logger.Warn("action retries exhausted", "error", err)
			action.complete(wireResponse{}, fmt.Errorf("send %s: %w", actionLabel(action), errors.Join(domain.ErrRetriesExhausted, err)))
			return
		}

		var serverErr *domain.ServerError
		switch {
		case errors.As(err, &serverErr) && serverErr.Code == domain.ServerErrorReinitRequired:
			logger.Debug("credentials rejected, waiting for new authorization")
			l.auth.CompareAndSwap(auth, nil)
		case errors.As(err, &serverErr) && !serverErr.Transient():
			action.complete(wireResponse{}, fmt.Errorf("send %s: %w", actionLabel(action), err))
			return
		default:
			delay := wait.next()
			logger.Debug("retrying action", "delay", delay, "error", err)
			if err := sleep(ctx, delay); err != nil {
				action.complete(wireResponse{}, domain.ErrClientStopped)
				return
			}
		}
	}
}

func (l *ActionLoop) send(ctx context.Context, action *Action, auth *domain.AuthorizationData) (wireResponse, error) {
	resp, err := l.transport.Do(ctx, action.request(l.baseURL, auth))
	if err != nil {
		return wireResponse{}, err
	}
	return decodeResponse(resp)
}

func actionLabel(action *Action) string {
	if action.Name != "" {
		return action.Name
	}
	return action.Path
}
