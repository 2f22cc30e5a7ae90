package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bnema/webim-client/internal/client"
	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
)

type SessionConfig struct {
	BaseURL           string
	Location          string
	Platform          string
	Title             string
	AppVersion        string
	DeviceID          string
	DeviceToken       string
	VisitorFieldsJSON string

	// Executor runs every callback and listener. A nil Executor gives the
	// session its own serial queue.
	Executor  client.Executor
	Transport ports.Transport

	// MessageStore and Sessions are optional. Without Sessions every run
	// starts a new visitor.
	MessageStore ports.MessageStore
	Sessions     *SessionStore

	// RemoteHistory lets trackers page into server history once local
	// history runs out.
	RemoteHistory bool
	ErrorHandler  ErrorHandler
	Clock         ports.Clock
	Logger        *slog.Logger
	Retry         client.RetryPolicy
}

// Session is a visitor's chat session. All methods, and the methods of its
// stream and trackers, must be called with a context derived from Context.
//
// The check is a capability, not a goroutine identity: any goroutine holding
// Context, or a context derived from it, passes. Callers that hand the
// context to other goroutines must serialize those calls themselves.
type Session struct {
	access     *access
	ctx        context.Context
	cancel     context.CancelFunc
	client     *client.Client
	stream     *MessageStream
	sessions   *SessionStore
	location   string
	background *client.SerialQueue
	ownedQueue *client.SerialQueue
	logger     *slog.Logger

	mu             sync.Mutex
	started        bool
	deviceToken    string
	params         domain.SessionParameters
	paramsListener SessionParametersListener
	errorHandler   ErrorHandler
}

var (
	_ client.InternalErrorListener     = (*Session)(nil)
	_ client.SessionParametersListener = (*Session)(nil)
)

// NewSession builds a session confined to ctx. The returned session does not
// talk to the server until Resume is called.
func NewSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	var stored domain.SessionParameters
	deviceToken := cfg.DeviceToken
	if cfg.Sessions != nil && cfg.Location != "" {
		params, storedToken, err := cfg.Sessions.Load(ctx, cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("build session: %w", err)
		}
		stored = params
		if deviceToken == "" {
			deviceToken = storedToken
		}
	}

	var ownedQueue *client.SerialQueue
	executor := cfg.Executor
	if executor == nil {
		ownedQueue = client.NewSerialQueue()
		executor = ownedQueue
	}

	access := newAccess()
	sessionCtx, cancel := context.WithCancel(access.bind(context.WithoutCancel(ctx)))
	background := client.NewSerialQueue()

	s := &Session{
		access:       access,
		ctx:          sessionCtx,
		cancel:       cancel,
		sessions:     cfg.Sessions,
		location:     cfg.Location,
		background:   background,
		ownedQueue:   ownedQueue,
		logger:       logger.With("location", cfg.Location),
		deviceToken:  deviceToken,
		params:       stored,
		errorHandler: cfg.ErrorHandler,
	}
	s.stream = newMessageStream(streamConfig{
		access:        access,
		store:         cfg.MessageStore,
		persist:       background,
		remoteHistory: cfg.RemoteHistory,
		clock:         clock,
		logger:        s.logger,
		ctx:           sessionCtx,
	})

	c, err := client.New(client.Config{
		BaseURL:                   cfg.BaseURL,
		Location:                  cfg.Location,
		Platform:                  cfg.Platform,
		Title:                     cfg.Title,
		AppVersion:                cfg.AppVersion,
		DeviceID:                  cfg.DeviceID,
		DeviceToken:               deviceToken,
		VisitorFieldsJSON:         cfg.VisitorFieldsJSON,
		Session:                   stored,
		DeltaCallback:             s.stream,
		InternalErrorListener:     s,
		SessionParametersListener: s,
		Executor:                  executor,
		Transport:                 cfg.Transport,
		Clock:                     clock,
		Logger:                    logger,
		Retry:                     cfg.Retry,
	})
	if err != nil {
		cancel()
		background.Close()
		if ownedQueue != nil {
			ownedQueue.Close()
		}
		return nil, err
	}
	s.client = c
	s.stream.actions = c.Actions()
	s.stream.executor = c.Executor()
	return s, nil
}

// Context returns the context every confined call must derive from.
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Stream() *MessageStream {
	return s.stream
}

// Resume starts the session on the first call and resumes it after Pause.
func (s *Session) Resume(ctx context.Context) error {
	if err := s.access.check(ctx, "resume session"); err != nil {
		return err
	}
	s.mu.Lock()
	first := !s.started
	s.started = true
	s.mu.Unlock()

	if first {
		s.client.Start()
		return nil
	}
	s.client.Resume()
	return nil
}

// Pause suspends both request loops. Queued actions wait for Resume.
func (s *Session) Pause(ctx context.Context) error {
	if err := s.access.check(ctx, "pause session"); err != nil {
		return err
	}
	s.client.Pause()
	return nil
}

// Destroy stops the session for good. Completions still pending never run
// and every later call fails with an invalid_session error.
func (s *Session) Destroy(ctx context.Context) error {
	if err := s.access.check(ctx, "destroy session"); err != nil {
		return err
	}
	s.access.destroyed.Store(true)
	s.client.Stop()
	s.cancel()
	s.background.Close()
	if s.ownedQueue != nil {
		s.ownedQueue.Close()
	}
	s.logger.Debug("session destroyed")
	return nil
}

// Flush waits until the callbacks queued so far have run and their store
// writes have finished. It must not be called from the session's executor.
func (s *Session) Flush(ctx context.Context) error {
	if err := s.access.check(ctx, "flush session"); err != nil {
		return err
	}
	for _, executor := range []client.Executor{s.client.Executor(), s.background} {
		done := make(chan struct{})
		executor.Execute(func() { close(done) })
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("flush session: %w", ctx.Err())
		}
	}
	return nil
}

// SetDeviceToken registers a push token for the visitor.
func (s *Session) SetDeviceToken(ctx context.Context, token string) error {
	if err := s.access.check(ctx, "set device token"); err != nil {
		return err
	}
	s.mu.Lock()
	s.deviceToken = token
	params := s.params
	s.mu.Unlock()

	s.client.SetDeviceToken(token)
	s.persist(params, token)
	return nil
}

func (s *Session) SetSessionParametersListener(ctx context.Context, listener SessionParametersListener) error {
	if err := s.access.check(ctx, "set session parameters listener"); err != nil {
		return err
	}
	s.mu.Lock()
	s.paramsListener = listener
	s.mu.Unlock()
	return nil
}

func (s *Session) SetErrorHandler(ctx context.Context, handler ErrorHandler) error {
	if err := s.access.check(ctx, "set error handler"); err != nil {
		return err
	}
	s.mu.Lock()
	s.errorHandler = handler
	s.mu.Unlock()
	return nil
}

// OnSessionParametersChanged persists the new session, then reports it to
// the registered listener on the executor.
func (s *Session) OnSessionParametersChanged(params domain.SessionParameters) {
	s.mu.Lock()
	s.params = params
	token := s.deviceToken
	s.mu.Unlock()

	s.persist(params, token)
	s.client.Executor().Execute(func() {
		s.mu.Lock()
		listener := s.paramsListener
		s.mu.Unlock()
		if listener != nil {
			listener.SessionParametersChanged(params)
		}
	})
}

// OnInternalError runs on the executor.
func (s *Session) OnInternalError(err error) {
	s.logger.Error("session stopped", "error", err)
	s.mu.Lock()
	handler := s.errorHandler
	s.mu.Unlock()
	if handler != nil {
		handler.OnError(err)
	}
}

func (s *Session) persist(params domain.SessionParameters, deviceToken string) {
	if s.sessions == nil || params.VisitorJSON == "" {
		return
	}
	s.background.Execute(func() {
		if err := s.sessions.Save(s.ctx, s.location, params, deviceToken); err != nil {
			s.logger.Warn("persist session", "error", err)
		}
	})
}
