package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
)

var errPollInterrupted = errors.New("poll interrupted")

// DeltaCallback receives server state in the order the delta loop accepted
// it. Calls come from the loop goroutine, one at a time.
type DeltaCallback interface {
	OnFullUpdate(update domain.FullUpdate)
	OnDeltas(revision int64, deltas []domain.Delta)
}

type InternalErrorListener interface {
	OnInternalError(err error)
}

type SessionParametersListener interface {
	OnSessionParametersChanged(params domain.SessionParameters)
}

type DeltaLoopConfig struct {
	Transport         ports.Transport
	Clock             ports.Clock
	Logger            *slog.Logger
	Policy            RetryPolicy
	Callback          DeltaCallback
	Errors            InternalErrorListener
	SessionParameters SessionParametersListener

	BaseURL           string
	Platform          string
	Title             string
	Location          string
	AppVersion        string
	DeviceID          string
	DeviceToken       string
	VisitorFieldsJSON string
	Session           domain.SessionParameters
}

// DeltaLoop long-polls the server for changes. It initializes the visitor
// session first, then requests deltas newer than the last applied revision.
type DeltaLoop struct {
	transport ports.Transport
	clock     ports.Clock
	logger    *slog.Logger
	policy    RetryPolicy
	callback  DeltaCallback
	errors    InternalErrorListener
	listener  SessionParametersListener

	baseURL           string
	platform          string
	title             string
	location          string
	appVersion        string
	deviceID          string
	visitorFieldsJSON string

	mu          sync.Mutex
	session     domain.SessionParameters
	deviceToken string
	since       int64
	paused      bool
	running     bool
	changed     chan struct{}
	cancel      context.CancelFunc
	pollCancel  context.CancelFunc
	done        chan struct{}
}

func NewDeltaLoop(cfg DeltaLoopConfig) *DeltaLoop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &DeltaLoop{
		transport:         cfg.Transport,
		clock:             clock,
		logger:            logger.With("loop", "delta"),
		policy:            cfg.Policy.withDefaults(),
		callback:          cfg.Callback,
		errors:            cfg.Errors,
		listener:          cfg.SessionParameters,
		baseURL:           cfg.BaseURL,
		platform:          cfg.Platform,
		title:             cfg.Title,
		location:          cfg.Location,
		appVersion:        cfg.AppVersion,
		deviceID:          cfg.DeviceID,
		visitorFieldsJSON: cfg.VisitorFieldsJSON,
		session:           cfg.Session,
		deviceToken:       cfg.DeviceToken,
		changed:           make(chan struct{}),
	}
}

// SetDeviceToken takes effect on the next request the loop sends.
func (l *DeltaLoop) SetDeviceToken(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deviceToken = token
}

func (l *DeltaLoop) SessionParameters() domain.SessionParameters {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

func (l *DeltaLoop) Revision() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.since
}

func (l *DeltaLoop) Start() {
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
	done := make(chan struct{})
	l.running = true
	l.cancel = cancel
	l.done = done

	go func() {
		err := l.run(ctx)
		close(done)
		if err != nil && l.errors != nil {
			l.errors.OnInternalError(err)
		}
	}()
}

// Pause interrupts the poll in flight. A response that already arrived is
// still applied.
func (l *DeltaLoop) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = true
	if l.pollCancel != nil {
		l.pollCancel()
	}
	l.notifyLocked()
}

func (l *DeltaLoop) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = false
	l.notifyLocked()
}

func (l *DeltaLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.running = false
}

func (l *DeltaLoop) notifyLocked() {
	close(l.changed)
	l.changed = make(chan struct{})
}

// halt stops the loop from inside its own goroutine. The next Start
// initializes a fresh session.
func (l *DeltaLoop) halt() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.running = false
	l.since = 0
}

func (l *DeltaLoop) run(ctx context.Context) error {
	wait := newBackoff(l.policy)
	failures := 0
	for {
		if err := l.waitUntilResumed(ctx); err != nil {
			return nil
		}

		err := l.requestOnce(ctx)
		switch {
		case err == nil:
			failures = 0
			wait.reset()
			continue
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, errPollInterrupted):
			continue
		}

		var serverErr *domain.ServerError
		if errors.As(err, &serverErr) {
			if serverErr.Fatal() {
				l.logger.Error("session rejected by server", "code", serverErr.Code)
				l.halt()
				return fmt.Errorf("poll deltas: %w", err)
			}
			if serverErr.Code == domain.ServerErrorReinitRequired {
				l.logger.Info("server requested reinitialization")
				l.resetAuthorization()
			}
		}

		failures++
		if failures >= l.policy.MaxConsecutiveFailures {
			l.logger.Error("delta polling failed repeatedly", "failures", failures, "error", err)
			l.halt()
			return fmt.Errorf("poll deltas: %w", errors.Join(domain.ErrRetriesExhausted, err))
		}
		if failures == 1 && domain.IsServerError(err, domain.ServerErrorReinitRequired) {
			continue
		}

		delay := wait.next()
		l.logger.Debug("retrying delta request", "attempt", failures, "delay", delay, "error", err)
		if err := sleep(ctx, delay); err != nil {
			return nil
		}
	}
}

func (l *DeltaLoop) waitUntilResumed(ctx context.Context) error {
	for {
		l.mu.Lock()
		if err := ctx.Err(); err != nil {
			l.mu.Unlock()
			return err
		}
		if !l.paused {
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

func (l *DeltaLoop) resetAuthorization() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.session.Authorization = domain.AuthorizationData{}
	l.since = 0
}

func (l *DeltaLoop) requestOnce(ctx context.Context) error {
	l.mu.Lock()
	initializing := l.since == 0 || l.session.Authorization.IsZero()
	var req ports.Request
	if initializing {
		req = l.initRequestLocked()
	} else {
		req = l.deltaRequestLocked()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	l.pollCancel = cancel
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.pollCancel = nil
		l.mu.Unlock()
		cancel()
	}()

	resp, err := l.transport.Do(reqCtx, req)
	if err != nil {
		if reqCtx.Err() != nil && ctx.Err() == nil {
			return errPollInterrupted
		}
		return fmt.Errorf("request %s: %w", req.URL, err)
	}

	payload, err := decodeResponse(resp)
	if err != nil {
		return err
	}
	return l.apply(payload, initializing)
}

func (l *DeltaLoop) initRequestLocked() ports.Request {
	query := url.Values{}
	query.Set("platform", l.platform)
	query.Set("title", l.title)
	query.Set("location", l.location)
	query.Set("device-id", l.deviceID)
	query.Set("since", "0")
	query.Set("ts", timestampParam(l.clock.Now()))
	setIfNotEmpty(query, "app-version", l.appVersion)
	setIfNotEmpty(query, "visitor-ext", l.visitorFieldsJSON)
	setIfNotEmpty(query, "visitor", l.session.VisitorJSON)
	setIfNotEmpty(query, "visit-session-id", l.session.VisitSessionID)
	setIfNotEmpty(query, "push-token", l.deviceToken)
	if !l.session.Authorization.IsZero() {
		query.Set("page-id", l.session.Authorization.PageID)
		query.Set("auth-token", l.session.Authorization.AuthToken)
	}
	return ports.Request{Method: http.MethodGet, URL: endpoint(l.baseURL, initPath), Query: query}
}

func (l *DeltaLoop) deltaRequestLocked() ports.Request {
	query := url.Values{}
	query.Set("since", strconv.FormatInt(l.since, 10))
	query.Set("page-id", l.session.Authorization.PageID)
	query.Set("auth-token", l.session.Authorization.AuthToken)
	query.Set("ts", timestampParam(l.clock.Now()))
	setIfNotEmpty(query, "push-token", l.deviceToken)
	return ports.Request{Method: http.MethodGet, URL: endpoint(l.baseURL, deltaPath), Query: query}
}

// apply hands an accepted response to the callback. Responses at or below
// the last applied revision are dropped so the callback sees every revision
// at most once and in increasing order.
func (l *DeltaLoop) apply(payload wireResponse, initializing bool) error {
	if payload.Revision == nil {
		if initializing {
			return errors.New("init response missing revision")
		}
		return nil
	}
	revision := *payload.Revision

	l.mu.Lock()
	if !initializing && revision <= l.since {
		l.mu.Unlock()
		l.logger.Debug("dropping stale delta response", "revision", revision)
		return nil
	}

	if payload.FullUpdate != nil {
		update := toFullUpdate(revision, payload.FullUpdate, l.logger)
		if update.Session.VisitorJSON == "" {
			update.Session.VisitorJSON = l.session.VisitorJSON
		}
		changed := update.Session != l.session
		l.session = update.Session
		l.since = revision
		l.mu.Unlock()

		if changed && l.listener != nil {
			l.listener.OnSessionParametersChanged(update.Session)
		}
		l.callback.OnFullUpdate(update)
		return nil
	}

	if initializing {
		l.mu.Unlock()
		return errors.New("init response missing full update")
	}
	l.since = revision
	l.mu.Unlock()

	if deltas := toDeltas(payload.DeltaList, l.logger); len(deltas) > 0 {
		l.callback.OnDeltas(revision, deltas)
	}
	return nil
}

func setIfNotEmpty(values url.Values, key, value string) {
	if value != "" {
		values.Set(key, value)
	}
}
