package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
)

type Config struct {
	BaseURL           string
	Location          string
	Platform          string
	Title             string
	AppVersion        string
	DeviceID          string
	DeviceToken       string
	VisitorFieldsJSON string

	// Session carries a visitor restored from an earlier run. Its
	// authorization, when present, is used until the server issues a new one.
	Session domain.SessionParameters

	DeltaCallback             DeltaCallback
	InternalErrorListener     InternalErrorListener
	SessionParametersListener SessionParametersListener
	Executor                  Executor
	Transport                 ports.Transport
	Clock                     ports.Clock
	Logger                    *slog.Logger
	Retry                     RetryPolicy
}

// Validate reports every missing required field, one
// *domain.MissingParameterError each.
func (c Config) Validate() error {
	var errs []error
	missing := func(name string, absent bool) {
		if absent {
			errs = append(errs, &domain.MissingParameterError{Name: name})
		}
	}
	missing("baseURL", c.BaseURL == "")
	missing("location", c.Location == "")
	missing("deltaCallback", c.DeltaCallback == nil)
	missing("internalErrorListener", c.InternalErrorListener == nil)
	missing("platform", c.Platform == "")
	missing("title", c.Title == "")
	missing("executor", c.Executor == nil)
	missing("deviceID", c.DeviceID == "")
	missing("transport", c.Transport == nil)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("base url must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("base url host is required")
	}
	return nil
}

// Client owns the action loop, the delta loop and the reconciler between
// them.
type Client struct {
	guard      *Guard
	actionLoop *ActionLoop
	deltaLoop  *DeltaLoop
	actions    *Actions
	logger     *slog.Logger
}

func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("build client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("location", cfg.Location)

	guard := NewGuard(cfg.Executor)
	actionLoop := NewActionLoop(ActionLoopConfig{
		Transport:     cfg.Transport,
		BaseURL:       cfg.BaseURL,
		Authorization: cfg.Session.Authorization,
		Policy:        cfg.Retry,
		Logger:        logger,
	})
	reconciler := NewSessionParametersReconciler(actionLoop, cfg.SessionParametersListener)
	deltaLoop := NewDeltaLoop(DeltaLoopConfig{
		Transport:         cfg.Transport,
		Clock:             cfg.Clock,
		Logger:            logger,
		Policy:            cfg.Retry,
		Callback:          cfg.DeltaCallback,
		Errors:            guardedErrorListener{guard: guard, next: cfg.InternalErrorListener},
		SessionParameters: reconciler,
		BaseURL:           cfg.BaseURL,
		Platform:          cfg.Platform,
		Title:             cfg.Title,
		Location:          cfg.Location,
		AppVersion:        cfg.AppVersion,
		DeviceID:          cfg.DeviceID,
		DeviceToken:       cfg.DeviceToken,
		VisitorFieldsJSON: cfg.VisitorFieldsJSON,
		Session:           cfg.Session,
	})

	return &Client{
		guard:      guard,
		actionLoop: actionLoop,
		deltaLoop:  deltaLoop,
		actions:    NewActions(actionLoop, guard),
		logger:     logger,
	}, nil
}

func (c *Client) Start() {
	c.logger.Debug("starting client")
	c.deltaLoop.Start()
	c.actionLoop.Start()
}

func (c *Client) Pause() {
	c.deltaLoop.Pause()
	c.actionLoop.Pause()
}

func (c *Client) Resume() {
	c.deltaLoop.Resume()
	c.actionLoop.Resume()
}

// Stop tears the client down. Completions still pending are dropped.
func (c *Client) Stop() {
	c.logger.Debug("stopping client")
	c.guard.Destroy()
	c.deltaLoop.Stop()
	c.actionLoop.Stop()
}

// SetDeviceToken sends the token with the next poll and registers it with
// the server through an action.
func (c *Client) SetDeviceToken(token string) {
	c.deltaLoop.SetDeviceToken(token)
	c.actions.UpdateDeviceToken(token, nil)
}

func (c *Client) Actions() *Actions {
	return c.actions
}

// Executor dispatches through the client's guard.
func (c *Client) Executor() Executor {
	return c.guard
}

func (c *Client) Destroyed() bool {
	return c.guard.Destroyed()
}

func (c *Client) SessionParameters() domain.SessionParameters {
	return c.deltaLoop.SessionParameters()
}

type guardedErrorListener struct {
	guard *Guard
	next  InternalErrorListener
}

func (l guardedErrorListener) OnInternalError(err error) {
	l.guard.Execute(func() { l.next.OnInternalError(err) })
}
