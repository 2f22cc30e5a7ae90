package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	historyrender "github.com/bnema/webim-client/internal/adapters/render/history"
	tomlrepo "github.com/bnema/webim-client/internal/adapters/repo/toml"
	chainstore "github.com/bnema/webim-client/internal/adapters/secrets/chain"
	filestore "github.com/bnema/webim-client/internal/adapters/secrets/file"
	passstore "github.com/bnema/webim-client/internal/adapters/secrets/pass"
	"github.com/bnema/webim-client/internal/adapters/store/gormstore"
	"github.com/bnema/webim-client/internal/adapters/webim"
	"github.com/bnema/webim-client/internal/application"
	"github.com/bnema/webim-client/internal/config"
	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
	"github.com/bnema/webim-client/internal/version"
	"github.com/spf13/viper"
)

const flushTimeout = 5 * time.Second

var errWaitTimeout = errors.New("timed out waiting for the chat server")

type historyStore interface {
	ports.MessageStore
	Close() error
}

type app struct {
	cfg         config.Config
	logLevel    *slog.LevelVar
	logger      *slog.Logger
	sessions    *application.SessionStore
	repo        *tomlrepo.Repository
	transport   ports.Transport
	openHistory func(config.HistoryConfig) (historyStore, error)
	renderer    func(historyrender.Snapshot, historyrender.RenderOptions) (string, error)
	now         func() time.Time
}

func newApp() *app {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	return &app{logLevel: level}
}

func (a *app) wire(v *viper.Viper, logOutput io.Writer) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return fmt.Errorf("wire session repository: %w", err)
	}

	secretStore, err := newSecretStore(cfg)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: a.logLevel}))
	a.sessions = application.NewSessionStore(repo, secretStore)
	a.repo = repo
	a.transport = &webim.Transport{
		HTTPClient:     http.DefaultClient,
		RequestTimeout: cfg.Loop.RequestTimeout,
		UserAgent:      version.UserAgent(),
	}
	a.openHistory = func(h config.HistoryConfig) (historyStore, error) {
		return gormstore.NewStore(h.Driver, h.DSN)
	}
	a.renderer = historyrender.Render
	a.now = time.Now

	return nil
}

func newSecretStore(cfg config.Config) (ports.SecretStore, error) {
	switch cfg.SecretsBackend {
	case config.SecretsBackendFile:
		return filestore.NewStore(cfg.SecretsDir), nil
	case config.SecretsBackendPass:
		return passstore.NewStore(cfg.SecretsPassFolder), nil
	default:
		store, err := chainstore.NewPassFirstWithFileFallback(cfg.SecretsPassFolder, cfg.SecretsDir)
		if err != nil {
			return nil, fmt.Errorf("wire secret store chain: %w", err)
		}
		return store, nil
	}
}

// chatSession is one CLI invocation's view of the visitor session.
type chatSession struct {
	*application.Session
	store  historyStore
	logger *slog.Logger
	wait   time.Duration

	fatalOnce sync.Once
	fatalDone chan struct{}
	fatalErr  error
}

func (a *app) openSession(ctx context.Context) (*chatSession, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := a.openHistory(a.cfg.History)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	c := &chatSession{
		store:     store,
		logger:    a.logger,
		wait:      a.cfg.Loop.WaitTimeout,
		fatalDone: make(chan struct{}),
	}
	session, err := application.NewSession(ctx, application.SessionConfig{
		BaseURL:           a.cfg.AccountURL,
		Location:          a.cfg.Location,
		Platform:          a.cfg.Platform,
		Title:             a.cfg.Title,
		AppVersion:        a.cfg.AppVersion,
		DeviceID:          a.cfg.DeviceID,
		DeviceToken:       a.cfg.DeviceToken,
		VisitorFieldsJSON: a.cfg.VisitorFieldsJSON,
		Transport:         a.transport,
		MessageStore:      store,
		Sessions:          a.sessions,
		RemoteHistory:     a.cfg.History.Remote,
		ErrorHandler:      application.ErrorHandlerFunc(c.onFatal),
		Logger:            a.logger,
		Retry:             a.cfg.RetryPolicy(),
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	c.Session = session
	return c, nil
}

func (c *chatSession) onFatal(err error) {
	c.fatalOnce.Do(func() {
		c.fatalErr = err
		close(c.fatalDone)
	})
}

// Close lets pending store writes finish, then tears the session down.
func (c *chatSession) Close() {
	ctx, cancel := context.WithTimeout(c.Context(), flushTimeout)
	if err := c.Flush(ctx); err != nil {
		c.logger.Warn("flush session", "error", err)
	}
	cancel()
	if err := c.Destroy(c.Context()); err != nil {
		c.logger.Debug("destroy session", "error", err)
	}
	if err := c.store.Close(); err != nil {
		c.logger.Warn("close history store", "error", err)
	}
}

// connect resumes the session and waits for the server's first full update.
func (c *chatSession) connect(ctx context.Context, progress io.Writer) error {
	sctx := c.Context()
	ready := make(chan struct{})
	var once sync.Once
	err := c.Stream().SetChatStateListener(sctx, application.ChatStateListenerFunc(func(previous, _ domain.ChatState) {
		if previous == domain.ChatStateUnknown {
			once.Do(func() { close(ready) })
		}
	}))
	if err != nil {
		return err
	}
	if err := c.Resume(sctx); err != nil {
		return err
	}

	return c.await(ctx, progress, "Connecting...", func(ctx context.Context) error {
		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// await runs wait under a spinner, bounded by the configured wait timeout and
// cut short by a fatal session error.
func (c *chatSession) await(ctx context.Context, progress io.Writer, label string, wait func(context.Context) error) error {
	return runAwaitSpinner(ctx, progress, label, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.wait)
		defer cancel()

		result := make(chan error, 1)
		go func() { result <- wait(ctx) }()

		select {
		case err := <-result:
			if errors.Is(err, context.DeadlineExceeded) {
				return errWaitTimeout
			}
			return err
		case <-c.fatalDone:
			return fmt.Errorf("chat session stopped: %w", c.fatalErr)
		}
	})
}
