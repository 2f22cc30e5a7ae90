package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
	"github.com/bnema/webim-client/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const initBody = `{"revision":1,"fullUpdate":{"visitSessionId":"vs-1","pageId":"page-1","authToken":"token-1","visitor":{"id":"v1"},"chat":{"state":"queue","messages":[{"id":"s1","kind":"operator","text":"hi","ts_m":1700000000000000}]}}}`

func testSessionConfig(transport ports.Transport) SessionConfig {
	return SessionConfig{
		BaseURL:   testBaseURL,
		Location:  testLocation,
		Platform:  "android",
		Title:     "Support",
		DeviceID:  "device-1",
		Transport: transport,
		Logger:    testLogger,
		Retry:     fastRetry,
	}
}

// chatServer answers init with initBody and actions with success. Delta
// polls never return.
func chatServer(upload func() (ports.Response, error)) *serverTransport {
	return newServerTransport(func(req ports.Request) (ports.Response, error) {
		switch {
		case strings.HasSuffix(req.URL, "/l/v/m/init"):
			return okResponse(initBody), nil
		case strings.HasSuffix(req.URL, "/l/v/m/action"):
			return okResponse(`{"result":"ok"}`), nil
		case strings.HasSuffix(req.URL, "/l/v/m/upload") && upload != nil:
			return upload()
		default:
			return ports.Response{}, nil
		}
	})
}

func waitForRequest(t *testing.T, transport *serverTransport, suffix string) ports.Request {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case req := <-transport.requests:
			if strings.HasSuffix(req.URL, suffix) {
				return req
			}
		case <-deadline:
			t.Fatalf("no request to %s", suffix)
			return ports.Request{}
		}
	}
}

type paramsRecorder chan domain.SessionParameters

func (r paramsRecorder) SessionParametersChanged(params domain.SessionParameters) {
	r <- params
}

func TestSessionAppliesInitialStateAndPersistsIt(t *testing.T) {
	repo := mocks.NewMockSessionRepository(t)
	secrets := mocks.NewMockSecretStore(t)
	saved := make(chan domain.StoredSession, 1)
	repo.EXPECT().Get(mock.Anything, testLocation).Return(domain.StoredSession{}, domain.ErrSessionNotFound)
	secrets.EXPECT().Get(mock.Anything, testAuthTokenKey).Return("", domain.ErrSecretNotFound)
	secrets.EXPECT().Put(mock.Anything, testAuthTokenKey, "token-1").Return(nil)
	repo.EXPECT().Save(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, session domain.StoredSession) error {
		saved <- session
		return nil
	})

	cfg := testSessionConfig(chatServer(nil))
	cfg.Sessions = NewSessionStore(repo, secrets)
	session, err := NewSession(context.Background(), cfg)
	require.NoError(t, err)
	ctx := session.Context()
	t.Cleanup(func() { _ = session.Destroy(ctx) })

	states := make(chan domain.ChatState, 4)
	params := make(paramsRecorder, 4)
	stream := session.Stream()
	require.NoError(t, stream.SetChatStateListener(ctx, ChatStateListenerFunc(func(_, current domain.ChatState) {
		states <- current
	})))
	require.NoError(t, session.SetSessionParametersListener(ctx, params))
	require.NoError(t, session.Resume(ctx))

	got := receive(t, params)
	assert.Equal(t, "vs-1", got.VisitSessionID)
	assert.Equal(t, testAuth, got.Authorization)
	assert.Equal(t, domain.ChatStateQueue, receive(t, states))

	assert.Equal(t, domain.StoredSession{
		Location:       testLocation,
		VisitorJSON:    `{"id":"v1"}`,
		VisitSessionID: "vs-1",
		PageID:         "page-1",
	}, receive(t, saved))

	pages := make(chan []domain.Message, 1)
	tracker, err := stream.NewMessageTracker(ctx, &messageEvents{})
	require.NoError(t, err)
	require.NoError(t, tracker.GetNextMessages(ctx, 10, func(page []domain.Message) { pages <- page }))
	assert.Equal(t, []domain.MessageID{"s1"}, messageIDs(receive(t, pages)))
}

func TestSessionResumesStoredVisitor(t *testing.T) {
	repo := mocks.NewMockSessionRepository(t)
	secrets := mocks.NewMockSecretStore(t)
	repo.EXPECT().Get(mock.Anything, testLocation).Return(storedSession, nil)
	secrets.EXPECT().Get(mock.Anything, testAuthTokenKey).Return("token-1", nil)
	repo.EXPECT().Save(mock.Anything, mock.Anything).Return(nil).Maybe()
	secrets.EXPECT().Put(mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	transport := chatServer(nil)
	cfg := testSessionConfig(transport)
	cfg.Sessions = NewSessionStore(repo, secrets)
	session, err := NewSession(context.Background(), cfg)
	require.NoError(t, err)
	ctx := session.Context()
	t.Cleanup(func() { _ = session.Destroy(ctx) })

	require.NoError(t, session.Resume(ctx))

	req := waitForRequest(t, transport, "/l/v/m/init")
	assert.Equal(t, "vs-1", req.Query.Get("visit-session-id"))
	assert.Equal(t, `{"id":"v1"}`, req.Query.Get("visitor"))
	assert.Equal(t, "page-1", req.Query.Get("page-id"))
	assert.Equal(t, "token-1", req.Query.Get("auth-token"))
	assert.Equal(t, "device-token", req.Query.Get("push-token"))
}

func TestSessionDropsCompletionAfterDestroy(t *testing.T) {
	release := make(chan struct{})
	transport := chatServer(func() (ports.Response, error) {
		<-release
		return okResponse(`{"result":"ok"}`), nil
	})
	session, err := NewSession(context.Background(), testSessionConfig(transport))
	require.NoError(t, err)
	ctx := session.Context()
	require.NoError(t, session.Resume(ctx))

	completed := make(chan error, 1)
	_, err = session.Stream().SendFile(ctx, []byte("payload"), "a.txt", "text/plain", func(_ domain.MessageID, err error) {
		completed <- err
	})
	require.NoError(t, err)

	waitForRequest(t, transport, "/l/v/m/upload")
	require.NoError(t, session.Destroy(ctx))
	close(release)

	select {
	case err := <-completed:
		t.Fatalf("completion ran after destroy: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	_, err = session.Stream().ChatState(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
	assert.ErrorIs(t, session.Resume(ctx), domain.ErrInvalidSession)
	assert.ErrorIs(t, session.Destroy(ctx), domain.ErrInvalidSession)
}

func TestSessionRejectsForeignContext(t *testing.T) {
	session, err := NewSession(context.Background(), testSessionConfig(chatServer(nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Destroy(session.Context()) })

	assert.ErrorIs(t, session.Resume(context.Background()), domain.ErrInvalidThread)
	_, err = session.Stream().Send(context.Background(), "hello", false)
	assert.ErrorIs(t, err, domain.ErrInvalidThread)
}

func TestNewSessionReportsEveryMissingParameter(t *testing.T) {
	_, err := NewSession(context.Background(), SessionConfig{})
	require.ErrorIs(t, err, domain.ErrMissingParameter)
	assert.ElementsMatch(t,
		[]string{"baseURL", "location", "platform", "title", "deviceID", "transport"},
		domain.MissingParameterNames(err))
}

func TestSessionReportsFatalServerError(t *testing.T) {
	transport := newServerTransport(func(req ports.Request) (ports.Response, error) {
		if strings.HasSuffix(req.URL, "/l/v/m/init") {
			return okResponse(`{"error":"visitor-banned"}`), nil
		}
		return ports.Response{}, nil
	})
	errs := make(chan error, 1)
	cfg := testSessionConfig(transport)
	cfg.ErrorHandler = ErrorHandlerFunc(func(err error) { errs <- err })

	session, err := NewSession(context.Background(), cfg)
	require.NoError(t, err)
	ctx := session.Context()
	t.Cleanup(func() { _ = session.Destroy(ctx) })
	require.NoError(t, session.Resume(ctx))

	assert.True(t, domain.IsServerError(receive(t, errs), domain.ServerErrorVisitorBanned))
}

func TestSessionFlushWaitsForPersistence(t *testing.T) {
	repo := mocks.NewMockSessionRepository(t)
	secrets := mocks.NewMockSecretStore(t)
	repo.EXPECT().Get(mock.Anything, testLocation).Return(domain.StoredSession{}, domain.ErrSessionNotFound)
	secrets.EXPECT().Get(mock.Anything, testAuthTokenKey).Return("", domain.ErrSecretNotFound)
	secrets.EXPECT().Put(mock.Anything, testAuthTokenKey, "token-1").Return(nil)
	saved := make(chan struct{})
	repo.EXPECT().Save(mock.Anything, mock.Anything).RunAndReturn(func(context.Context, domain.StoredSession) error {
		close(saved)
		return nil
	}).Once()

	cfg := testSessionConfig(chatServer(nil))
	cfg.Sessions = NewSessionStore(repo, secrets)
	session, err := NewSession(context.Background(), cfg)
	require.NoError(t, err)
	ctx := session.Context()
	t.Cleanup(func() { _ = session.Destroy(ctx) })

	states := make(chan domain.ChatState, 1)
	require.NoError(t, session.Stream().SetChatStateListener(ctx, ChatStateListenerFunc(func(_, current domain.ChatState) {
		states <- current
	})))
	require.NoError(t, session.Resume(ctx))
	receive(t, states)

	flushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, session.Flush(flushCtx))

	select {
	case <-saved:
	default:
		t.Fatal("session was not saved before Flush returned")
	}
	assert.ErrorIs(t, session.Flush(context.Background()), domain.ErrInvalidThread)
}
