package application

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
)

// SessionStore keeps a visitor's session between runs. The auth token lives
// in the secret store, everything else in the session repository.
type SessionStore struct {
	repo    ports.SessionRepository
	secrets ports.SecretStore
}

func NewSessionStore(repo ports.SessionRepository, secrets ports.SecretStore) *SessionStore {
	return &SessionStore{repo: repo, secrets: secrets}
}

// authTokenKey names a location's token relative to the secret store's root.
func authTokenKey(location string) string {
	return path.Join(location, "auth_token")
}

// Load returns the stored session for location. A location without a stored
// session yields zero values and no error.
func (s *SessionStore) Load(ctx context.Context, location string) (domain.SessionParameters, string, error) {
	stored, err := s.repo.Get(ctx, location)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.SessionParameters{}, "", nil
		}
		return domain.SessionParameters{}, "", fmt.Errorf("load session: %w", err)
	}

	token, err := s.secrets.Get(ctx, authTokenKey(location))
	if err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		return domain.SessionParameters{}, "", fmt.Errorf("load auth token: %w", err)
	}

	params := domain.SessionParameters{
		VisitorJSON:    stored.VisitorJSON,
		VisitSessionID: stored.VisitSessionID,
	}
	// A page id without its token cannot authenticate anything.
	if token != "" {
		params.Authorization = domain.AuthorizationData{PageID: stored.PageID, AuthToken: token}
	}
	return params, stored.DeviceToken, nil
}

func (s *SessionStore) Save(ctx context.Context, location string, params domain.SessionParameters, deviceToken string) error {
	key := authTokenKey(location)
	previousToken, err := s.secrets.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		return fmt.Errorf("read previous auth token: %w", err)
	}

	token := params.Authorization.AuthToken
	if token == "" {
		if err := s.secrets.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
			return fmt.Errorf("delete auth token: %w", err)
		}
	} else if err := s.secrets.Put(ctx, key, token); err != nil {
		return fmt.Errorf("store auth token: %w", err)
	}

	stored := domain.StoredSession{
		Location:       location,
		VisitorJSON:    params.VisitorJSON,
		VisitSessionID: params.VisitSessionID,
		PageID:         params.Authorization.PageID,
		DeviceToken:    deviceToken,
	}
	if err := s.repo.Save(ctx, stored); err != nil {
		var rollbackErr error
		if previousToken != "" {
			rollbackErr = s.secrets.Put(ctx, key, previousToken)
		} else if token != "" {
			rollbackErr = s.secrets.Delete(ctx, key)
		}
		if rollbackErr != nil {
			return fmt.Errorf("save session and rollback auth token: %w", errors.Join(err, rollbackErr))
		}
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Reset forgets the stored session so the next run starts a new visitor.
func (s *SessionStore) Reset(ctx context.Context, location string) error {
	var errs []error
	if err := s.repo.Delete(ctx, location); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		errs = append(errs, fmt.Errorf("delete session: %w", err))
	}
	if err := s.secrets.Delete(ctx, authTokenKey(location)); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		errs = append(errs, fmt.Errorf("delete auth token: %w", err))
	}
	return errors.Join(errs...)
}
