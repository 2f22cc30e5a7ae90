// Package chain layers two secret stores: pass first, a private file tree when pass
// is missing or fails. A visitor token lives in one backend at a time, so a
// copy left in the fallback can never outlive a newer token in pass.
package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/webim-client/internal/adapters/secrets/file"
	passstore "github.com/bnema/webim-client/internal/adapters/secrets/pass"
	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
)

type Store struct {
	primary  ports.SecretStore
	fallback ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
)

func NewStore(primary ports.SecretStore, fallback ports.SecretStore) *Store {
	store, err := NewStoreChecked(primary, fallback)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(primary ports.SecretStore, fallback ports.SecretStore) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &Store{primary: primary, fallback: fallback}, nil
}

func NewPassFirstWithFileFallback(passFolder, fileRoot string) (*Store, error) {
	return NewStoreChecked(passstore.NewStore(passFolder), filestore.NewStore(fileRoot))
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	err := s.primary.Put(ctx, key, value)
	if err == nil {
		s.dropFallbackCopy(ctx, key)
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Put(ctx, key, value)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend put failed: %w; fallback backend put failed: %w", err, fallbackErr)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			s.promote(ctx, key, fallbackValue)
		}
		return fallbackValue, nil
	}

	return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

// Delete clears the key from both backends, since an earlier Put may have
// landed in either one.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if err != nil && shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Delete(ctx, key)
	switch {
	case fallbackErr == nil:
		return nil
	case err == nil:
		return fmt.Errorf("fallback backend delete failed: %w", fallbackErr)
	default:
		return fmt.Errorf("primary backend delete failed: %w; fallback backend delete failed: %w", err, fallbackErr)
	}
}

// promote moves a token found only in the fallback into a working primary.
// Failures leave the token where it was.
func (s *Store) promote(ctx context.Context, key string, value string) {
	if err := s.primary.Put(ctx, key, value); err != nil {
		return
	}
	s.dropFallbackCopy(ctx, key)
}

// dropFallbackCopy is best effort: the token is already safe in the primary.
func (s *Store) dropFallbackCopy(ctx context.Context, key string) {
	_ = s.fallback.Delete(ctx, key)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
