package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

var ErrEmptySecret = errors.New("secret value is empty")

// CredentialService manages provider credentials in the secret store.
type CredentialService struct {
	store ports.SecretStore
}

func NewCredentialService(store ports.SecretStore) *CredentialService {
	return &CredentialService{store: store}
}

// SetSecret stores value under ref. When the store already holds a different value, it is
// replaced and restored again if the write fails half way.
func (s *CredentialService) SetSecret(ctx context.Context, cmd SetSecretCommand) error {
	ref := strings.TrimSpace(cmd.Ref)
	if ref == "" {
		ref = ports.OpenAIKeyRef
	}
	value := strings.TrimSpace(cmd.Value)
	if value == "" {
		return ErrEmptySecret
	}

	previous, err := s.store.Get(ctx, ref)
	if err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		return fmt.Errorf("read existing secret: %w", err)
	}
	hadPrevious := err == nil

	if err := s.store.Put(ctx, ref, value); err != nil {
		if !hadPrevious {
			return fmt.Errorf("store secret: %w", err)
		}
		if restoreErr := s.store.Put(ctx, ref, previous); restoreErr != nil {
			return fmt.Errorf("store secret and restore previous value: %w", errors.Join(err, restoreErr))
		}
		return fmt.Errorf("store secret: %w", err)
	}

	return nil
}

func (s *CredentialService) RemoveSecret(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = ports.OpenAIKeyRef
	}

	if err := s.store.Delete(ctx, ref); err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}

	return nil
}

// HasSecret reports whether ref resolves in the store, without returning the value.
func (s *CredentialService) HasSecret(ctx context.Context, ref string) (bool, error) {
	if strings.TrimSpace(ref) == "" {
		ref = ports.OpenAIKeyRef
	}

	_, err := s.store.Get(ctx, ref)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrSecretNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("read secret: %w", err)
	}
}
