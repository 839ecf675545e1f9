// Package chain keeps the assistant's provider keys in pass and falls back to the private file
// store when pass is missing or broken.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/meeting-assistant-cli/internal/adapters/secrets"
	filestore "github.com/bnema/meeting-assistant-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/meeting-assistant-cli/internal/adapters/secrets/pass"
	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

// KeyStore resolves "meeting-assistant://..." refs against a primary backend and a fallback.
// Values are trimmed on the way in and out, so a key pasted with a trailing newline or read back
// from `pass show` compares equal to the stored one.
type KeyStore struct {
	primary  ports.SecretStore
	fallback ports.SecretStore
}

var _ ports.SecretStore = (*KeyStore)(nil)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
)

func NewKeyStore(primary ports.SecretStore, fallback ports.SecretStore) (*KeyStore, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	return &KeyStore{primary: primary, fallback: fallback}, nil
}

func NewPassFirstWithFileFallback(fileRoot string) (*KeyStore, error) {
	return NewKeyStore(passstore.NewStore(), filestore.NewStore(fileRoot))
}

// Put stores value in pass, or in the file store when pass fails. After a successful pass write
// any file copy is removed so an old key cannot come back when pass is later unavailable.
func (s *KeyStore) Put(ctx context.Context, ref string, value string) error {
	if err := secrets.ValidateRef(ref); err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("store %s: empty value", ref)
	}

	err := s.primary.Put(ctx, ref, value)
	if err == nil {
		if delErr := s.fallback.Delete(ctx, ref); delErr != nil && isContextErr(delErr) {
			return delErr
		}
		return nil
	}
	if isContextErr(err) {
		return err
	}

	if fallbackErr := s.fallback.Put(ctx, ref, value); fallbackErr != nil {
		return fmt.Errorf("store %s: pass: %w; file: %w", ref, err, fallbackErr)
	}

	return nil
}

// Get returns domain.ErrSecretNotFound when neither backend holds a non-blank value.
func (s *KeyStore) Get(ctx context.Context, ref string) (string, error) {
	if err := secrets.ValidateRef(ref); err != nil {
		return "", err
	}

	value, err := s.primary.Get(ctx, ref)
	if err == nil {
		if value = strings.TrimSpace(value); value != "" {
			return value, nil
		}
		err = domain.ErrSecretNotFound
	}
	if isContextErr(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, ref)
	if fallbackErr == nil {
		if fallbackValue = strings.TrimSpace(fallbackValue); fallbackValue != "" {
			return fallbackValue, nil
		}
		fallbackErr = domain.ErrSecretNotFound
	}

	return "", fmt.Errorf("read %s: pass: %w; file: %w", ref, err, fallbackErr)
}

// Delete removes the ref from both backends. It fails only when neither could delete.
func (s *KeyStore) Delete(ctx context.Context, ref string) error {
	if err := secrets.ValidateRef(ref); err != nil {
		return err
	}

	err := s.primary.Delete(ctx, ref)
	if isContextErr(err) {
		return err
	}

	fallbackErr := s.fallback.Delete(ctx, ref)
	if err == nil || fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("delete %s: pass: %w; file: %w", ref, err, fallbackErr)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
