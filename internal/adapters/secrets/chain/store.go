package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/beright/internal/adapters/secrets/file"
	passstore "github.com/bnema/beright/internal/adapters/secrets/pass"
	"github.com/bnema/beright/internal/ports"
)

// Store tries each backend in order. Reads return the first hit, writes go
// to the first backend that accepts them and deletes reach every backend.
type Store struct {
	backends []ports.CredentialStore
}

var _ ports.CredentialStore = (*Store)(nil)

var errNoBackends = errors.New("credential chain has no backends")

func NewStore(backends ...ports.CredentialStore) (*Store, error) {
	if len(backends) == 0 {
		return nil, errNoBackends
	}
	for i, backend := range backends {
		if backend == nil {
			return nil, fmt.Errorf("credential backend %d is nil", i)
		}
	}

	return &Store{backends: backends}, nil
}

// NewPassFirstWithFileFallback prefers pass(1) entries under passPrefix and
// falls back to owner-only files under fileRoot when pass is missing or fails.
func NewPassFirstWithFileFallback(passPrefix, fileRoot string) (*Store, error) {
	return NewStore(passstore.NewStore(passPrefix), filestore.NewStore(fileRoot))
}

func (s *Store) Get(ctx context.Context, name string) (string, error) {
	var errs []error
	for _, backend := range s.backends {
		value, err := backend.Get(ctx, name)
		if err == nil {
			return value, nil
		}
		if isContextErr(err) {
			return "", err
		}
		errs = append(errs, err)
	}

	failures := realFailures(errs)
	if len(failures) == 0 {
		return "", fmt.Errorf("credential %q: %w", name, ports.ErrCredentialNotFound)
	}

	// A miss in one backend must not mask a failure in another.
	return "", fmt.Errorf("get credential %q: %w", name, errors.Join(failures...))
}

func (s *Store) Put(ctx context.Context, name string, value string) error {
	var errs []error
	for _, backend := range s.backends {
		err := backend.Put(ctx, name, value)
		if err == nil {
			return nil
		}
		if isContextErr(err) {
			return err
		}
		errs = append(errs, err)
	}

	return fmt.Errorf("put credential %q: %w", name, errors.Join(errs...))
}

// Delete stops at the first context error but otherwise reaches every
// backend, so no stale copy survives in a fallback.
func (s *Store) Delete(ctx context.Context, name string) error {
	var errs []error
	for _, backend := range s.backends {
		err := backend.Delete(ctx, name)
		if err == nil || errors.Is(err, ports.ErrCredentialNotFound) {
			continue
		}
		if isContextErr(err) {
			return err
		}
		errs = append(errs, err)
	}

	if len(errs) == len(s.backends) {
		return fmt.Errorf("delete credential %q: %w", name, errors.Join(errs...))
	}

	return nil
}

func realFailures(errs []error) []error {
	var failures []error
	for _, err := range errs {
		if errors.Is(err, ports.ErrCredentialNotFound) || errors.Is(err, passstore.ErrUnavailable) {
			continue
		}
		failures = append(failures, err)
	}

	return failures
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
