// Package secret stores the single credential used for classifier requests.
package secret

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/pbaille/laterread/internal/store"
)

// ErrNotFound is returned when no credential is stored
var ErrNotFound = errors.New("credential not set")

// Store gets, sets and deletes one opaque credential
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, value string) error
	Delete(ctx context.Context) error
}

// DB keeps the credential in the local database
type DB struct {
	db   *store.DB
	name string
}

// NewDB returns a Store backed by db
func NewDB(db *store.DB) *DB {
	return &DB{db: db, name: store.CredentialName}
}

// Get returns the stored key or ErrNotFound
func (s *DB) Get(ctx context.Context) (string, error) {
	v, ok, err := s.db.GetSecret(ctx, s.name)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value, replacing any previous key
func (s *DB) Set(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.Delete(ctx)
	}
	return s.db.SetSecret(ctx, s.name, value)
}

// Delete removes the stored key
func (s *DB) Delete(ctx context.Context) error {
	return s.db.DeleteSecret(ctx, s.name)
}

// WithEnv lets the environment variable env override the stored credential
func WithEnv(s Store, env string) Store {
	return &envStore{Store: s, env: env}
}

type envStore struct {
	Store
	env string
}

func (e *envStore) Get(ctx context.Context) (string, error) {
	if v := strings.TrimSpace(os.Getenv(e.env)); v != "" {
		return v, nil
	}
	return e.Store.Get(ctx)
}

// Memory holds the credential in memory
type Memory struct {
	value string
}

func (m *Memory) Get(context.Context) (string, error) {
	if m.value == "" {
		return "", ErrNotFound
	}
	return m.value, nil
}

func (m *Memory) Set(_ context.Context, value string) error {
	m.value = strings.TrimSpace(value)
	return nil
}

func (m *Memory) Delete(context.Context) error {
	m.value = ""
	return nil
}
