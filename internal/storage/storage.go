package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage provides the local sync and token cache.

// Store tracks synced contact IDs and persists access tokens.
type Store interface {
	Close() error
	SeenContact(id string) (bool, error)
	MarkContact(id string) error
	LoadToken(key string) (string, time.Time, bool, error)
	SaveToken(key, token string, expiresAt time.Time) error
	DeleteToken(key string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	ContactTTL      time.Duration
	CleanupInterval time.Duration
}

const (
	defaultContactTTL      = 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.ContactTTL <= 0 {
		opts.ContactTTL = defaultContactTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                     { return nil }
func (noopStore) SeenContact(string) (bool, error) { return false, nil }
func (noopStore) MarkContact(string) error         { return nil }
func (noopStore) LoadToken(string) (string, time.Time, bool, error) {
	return "", time.Time{}, false, nil
}
func (noopStore) SaveToken(string, string, time.Time) error { return nil }
func (noopStore) DeleteToken(string) error                  { return nil }
