package storage

import (
	"context"
	"fmt"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

// NewStore builds a backend by kind. path is the sqlite file or the badger
// directory; an empty badger path selects in-memory mode.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(path)
	case KindBadger:
		cfg := DefaultBadgerConfig()
		cfg.Path = path
		cfg.InMemory = path == ""
		return NewBadgerStore(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrBackendUnavailable, kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

func ResetIfSupported(ctx context.Context, store Store) error {
	resetter, ok := store.(Resetter)
	if !ok {
		return fmt.Errorf("store %T does not support reset", store)
	}
	return resetter.Reset(ctx)
}
