package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	assert.NoError(t, CloseIfSupported(store))
}

func TestNewStoreBadger(t *testing.T) {
	store, err := NewStore(KindBadger, "")
	require.NoError(t, err)
	badgerStore, ok := store.(*BadgerStore)
	require.True(t, ok)
	assert.True(t, badgerStore.cfg.InMemory)
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("unknown", "")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
