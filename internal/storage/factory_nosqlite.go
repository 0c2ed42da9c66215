//go:build !sqlite

package storage

import "fmt"

// Builds without the sqlite tag leave out modernc.org/sqlite entirely.
func newSQLiteStore(path string) (Store, error) {
	return nil, fmt.Errorf("%w: sqlite (path %q); rebuild with -tags sqlite", ErrBackendUnavailable, path)
}
