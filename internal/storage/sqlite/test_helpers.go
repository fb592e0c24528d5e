package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestManager opens a fresh DatabaseManager backed by a file under
// t.TempDir(), migrated and ready to use. The teacher explicitly avoids
// the shared ":memory:" DSN for test isolation; we follow suit.
func newTestManager(t *testing.T) *DatabaseManager {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	mgr, err := Open(context.Background(), dbPath, Options{})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mgr.Close())
	})
	return mgr
}
