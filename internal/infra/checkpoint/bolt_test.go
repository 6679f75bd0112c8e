package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domain "fanfilter/internal/domain/followers"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "checkpoints.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoadCursor(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.SaveCursor("target", "abc==123"))
	cur, err := s.Cursor("target")
	require.NoError(t, err)
	require.Equal(t, "abc==123", cur)
}

func TestCursor_MissingIdentifier(t *testing.T) {
	s := openStore(t)

	_, err := s.Cursor("never-seen")
	require.ErrorIs(t, err, domain.ErrNoCheckpoint)
}

func TestSaveCursor_Overwrites(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.SaveCursor("target", "first"))
	require.NoError(t, s.SaveCursor("target", "second"))
	cur, err := s.Cursor("target")
	require.NoError(t, err)
	require.Equal(t, "second", cur)
}

func TestCursorsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.bolt")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveCursor("target", "persisted"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	cur, err := s.Cursor("target")
	require.NoError(t, err)
	require.Equal(t, "persisted", cur)
}
