package internal_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/arloq/docchat/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *internal.Archive {
	t.Helper()
	archive, err := internal.OpenArchive(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = archive.Close() })
	return archive
}

func TestArchiveSaveAndLoad(t *testing.T) {
	archive := openTestArchive(t)

	info := internal.CreateTestSessionInfo("s-1", "Contract review", "")
	msgs := internal.CreateTestTranscript(2)
	require.NoError(t, archive.SaveSession(info, msgs))

	loaded, err := archive.LoadTranscript("s-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Contract review", loaded.Info.SessionName)
	assert.Len(t, loaded.Messages, 4)
	assert.Equal(t, msgs[0].Content, loaded.Messages[0].Content)
}

func TestArchiveLoadMissing(t *testing.T) {
	archive := openTestArchive(t)

	loaded, err := archive.LoadTranscript("ghost")
	require.NoError(t, err)
	assert.Nil(t, loaded, "a missing session is not an error")
}

func TestArchiveSaveReplaces(t *testing.T) {
	archive := openTestArchive(t)

	info := internal.CreateTestSessionInfo("s-1", "First", "")
	require.NoError(t, archive.SaveSession(info, internal.CreateTestTranscript(1)))

	info.SessionName = "Second"
	require.NoError(t, archive.SaveSession(info, internal.CreateTestTranscript(3)))

	loaded, err := archive.LoadTranscript("s-1")
	require.NoError(t, err)
	assert.Equal(t, "Second", loaded.Info.SessionName)
	assert.Len(t, loaded.Messages, 6)

	sessions, err := archive.LoadSessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 1, "re-saving must not duplicate the listing entry")
}

func TestArchiveListingOrder(t *testing.T) {
	archive := openTestArchive(t)

	older := internal.CreateTestSessionInfo("old", "Older", "")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := internal.CreateTestSessionInfo("new", "Newer", "")

	require.NoError(t, archive.SaveSession(older, nil))
	require.NoError(t, archive.SaveSession(newer, nil))

	sessions, err := archive.LoadSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].SessionID, "most recently updated first")
}

func TestArchiveFindSessions(t *testing.T) {
	archive := openTestArchive(t)
	require.NoError(t, archive.SaveSession(internal.CreateTestSessionInfo("a", "Quarterly Report", ""), nil))
	require.NoError(t, archive.SaveSession(internal.CreateTestSessionInfo("b", "Shopping list", ""), nil))

	found, err := archive.FindSessions("report")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a", found[0].SessionID)

	all, err := archive.FindSessions("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestArchiveDelete(t *testing.T) {
	archive := openTestArchive(t)
	require.NoError(t, archive.SaveSession(internal.CreateTestSessionInfo("s-1", "Gone", ""), internal.CreateTestTranscript(1)))

	require.NoError(t, archive.DeleteSession("s-1"))

	loaded, err := archive.LoadTranscript("s-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	sessions, err := archive.LoadSessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
