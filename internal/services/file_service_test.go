package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/internal/database/testutil"
	"github.com/codecraft-dev/codecraft/internal/models"
)

func newFileFixture(t *testing.T) (*gorm.DB, *CollabService, *FileService, *models.CollabSession) {
	t.Helper()
	db := testutil.MustOpenTestDB(t)
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	presence, err := NewPresenceService(db, WithPresenceClock(clock.Now))
	require.NoError(t, err)
	collab, err := NewCollabService(db, presence, WithCollabClock(clock.Now))
	require.NoError(t, err)
	files, err := NewFileService(db)
	require.NoError(t, err)

	seedUser(t, db, "owner", "alice")
	session, err := collab.CreateSession(context.Background(), CreateSessionParams{OwnerID: "owner"})
	require.NoError(t, err)

	return db, collab, files, session
}

func TestFiles_CreateTree(t *testing.T) {
	_, _, files, session := newFileFixture(t)

	folder, err := files.CreateFolder(context.Background(), session.SessionKey, "owner", "src", nil)
	require.NoError(t, err)

	nested, err := files.CreateFolder(context.Background(), session.SessionKey, "owner", "utils", &folder.ID)
	require.NoError(t, err)

	file, err := files.CreateFile(context.Background(), session.SessionKey, "owner", "main.js", "javascript", "// entry", &folder.ID)
	require.NoError(t, err)
	require.Equal(t, folder.ID, *file.FolderID)

	tree, err := files.ListTree(context.Background(), session.SessionKey, "owner")
	require.NoError(t, err)
	require.Len(t, tree.Folders, 2)
	require.Len(t, tree.Files, 1)
	require.Equal(t, nested.ID, tree.Folders[1].ID)
}

func TestFiles_DuplicateNamesRejected(t *testing.T) {
	_, _, files, session := newFileFixture(t)

	_, err := files.CreateFolder(context.Background(), session.SessionKey, "owner", "src", nil)
	require.NoError(t, err)

	// Same name at root, whether folder or file, is rejected.
	_, err = files.CreateFolder(context.Background(), session.SessionKey, "owner", "src", nil)
	require.ErrorIs(t, err, ErrDuplicateName)
	_, err = files.CreateFile(context.Background(), session.SessionKey, "owner", "src", "", "", nil)
	require.ErrorIs(t, err, ErrDuplicateName)

	// The same name inside the folder is fine.
	folder, err := files.CreateFolder(context.Background(), session.SessionKey, "owner", "nested", nil)
	require.NoError(t, err)
	_, err = files.CreateFile(context.Background(), session.SessionKey, "owner", "src", "", "", &folder.ID)
	require.NoError(t, err)
}

func TestFiles_RenameAndUpdateContent(t *testing.T) {
	_, _, files, session := newFileFixture(t)

	file, err := files.CreateFile(context.Background(), session.SessionKey, "owner", "a.js", "javascript", "v1", nil)
	require.NoError(t, err)
	_, err = files.CreateFile(context.Background(), session.SessionKey, "owner", "b.js", "javascript", "", nil)
	require.NoError(t, err)

	_, err = files.RenameFile(context.Background(), session.SessionKey, "owner", file.ID, "b.js")
	require.ErrorIs(t, err, ErrDuplicateName)

	renamed, err := files.RenameFile(context.Background(), session.SessionKey, "owner", file.ID, "c.js")
	require.NoError(t, err)
	require.Equal(t, "c.js", renamed.Name)

	updated, err := files.UpdateFileContent(context.Background(), session.SessionKey, "owner", file.ID, "v2")
	require.NoError(t, err)
	require.Equal(t, "v2", updated.Content)
}

func TestFiles_DeleteFolderCascades(t *testing.T) {
	db, _, files, session := newFileFixture(t)

	root, err := files.CreateFolder(context.Background(), session.SessionKey, "owner", "src", nil)
	require.NoError(t, err)
	child, err := files.CreateFolder(context.Background(), session.SessionKey, "owner", "utils", &root.ID)
	require.NoError(t, err)
	_, err = files.CreateFile(context.Background(), session.SessionKey, "owner", "deep.js", "", "", &child.ID)
	require.NoError(t, err)
	_, err = files.CreateFile(context.Background(), session.SessionKey, "owner", "top.js", "", "", &root.ID)
	require.NoError(t, err)

	require.NoError(t, files.DeleteFolder(context.Background(), session.SessionKey, "owner", root.ID))

	var folders, fileRows int64
	require.NoError(t, db.Model(&models.SessionFolder{}).Where("session_id = ?", session.ID).Count(&folders).Error)
	require.NoError(t, db.Model(&models.SessionFile{}).Where("session_id = ?", session.ID).Count(&fileRows).Error)
	require.Zero(t, folders)
	require.Zero(t, fileRows)
}

func TestFiles_NonParticipantDenied(t *testing.T) {
	db, _, files, session := newFileFixture(t)
	seedUser(t, db, "user-2", "bob")

	_, err := files.CreateFolder(context.Background(), session.SessionKey, "user-2", "src", nil)
	require.ErrorIs(t, err, ErrNotParticipant)

	_, err = files.ListTree(context.Background(), "nosuchsessionkey1", "owner")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
