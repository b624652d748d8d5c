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

func newCodeSyncFixture(t *testing.T, clock *testClock) (*gorm.DB, *CollabService, *CodeSyncService, *recordingBroadcaster) {
	t.Helper()
	db := testutil.MustOpenTestDB(t)

	presence, err := NewPresenceService(db, WithPresenceClock(clock.Now))
	require.NoError(t, err)
	collab, err := NewCollabService(db, presence, WithCollabClock(clock.Now))
	require.NoError(t, err)

	broadcaster := &recordingBroadcaster{}
	sync, err := NewCodeSyncService(db,
		WithCodeSyncClock(clock.Now),
		WithCodeSyncBroadcaster(broadcaster))
	require.NoError(t, err)

	return db, collab, sync, broadcaster
}

func TestCodeSync_UpdateOverwritesBuffer(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, sync, broadcaster := newCodeSyncFixture(t, clock)
	seedUser(t, db, "owner", "alice")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "owner", Code: "console.log(1)",
	})
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	result, err := sync.UpdateCode(context.Background(), UpdateCodeParams{
		SessionKey: session.SessionKey,
		UserID:     "owner",
		Code:       "console.log(2)",
		Operation:  &OperationDescriptor{Kind: "replace", Position: 12, Content: "2", Length: 1},
	})
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.Equal(t, "console.log(2)", result.Session.Code)
	require.True(t, result.Session.LastActivity.Equal(clock.Now()))

	var op models.SessionOperation
	require.NoError(t, db.First(&op, "session_id = ?", session.ID).Error)
	require.Equal(t, models.OperationReplace, op.Kind)
	require.Equal(t, 12, op.Position)

	require.Contains(t, broadcaster.eventNames(), EventCodeUpdated)
}

func TestCodeSync_UnchangedCodeIsPureNoop(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, sync, broadcaster := newCodeSyncFixture(t, clock)
	seedUser(t, db, "owner", "alice")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "owner", Code: "same",
	})
	require.NoError(t, err)
	createdAt := session.LastActivity

	clock.Advance(10 * time.Minute)
	result, err := sync.UpdateCode(context.Background(), UpdateCodeParams{
		SessionKey: session.SessionKey,
		UserID:     "owner",
		Code:       "same",
		Operation:  &OperationDescriptor{Kind: "replace"},
	})
	require.NoError(t, err)
	require.False(t, result.Applied)

	// No activity bump, no operation log entry, no broadcast.
	var stored models.CollabSession
	require.NoError(t, db.First(&stored, "id = ?", session.ID).Error)
	require.True(t, stored.LastActivity.Equal(createdAt))

	var ops int64
	require.NoError(t, db.Model(&models.SessionOperation{}).Where("session_id = ?", session.ID).Count(&ops).Error)
	require.Zero(t, ops)
	require.Empty(t, broadcaster.eventNames())
}

func TestCodeSync_LastWriteWins(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, sync, _ := newCodeSyncFixture(t, clock)
	seedUser(t, db, "owner", "alice")
	seedUser(t, db, "user-2", "bob")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{OwnerID: "owner"})
	require.NoError(t, err)
	_, err = collab.JoinSession(context.Background(), session.SessionKey, "user-2", "bob")
	require.NoError(t, err)

	_, err = sync.UpdateCode(context.Background(), UpdateCodeParams{
		SessionKey: session.SessionKey, UserID: "owner", Code: "alice version",
	})
	require.NoError(t, err)
	_, err = sync.UpdateCode(context.Background(), UpdateCodeParams{
		SessionKey: session.SessionKey, UserID: "user-2", Code: "bob version",
	})
	require.NoError(t, err)

	var stored models.CollabSession
	require.NoError(t, db.First(&stored, "id = ?", session.ID).Error)
	require.Equal(t, "bob version", stored.Code)
}

func TestCodeSync_ReadOnlyParticipantDenied(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, sync, _ := newCodeSyncFixture(t, clock)
	seedUser(t, db, "owner", "alice")
	seedUser(t, db, "user-2", "bob")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{OwnerID: "owner"})
	require.NoError(t, err)
	_, err = collab.JoinSession(context.Background(), session.SessionKey, "user-2", "bob")
	require.NoError(t, err)
	require.NoError(t, collab.SetPermission(context.Background(), session.SessionKey, "owner", "user-2", models.PermissionRead))

	_, err = sync.UpdateCode(context.Background(), UpdateCodeParams{
		SessionKey: session.SessionKey, UserID: "user-2", Code: "nope",
	})
	require.ErrorIs(t, err, ErrReadOnlyParticipant)

	_, err = sync.UpdateCode(context.Background(), UpdateCodeParams{
		SessionKey: session.SessionKey, UserID: "stranger", Code: "nope",
	})
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestCodeSync_LastActiveThrottled(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, sync, _ := newCodeSyncFixture(t, clock)
	seedUser(t, db, "owner", "alice")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{OwnerID: "owner"})
	require.NoError(t, err)
	joinStamp := clock.Now()

	// Within the throttle window: lastActive untouched.
	clock.Advance(2 * time.Second)
	_, err = sync.UpdateCode(context.Background(), UpdateCodeParams{
		SessionKey: session.SessionKey, UserID: "owner", Code: "v1",
	})
	require.NoError(t, err)

	var participant models.SessionParticipant
	require.NoError(t, db.First(&participant, "session_id = ? AND user_id = ?", session.ID, "owner").Error)
	require.True(t, participant.LastActive.Equal(joinStamp))

	// Past the window: lastActive advances.
	clock.Advance(4 * time.Second)
	_, err = sync.UpdateCode(context.Background(), UpdateCodeParams{
		SessionKey: session.SessionKey, UserID: "owner", Code: "v2",
	})
	require.NoError(t, err)

	require.NoError(t, db.First(&participant, "session_id = ? AND user_id = ?", session.ID, "owner").Error)
	require.True(t, participant.LastActive.Equal(clock.Now()))
}

func TestCodeSync_ListOperations(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, sync, _ := newCodeSyncFixture(t, clock)
	seedUser(t, db, "owner", "alice")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{OwnerID: "owner"})
	require.NoError(t, err)

	for i, code := range []string{"a", "ab", "abc"} {
		clock.Advance(time.Duration(i+1) * time.Second)
		_, err = sync.UpdateCode(context.Background(), UpdateCodeParams{
			SessionKey: session.SessionKey,
			UserID:     "owner",
			Code:       code,
			Operation:  &OperationDescriptor{Kind: "insert", Position: i, Content: code[i:], Length: 1},
		})
		require.NoError(t, err)
	}

	ops, err := sync.ListOperations(context.Background(), session.SessionKey, 2)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	_, err = sync.ListOperations(context.Background(), "nosuchsessionkey1", 10)
	require.ErrorIs(t, err, ErrSessionNotFound)
}
