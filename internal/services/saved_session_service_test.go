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

func newSavedFixture(t *testing.T, clock *testClock, opts ...SavedSessionOption) (*gorm.DB, *CollabService, *SavedSessionService) {
	t.Helper()
	db := testutil.MustOpenTestDB(t)

	presence, err := NewPresenceService(db, WithPresenceClock(clock.Now))
	require.NoError(t, err)
	collab, err := NewCollabService(db, presence,
		WithCollabClock(clock.Now),
		WithOwnedSessionQuota(20))
	require.NoError(t, err)

	opts = append([]SavedSessionOption{WithSavedSessionClock(clock.Now)}, opts...)
	saved, err := NewSavedSessionService(db, collab, opts...)
	require.NoError(t, err)

	return db, collab, saved
}

func TestSavedSession_SaveAndList(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, saved := newSavedFixture(t, clock)
	seedUser(t, db, "owner", "alice")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "owner", Name: "scratch", Language: "python", Code: "print(1)",
	})
	require.NoError(t, err)

	snapshot, err := saved.Save(context.Background(), SaveSessionParams{
		OwnerID:    "owner",
		SessionKey: session.SessionKey,
		Tags:       []string{"demo"},
	})
	require.NoError(t, err)
	require.Equal(t, "scratch", snapshot.Name)
	require.Equal(t, "python", snapshot.Language)
	require.Equal(t, "print(1)", snapshot.Code)
	require.True(t, snapshot.IsPrivate)
	require.NotNil(t, snapshot.OriginSessionKey)
	require.Equal(t, session.SessionKey, *snapshot.OriginSessionKey)

	list, err := saved.List(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSavedSession_DuplicateSaveRejected(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, saved := newSavedFixture(t, clock)
	seedUser(t, db, "owner", "alice")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{OwnerID: "owner"})
	require.NoError(t, err)

	_, err = saved.Save(context.Background(), SaveSessionParams{OwnerID: "owner", SessionKey: session.SessionKey})
	require.NoError(t, err)

	_, err = saved.Save(context.Background(), SaveSessionParams{OwnerID: "owner", SessionKey: session.SessionKey})
	require.ErrorIs(t, err, ErrAlreadySaved)
}

func TestSavedSession_QuotaEnforced(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, saved := newSavedFixture(t, clock, WithSavedSessionQuota(2))
	seedUser(t, db, "owner", "alice")

	for i := 0; i < 2; i++ {
		session, err := collab.CreateSession(context.Background(), CreateSessionParams{OwnerID: "owner"})
		require.NoError(t, err)
		_, err = saved.Save(context.Background(), SaveSessionParams{OwnerID: "owner", SessionKey: session.SessionKey})
		require.NoError(t, err)
	}

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{OwnerID: "owner"})
	require.NoError(t, err)
	_, err = saved.Save(context.Background(), SaveSessionParams{OwnerID: "owner", SessionKey: session.SessionKey})
	capErr, ok := AsCapacityError(err)
	require.True(t, ok)
	require.Equal(t, "saved_sessions", capErr.Resource)
	require.Equal(t, 2, capErr.Limit)
}

func TestSavedSession_LoadAsLiveAndResave(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, saved := newSavedFixture(t, clock)
	seedUser(t, db, "owner", "alice")

	origin, err := collab.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "owner", Name: "original", Code: "v1",
	})
	require.NoError(t, err)
	snapshot, err := saved.Save(context.Background(), SaveSessionParams{OwnerID: "owner", SessionKey: origin.SessionKey})
	require.NoError(t, err)

	live, err := saved.LoadAsLive(context.Background(), snapshot.ID, "owner", false)
	require.NoError(t, err)
	require.Equal(t, "v1", live.Code)
	require.NotNil(t, live.SavedSessionID)
	require.Equal(t, snapshot.ID, *live.SavedSessionID)

	// Edit the live copy, then re-save: the original snapshot is updated in
	// place, no duplicate appears.
	require.NoError(t, db.Model(&models.CollabSession{}).
		Where("id = ?", live.ID).
		Update("code", "v2").Error)

	resaved, err := saved.Save(context.Background(), SaveSessionParams{OwnerID: "owner", SessionKey: live.SessionKey})
	require.NoError(t, err)
	require.Equal(t, snapshot.ID, resaved.ID)
	require.Equal(t, "v2", resaved.Code)

	list, err := saved.List(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSavedSession_PrivacyAndOwnership(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, saved := newSavedFixture(t, clock)
	seedUser(t, db, "owner", "alice")
	seedUser(t, db, "user-2", "bob")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{OwnerID: "owner"})
	require.NoError(t, err)
	snapshot, err := saved.Save(context.Background(), SaveSessionParams{OwnerID: "owner", SessionKey: session.SessionKey})
	require.NoError(t, err)

	_, err = saved.Get(context.Background(), snapshot.ID, "user-2")
	require.ErrorIs(t, err, ErrSavedSessionAccessDenied)

	_, err = saved.Update(context.Background(), snapshot.ID, "user-2", UpdateSavedSessionInput{})
	require.ErrorIs(t, err, ErrSavedSessionAccessDenied)

	err = saved.Delete(context.Background(), snapshot.ID, "user-2")
	require.ErrorIs(t, err, ErrSavedSessionAccessDenied)

	// Flip to public: now readable by others but still not writable.
	isPrivate := false
	_, err = saved.Update(context.Background(), snapshot.ID, "owner", UpdateSavedSessionInput{IsPrivate: &isPrivate})
	require.NoError(t, err)

	got, err := saved.Get(context.Background(), snapshot.ID, "user-2")
	require.NoError(t, err)
	require.Equal(t, snapshot.ID, got.ID)

	require.NoError(t, saved.Delete(context.Background(), snapshot.ID, "owner"))
	_, err = saved.Get(context.Background(), snapshot.ID, "owner")
	require.ErrorIs(t, err, ErrSavedSessionNotFound)
}

func TestSavedSession_NonParticipantCannotSave(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, collab, saved := newSavedFixture(t, clock)
	seedUser(t, db, "owner", "alice")
	seedUser(t, db, "user-2", "bob")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{OwnerID: "owner"})
	require.NoError(t, err)

	_, err = saved.Save(context.Background(), SaveSessionParams{OwnerID: "user-2", SessionKey: session.SessionKey})
	require.ErrorIs(t, err, ErrNotParticipant)
}
