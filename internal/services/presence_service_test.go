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

func newPresenceFixture(t *testing.T, clock *testClock) (*gorm.DB, *PresenceService, *CollabService) {
	t.Helper()
	db := testutil.MustOpenTestDB(t)

	presence, err := NewPresenceService(db, WithPresenceClock(clock.Now))
	require.NoError(t, err)
	collab, err := NewCollabService(db, presence, WithCollabClock(clock.Now))
	require.NoError(t, err)

	return db, presence, collab
}

func TestPresence_HeartbeatAdvancesLastSeen(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, presence, collab := newPresenceFixture(t, clock)
	seedUser(t, db, "user-1", "alice")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "user-1", OwnerName: "alice", Name: "demo",
	})
	require.NoError(t, err)

	clock.Advance(90 * time.Second)
	require.NoError(t, presence.Heartbeat(context.Background(), session.SessionKey, "user-1"))

	var participant models.SessionParticipant
	require.NoError(t, db.First(&participant, "session_id = ? AND user_id = ?", session.ID, "user-1").Error)
	require.NotNil(t, participant.LastSeen)
	require.True(t, participant.LastSeen.Equal(clock.Now()))
	require.True(t, participant.IsActive)

	// Repeat beats are idempotent.
	require.NoError(t, presence.Heartbeat(context.Background(), session.SessionKey, "user-1"))
	require.NoError(t, presence.Heartbeat(context.Background(), session.SessionKey, "user-1"))
}

func TestPresence_HeartbeatRevivesScheduledSession(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, presence, collab := newPresenceFixture(t, clock)
	seedUser(t, db, "user-1", "alice")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "user-1", OwnerName: "alice", Name: "demo",
	})
	require.NoError(t, err)
	require.NoError(t, collab.LeaveSession(context.Background(), session.SessionKey, "user-1"))

	var stored models.CollabSession
	require.NoError(t, db.First(&stored, "id = ?", session.ID).Error)
	require.Equal(t, models.SessionStatusScheduledForDeletion, stored.Status)
	require.NotNil(t, stored.ExpiresAt)

	clock.Advance(30 * time.Second)
	require.NoError(t, presence.Heartbeat(context.Background(), session.SessionKey, "user-1"))

	require.NoError(t, db.First(&stored, "id = ?", session.ID).Error)
	require.Equal(t, models.SessionStatusActive, stored.Status)
	require.Nil(t, stored.ExpiresAt)
	require.Equal(t, []string{"user-1"}, []string(stored.ActiveUsers))
}

func TestPresence_HeartbeatUnknownSession(t *testing.T) {
	clock := newTestClock(time.Now())
	_, presence, _ := newPresenceFixture(t, clock)

	err := presence.Heartbeat(context.Background(), "nosuchsessionkey1", "user-1")
	require.ErrorIs(t, err, ErrPresenceSessionNotFound)
}

func TestPresence_HeartbeatUnknownParticipantIsNoop(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, presence, collab := newPresenceFixture(t, clock)
	seedUser(t, db, "user-1", "alice")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "user-1", OwnerName: "alice", Name: "demo",
	})
	require.NoError(t, err)

	// A beat racing ahead of join is accepted and dropped.
	require.NoError(t, presence.Heartbeat(context.Background(), session.SessionKey, "stranger"))

	var count int64
	require.NoError(t, db.Model(&models.SessionParticipant{}).
		Where("session_id = ? AND user_id = ?", session.ID, "stranger").
		Count(&count).Error)
	require.Zero(t, count)
}

func TestPresence_ComputeLivenessFlagsStaleParticipants(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, presence, collab := newPresenceFixture(t, clock)
	seedUser(t, db, "user-1", "alice")
	seedUser(t, db, "user-2", "bob")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "user-1", OwnerName: "alice", Name: "demo",
	})
	require.NoError(t, err)
	_, err = collab.JoinSession(context.Background(), session.SessionKey, "user-2", "bob")
	require.NoError(t, err)

	// bob keeps beating, alice goes silent past the threshold.
	clock.Advance(4 * time.Minute)
	require.NoError(t, presence.Heartbeat(context.Background(), session.SessionKey, "user-2"))
	clock.Advance(2 * time.Minute)

	live, err := presence.ComputeLiveness(context.Background(), session.ID, clock.Now())
	require.NoError(t, err)
	require.Equal(t, []string{"user-2"}, live)

	var alice models.SessionParticipant
	require.NoError(t, db.First(&alice, "session_id = ? AND user_id = ?", session.ID, "user-1").Error)
	require.False(t, alice.IsActive)
}

func TestPresence_ComputeLivenessBoundary(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, presence, collab := newPresenceFixture(t, clock)
	seedUser(t, db, "user-1", "alice")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "user-1", OwnerName: "alice", Name: "demo",
	})
	require.NoError(t, err)

	// Exactly at the threshold still counts as live.
	live, err := presence.ComputeLiveness(context.Background(), session.ID, clock.Now().Add(InactiveThreshold))
	require.NoError(t, err)
	require.Equal(t, []string{"user-1"}, live)

	live, err = presence.ComputeLiveness(context.Background(), session.ID, clock.Now().Add(InactiveThreshold+time.Second))
	require.NoError(t, err)
	require.Empty(t, live)

	var participant models.SessionParticipant
	require.NoError(t, db.First(&participant, "session_id = ? AND user_id = ?", session.ID, "user-1").Error)
	require.False(t, participant.IsActive)
}

func TestPresence_ExplicitLeaveStaysOutOfLiveSet(t *testing.T) {
	clock := newTestClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	db, presence, collab := newPresenceFixture(t, clock)
	seedUser(t, db, "user-1", "alice")
	seedUser(t, db, "user-2", "bob")

	session, err := collab.CreateSession(context.Background(), CreateSessionParams{
		OwnerID: "user-1", OwnerName: "alice", Name: "demo",
	})
	require.NoError(t, err)
	_, err = collab.JoinSession(context.Background(), session.SessionKey, "user-2", "bob")
	require.NoError(t, err)
	require.NoError(t, collab.LeaveSession(context.Background(), session.SessionKey, "user-2"))

	// bob's lastSeen is still fresh but the explicit leave keeps him out.
	live, err := presence.ComputeLiveness(context.Background(), session.ID, clock.Now())
	require.NoError(t, err)
	require.Equal(t, []string{"user-1"}, live)

	var bob models.SessionParticipant
	require.NoError(t, db.First(&bob, "session_id = ? AND user_id = ?", session.ID, "user-2").Error)
	require.False(t, bob.IsActive)
}
