package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	testutil "github.com/codecraft-dev/codecraft/internal/database/testutil"
	"github.com/codecraft-dev/codecraft/internal/models"
	"github.com/codecraft-dev/codecraft/internal/services"
)

type movingClock struct {
	current time.Time
}

func (c *movingClock) Now() time.Time { return c.current }

func (c *movingClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func TestSweeperRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	clock := &movingClock{current: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}

	presence, err := services.NewPresenceService(db, services.WithPresenceClock(clock.Now))
	require.NoError(t, err)
	collab, err := services.NewCollabService(db, presence, services.WithCollabClock(clock.Now))
	require.NoError(t, err)

	owner := &models.User{ID: "idp|owner", Name: "owner"}
	require.NoError(t, db.Create(owner).Error)

	session, err := collab.CreateSession(context.Background(), services.CreateSessionParams{
		OwnerID:   owner.ID,
		OwnerName: owner.Name,
		Name:      "sweep target",
	})
	require.NoError(t, err)

	sweeper := NewSweeper(collab,
		WithNow(clock.Now),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	// Everyone goes quiet. The liveness sweep should schedule the session.
	clock.Advance(10 * time.Minute)
	require.NoError(t, sweeper.RunOnce(context.Background()))

	var scheduled models.CollabSession
	require.NoError(t, db.First(&scheduled, "id = ?", session.ID).Error)
	require.Equal(t, models.SessionStatusScheduledForDeletion, scheduled.Status)
	require.NotNil(t, scheduled.ExpiresAt)
	require.Empty(t, scheduled.ActiveUsers)

	// Before the grace period lapses the expiry sweep leaves the row alone.
	require.NoError(t, sweeper.RunOnce(context.Background()))
	require.NoError(t, db.First(&scheduled, "id = ?", session.ID).Error)

	// After the grace period the session and its children are purged.
	clock.Advance(time.Hour + time.Minute)
	require.NoError(t, sweeper.RunOnce(context.Background()))

	err = db.First(&models.CollabSession{}, "id = ?", session.ID).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var participants int64
	require.NoError(t, db.Model(&models.SessionParticipant{}).
		Where("session_id = ?", session.ID).Count(&participants).Error)
	require.Zero(t, participants)
}

func TestSweeperRunOnce_NilServiceIsNoop(t *testing.T) {
	sweeper := NewSweeper(nil)
	require.NoError(t, sweeper.RunOnce(context.Background()))
	require.NoError(t, sweeper.Start())
}

func TestSweeperStartRegistersJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	presence, err := services.NewPresenceService(db)
	require.NoError(t, err)
	collab, err := services.NewCollabService(db, presence)
	require.NoError(t, err)

	c := cron.New(cron.WithLogger(cron.DiscardLogger))
	sweeper := NewSweeper(collab,
		WithCron(c),
		WithLivenessSchedule("@every 1m"),
		WithExpirySchedule("@every 2m"),
	)

	require.NoError(t, sweeper.Start())
	require.Len(t, c.Entries(), 2)
	<-sweeper.Stop().Done()
}
