package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codecraft-dev/codecraft/internal/database/testutil"
)

func TestUsers_SyncUpsertsProfile(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Sync(context.Background(), "idp|123", "Alice", "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "idp|123", user.ID)
	require.Equal(t, "Alice", user.Name)

	// A second sync updates the profile without duplicating the row.
	user, err = svc.Sync(context.Background(), "idp|123", "Alice Cooper", "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "Alice Cooper", user.Name)

	got, err := svc.Get(context.Background(), "idp|123")
	require.NoError(t, err)
	require.Equal(t, "Alice Cooper", got.Name)
}

func TestUsers_SyncPreservesBillingState(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)
	seedProUser(t, db, "idp|pro", "Bob")

	user, err := svc.Sync(context.Background(), "idp|pro", "Bobby", "bob@example.com")
	require.NoError(t, err)
	require.True(t, user.IsPro)
	require.Equal(t, "Bobby", user.Name)
}

func TestUsers_GetMissing(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}
