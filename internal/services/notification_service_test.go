package services

import (
	"context"
	"testing"
	"time"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/realtime"

	"github.com/stretchr/testify/require"
)

func TestNotifications_UnreadNewestFirst(t *testing.T) {
	tickingClock(t)
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")

	first, err := f.svc.Notifications.CreateNotification(ctx, alice.ID, "first")
	require.NoError(t, err)
	_, err = f.svc.Notifications.CreateNotification(ctx, alice.ID, "second")
	require.NoError(t, err)
	_, err = f.svc.Notifications.CreateNotification(ctx, alice.ID, "third")
	require.NoError(t, err)

	require.NoError(t, f.svc.Notifications.MarkAsRead(ctx, first.ID, alice.ID))

	unread, err := f.svc.Notifications.ListForUser(ctx, alice.ID, false)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	require.Equal(t, "third", unread[0].Message)
	require.Equal(t, "second", unread[1].Message)

	all, err := f.svc.Notifications.ListForUser(ctx, alice.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 3)

	count, err := f.svc.Notifications.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	require.Equal(t, []string{realtime.EventReceiveNotification, realtime.EventReceiveNotification, realtime.EventReceiveNotification},
		f.events(t, realtime.UserGroup(alice.ID)))
}

func TestNotifications_OwnershipScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")

	n, err := f.svc.Notifications.CreateNotification(ctx, alice.ID, "for alice")
	require.NoError(t, err)

	err = f.svc.Notifications.MarkAsRead(ctx, n.ID, bob.ID)
	requireKind(t, err, apperr.KindNotFound)

	err = f.svc.Notifications.Delete(ctx, n.ID, bob.ID)
	requireKind(t, err, apperr.KindNotFound)

	require.NoError(t, f.svc.Notifications.Delete(ctx, n.ID, alice.ID))
	err = f.svc.Notifications.MarkAsRead(ctx, n.ID, alice.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestCreateNotification_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")

	_, err := f.svc.Notifications.CreateNotification(ctx, alice.ID, "  ")
	requireKind(t, err, apperr.KindValidation)

	_, err = f.svc.Notifications.CreateNotification(ctx, "ghost", "hello")
	requireKind(t, err, apperr.KindNotFound)
}

func TestMarkAllAsRead_AndPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "Alice")
	for _, msg := range []string{"a", "b"} {
		_, err := f.svc.Notifications.CreateNotification(ctx, alice.ID, msg)
		require.NoError(t, err)
	}

	changed, err := f.svc.Notifications.MarkAllAsRead(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), changed)

	purged, err := f.svc.Notifications.PurgeRead(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(2), purged)

	var left int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&left).Error)
	require.Zero(t, left)
}
