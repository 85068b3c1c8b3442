package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"riteswipe-api/internal/logging"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/outbox"
	"riteswipe-api/internal/payments"
	"riteswipe-api/internal/realtime"
	"riteswipe-api/internal/reports"
	"riteswipe-api/internal/services"
	"riteswipe-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestScheduler_AddAndRunNow(t *testing.T) {
	s := NewScheduler(logging.Discard())
	calls := 0
	require.NoError(t, s.Every("count", time.Hour, func(context.Context) error {
		calls++
		return nil
	}))
	require.Error(t, s.Every("count", time.Hour, func(context.Context) error { return nil }))
	require.Error(t, s.Add("broken", "every now and then", func(context.Context) error { return nil }))
	require.Error(t, s.Every("zero", 0, func(context.Context) error { return nil }))

	require.NoError(t, s.RunNow(t.Context(), "count"))
	require.Equal(t, 1, calls)
	require.Error(t, s.RunNow(t.Context(), "missing"))
	require.Equal(t, []string{"count"}, s.Names())
}

func TestScheduler_RunNowReturnsJobError(t *testing.T) {
	s := NewScheduler(logging.Discard())
	boom := errors.New("boom")
	require.NoError(t, s.Add("fail", "@daily", func(context.Context) error { return boom }))
	require.ErrorIs(t, s.RunNow(t.Context(), "fail"), boom)
}

func TestScheduler_StartRunsSchedule(t *testing.T) {
	s := NewScheduler(logging.Discard())
	ran := make(chan struct{}, 1)
	require.NoError(t, s.Every("tick", time.Second, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	s.Start(ctx)

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}

func TestRegister_Maintenance(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	rep, err := reports.FromGORM(db)
	require.NoError(t, err)
	log := logging.Discard()
	svc := services.New(db, nil, payments.NewLedger(log), rep, nil, services.Options{}, log)
	relay := outbox.NewRelay(db, realtime.NewHub(log), outbox.Options{}, log)

	purged := 0
	s := NewScheduler(log)
	require.NoError(t, Register(s, Maintenance{
		Relay:         relay,
		Notifications: svc.Notifications,
		Caches:        map[string]Purger{"test": PurgerFunc(func() int { purged++; return 2 })},
	}))
	require.ElementsMatch(t, []string{JobOutboxSweep, JobOutboxPurge, JobNotificationPurge, JobCachePurge}, s.Names())

	user, err := testutil.SeedUser(db, "Alice")
	require.NoError(t, err)
	require.NoError(t, outbox.Enqueue(db, realtime.UserGroup(user.ID), realtime.EventStatusUpdate, map[string]any{"userId": user.ID}))

	require.NoError(t, s.RunNow(t.Context(), JobOutboxSweep))
	var pending int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("dispatched = ?", false).Count(&pending).Error)
	require.Zero(t, pending)

	old := time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, db.Create(&models.Notification{ID: "old-read", UserID: user.ID, Message: "old", IsRead: true, CreatedAt: old}).Error)
	require.NoError(t, db.Create(&models.Notification{ID: "old-unread", UserID: user.ID, Message: "old", CreatedAt: old}).Error)

	require.NoError(t, s.RunNow(t.Context(), JobNotificationPurge))
	var ids []string
	require.NoError(t, db.Model(&models.Notification{}).Pluck("id", &ids).Error)
	require.Equal(t, []string{"old-unread"}, ids)

	require.NoError(t, s.RunNow(t.Context(), JobCachePurge))
	require.Equal(t, 1, purged)
}
