package services

import (
	"context"
	"testing"
	"time"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/auth"
	"riteswipe-api/internal/logging"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/payments"
	"riteswipe-api/internal/reports"
	"riteswipe-api/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type kickCounter struct{ kicks int }

func (k *kickCounter) Kick() { k.kicks++ }

type fixture struct {
	db     *gorm.DB
	svc    *Services
	ledger *payments.Ledger
	kicks  *kickCounter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	rep, err := reports.FromGORM(db)
	require.NoError(t, err)

	log := logging.Discard()
	ledger := payments.NewLedger(log)
	kicks := &kickCounter{}
	limiter := auth.NewMemoryAttemptLimiter(3, time.Minute)
	svc := New(db, kicks, ledger, rep, limiter, Options{SwipePageSize: 10, DemandCacheTTL: time.Minute}, log)
	return &fixture{db: db, svc: svc, ledger: ledger, kicks: kicks}
}

// tickingClock makes every now() call one second later than the last.
func tickingClock(t *testing.T) {
	t.Helper()
	orig := now
	base := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	t.Cleanup(func() { now = orig })
}

func (f *fixture) user(t *testing.T, name string) models.User {
	t.Helper()
	u, err := testutil.SeedUser(f.db, name)
	require.NoError(t, err)
	return u
}

func (f *fixture) skill(t *testing.T, name string) models.Skill {
	t.Helper()
	s, err := testutil.SeedSkill(f.db, name)
	require.NoError(t, err)
	return s
}

func (f *fixture) task(t *testing.T, ownerID string, skillID *string, status models.TaskStatus) models.Task {
	t.Helper()
	task, err := testutil.SeedTask(f.db, ownerID, skillID, status, 50, 100)
	require.NoError(t, err)
	return task
}

func (f *fixture) messages(t *testing.T, userID string) []string {
	t.Helper()
	var msgs []string
	require.NoError(t, f.db.Model(&models.Notification{}).Where("user_id = ?", userID).Order("created_at asc").Pluck("message", &msgs).Error)
	return msgs
}

func (f *fixture) events(t *testing.T, group string) []string {
	t.Helper()
	var events []string
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Where("group_name = ?", group).Order("created_at asc").Pluck("event", &events).Error)
	return events
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), err.Error())
}

func TestInTx_KicksOnlyAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "Alice")

	_, err := f.svc.Notifications.CreateNotification(ctx, owner.ID, "hello")
	require.NoError(t, err)
	require.Equal(t, 1, f.kicks.kicks)

	_, err = f.svc.Notifications.CreateNotification(ctx, "missing", "hello")
	requireKind(t, err, apperr.KindNotFound)
	require.Equal(t, 1, f.kicks.kicks)
}
