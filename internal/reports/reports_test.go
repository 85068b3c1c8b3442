package reports

import (
	"context"
	"regexp"
	"testing"
	"time"

	"riteswipe-api/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Reports, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestHeldAmountForUser(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.amount_held")).
		WithArgs("owner-1", false).
		WillReturnRows(sqlmock.NewRows([]string{"amount_held"}).AddRow("75.50").AddRow("24.50"))

	total, err := r.HeldAmountForUser(context.Background(), "owner-1")
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(100).Equal(total), total.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHeldAmountForUser_None(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.amount_held")).
		WithArgs("owner-2", false).
		WillReturnRows(sqlmock.NewRows([]string{"amount_held"}))

	total, err := r.HeldAmountForUser(context.Background(), "owner-2")
	require.NoError(t, err)
	require.True(t, total.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserEscrowPayments(t *testing.T) {
	r, mock := newMock(t)
	created := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	released := created.Add(48 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.id, e.task_id, t.title")).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "title", "amount_held", "payment_status", "is_released", "released_at", "created_at"}).
			AddRow("e-2", "t-2", "Fix sink", "80", "Released", true, released, created).
			AddRow("e-1", "t-1", "Paint fence", "60", "Held", false, nil, created))

	rows, err := r.UserEscrowPayments(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Fix sink", rows[0].TaskTitle)
	require.True(t, rows[0].IsReleased)
	require.NotNil(t, rows[0].ReleasedAt)
	require.Nil(t, rows[1].ReleasedAt)
	require.True(t, decimal.NewFromInt(60).Equal(rows[1].AmountHeld))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStats(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COUNT(*) FROM tasks WHERE posted_by_user_id = ?) AS posted_tasks")).
		WithArgs("u-1", "u-1", models.TaskOpen, "u-1", models.TaskCompleted, "u-1", "u-1", models.ApplicationAccepted, "u-1", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"posted_tasks", "open_tasks", "completed_tasks", "applications",
			"accepted_applications", "reviews_received", "average_rating",
		}).AddRow(4, 2, 1, 3, 1, 2, 4.5))

	stats, err := r.UserStats(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, int64(4), stats.PostedTasks)
	require.Equal(t, int64(1), stats.AcceptedApplications)
	require.Equal(t, 4.5, stats.AverageRating)
	require.NoError(t, mock.ExpectationsWereMet())
}
