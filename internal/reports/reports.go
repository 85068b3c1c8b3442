// Package reports serves read-only aggregate views straight from SQL.
package reports

import (
	"context"
	"fmt"
	"time"

	"riteswipe-api/internal/database"
	"riteswipe-api/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Reports struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Reports {
	return &Reports{db: db}
}

// FromGORM shares the connection pool of an open GORM handle.
func FromGORM(gdb *gorm.DB) (*Reports, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql handle: %w", err)
	}
	return New(sqlx.NewDb(sqlDB, database.DriverName(gdb))), nil
}

// EscrowRow is one escrow payment of a task posted by the user.
type EscrowRow struct {
	ID            string          `db:"id" json:"id"`
	TaskID        string          `db:"task_id" json:"taskId"`
	TaskTitle     string          `db:"title" json:"taskTitle"`
	AmountHeld    decimal.Decimal `db:"amount_held" json:"amountHeld"`
	PaymentStatus string          `db:"payment_status" json:"paymentStatus"`
	IsReleased    bool            `db:"is_released" json:"isReleased"`
	ReleasedAt    *time.Time      `db:"released_at" json:"releasedAt"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

// UserStats summarises a user's activity on both sides of the marketplace.
type UserStats struct {
	PostedTasks          int64   `db:"posted_tasks" json:"postedTasks"`
	OpenTasks            int64   `db:"open_tasks" json:"openTasks"`
	CompletedTasks       int64   `db:"completed_tasks" json:"completedTasks"`
	Applications         int64   `db:"applications" json:"applications"`
	AcceptedApplications int64   `db:"accepted_applications" json:"acceptedApplications"`
	ReviewsReceived      int64   `db:"reviews_received" json:"reviewsReceived"`
	AverageRating        float64 `db:"average_rating" json:"averageRating"`
}

const heldAmountsQuery = `
SELECT e.amount_held
FROM escrow_payments e
JOIN tasks t ON t.id = e.task_id
WHERE t.posted_by_user_id = ? AND e.is_released = ?`

// HeldAmountForUser sums unreleased escrow on tasks the user posted.
func (r *Reports) HeldAmountForUser(ctx context.Context, userID string) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := r.db.SelectContext(ctx, &amounts, r.db.Rebind(heldAmountsQuery), userID, false); err != nil {
		return decimal.Zero, fmt.Errorf("loading held amounts: %w", err)
	}
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total, nil
}

const userEscrowQuery = `
SELECT e.id, e.task_id, t.title, e.amount_held, e.payment_status, e.is_released, e.released_at, e.created_at
FROM escrow_payments e
JOIN tasks t ON t.id = e.task_id
WHERE t.posted_by_user_id = ?
ORDER BY e.created_at DESC`

// UserEscrowPayments lists every escrow payment on tasks the user posted.
func (r *Reports) UserEscrowPayments(ctx context.Context, userID string) ([]EscrowRow, error) {
	rows := []EscrowRow{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(userEscrowQuery), userID); err != nil {
		return nil, fmt.Errorf("loading escrow payments: %w", err)
	}
	return rows, nil
}

const userStatsQuery = `
SELECT
  (SELECT COUNT(*) FROM tasks WHERE posted_by_user_id = ?) AS posted_tasks,
  (SELECT COUNT(*) FROM tasks WHERE posted_by_user_id = ? AND status = ?) AS open_tasks,
  (SELECT COUNT(*) FROM tasks WHERE posted_by_user_id = ? AND status = ?) AS completed_tasks,
  (SELECT COUNT(*) FROM task_applications WHERE worker_id = ?) AS applications,
  (SELECT COUNT(*) FROM task_applications WHERE worker_id = ? AND status = ?) AS accepted_applications,
  (SELECT COUNT(*) FROM task_reviews WHERE reviewed_user_id = ?) AS reviews_received,
  COALESCE((SELECT AVG(rating) FROM task_reviews WHERE reviewed_user_id = ?), 0) AS average_rating`

func (r *Reports) UserStats(ctx context.Context, userID string) (UserStats, error) {
	var stats UserStats
	err := r.db.GetContext(ctx, &stats, r.db.Rebind(userStatsQuery),
		userID,
		userID, models.TaskOpen,
		userID, models.TaskCompleted,
		userID,
		userID, models.ApplicationAccepted,
		userID,
		userID,
	)
	if err != nil {
		return UserStats{}, fmt.Errorf("loading stats for user %s: %w", userID, err)
	}
	return stats, nil
}
