package services

import (
	"context"
	"errors"
	"fmt"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/lifecycle"
	"riteswipe-api/internal/metrics"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/payments"
	"riteswipe-api/internal/realtime"
	"riteswipe-api/internal/reports"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EscrowService holds a task's price with the payment gateway and settles it
// by release to the worker or refund to the owner.
type EscrowService struct {
	txRunner
	notifier *NotificationService
	gateway  payments.Gateway
	reports  *reports.Reports
	log      *logrus.Entry
}

// HoldRestorer re-registers holds that are still open in the database.
type HoldRestorer interface {
	Restore(ref, taskID, payerID string, amount decimal.Decimal)
}

func (s *EscrowService) escrowFor(tx *gorm.DB, taskID string) (*models.EscrowPayment, error) {
	var escrow models.EscrowPayment
	err := tx.Where("task_id = ?", taskID).First(&escrow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("loading escrow", err)
	}
	return &escrow, nil
}

// CreateEscrowPayment holds amount for the task. The amount must lie within
// the task's price range and a task has at most one escrow payment.
func (s *EscrowService) CreateEscrowPayment(ctx context.Context, taskID string, amount decimal.Decimal, callerID string) (*models.EscrowPayment, error) {
	var (
		escrow *models.EscrowPayment
		ref    string
		payer  string
	)
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.PostedByUserID != callerID {
			return apperr.Forbidden("Only the task owner can create an escrow payment")
		}
		existing, err := s.escrowFor(tx, taskID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict("Escrow payment already exists for this task")
		}
		if !amount.IsPositive() || amount.LessThan(task.MinPrice) || amount.GreaterThan(task.MaxPrice) {
			return apperr.Validation("Invalid payment amount")
		}

		payer = task.PostedByUserID
		ref, err = s.gateway.Hold(ctx, task.ID, payer, amount)
		if err != nil {
			return apperr.Internal("holding funds", err)
		}

		escrow = &models.EscrowPayment{
			ID:            newID(),
			TaskID:        task.ID,
			AmountHeld:    amount,
			PaymentStatus: models.PaymentHeld,
			GatewayRef:    ref,
			CreatedAt:     now(),
		}
		if err := tx.Create(escrow).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("Escrow payment already exists for this task")
			}
			return storeErr("creating escrow", err)
		}

		message := fmt.Sprintf("Escrow payment of $%s created for task '%s'", amount.StringFixed(2), task.Title)
		if _, err := s.notifier.notify(tx, task.PostedByUserID, message); err != nil {
			return err
		}
		return s.notifier.Emit(tx, realtime.TaskGroup(task.ID), realtime.EventEscrowUpdated, escrow)
	})
	if err != nil {
		if ref != "" {
			s.voidHold(ctx, payments.HoldRef{Ref: ref, TaskID: taskID, PayerID: payer, Amount: amount})
		}
		return nil, err
	}

	metrics.Transition("escrow", string(models.PaymentHeld))
	s.log.WithFields(logrus.Fields{"task_id": taskID, "amount": amount.StringFixed(2)}).Info("escrow created")
	return escrow, nil
}

// voidHold returns funds held for a create that did not commit.
func (s *EscrowService) voidHold(ctx context.Context, h payments.HoldRef) {
	if err := s.gateway.Refund(ctx, h, h.PayerID); err != nil {
		s.log.WithError(err).WithField("ref", h.Ref).Error("failed to void orphaned hold")
	}
}

// ReleasePayment pays the held amount to the accepted worker. Owner only.
func (s *EscrowService) ReleasePayment(ctx context.Context, taskID, callerID string) (*models.EscrowPayment, error) {
	return s.settle(ctx, taskID, callerID, models.PaymentReleased)
}

// RefundPayment returns the held amount to the owner. Owner only.
func (s *EscrowService) RefundPayment(ctx context.Context, taskID, callerID string) (*models.EscrowPayment, error) {
	return s.settle(ctx, taskID, callerID, models.PaymentRefunded)
}

func (s *EscrowService) settle(ctx context.Context, taskID, callerID string, to models.PaymentStatus) (*models.EscrowPayment, error) {
	var escrow *models.EscrowPayment
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.PostedByUserID != callerID {
			if to == models.PaymentRefunded {
				return apperr.Forbidden("Only the task owner can request a refund")
			}
			return apperr.Forbidden("Only the task owner can release the payment")
		}

		escrow, err = s.escrowFor(tx, taskID)
		if err != nil {
			return err
		}
		if escrow == nil {
			return apperr.Validation("No escrow payment found for this task")
		}
		if escrow.IsReleased {
			if to == models.PaymentRefunded {
				return apperr.Validation("Cannot refund a released payment")
			}
			return apperr.Validation("Payment has already been released")
		}
		if err := lifecycle.EscrowTransition(escrow.PaymentStatus, to); err != nil {
			return err
		}

		worker, err := acceptedWorker(tx, taskID)
		if err != nil {
			return err
		}

		ts := now()
		escrow.PaymentStatus = to
		escrow.IsReleased = true
		escrow.ReleasedAt = &ts
		escrow.ModifiedAt = &ts
		if err := tx.Save(escrow).Error; err != nil {
			return storeErr("settling escrow", err)
		}

		amount := escrow.AmountHeld.StringFixed(2)
		switch to {
		case models.PaymentReleased:
			if worker != "" {
				message := fmt.Sprintf("Payment of $%s has been released for task '%s'", amount, task.Title)
				if _, err := s.notifier.notify(tx, worker, message); err != nil {
					return err
				}
			}
		case models.PaymentRefunded:
			message := fmt.Sprintf("Refund of $%s processed for task '%s'", amount, task.Title)
			if _, err := s.notifier.notify(tx, callerID, message); err != nil {
				return err
			}
		}
		if err := s.notifier.Emit(tx, realtime.TaskGroup(task.ID), realtime.EventEscrowUpdated, escrow); err != nil {
			return err
		}

		// Funds move last so any earlier failure rolls back with nothing paid out.
		// A retry after a failed commit repeats the same settlement, which the
		// gateway treats as done.
		hold := payments.HoldRef{
			Ref:     escrow.GatewayRef,
			TaskID:  task.ID,
			PayerID: task.PostedByUserID,
			Amount:  escrow.AmountHeld,
		}
		if to == models.PaymentRefunded {
			err = s.gateway.Refund(ctx, hold, task.PostedByUserID)
		} else {
			payee := worker
			if payee == "" {
				payee = task.PostedByUserID
			}
			err = s.gateway.Release(ctx, hold, payee)
		}
		if err != nil {
			return apperr.Internal("settling funds", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition("escrow", string(to))
	s.log.WithFields(logrus.Fields{"task_id": taskID, "status": to}).Info("escrow settled")
	return escrow, nil
}

// acceptedWorker returns the worker of the task's accepted application, or "".
func acceptedWorker(tx *gorm.DB, taskID string) (string, error) {
	var ids []string
	err := tx.Model(&models.TaskApplication{}).
		Where("task_id = ? AND status = ?", taskID, models.ApplicationAccepted).
		Limit(1).
		Pluck("worker_id", &ids).Error
	if err != nil {
		return "", storeErr("loading accepted worker", err)
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

// GetByTaskID returns the task's escrow payment, NotFound if there is none.
func (s *EscrowService) GetByTaskID(ctx context.Context, taskID string) (*models.EscrowPayment, error) {
	escrow, err := s.escrowFor(s.db.WithContext(ctx), taskID)
	if err != nil {
		return nil, err
	}
	if escrow == nil {
		return nil, apperr.NotFound("EscrowPayment", taskID)
	}
	return escrow, nil
}

func (s *EscrowService) IsPaymentHeld(ctx context.Context, taskID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.EscrowPayment{}).
		Where("task_id = ? AND is_released = ?", taskID, false).
		Count(&count).Error
	if err != nil {
		return false, storeErr("checking escrow", err)
	}
	return count > 0, nil
}

// GetHeldAmountForUser sums unreleased escrow on tasks the user posted.
func (s *EscrowService) GetHeldAmountForUser(ctx context.Context, userID string) (decimal.Decimal, error) {
	total, err := s.reports.HeldAmountForUser(ctx, userID)
	if err != nil {
		return decimal.Zero, apperr.Internal("loading held amount", err)
	}
	return total, nil
}

func (s *EscrowService) GetUserEscrowPayments(ctx context.Context, userID string) ([]reports.EscrowRow, error) {
	rows, err := s.reports.UserEscrowPayments(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("loading escrow payments", err)
	}
	return rows, nil
}

// RestoreHolds hands every still-held escrow to r, returning how many.
func (s *EscrowService) RestoreHolds(ctx context.Context, r HoldRestorer) (int, error) {
	var rows []struct {
		GatewayRef     string
		TaskID         string
		PostedByUserID string
		AmountHeld     decimal.Decimal
	}
	err := s.db.WithContext(ctx).Model(&models.EscrowPayment{}).
		Select("escrow_payments.gateway_ref, escrow_payments.task_id, tasks.posted_by_user_id, escrow_payments.amount_held").
		Joins("JOIN tasks ON tasks.id = escrow_payments.task_id").
		Where("escrow_payments.is_released = ? AND escrow_payments.gateway_ref <> ''", false).
		Scan(&rows).Error
	if err != nil {
		return 0, storeErr("loading held escrow", err)
	}
	for _, row := range rows {
		r.Restore(row.GatewayRef, row.TaskID, row.PostedByUserID, row.AmountHeld)
	}
	return len(rows), nil
}
