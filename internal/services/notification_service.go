package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/outbox"
	"riteswipe-api/internal/realtime"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotificationService records per-user notifications and queues the matching
// realtime pushes. The Notify* methods run inside the caller's transaction.
type NotificationService struct {
	txRunner
	log *logrus.Entry
}

// TaskUpdate is the payload of TaskUpdated pushes.
type TaskUpdate struct {
	TaskID string            `json:"taskId"`
	Title  string            `json:"title"`
	Status models.TaskStatus `json:"status"`
	Note   string            `json:"note,omitempty"`
}

// CreateNotification persists an unread notification for userID.
func (s *NotificationService) CreateNotification(ctx context.Context, userID, message string) (*models.Notification, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation("Notification message is required")
	}
	var n *models.Notification
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		n, err = s.notify(tx, userID, message)
		return err
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) notify(tx *gorm.DB, userID, message string) (*models.Notification, error) {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, storeErr("checking user", err)
	}
	if count == 0 {
		return nil, apperr.NotFound("User", userID)
	}

	n := &models.Notification{
		ID:        newID(),
		UserID:    userID,
		Message:   message,
		CreatedAt: now(),
	}
	if err := tx.Create(n).Error; err != nil {
		return nil, storeErr("saving notification", err)
	}
	if err := s.Emit(tx, realtime.UserGroup(userID), realtime.EventReceiveNotification, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Emit queues a push to group; it is sent after tx commits.
func (s *NotificationService) Emit(tx *gorm.DB, group, event string, payload any) error {
	return storeErr("queueing "+event, outbox.Enqueue(tx, group, event, payload))
}

// NotifyTaskStatusChange tells the owner and every applicant about a status change.
func (s *NotificationService) NotifyTaskStatusChange(tx *gorm.DB, task *models.Task, status string) error {
	message := fmt.Sprintf("Task '%s' status changed to %s", task.Title, status)

	var workerIDs []string
	if err := tx.Model(&models.TaskApplication{}).Where("task_id = ?", task.ID).Order("created_at asc").Pluck("worker_id", &workerIDs).Error; err != nil {
		return storeErr("loading applicants", err)
	}

	recipients := append([]string{task.PostedByUserID}, workerIDs...)
	for _, userID := range recipients {
		if _, err := s.notify(tx, userID, message); err != nil {
			return err
		}
	}

	return s.Emit(tx, realtime.TaskGroup(task.ID), realtime.EventTaskUpdated, TaskUpdate{
		TaskID: task.ID,
		Title:  task.Title,
		Status: task.Status,
		Note:   status,
	})
}

// NotifyNewApplication tells the task owner who applied.
func (s *NotificationService) NotifyNewApplication(tx *gorm.DB, task *models.Task, app *models.TaskApplication, applicant *models.User) error {
	message := fmt.Sprintf("New application received from %s for task '%s'", applicant.FullName, task.Title)
	if _, err := s.notify(tx, task.PostedByUserID, message); err != nil {
		return err
	}
	return s.Emit(tx, realtime.UserGroup(task.PostedByUserID), realtime.EventNewApplication, app)
}

// NotifyApplicationStatusChange tells the worker their application moved.
func (s *NotificationService) NotifyApplicationStatusChange(tx *gorm.DB, task *models.Task, app *models.TaskApplication) error {
	message := fmt.Sprintf("Your application for task '%s' has been %s", task.Title, strings.ToLower(string(app.Status)))
	_, err := s.notify(tx, app.WorkerID, message)
	return err
}

// NotifyNewDispute tells the task owner a dispute was raised.
func (s *NotificationService) NotifyNewDispute(tx *gorm.DB, task *models.Task, dispute *models.TaskDispute, raiser *models.User) error {
	message := fmt.Sprintf("New dispute raised by %s for task '%s'", raiser.FullName, task.Title)
	if _, err := s.notify(tx, task.PostedByUserID, message); err != nil {
		return err
	}
	return s.Emit(tx, realtime.TaskGroup(task.ID), realtime.EventDisputeUpdated, dispute)
}

// NotifyDisputeResolution tells both the owner and the raiser.
func (s *NotificationService) NotifyDisputeResolution(tx *gorm.DB, task *models.Task, dispute *models.TaskDispute) error {
	message := fmt.Sprintf("Dispute for task '%s' has been resolved", task.Title)
	if _, err := s.notify(tx, task.PostedByUserID, message); err != nil {
		return err
	}
	if dispute.RaisedByUserID != task.PostedByUserID {
		if _, err := s.notify(tx, dispute.RaisedByUserID, message); err != nil {
			return err
		}
	}
	return s.Emit(tx, realtime.TaskGroup(task.ID), realtime.EventDisputeUpdated, dispute)
}

// ListForUser returns the user's notifications newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, includeRead bool) ([]models.Notification, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeRead {
		q = q.Where("is_read = ?", false)
	}
	notifications := []models.Notification{}
	if err := q.Order("created_at desc").Find(&notifications).Error; err != nil {
		return nil, storeErr("listing notifications", err)
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, storeErr("counting notifications", err)
	}
	return count, nil
}

// owned loads a notification scoped to its owner, so another user's id is NotFound.
func owned(tx *gorm.DB, id, userID string) (*models.Notification, error) {
	var n models.Notification
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Notification", id)
	}
	if err != nil {
		return nil, storeErr("loading notification", err)
	}
	return &n, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := owned(tx, id, userID)
		if err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		ts := now()
		return storeErr("marking notification read", tx.Model(n).Updates(map[string]any{
			"is_read":     true,
			"read_at":     ts,
			"modified_at": ts,
		}).Error)
	})
}

// MarkAllAsRead marks every unread notification of the user and returns how many changed.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	ts := now()
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": ts, "modified_at": ts})
	if res.Error != nil {
		return 0, storeErr("marking notifications read", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := owned(tx, id, userID)
		if err != nil {
			return err
		}
		return storeErr("deleting notification", tx.Delete(n).Error)
	})
}

// PurgeRead deletes read notifications created before cutoff.
func (s *NotificationService) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, storeErr("purging notifications", res.Error)
	}
	return res.RowsAffected, nil
}
