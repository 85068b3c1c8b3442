package services

import (
	"context"
	"strings"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/lifecycle"
	"riteswipe-api/internal/metrics"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/realtime"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReviewService records post-completion reviews and task disputes.
type ReviewService struct {
	txRunner
	notifier *NotificationService
	log      *logrus.Entry
}

type ReviewInput struct {
	ReviewedUserID string
	Rating         int
	Comment        string
}

type DisputeInput struct {
	Reason   string
	Evidence string
}

// ReviewTask stores a review of a completed task. Any user may review; the
// reviewer's participation is not checked.
func (s *ReviewService) ReviewTask(ctx context.Context, taskID string, in ReviewInput, reviewerID string) (*models.TaskReview, error) {
	switch {
	case in.Rating < 1 || in.Rating > 5:
		return nil, apperr.Validation("Rating must be between 1 and 5")
	case len(in.Comment) > 500:
		return nil, apperr.Validation("Comment must not exceed 500 characters")
	case strings.TrimSpace(in.ReviewedUserID) == "":
		return nil, apperr.Validation("Reviewed user is required")
	case in.ReviewedUserID == reviewerID:
		return nil, apperr.Validation("Cannot review yourself")
	}

	review := &models.TaskReview{
		ID:             newID(),
		TaskID:         taskID,
		ReviewerUserID: reviewerID,
		ReviewedUserID: in.ReviewedUserID,
		Rating:         in.Rating,
		Comment:        in.Comment,
		CreatedAt:      now(),
	}
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.Status != models.TaskCompleted {
			return apperr.Validation("Can only review completed tasks")
		}
		if _, err := findUser(tx, in.ReviewedUserID); err != nil {
			return err
		}
		if err := tx.Create(review).Error; err != nil {
			return storeErr("creating review", err)
		}
		return s.notifier.Emit(tx, realtime.UserGroup(in.ReviewedUserID), realtime.EventNewReview, review)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) ListTaskReviews(ctx context.Context, taskID string) ([]models.TaskReview, error) {
	db := s.db.WithContext(ctx)
	if _, err := findTask(db, taskID); err != nil {
		return nil, err
	}
	reviews := []models.TaskReview{}
	if err := db.Where("task_id = ?", taskID).Order("created_at desc").Find(&reviews).Error; err != nil {
		return nil, storeErr("listing reviews", err)
	}
	return reviews, nil
}

// CreateDispute opens a dispute on a task in any status and tells the owner.
func (s *ReviewService) CreateDispute(ctx context.Context, taskID string, in DisputeInput, callerID string) (*models.TaskDispute, error) {
	reason := strings.TrimSpace(in.Reason)
	switch {
	case reason == "":
		return nil, apperr.Validation("Reason is required")
	case len(reason) > 1000:
		return nil, apperr.Validation("Reason must not exceed 1000 characters")
	case len(in.Evidence) > 2000:
		return nil, apperr.Validation("Evidence must not exceed 2000 characters")
	}

	dispute := &models.TaskDispute{
		ID:             newID(),
		TaskID:         taskID,
		RaisedByUserID: callerID,
		Reason:         reason,
		Evidence:       in.Evidence,
		Status:         models.DisputeOpen,
		CreatedAt:      now(),
	}
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}
		raiser, err := findUser(tx, callerID)
		if err != nil {
			return err
		}
		if err := tx.Create(dispute).Error; err != nil {
			return storeErr("creating dispute", err)
		}
		return s.notifier.NotifyNewDispute(tx, task, dispute, raiser)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"task_id": taskID, "dispute_id": dispute.ID}).Info("dispute raised")
	return dispute, nil
}

// UpdateDisputeStatus moves a dispute along its lifecycle. Only the task
// owner or the raiser may do so; resolving requires resolution text.
func (s *ReviewService) UpdateDisputeStatus(ctx context.Context, disputeID, status, resolution, callerID string) (*models.TaskDispute, error) {
	to, err := lifecycle.ParseDisputeStatus(status)
	if err != nil {
		return nil, err
	}
	resolution = strings.TrimSpace(resolution)
	if to == models.DisputeResolved && resolution == "" {
		return nil, apperr.Validation("Resolution is required to resolve a dispute")
	}
	if len(resolution) > 2000 {
		return nil, apperr.Validation("Resolution must not exceed 2000 characters")
	}

	var dispute *models.TaskDispute
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		dispute, err = first[models.TaskDispute](tx, "TaskDispute", disputeID)
		if err != nil {
			return err
		}
		task, err := findTask(tx, dispute.TaskID)
		if err != nil {
			return err
		}
		if callerID != task.PostedByUserID && callerID != dispute.RaisedByUserID {
			return apperr.Forbidden("You don't have permission to update this dispute")
		}
		if err := lifecycle.DisputeTransition(dispute.Status, to); err != nil {
			return err
		}

		ts := now()
		updates := map[string]any{"status": to, "modified_at": ts}
		if resolution != "" {
			updates["resolution"] = resolution
			dispute.Resolution = resolution
		}
		if err := tx.Model(dispute).Updates(updates).Error; err != nil {
			return storeErr("updating dispute", err)
		}
		dispute.Status = to
		dispute.ModifiedAt = &ts

		if to == models.DisputeResolved {
			return s.notifier.NotifyDisputeResolution(tx, task, dispute)
		}
		return s.notifier.Emit(tx, realtime.TaskGroup(task.ID), realtime.EventDisputeUpdated, dispute)
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("dispute", string(to))
	return dispute, nil
}

func (s *ReviewService) ListTaskDisputes(ctx context.Context, taskID string) ([]models.TaskDispute, error) {
	db := s.db.WithContext(ctx)
	if _, err := findTask(db, taskID); err != nil {
		return nil, err
	}
	disputes := []models.TaskDispute{}
	if err := db.Where("task_id = ?", taskID).Order("created_at desc").Find(&disputes).Error; err != nil {
		return nil, storeErr("listing disputes", err)
	}
	return disputes, nil
}
