package services

import (
	"context"
	"strings"
	"time"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/lifecycle"
	"riteswipe-api/internal/metrics"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/realtime"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TaskService owns the task lifecycle: posting, swiping, applying and the
// owner-driven status changes.
type TaskService struct {
	txRunner
	notifier *NotificationService
	pageSize int
	log      *logrus.Entry
}

// TaskInput carries the editable fields of a task.
type TaskInput struct {
	Title           string
	Description     string
	SkillRequiredID string
	Location        string
	MinPrice        decimal.Decimal
	MaxPrice        decimal.Decimal
	Deadline        *time.Time
}

// TaskView is a task with the names clients display next to it.
type TaskView struct {
	models.Task
	SkillName        string `json:"skillName"`
	PostedByUserName string `json:"postedByUserName"`
}

// TaskQuery filters and pages ListTasks.
type TaskQuery struct {
	Status string
	Page   int
	Limit  int
	Sort   string
}

// TaskPage is one page of ListTasks.
type TaskPage struct {
	Tasks []TaskView `json:"tasks"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Total int64      `json:"total"`
}

// ApplicationInput is a worker's bid.
type ApplicationInput struct {
	CoverLetter       string
	ProposedRate      decimal.Decimal
	EstimatedDuration int
}

// TaskMatch is pushed to the owner when someone swipes right.
type TaskMatch struct {
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
	UserID string `json:"userId"`
}

func (in TaskInput) validate() error {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return apperr.Validation("Title is required")
	case len(title) > 100:
		return apperr.Validation("Title must not exceed 100 characters")
	case len(in.Description) > 1000:
		return apperr.Validation("Description must not exceed 1000 characters")
	case len(in.Location) > 200:
		return apperr.Validation("Location must not exceed 200 characters")
	case in.MinPrice.IsNegative():
		return apperr.Validation("Minimum price must not be negative")
	case in.MaxPrice.LessThan(in.MinPrice):
		return apperr.Validation("Maximum price must be greater than or equal to minimum price")
	case in.Deadline != nil && !in.Deadline.After(now()):
		return apperr.Validation("Deadline must be in the future")
	}
	return nil
}

// CreateTask posts an open task for ownerID. The required skill must exist.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, in TaskInput) (*TaskView, error) {
	if strings.TrimSpace(in.SkillRequiredID) == "" {
		return nil, apperr.Validation("Skill is required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:              newID(),
		PostedByUserID:  ownerID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		SkillRequiredID: &in.SkillRequiredID,
		Location:        in.Location,
		MinPrice:        in.MinPrice,
		MaxPrice:        in.MaxPrice,
		CurrentRate:     in.MinPrice,
		Status:          models.TaskOpen,
		Deadline:        in.Deadline,
		CreatedAt:       now(),
	}
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if _, err := findUser(tx, ownerID); err != nil {
			return err
		}
		if _, err := findSkill(tx, in.SkillRequiredID); err != nil {
			return err
		}
		return storeErr("creating task", tx.Create(task).Error)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"task_id": task.ID, "owner_id": ownerID}).Info("task created")
	return s.GetTask(ctx, task.ID)
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*TaskView, error) {
	db := s.db.WithContext(ctx)
	task, err := findTask(db, id)
	if err != nil {
		return nil, err
	}
	views, err := withNames(db, []models.Task{*task})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListTasks pages through every task, optionally filtered by status.
func (s *TaskService) ListTasks(ctx context.Context, q TaskQuery) (*TaskPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 5
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	order := "created_at desc"
	if strings.EqualFold(q.Sort, "asc") {
		order = "created_at asc"
	}

	db := s.db.WithContext(ctx)
	query := db.Model(&models.Task{})
	if q.Status != "" {
		status, err := lifecycle.ParseTaskStatus(q.Status)
		if err != nil {
			return nil, err
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, storeErr("counting tasks", err)
	}

	var tasks []models.Task
	err := query.Session(&gorm.Session{}).Order(order).Limit(q.Limit).Offset((q.Page - 1) * q.Limit).Find(&tasks).Error
	if err != nil {
		return nil, storeErr("listing tasks", err)
	}
	views, err := withNames(db, tasks)
	if err != nil {
		return nil, err
	}
	return &TaskPage{Tasks: views, Page: q.Page, Limit: q.Limit, Total: total}, nil
}

// UpdateTask replaces the editable fields of an open task. Owner only.
func (s *TaskService) UpdateTask(ctx context.Context, id string, in TaskInput, callerID string) (*TaskView, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		task, err := findTask(tx, id)
		if err != nil {
			return err
		}
		if task.PostedByUserID != callerID {
			return apperr.Forbidden("You don't have permission to update this task")
		}
		if task.Status != models.TaskOpen {
			return apperr.Validation("Cannot update a task that is not open")
		}

		task.Title = strings.TrimSpace(in.Title)
		task.Description = in.Description
		task.Location = in.Location
		task.MinPrice = in.MinPrice
		task.MaxPrice = in.MaxPrice
		task.Deadline = in.Deadline
		if task.CurrentRate.LessThan(in.MinPrice) || task.CurrentRate.GreaterThan(in.MaxPrice) {
			task.CurrentRate = in.MinPrice
		}
		task.ModifiedAt = timePtr(now())
		if err := tx.Save(task).Error; err != nil {
			return storeErr("updating task", err)
		}
		return s.notifier.Emit(tx, realtime.TaskGroup(task.ID), realtime.EventTaskUpdated, TaskUpdate{
			TaskID: task.ID,
			Title:  task.Title,
			Status: task.Status,
			Note:   "Updated",
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes an open task with everything hanging off it: swipes,
// applications, a settled escrow, reviews, disputes and its already
// dispatched events. Owner only.
func (s *TaskService) DeleteTask(ctx context.Context, id, callerID string) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		task, err := findTask(tx, id)
		if err != nil {
			return err
		}
		if task.PostedByUserID != callerID {
			return apperr.Forbidden("You don't have permission to delete this task")
		}
		if task.Status != models.TaskOpen {
			return apperr.Validation("Cannot delete a task that is not open")
		}

		var held int64
		if err := tx.Model(&models.EscrowPayment{}).Where("task_id = ? AND is_released = ?", id, false).Count(&held).Error; err != nil {
			return storeErr("checking escrow", err)
		}
		if held > 0 {
			return apperr.Validation("Cannot delete a task with a held escrow payment")
		}

		if err := tx.Where("task_id = ?", id).Delete(&models.Swipe{}).Error; err != nil {
			return storeErr("deleting swipes", err)
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskApplication{}).Error; err != nil {
			return storeErr("deleting applications", err)
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.EscrowPayment{}).Error; err != nil {
			return storeErr("deleting escrow", err)
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskReview{}).Error; err != nil {
			return storeErr("deleting reviews", err)
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskDispute{}).Error; err != nil {
			return storeErr("deleting disputes", err)
		}
		// undelivered events stay so sinks still receive them
		if err := tx.Where("group_name = ? AND dispatched = ?", realtime.TaskGroup(id), true).Delete(&models.OutboxEvent{}).Error; err != nil {
			return storeErr("deleting task events", err)
		}
		return storeErr("deleting task", tx.Delete(task).Error)
	})
}

// SwipeTask records userID's one swipe on an open task. A right swipe raises
// the task's demand index and tells the owner, but leaves its status alone.
func (s *TaskService) SwipeTask(ctx context.Context, taskID, userID, direction string) (*models.Swipe, error) {
	dir, err := lifecycle.ParseSwipeDirection(direction)
	if err != nil {
		return nil, err
	}

	swipe := &models.Swipe{ID: newID(), UserID: userID, TaskID: taskID, Direction: dir, CreatedAt: now()}
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.PostedByUserID == userID {
			return apperr.Validation("Cannot swipe on your own task")
		}
		if task.Status != models.TaskOpen {
			return apperr.Validation("Cannot swipe on a closed task")
		}

		var existing int64
		if err := tx.Model(&models.Swipe{}).Where("task_id = ? AND user_id = ?", taskID, userID).Count(&existing).Error; err != nil {
			return storeErr("checking swipe", err)
		}
		if existing > 0 {
			return apperr.Conflict("Already swiped on this task")
		}
		if err := tx.Create(swipe).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("Already swiped on this task")
			}
			return storeErr("creating swipe", err)
		}

		if dir != models.SwipeRight {
			return nil
		}
		if err := tx.Model(task).UpdateColumn("demand_index", gorm.Expr("demand_index + ?", 1)).Error; err != nil {
			return storeErr("updating demand", err)
		}
		if err := s.notifier.NotifyTaskStatusChange(tx, task, "Swiped Right"); err != nil {
			return err
		}
		return s.notifier.Emit(tx, realtime.UserGroup(task.PostedByUserID), realtime.EventTaskMatch, TaskMatch{
			TaskID: task.ID,
			Title:  task.Title,
			UserID: userID,
		})
	})
	if err != nil {
		return nil, err
	}
	return swipe, nil
}

// ApplyToTask creates a pending application and tells the owner.
func (s *TaskService) ApplyToTask(ctx context.Context, taskID string, in ApplicationInput, userID string) (*models.TaskApplication, error) {
	if !in.ProposedRate.IsPositive() {
		return nil, apperr.Validation("Proposed rate must be greater than zero")
	}
	if len(in.CoverLetter) > 1000 {
		return nil, apperr.Validation("Cover letter must not exceed 1000 characters")
	}
	if in.EstimatedDuration < 0 {
		return nil, apperr.Validation("Estimated duration must not be negative")
	}

	app := &models.TaskApplication{
		ID:                newID(),
		TaskID:            taskID,
		WorkerID:          userID,
		CoverLetter:       in.CoverLetter,
		ProposedRate:      in.ProposedRate,
		EstimatedDuration: in.EstimatedDuration,
		Status:            models.ApplicationPending,
		CreatedAt:         now(),
	}
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		task, err := findTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.PostedByUserID == userID {
			return apperr.Validation("Cannot apply to your own task")
		}
		if task.Status != models.TaskOpen {
			return apperr.Validation("Cannot apply to a closed task")
		}
		applicant, err := findUser(tx, userID)
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.TaskApplication{}).Where("task_id = ? AND worker_id = ?", taskID, userID).Count(&existing).Error; err != nil {
			return storeErr("checking application", err)
		}
		if existing > 0 {
			return apperr.Conflict("Already applied to this task")
		}
		if err := tx.Create(app).Error; err != nil {
			if isDuplicate(err) {
				return apperr.Conflict("Already applied to this task")
			}
			return storeErr("creating application", err)
		}
		return s.notifier.NotifyNewApplication(tx, task, app, applicant)
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// UpdateTaskStatus moves a task along its lifecycle. Owner only.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, taskID, status, callerID string) (*models.Task, error) {
	var task *models.Task
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		task, err = findTask(tx, taskID)
		if err != nil {
			return err
		}
		if task.PostedByUserID != callerID {
			return apperr.Forbidden("You don't have permission to update this task's status")
		}
		to, err := lifecycle.ParseTaskStatus(status)
		if err != nil {
			return err
		}
		if lifecycle.IsTerminalTask(task.Status) {
			return apperr.Validation("Task is already %s", task.Status)
		}
		if err := lifecycle.TaskTransition(task.Status, to); err != nil {
			return err
		}
		return s.setTaskStatus(tx, task, to)
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("task", string(task.Status))
	return task, nil
}

func (s *TaskService) setTaskStatus(tx *gorm.DB, task *models.Task, to models.TaskStatus) error {
	ts := now()
	if err := tx.Model(task).Updates(map[string]any{"status": to, "modified_at": ts}).Error; err != nil {
		return storeErr("updating task status", err)
	}
	task.Status = to
	task.ModifiedAt = &ts
	return s.notifier.NotifyTaskStatusChange(tx, task, string(to))
}

// UpdateApplicationStatus lets the owner accept or reject a pending
// application and the worker cancel their own. Accepting assigns the task.
func (s *TaskService) UpdateApplicationStatus(ctx context.Context, appID, status, callerID string) (*models.TaskApplication, error) {
	to, err := lifecycle.ParseApplicationStatus(status)
	if err != nil {
		return nil, err
	}

	var app *models.TaskApplication
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		var err error
		app, err = first[models.TaskApplication](tx, "TaskApplication", appID)
		if err != nil {
			return err
		}
		task, err := findTask(tx, app.TaskID)
		if err != nil {
			return err
		}

		switch to {
		case models.ApplicationCancelled:
			if app.WorkerID != callerID {
				return apperr.Forbidden("Only the applicant can cancel this application")
			}
		default:
			if task.PostedByUserID != callerID {
				return apperr.Forbidden("You don't have permission to update this application")
			}
		}
		if err := lifecycle.ApplicationTransition(app.Status, to); err != nil {
			return err
		}

		if to == models.ApplicationAccepted {
			if task.Status != models.TaskOpen {
				return apperr.Validation("Cannot accept an application for a task that is not open")
			}
			var accepted int64
			if err := tx.Model(&models.TaskApplication{}).Where("task_id = ? AND status = ?", task.ID, models.ApplicationAccepted).Count(&accepted).Error; err != nil {
				return storeErr("checking accepted applications", err)
			}
			if accepted > 0 {
				return apperr.Conflict("Task already has an accepted application")
			}
		}

		ts := now()
		if err := tx.Model(app).Updates(map[string]any{"status": to, "modified_at": ts}).Error; err != nil {
			return storeErr("updating application", err)
		}
		app.Status = to
		app.ModifiedAt = &ts

		if err := s.notifier.NotifyApplicationStatusChange(tx, task, app); err != nil {
			return err
		}
		if to == models.ApplicationAccepted {
			if err := lifecycle.TaskTransition(task.Status, models.TaskInProgress); err != nil {
				return err
			}
			return s.setTaskStatus(tx, task, models.TaskInProgress)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("application", string(app.Status))
	return app, nil
}

// ListApplications returns the applications on a task, oldest first. Owner only.
func (s *TaskService) ListApplications(ctx context.Context, taskID, callerID string) ([]models.TaskApplication, error) {
	db := s.db.WithContext(ctx)
	task, err := findTask(db, taskID)
	if err != nil {
		return nil, err
	}
	if task.PostedByUserID != callerID {
		return nil, apperr.Forbidden("You don't have permission to view applications for this task")
	}
	apps := []models.TaskApplication{}
	if err := db.Where("task_id = ?", taskID).Order("created_at asc").Find(&apps).Error; err != nil {
		return nil, storeErr("listing applications", err)
	}
	return apps, nil
}

func (s *TaskService) PostedTasks(ctx context.Context, userID string) ([]TaskView, error) {
	db := s.db.WithContext(ctx)
	var tasks []models.Task
	if err := db.Where("posted_by_user_id = ?", userID).Order("created_at desc").Find(&tasks).Error; err != nil {
		return nil, storeErr("listing posted tasks", err)
	}
	return withNames(db, tasks)
}

func (s *TaskService) AppliedTasks(ctx context.Context, userID string) ([]TaskView, error) {
	db := s.db.WithContext(ctx)
	applied := db.Model(&models.TaskApplication{}).Select("task_id").Where("worker_id = ?", userID)
	var tasks []models.Task
	if err := db.Where("id IN (?)", applied).Order("created_at desc").Find(&tasks).Error; err != nil {
		return nil, storeErr("listing applied tasks", err)
	}
	return withNames(db, tasks)
}

// TasksForSwiping returns open tasks matching the user's skills that they
// neither own nor have already swiped or applied to, newest first.
func (s *TaskService) TasksForSwiping(ctx context.Context, userID string, limit int) ([]TaskView, error) {
	if limit <= 0 || limit > 100 {
		limit = s.pageSize
	}
	db := s.db.WithContext(ctx)

	skills := db.Model(&models.UserSkill{}).Select("skill_id").Where("user_id = ?", userID)
	swiped := db.Model(&models.Swipe{}).Select("task_id").Where("user_id = ?", userID)
	applied := db.Model(&models.TaskApplication{}).Select("task_id").Where("worker_id = ?", userID)

	var tasks []models.Task
	err := db.Where("status = ?", models.TaskOpen).
		Where("posted_by_user_id <> ?", userID).
		Where("skill_required_id IN (?)", skills).
		Where("id NOT IN (?)", swiped).
		Where("id NOT IN (?)", applied).
		Order("created_at desc").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, storeErr("listing swipe candidates", err)
	}
	return withNames(db, tasks)
}

// withNames attaches skill and owner names to tasks in two lookups.
func withNames(db *gorm.DB, tasks []models.Task) ([]TaskView, error) {
	views := make([]TaskView, 0, len(tasks))
	if len(tasks) == 0 {
		return views, nil
	}

	userIDs := make([]string, 0, len(tasks))
	skillIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		userIDs = append(userIDs, t.PostedByUserID)
		if t.SkillRequiredID != nil {
			skillIDs = append(skillIDs, *t.SkillRequiredID)
		}
	}

	var users []models.User
	if err := db.Select("id", "full_name").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, storeErr("loading task owners", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
	}

	skillNames := map[string]string{}
	if len(skillIDs) > 0 {
		var skills []models.Skill
		if err := db.Select("id", "name").Where("id IN ?", skillIDs).Find(&skills).Error; err != nil {
			return nil, storeErr("loading task skills", err)
		}
		for _, sk := range skills {
			skillNames[sk.ID] = sk.Name
		}
	}

	for _, t := range tasks {
		v := TaskView{Task: t, PostedByUserName: names[t.PostedByUserID]}
		if t.SkillRequiredID != nil {
			v.SkillName = skillNames[*t.SkillRequiredID]
		}
		views = append(views, v)
	}
	return views, nil
}
