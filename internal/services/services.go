// Package services implements the marketplace use cases: identity, skills,
// task lifecycle, escrow, reviews and disputes, and notification fan-out.
//
// Every mutating operation takes the caller's user id explicitly and runs in
// a single transaction that also writes its notifications and outbox events.
package services

import (
	"context"
	"errors"
	"time"

	"riteswipe-api/internal/apperr"
	"riteswipe-api/internal/auth"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/payments"
	"riteswipe-api/internal/reports"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Dispatcher is told when a commit may have produced outbox events.
type Dispatcher interface {
	Kick()
}

type noopDispatcher struct{}

func (noopDispatcher) Kick() {}

// now is a small indirection to allow test stubbing.
var now = func() time.Time { return time.Now().UTC() }

func newID() string { return uuid.NewString() }

func timePtr(t time.Time) *time.Time { return &t }

// txRunner runs a unit of work and kicks the dispatcher after a commit.
type txRunner struct {
	db         *gorm.DB
	dispatcher Dispatcher
}

func (r txRunner) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := r.db.WithContext(ctx).Transaction(fn); err != nil {
		return err
	}
	r.dispatcher.Kick()
	return nil
}

// storeErr keeps typed errors and wraps anything else as Internal.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(op, err)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// first loads one row or returns NotFound(entity, id).
func first[T any](tx *gorm.DB, entity, id string) (*T, error) {
	var row T
	err := tx.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(entity, id)
	}
	if err != nil {
		return nil, storeErr("loading "+entity, err)
	}
	return &row, nil
}

func findTask(tx *gorm.DB, id string) (*models.Task, error) {
	return first[models.Task](tx, "Task", id)
}

func findUser(tx *gorm.DB, id string) (*models.User, error) {
	return first[models.User](tx, "User", id)
}

func findSkill(tx *gorm.DB, id string) (*models.Skill, error) {
	return first[models.Skill](tx, "Skill", id)
}

// Options tunes service behaviour from configuration.
type Options struct {
	SwipePageSize  int
	DemandCacheTTL time.Duration
}

// Services bundles every use case over one database.
type Services struct {
	Users         *UserService
	Skills        *SkillService
	Tasks         *TaskService
	Escrow        *EscrowService
	Reviews       *ReviewService
	Notifications *NotificationService
}

// New wires the services. A nil dispatcher is allowed.
func New(db *gorm.DB, dispatcher Dispatcher, gateway payments.Gateway, rep *reports.Reports, limiter auth.AttemptLimiter, opts Options, log *logrus.Entry) *Services {
	if dispatcher == nil {
		dispatcher = noopDispatcher{}
	}
	if opts.SwipePageSize <= 0 {
		opts.SwipePageSize = 10
	}
	if opts.DemandCacheTTL <= 0 {
		opts.DemandCacheTTL = time.Minute
	}
	runner := txRunner{db: db, dispatcher: dispatcher}
	notifications := &NotificationService{txRunner: runner, log: log.WithField("service", "notifications")}

	return &Services{
		Users:         &UserService{txRunner: runner, notifier: notifications, reports: rep, limiter: limiter, log: log.WithField("service", "users")},
		Skills:        newSkillService(runner, opts.DemandCacheTTL, log.WithField("service", "skills")),
		Tasks:         &TaskService{txRunner: runner, notifier: notifications, pageSize: opts.SwipePageSize, log: log.WithField("service", "tasks")},
		Escrow:        &EscrowService{txRunner: runner, notifier: notifications, gateway: gateway, reports: rep, log: log.WithField("service", "escrow")},
		Reviews:       &ReviewService{txRunner: runner, notifier: notifications, log: log.WithField("service", "reviews")},
		Notifications: notifications,
	}
}
