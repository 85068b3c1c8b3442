// Package outbox dispatches push events that were committed in the same
// transaction as the state change producing them.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"riteswipe-api/internal/metrics"
	"riteswipe-api/internal/models"
	"riteswipe-api/internal/realtime"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Enqueue stores an event in tx. It becomes visible to the relay only if tx commits.
func Enqueue(tx *gorm.DB, group, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}
	ev := models.OutboxEvent{
		ID:        uuid.NewString(),
		Group:     group,
		Event:     event,
		Payload:   string(body),
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(&ev).Error; err != nil {
		return fmt.Errorf("enqueueing %s: %w", event, err)
	}
	return nil
}

// Sink is an external destination that must receive every event.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev models.OutboxEvent) error
}

type Options struct {
	BatchSize   int
	MaxAttempts int
}

// Relay pushes committed events to the realtime publisher once and to every
// sink until they accept it or MaxAttempts is reached. Pushes and sink
// deliveries run as separate passes so a slow or failing sink never holds
// back a push.
type Relay struct {
	db    *gorm.DB
	pub   realtime.Publisher
	sinks []Sink
	opts  Options
	log   *logrus.Entry

	pushMu   sync.Mutex
	sinkMu   sync.Mutex
	kick     chan struct{}
	sinkKick chan struct{}
}

func NewRelay(db *gorm.DB, pub realtime.Publisher, opts Options, log *logrus.Entry, sinks ...Sink) *Relay {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &Relay{
		db:       db,
		pub:      pub,
		sinks:    sinks,
		opts:     opts,
		log:      log,
		kick:     make(chan struct{}, 1),
		sinkKick: make(chan struct{}, 1),
	}
}

// Kick asks Run to push soon. It never blocks.
func (r *Relay) Kick() {
	notify(r.kick)
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Run pushes on every kick until ctx is done. Sink deliveries run in their
// own loop, started after each push pass that handed events over.
func (r *Relay) Run(ctx context.Context) {
	if len(r.sinks) > 0 {
		go r.runSinks(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.kick:
			pushed, _, err := r.push(ctx)
			if err != nil {
				r.log.WithError(err).Error("outbox push failed")
			}
			if pushed > 0 && len(r.sinks) > 0 {
				notify(r.sinkKick)
			}
		}
	}
}

func (r *Relay) runSinks(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.sinkKick:
			if _, err := r.Deliver(ctx); err != nil {
				r.log.WithError(err).Error("outbox delivery failed")
			}
		}
	}
}

// Sweep pushes one batch of unpushed events, then delivers one batch to the
// sinks, and returns how many events were completed.
func (r *Relay) Sweep(ctx context.Context) (int, error) {
	_, done, err := r.push(ctx)
	if err != nil {
		return done, err
	}
	delivered, err := r.Deliver(ctx)
	return done + delivered, err
}

// Push publishes up to one batch of events that were never pushed, in commit
// order, and returns how many it handled.
func (r *Relay) Push(ctx context.Context) (int, error) {
	pushed, _, err := r.push(ctx)
	return pushed, err
}

func (r *Relay) push(ctx context.Context) (pushed, done int, err error) {
	r.pushMu.Lock()
	defer r.pushMu.Unlock()

	var pending []models.OutboxEvent
	err = r.db.WithContext(ctx).
		Where("pushed = ?", false).
		Order("created_at asc").
		Limit(r.opts.BatchSize).
		Find(&pending).Error
	if err != nil {
		return 0, 0, fmt.Errorf("loading outbox: %w", err)
	}
	metrics.OutboxPending(len(pending))

	for i := range pending {
		ev := &pending[i]
		r.publish(ctx, ev)
		fields := map[string]any{"pushed": true}
		if len(r.sinks) == 0 {
			markDispatched(ev)
			fields["dispatched"] = true
			fields["dispatched_at"] = ev.DispatchedAt
			done++
		}
		if err := r.update(ctx, ev.ID, fields); err != nil {
			return pushed, done, err
		}
		pushed++
	}
	return pushed, done, nil
}

// publish is best-effort and never retried.
func (r *Relay) publish(ctx context.Context, ev *models.OutboxEvent) {
	if err := r.pub.Publish(ctx, ev.Group, ev.Event, json.RawMessage(ev.Payload)); err != nil {
		r.log.WithFields(logrus.Fields{"event_id": ev.ID, "event": ev.Event, "group": ev.Group}).
			WithError(err).Warn("realtime publish failed")
		metrics.OutboxDispatch("realtime", false)
	} else {
		metrics.OutboxDispatch("realtime", true)
	}
	ev.Pushed = true
}

func markDispatched(ev *models.OutboxEvent) {
	now := time.Now().UTC()
	ev.Dispatched = true
	ev.DispatchedAt = &now
	ev.LastError = ""
}

// Deliver sends up to one batch of pushed but undelivered events to every
// sink and returns how many were completed or given up on.
func (r *Relay) Deliver(ctx context.Context) (int, error) {
	if len(r.sinks) == 0 {
		return 0, nil
	}
	r.sinkMu.Lock()
	defer r.sinkMu.Unlock()

	var pending []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("dispatched = ? AND pushed = ?", false, true).
		Order("created_at asc").
		Limit(r.opts.BatchSize).
		Find(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("loading outbox deliveries: %w", err)
	}

	done := 0
	for i := range pending {
		ev := &pending[i]
		r.send(ctx, ev)
		err := r.update(ctx, ev.ID, map[string]any{
			"dispatched":    ev.Dispatched,
			"dispatched_at": ev.DispatchedAt,
			"attempts":      ev.Attempts,
			"last_error":    ev.LastError,
		})
		if err != nil {
			return done, err
		}
		if ev.Dispatched {
			done++
		}
	}
	return done, nil
}

func (r *Relay) send(ctx context.Context, ev *models.OutboxEvent) {
	entry := r.log.WithFields(logrus.Fields{"event_id": ev.ID, "event": ev.Event, "group": ev.Group})

	var failures []string
	for _, sink := range r.sinks {
		if err := sink.Send(ctx, *ev); err != nil {
			failures = append(failures, sink.Name()+": "+err.Error())
			metrics.OutboxDispatch(sink.Name(), false)
			continue
		}
		metrics.OutboxDispatch(sink.Name(), true)
	}

	if len(failures) == 0 {
		markDispatched(ev)
		return
	}

	ev.Attempts++
	ev.LastError = strings.Join(failures, "; ")
	if ev.Attempts >= r.opts.MaxAttempts {
		ev.Dispatched = true
		entry.WithField("attempts", ev.Attempts).WithField("error", ev.LastError).Error("giving up on outbox event")
		return
	}
	entry.WithField("attempts", ev.Attempts).WithField("error", ev.LastError).Warn("outbox sink failed, will retry")
}

func (r *Relay) update(ctx context.Context, id string, fields map[string]any) error {
	err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields).Error
	if err != nil {
		return fmt.Errorf("updating outbox event %s: %w", id, err)
	}
	return nil
}

// Purge deletes dispatched events created before cutoff.
func (r *Relay) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("dispatched = ? AND created_at < ?", true, cutoff).
		Delete(&models.OutboxEvent{})
	if res.Error != nil {
		return 0, fmt.Errorf("purging outbox: %w", res.Error)
	}
	return res.RowsAffected, nil
}
