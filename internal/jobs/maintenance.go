package jobs

import (
	"context"
	"time"

	"riteswipe-api/internal/outbox"
	"riteswipe-api/internal/services"

	"github.com/sirupsen/logrus"
)

// Purger drops expired entries from an in-memory cache and reports how many.
type Purger interface {
	Purge() int
}

// PurgerFunc adapts a plain function to Purger.
type PurgerFunc func() int

func (f PurgerFunc) Purge() int { return f() }

// Maintenance lists what the standard schedule operates on.
type Maintenance struct {
	Relay         *outbox.Relay
	Notifications *services.NotificationService
	Caches        map[string]Purger

	OutboxSweep           time.Duration
	NotificationRetention time.Duration
	OutboxRetention       time.Duration
}

const (
	JobOutboxSweep        = "outbox-sweep"
	JobOutboxPurge        = "outbox-purge"
	JobNotificationPurge  = "notification-purge"
	JobCachePurge         = "cache-purge"
	defaultOutboxSweep    = 15 * time.Second
	defaultOutboxRetain   = 7 * 24 * time.Hour
	defaultNotificationTT = 30 * 24 * time.Hour
)

// Register adds the outbox, retention and cache jobs to s.
func Register(s *Scheduler, m Maintenance) error {
	if m.OutboxSweep <= 0 {
		m.OutboxSweep = defaultOutboxSweep
	}
	if m.OutboxRetention <= 0 {
		m.OutboxRetention = defaultOutboxRetain
	}
	if m.NotificationRetention <= 0 {
		m.NotificationRetention = defaultNotificationTT
	}

	if m.Relay != nil {
		if err := s.Every(JobOutboxSweep, m.OutboxSweep, func(ctx context.Context) error {
			n, err := m.Relay.Sweep(ctx)
			if n > 0 {
				s.log.WithField("events", n).Debug("outbox swept")
			}
			return err
		}); err != nil {
			return err
		}
		if err := s.Add(JobOutboxPurge, "@hourly", func(ctx context.Context) error {
			n, err := m.Relay.Purge(ctx, time.Now().Add(-m.OutboxRetention))
			if n > 0 {
				s.log.WithField("events", n).Info("dispatched outbox events purged")
			}
			return err
		}); err != nil {
			return err
		}
	}

	if m.Notifications != nil {
		if err := s.Add(JobNotificationPurge, "30 3 * * *", func(ctx context.Context) error {
			n, err := m.Notifications.PurgeRead(ctx, time.Now().Add(-m.NotificationRetention))
			if n > 0 {
				s.log.WithField("notifications", n).Info("read notifications purged")
			}
			return err
		}); err != nil {
			return err
		}
	}

	if len(m.Caches) > 0 {
		if err := s.Every(JobCachePurge, 5*time.Minute, func(context.Context) error {
			for name, p := range m.Caches {
				if n := p.Purge(); n > 0 {
					s.log.WithFields(logrus.Fields{"cache": name, "entries": n}).Debug("cache purged")
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}
