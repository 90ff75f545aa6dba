// Package schedule holds the two background loops: the minute-granular
// check-in scheduler and the daily weekly-report job.
package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/PabloGalante/hydrolog/internal/domain"
	"github.com/PabloGalante/hydrolog/internal/observability"
)

// SessionStarter is what the scheduler needs from the check-in service.
type SessionStarter interface {
	StartCheckin(ctx context.Context, id domain.UserID) error
}

// Checkin walks all registered users once per minute and starts a session
// for everyone whose configured time matches the current UTC minute and who
// has not completed a check-in today.
type Checkin struct {
	users    domain.UserStore
	starter  SessionStarter
	interval time.Duration
	now      func() time.Time
}

func NewCheckin(users domain.UserStore, starter SessionStarter) *Checkin {
	return &Checkin{
		users:    users,
		starter:  starter,
		interval: time.Minute,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (c *Checkin) Run(ctx context.Context) {
	log := observability.Logger()
	log.Info("check-in scheduler started", "interval", c.interval.String())

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("check-in scheduler stopped")
			return
		case <-ticker.C:
			c.Tick(ctx, c.now().In(domain.Location))
		}
	}
}

// Tick evaluates every user against now. Due users get their session started
// in its own goroutine: the tick never waits on human replies, and one slow
// user cannot starve the rest. Per-user failures are logged and skipped.
func (c *Checkin) Tick(ctx context.Context, now time.Time) {
	log := observability.Logger()

	users, err := c.users.ListUsers(ctx)
	if err != nil {
		log.Error("listing users for check-in tick", "error", err)
		return
	}

	for _, cfg := range users {
		if !due(cfg, now) {
			continue
		}
		uid := cfg.UserID
		go func() {
			err := c.starter.StartCheckin(ctx, uid)
			switch {
			case err == nil, errors.Is(err, domain.ErrSessionActive):
			default:
				log.Warn("scheduled check-in failed", "user_id", uid, "error", err)
			}
		}()
	}
}

// due requires an exact hour:minute match against the configured check-in
// time. If no tick lands on that minute (process paused across it), the
// day's check-in is skipped entirely rather than fired late. The second
// half is the once-per-day guard: LastCheckin is set only when a session
// completes, so an in-flight or failed session does not block the next day.
func due(cfg *domain.UserConfig, now time.Time) bool {
	if now.Hour() != cfg.CheckinHour || now.Minute() != cfg.CheckinMinute {
		return false
	}
	return !cfg.CheckedInOn(now)
}
