package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/PabloGalante/hydrolog/internal/app/report"
	"github.com/PabloGalante/hydrolog/internal/domain"
	"github.com/PabloGalante/hydrolog/internal/observability"
)

// Report sends each user a weekly hydration summary. The cron job fires at
// midnight UTC every day; the body is a no-op unless the day matches the
// configured report weekday.
type Report struct {
	users     domain.UserStore
	records   domain.RecordStore
	messenger domain.Messenger
	weekday   time.Weekday
	now       func() time.Time
}

func NewReport(users domain.UserStore, records domain.RecordStore, messenger domain.Messenger, weekday time.Weekday) *Report {
	return NewReportAt(users, records, messenger, weekday, time.Now)
}

// NewReportAt is NewReport with an injected clock.
func NewReportAt(users domain.UserStore, records domain.RecordStore, messenger domain.Messenger, weekday time.Weekday, now func() time.Time) *Report {
	return &Report{
		users:     users,
		records:   records,
		messenger: messenger,
		weekday:   weekday,
		now:       now,
	}
}

func (r *Report) Start() *cron.Cron {
	c := cron.New()
	_, _ = c.AddFunc("0 0 * * *", func() {
		r.RunDaily(context.Background())
	})
	c.Start()
	return c
}

// RunDaily sends one summary per user with at least one record in the
// trailing 7 days. Per-user failures are logged and skipped.
func (r *Report) RunDaily(ctx context.Context) {
	log := observability.Logger()

	now := r.now().In(domain.Location)
	if now.Weekday() != r.weekday {
		return
	}
	log.Info("sending weekly reports")

	users, err := r.users.ListUsers(ctx)
	if err != nil {
		log.Error("listing users for weekly report", "error", err)
		return
	}

	for _, cfg := range users {
		recs, err := r.records.ListRecords(ctx, cfg.UserID)
		if err != nil {
			log.Warn("loading records for weekly report", "user_id", cfg.UserID, "error", err)
			continue
		}

		sum, ok := report.Summarize(cfg, recs, now)
		if !ok {
			continue
		}

		if err := r.messenger.Send(ctx, cfg.UserID, sum.Format(cfg.Username)); err != nil {
			log.Warn("delivering weekly report", "user_id", cfg.UserID, "error", err)
		}
	}
}
