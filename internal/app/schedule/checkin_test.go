package schedule_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/hydrolog/internal/adapters/storage/memory"
	"github.com/PabloGalante/hydrolog/internal/app/schedule"
	"github.com/PabloGalante/hydrolog/internal/domain"
)

type fakeStarter struct {
	mu      sync.Mutex
	started []domain.UserID
	errFor  map[domain.UserID]error
	ch      chan domain.UserID
}

func newFakeStarter() *fakeStarter {
	return &fakeStarter{
		errFor: make(map[domain.UserID]error),
		ch:     make(chan domain.UserID, 16),
	}
}

func (f *fakeStarter) StartCheckin(ctx context.Context, id domain.UserID) error {
	f.mu.Lock()
	f.started = append(f.started, id)
	f.mu.Unlock()
	f.ch <- id
	return f.errFor[id]
}

func (f *fakeStarter) wait(t *testing.T) domain.UserID {
	t.Helper()
	select {
	case id := <-f.ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("no session was started")
		return ""
	}
}

func (f *fakeStarter) assertNoneStarted(t *testing.T) {
	t.Helper()
	select {
	case id := <-f.ch:
		t.Fatalf("unexpected session start for %s", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func seedUser(t *testing.T, users *memory.UserStore, id domain.UserID, hour, minute int, last *time.Time) {
	t.Helper()
	cfg, err := domain.NewUserConfig(id, "user-"+string(id), domain.UnitMetric)
	require.NoError(t, err)
	cfg.CheckinHour = hour
	cfg.CheckinMinute = minute
	require.NoError(t, users.CreateUser(context.Background(), cfg))
	if last != nil {
		require.NoError(t, users.SetLastCheckin(context.Background(), id, *last))
	}
}

func TestTickStartsDueUser(t *testing.T) {
	users := memory.NewUserStore()
	starter := newFakeStarter()
	sched := schedule.NewCheckin(users, starter)

	now := time.Date(2024, 6, 5, 20, 0, 30, 0, time.UTC)
	seedUser(t, users, "1", 20, 0, nil)

	sched.Tick(context.Background(), now)
	assert.Equal(t, domain.UserID("1"), starter.wait(t))
}

func TestTickSkipsWrongMinute(t *testing.T) {
	users := memory.NewUserStore()
	starter := newFakeStarter()
	sched := schedule.NewCheckin(users, starter)

	seedUser(t, users, "1", 20, 0, nil)

	sched.Tick(context.Background(), time.Date(2024, 6, 5, 20, 1, 0, 0, time.UTC))
	sched.Tick(context.Background(), time.Date(2024, 6, 5, 19, 0, 0, 0, time.UTC))
	starter.assertNoneStarted(t)
}

func TestTickSkipsUserAlreadyCheckedInToday(t *testing.T) {
	users := memory.NewUserStore()
	starter := newFakeStarter()
	sched := schedule.NewCheckin(users, starter)

	now := time.Date(2024, 6, 5, 20, 0, 0, 0, time.UTC)
	earlier := now.Add(-2 * time.Hour)
	seedUser(t, users, "1", 20, 0, &earlier)

	sched.Tick(context.Background(), now)
	starter.assertNoneStarted(t)
}

func TestTickStartsUserCheckedInYesterday(t *testing.T) {
	users := memory.NewUserStore()
	starter := newFakeStarter()
	sched := schedule.NewCheckin(users, starter)

	now := time.Date(2024, 6, 5, 20, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	seedUser(t, users, "1", 20, 0, &yesterday)

	sched.Tick(context.Background(), now)
	assert.Equal(t, domain.UserID("1"), starter.wait(t))
}

func TestTickIsolatesPerUserFailures(t *testing.T) {
	users := memory.NewUserStore()
	starter := newFakeStarter()
	starter.errFor["1"] = errors.New("cannot resolve user on chat platform")
	sched := schedule.NewCheckin(users, starter)

	now := time.Date(2024, 6, 5, 20, 0, 0, 0, time.UTC)
	seedUser(t, users, "1", 20, 0, nil)
	seedUser(t, users, "2", 20, 0, nil)

	sched.Tick(context.Background(), now)

	got := map[domain.UserID]bool{}
	got[starter.wait(t)] = true
	got[starter.wait(t)] = true
	assert.True(t, got["1"] && got["2"], "both users should have been processed")
}

func TestReportRunsOnlyOnReportDay(t *testing.T) {
	users := memory.NewUserStore()
	records := memory.NewRecordStore()
	msgs := &recordingMessenger{}

	// 2024-06-09 is a Sunday, 2024-06-05 a Wednesday.
	sunday := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	wednesday := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)

	seedUser(t, users, "1", 20, 0, nil)
	require.NoError(t, records.AppendRecord(context.Background(), "1", &domain.HydrationRecord{
		Timestamp: sunday.Add(-24 * time.Hour),
		WaterML:   500,
	}))

	sched := schedule.NewReportAt(users, records, msgs, time.Sunday, func() time.Time { return wednesday })
	sched.RunDaily(context.Background())
	assert.Empty(t, msgs.texts())

	sched = schedule.NewReportAt(users, records, msgs, time.Sunday, func() time.Time { return sunday })
	sched.RunDaily(context.Background())

	texts := msgs.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Weekly Hydration Summary")
	assert.Contains(t, texts[0], "Total Water Intake: 500 ml")
}

func TestReportSkipsUsersWithoutRecentRecords(t *testing.T) {
	users := memory.NewUserStore()
	records := memory.NewRecordStore()
	msgs := &recordingMessenger{}

	sunday := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	seedUser(t, users, "1", 20, 0, nil)

	sched := schedule.NewReportAt(users, records, msgs, time.Sunday, func() time.Time { return sunday })
	sched.RunDaily(context.Background())
	assert.Empty(t, msgs.texts())
}

type recordingMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMessenger) Send(ctx context.Context, id domain.UserID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return nil
}

func (m *recordingMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}
