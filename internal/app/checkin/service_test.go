package checkin_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/hydrolog/internal/adapters/storage/memory"
	"github.com/PabloGalante/hydrolog/internal/app/checkin"
	"github.com/PabloGalante/hydrolog/internal/domain"
)

const testUser = domain.UserID("1001")

// fakeMessenger records every outbound message and exposes them on a channel
// so tests can follow the prompt sequence.
type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
	ch   chan string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{ch: make(chan string, 32)}
}

func (m *fakeMessenger) Send(ctx context.Context, id domain.UserID, text string) error {
	m.mu.Lock()
	m.sent = append(m.sent, text)
	m.mu.Unlock()
	m.ch <- text
	return nil
}

func (m *fakeMessenger) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type fakeSubmitter struct {
	mu     sync.Mutex
	err    error
	subs   []*domain.Submission
	called int
}

func (f *fakeSubmitter) Submit(ctx context.Context, sub *domain.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called++
	if f.err != nil {
		return f.err
	}
	s := *sub
	f.subs = append(f.subs, &s)
	return nil
}

type fixture struct {
	users     *memory.UserStore
	records   *memory.RecordStore
	messenger *fakeMessenger
	submitter *fakeSubmitter
	svc       *checkin.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:     memory.NewUserStore(),
		records:   memory.NewRecordStore(),
		messenger: newFakeMessenger(),
		submitter: &fakeSubmitter{},
	}
	f.svc = checkin.NewService(f.users, f.records, f.messenger, f.submitter, checkin.Timeouts{
		Question: 200 * time.Millisecond,
		Notes:    200 * time.Millisecond,
		Setup:    200 * time.Millisecond,
	})
	return f
}

func (f *fixture) seedUser(t *testing.T, unit domain.UnitSystem) *domain.UserConfig {
	t.Helper()
	cfg, err := domain.NewUserConfig(testUser, "Pat", unit)
	require.NoError(t, err)
	require.NoError(t, f.users.CreateUser(context.Background(), cfg))
	return cfg
}

// waitMsg blocks for the next outbound message.
func (f *fixture) waitMsg(t *testing.T) string {
	t.Helper()
	select {
	case text := <-f.messenger.ch:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an outbound message")
		return ""
	}
}

// reply delivers text once the session is actually waiting for it. Retrying
// covers the small window between the prompt being sent and the session
// registering its reply waiter.
func (f *fixture) reply(t *testing.T, text string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.svc.HandleReply(testUser, text)
	}, time.Second, 2*time.Millisecond)
}

func startCheckin(f *fixture) chan error {
	done := make(chan error, 1)
	go func() {
		done <- f.svc.StartCheckin(context.Background(), testUser)
	}()
	return done
}

func waitErr(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func TestStartCheckinUnregisteredUser(t *testing.T) {
	f := newFixture(t)

	err := f.svc.StartCheckin(context.Background(), testUser)
	require.ErrorIs(t, err, domain.ErrNotRegistered)

	// One pointer to /setup, no prompts, and no session listening.
	assert.Equal(t, []string{"Please run /setup first."}, f.messenger.messages())
	assert.False(t, f.svc.HandleReply(testUser, "500"))
}

func TestRegisterAndCompleteMetricSession(t *testing.T) {
	f := newFixture(t)

	regDone := make(chan error, 1)
	go func() {
		regDone <- f.svc.Register(context.Background(), testUser, "Pat")
	}()

	assert.Contains(t, f.waitMsg(t), "metric (ml/g) or imperial (oz)")
	f.reply(t, "metric")
	require.NoError(t, waitErr(t, regDone))

	cfg, err := f.users.GetUser(context.Background(), testUser)
	require.NoError(t, err)
	assert.Len(t, cfg.AccountToken, 16)
	assert.Equal(t, domain.UnitMetric, cfg.Unit)
	assert.Equal(t, 20, cfg.CheckinHour)
	assert.Nil(t, cfg.LastCheckin)

	confirmation := f.waitMsg(t)
	assert.Contains(t, confirmation, cfg.AccountToken)

	done := startCheckin(f)
	f.waitMsg(t) // greeting
	for _, reply := range []string{"500", "100", "40", "20", "ok"} {
		f.waitMsg(t) // prompt
		f.reply(t, reply)
	}
	require.NoError(t, waitErr(t, done))

	recs, err := f.records.ListRecords(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 500.0, recs[0].WaterML)
	assert.Equal(t, 100.0, recs[0].SugarML)
	assert.Equal(t, 40.0, recs[0].CaffeineMG)
	assert.Equal(t, 20.0, recs[0].FoodsG)
	assert.Equal(t, "ok", recs[0].Notes)

	cfg, err = f.users.GetUser(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, cfg.LastCheckin)

	require.Len(t, f.submitter.subs, 1)
	sub := f.submitter.subs[0]
	assert.Equal(t, "40", sub.CaffeineRaw)
	assert.Equal(t, cfg.AccountToken, sub.AccountToken)
	assert.Equal(t, 500.0, sub.WaterML)
}

func TestRegisterInvalidUnit(t *testing.T) {
	f := newFixture(t)

	regDone := make(chan error, 1)
	go func() {
		regDone <- f.svc.Register(context.Background(), testUser, "Pat")
	}()

	f.waitMsg(t)
	f.reply(t, "stones")

	require.ErrorIs(t, waitErr(t, regDone), domain.ErrInvalidUnit)
	assert.Contains(t, f.waitMsg(t), "Setup failed")

	_, err := f.users.GetUser(context.Background(), testUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisterTimeout(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Register(context.Background(), testUser, "Pat")
	require.ErrorIs(t, err, domain.ErrAnswerTimeout)

	_, err = f.users.GetUser(context.Background(), testUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisterTwice(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, domain.UnitMetric)

	err := f.svc.Register(context.Background(), testUser, "Pat")
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	assert.Equal(t, []string{"You're already set up."}, f.messenger.messages())
}

func TestImperialConversionOnCommit(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, domain.UnitImperial)

	done := startCheckin(f)
	f.waitMsg(t) // greeting

	prompt := f.waitMsg(t)
	assert.Contains(t, prompt, "oz")
	f.reply(t, "16")
	for _, reply := range []string{"4", "40", "2", "fine"} {
		f.waitMsg(t)
		f.reply(t, reply)
	}
	require.NoError(t, waitErr(t, done))

	recs, err := f.records.ListRecords(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 473.18, recs[0].WaterML)  // 16 oz
	assert.Equal(t, 118.29, recs[0].SugarML)  // 4 oz
	assert.Equal(t, 56.7, recs[0].FoodsG)     // 2 oz
	assert.Equal(t, 40.0, recs[0].CaffeineMG) // stored as given
}

func TestCaffeineTimeoutFailsSession(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, domain.UnitMetric)

	done := startCheckin(f)
	f.waitMsg(t) // greeting
	f.waitMsg(t) // water prompt
	f.reply(t, "500")
	f.waitMsg(t) // sugar prompt
	f.reply(t, "100")
	f.waitMsg(t) // caffeine prompt, no reply

	require.ErrorIs(t, waitErr(t, done), domain.ErrAnswerTimeout)

	var failures int
	for _, msg := range f.messenger.messages() {
		if strings.HasPrefix(msg, "Something went wrong") {
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	recs, err := f.records.ListRecords(context.Background(), testUser)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 0, f.submitter.called)
}

func TestUnparsableAnswerFailsSession(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, domain.UnitMetric)

	done := startCheckin(f)
	f.waitMsg(t) // greeting
	f.waitMsg(t) // water prompt
	f.reply(t, "a lot")

	require.ErrorIs(t, waitErr(t, done), domain.ErrAnswerUnparsable)

	recs, err := f.records.ListRecords(context.Background(), testUser)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestNegativeAnswerIsUnparsable(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, domain.UnitMetric)

	done := startCheckin(f)
	f.waitMsg(t)
	f.waitMsg(t)
	f.reply(t, "-500")

	require.ErrorIs(t, waitErr(t, done), domain.ErrAnswerUnparsable)
}

func TestSubmissionFailureLeavesNoLocalTrace(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, domain.UnitMetric)
	f.submitter.err = domain.ErrSubmissionFailed

	done := startCheckin(f)
	f.waitMsg(t) // greeting
	for _, reply := range []string{"500", "100", "40", "20", "ok"} {
		f.waitMsg(t)
		f.reply(t, reply)
	}

	require.ErrorIs(t, waitErr(t, done), domain.ErrSubmissionFailed)

	recs, err := f.records.ListRecords(context.Background(), testUser)
	require.NoError(t, err)
	assert.Empty(t, recs)

	cfg, err := f.users.GetUser(context.Background(), testUser)
	require.NoError(t, err)
	assert.Nil(t, cfg.LastCheckin)
}

func TestSecondSessionRejectedWhileActive(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, domain.UnitMetric)

	done := startCheckin(f)
	f.waitMsg(t) // greeting: the first session is running

	err := f.svc.StartCheckin(context.Background(), testUser)
	require.ErrorIs(t, err, domain.ErrSessionActive)

	// Let the first session time out and clean up.
	require.ErrorIs(t, waitErr(t, done), domain.ErrAnswerTimeout)
}
