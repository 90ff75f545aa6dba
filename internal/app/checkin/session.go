package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/PabloGalante/hydrolog/internal/domain"
	"github.com/PabloGalante/hydrolog/internal/observability"
	"github.com/PabloGalante/hydrolog/internal/units"
)

// State is the session's position in the fixed question sequence.
type State string

const (
	StateAwaitingWater    State = "awaiting_water"
	StateAwaitingSugar    State = "awaiting_sugar"
	StateAwaitingCaffeine State = "awaiting_caffeine"
	StateAwaitingFoods    State = "awaiting_foods"
	StateAwaitingNotes    State = "awaiting_notes"
	StateCommitting       State = "committing"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

const (
	slotWater    = "water"
	slotSugar    = "sugar"
	slotCaffeine = "caffeine"
	slotFoods    = "foods"
	slotNotes    = "notes"
)

type question struct {
	slot    string
	state   State
	numeric bool
	prompt  func(u domain.UnitSystem) string
}

var questions = []question{
	{
		slot: slotWater, state: StateAwaitingWater, numeric: true,
		prompt: func(u domain.UnitSystem) string {
			return fmt.Sprintf("How much water did you drink today (in %s)?", unitLabel(u, "ml", "oz"))
		},
	},
	{
		slot: slotSugar, state: StateAwaitingSugar, numeric: true,
		prompt: func(u domain.UnitSystem) string {
			return fmt.Sprintf("How much sugary drink (%s)?", unitLabel(u, "ml", "oz"))
		},
	},
	{
		slot: slotCaffeine, state: StateAwaitingCaffeine, numeric: true,
		prompt: func(u domain.UnitSystem) string {
			return "Caffeine intake (mg)?"
		},
	},
	{
		slot: slotFoods, state: StateAwaitingFoods, numeric: true,
		prompt: func(u domain.UnitSystem) string {
			return fmt.Sprintf("Any hydrating foods (in %s)?", unitLabel(u, "grams", "oz"))
		},
	},
	{
		slot: slotNotes, state: StateAwaitingNotes, numeric: false,
		prompt: func(u domain.UnitSystem) string {
			return "Notes or how you feel today?"
		},
	},
}

func unitLabel(u domain.UnitSystem, metric, imperial string) string {
	if u == domain.UnitImperial {
		return imperial
	}
	return metric
}

// session is one run of the data-collection state machine. It lives on the
// stack of the goroutine that started it and is gone once Run returns; a
// session lost to a crash simply never happened.
type session struct {
	id      uuid.UUID
	svc     *Service
	cfg     *domain.UserConfig
	state   State
	answers map[string]string
}

func newSession(svc *Service, cfg *domain.UserConfig) *session {
	return &session{
		id:      uuid.New(),
		svc:     svc,
		cfg:     cfg,
		state:   StateAwaitingWater,
		answers: make(map[string]string, len(questions)),
	}
}

func (s *session) Run(ctx context.Context) error {
	log := s.logger(ctx)
	log.Info("check-in session started")

	uid := s.cfg.UserID
	s.svc.send(ctx, uid, fmt.Sprintf("Hi %s! Let's log your hydration for today.", s.cfg.Username))

	for _, q := range questions {
		s.state = q.state

		timeout := s.svc.timeouts.Question
		if q.slot == slotNotes {
			timeout = s.svc.timeouts.Notes
		}

		s.svc.send(ctx, uid, q.prompt(s.cfg.Unit))

		reply, err := s.svc.inbox.Await(ctx, uid, timeout)
		if err != nil {
			return s.fail(ctx, log, fmt.Errorf("waiting for %s: %w", q.slot, err))
		}
		if q.numeric {
			if _, perr := parseAmount(reply); perr != nil {
				return s.fail(ctx, log, fmt.Errorf("%s answer %q: %w", q.slot, reply, perr))
			}
		}
		s.answers[q.slot] = reply
	}

	return s.commit(ctx, log)
}

// commit normalizes the answers, submits them externally and persists them
// locally. Order is submit-then-persist: a failed submission leaves no local
// trace, a failed local write after a successful submission leaves the
// external copy as the only record.
func (s *session) commit(ctx context.Context, log *slog.Logger) error {
	s.state = StateCommitting
	uid := s.cfg.UserID

	water, _ := parseAmount(s.answers[slotWater])
	sugar, _ := parseAmount(s.answers[slotSugar])
	caffeine, _ := parseAmount(s.answers[slotCaffeine])
	foods, _ := parseAmount(s.answers[slotFoods])
	notes := s.answers[slotNotes]

	if s.cfg.Unit == domain.UnitImperial {
		water = units.ToMilliliters(water)
		sugar = units.ToMilliliters(sugar)
		foods = units.ToGrams(foods)
	}

	now := s.svc.now().In(domain.Location)

	sub := &domain.Submission{
		UserID:       uid,
		Username:     s.cfg.Username,
		AccountToken: s.cfg.AccountToken,
		WaterML:      water,
		SugarML:      sugar,
		FoodsG:       foods,
		CaffeineRaw:  s.answers[slotCaffeine],
		Notes:        notes,
	}
	if err := s.svc.forms.Submit(ctx, sub); err != nil {
		return s.fail(ctx, log, err)
	}

	rec := &domain.HydrationRecord{
		Timestamp:  now,
		WaterML:    water,
		SugarML:    sugar,
		CaffeineMG: caffeine,
		FoodsG:     foods,
		Notes:      notes,
	}
	if err := s.svc.records.AppendRecord(ctx, uid, rec); err != nil {
		return s.fail(ctx, log, fmt.Errorf("appending record: %w", err))
	}
	if err := s.svc.users.SetLastCheckin(ctx, uid, now); err != nil {
		return s.fail(ctx, log, fmt.Errorf("marking check-in: %w", err))
	}

	s.state = StateCompleted
	s.svc.send(ctx, uid, "Your hydration log was submitted successfully!")
	log.Info("check-in session completed", "water_ml", water, "state", s.state)
	return nil
}

// fail sends the single failure notification and returns the cause.
func (s *session) fail(ctx context.Context, log *slog.Logger, err error) error {
	s.state = StateFailed
	s.svc.send(ctx, s.cfg.UserID, "Something went wrong: "+err.Error())
	log.Warn("check-in session failed", "error", err, "state", s.state)
	return err
}

func (s *session) logger(ctx context.Context) *slog.Logger {
	return observability.LoggerFromContext(ctx).With("session_id", s.id.String())
}

// parseAmount parses a numeric answer. Negative, NaN and infinite values are
// rejected the same way as non-numeric text: the record invariant says every
// stored amount is >= 0.
func parseAmount(text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domain.ErrAnswerUnparsable
	}
	return v, nil
}
