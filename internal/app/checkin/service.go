// Package checkin drives the conversational side of the system: user
// registration and the daily five-question hydration session.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PabloGalante/hydrolog/internal/domain"
	"github.com/PabloGalante/hydrolog/internal/observability"
)

// Timeouts bounds each interactive wait. Tests shrink these to milliseconds.
type Timeouts struct {
	Question time.Duration // questions 1-4
	Notes    time.Duration // free-text notes question
	Setup    time.Duration // unit preference reply during registration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Question: 120 * time.Second,
		Notes:    180 * time.Second,
		Setup:    60 * time.Second,
	}
}

type Service struct {
	users     domain.UserStore
	records   domain.RecordStore
	messenger domain.Messenger
	forms     domain.FormSubmitter
	inbox     *Inbox
	timeouts  Timeouts
	now       func() time.Time

	mu     sync.Mutex
	active map[domain.UserID]struct{}
}

func NewService(
	users domain.UserStore,
	records domain.RecordStore,
	messenger domain.Messenger,
	forms domain.FormSubmitter,
	timeouts Timeouts,
) *Service {
	return &Service{
		users:     users,
		records:   records,
		messenger: messenger,
		forms:     forms,
		inbox:     NewInbox(),
		timeouts:  timeouts,
		now:       time.Now,
		active:    make(map[domain.UserID]struct{}),
	}
}

// Register runs the setup exchange: one question about the preferred unit
// system, one reply within the setup timeout. Nothing is persisted unless
// the reply is a valid unit preference.
func (s *Service) Register(ctx context.Context, id domain.UserID, username string) error {
	ctx = observability.WithUserID(ctx, string(id))
	log := observability.LoggerFromContext(ctx)

	if _, err := s.users.GetUser(ctx, id); err == nil {
		s.send(ctx, id, "You're already set up.")
		return domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("looking up user: %w", err)
	}

	s.send(ctx, id, "Would you like to use metric (ml/g) or imperial (oz)? Reply `metric` or `imperial`.")

	reply, err := s.inbox.Await(ctx, id, s.timeouts.Setup)
	if err != nil {
		s.send(ctx, id, "Setup failed: invalid or missing unit preference.")
		log.Warn("registration failed", "error", err)
		return err
	}

	unit, err := domain.ParseUnitSystem(reply)
	if err != nil {
		s.send(ctx, id, "Setup failed: invalid or missing unit preference.")
		log.Warn("registration failed", "error", err)
		return err
	}

	cfg, err := domain.NewUserConfig(id, username, unit)
	if err != nil {
		return err
	}
	if err := s.users.CreateUser(ctx, cfg); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.send(ctx, id, "You're already set up.")
			return domain.ErrAlreadyRegistered
		}
		return fmt.Errorf("creating user: %w", err)
	}

	s.send(ctx, id, fmt.Sprintf(
		"Setup complete, %s. Using `%s` units. Your account token is `%s`.",
		username, unit, cfg.AccountToken))
	log.Info("user registered", "unit", unit)
	return nil
}

// StartCheckin runs one full hydration session for the user, blocking until
// the session reaches a terminal state. The scheduler calls it in its own
// goroutine; the manual command calls it directly.
//
// Unregistered users get a one-line pointer to /setup and no session. A
// second call while a session is still awaiting a reply returns
// domain.ErrSessionActive without sending anything.
func (s *Service) StartCheckin(ctx context.Context, id domain.UserID) error {
	ctx = observability.WithUserID(ctx, string(id))

	cfg, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.send(ctx, id, "Please run /setup first.")
			return domain.ErrNotRegistered
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	if !s.acquire(id) {
		return domain.ErrSessionActive
	}
	defer s.release(id)

	return newSession(s, cfg).Run(ctx)
}

// HandleReply routes an inbound private message to the prompt waiting for
// this user. Returns false when nobody is waiting.
func (s *Service) HandleReply(id domain.UserID, text string) bool {
	return s.inbox.Deliver(id, text)
}

func (s *Service) acquire(id domain.UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.active[id]; exists {
		return false
	}
	s.active[id] = struct{}{}
	return true
}

func (s *Service) release(id domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

// send logs delivery failures instead of propagating them: an undeliverable
// notification must not change the session outcome.
func (s *Service) send(ctx context.Context, id domain.UserID, text string) {
	if err := s.messenger.Send(ctx, id, text); err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to send message", "error", err)
	}
}
